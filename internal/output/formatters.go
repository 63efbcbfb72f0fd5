package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"shotty/internal/errors"
	"shotty/internal/interfaces"
	"shotty/internal/models"
)

// SnapshotTimeLayout is the layout used for snapshot start times
const SnapshotTimeLayout = time.ANSIC

// NewFormatter returns the formatter registered under format
func NewFormatter(format string, w io.Writer) (interfaces.RowFormatter, error) {
	switch format {
	case "", "text":
		return NewTextFormatter(w), nil
	case "table":
		return NewTableFormatter(w), nil
	default:
		return nil, errors.ValidationError("unsupported output format").
			WithContext("format", format).
			WithSuggestion("Use text or table")
	}
}

// InstanceLine formats an instance as a comma separated line
func InstanceLine(i models.Instance) string {
	return strings.Join([]string{
		i.ID,
		i.Type,
		i.AvailabilityZone,
		i.State,
		i.PublicDNSName,
		i.Project(),
	}, ",")
}

// VolumeLine formats a volume as a comma separated line
func VolumeLine(v models.Volume) string {
	return strings.Join([]string{
		v.ID,
		v.InstanceID,
		v.State,
		fmt.Sprintf("%dGiB", v.SizeGiB),
		v.EncryptionStatus(),
	}, ", ")
}

// SnapshotLine formats a snapshot as a comma separated line
func SnapshotLine(s models.Snapshot, instanceID string) string {
	return strings.Join([]string{
		s.ID,
		s.VolumeID,
		instanceID,
		s.State,
		s.Progress,
		s.StartTime.Format(SnapshotTimeLayout),
	}, ", ")
}

// TextFormatter writes one line per resource as soon as it is seen
type TextFormatter struct {
	w io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{w: w}
}

// FormatType returns the format type
func (f *TextFormatter) FormatType() string {
	return "text"
}

// Instance writes an instance line
func (f *TextFormatter) Instance(i models.Instance) error {
	_, err := fmt.Fprintln(f.w, InstanceLine(i))
	return err
}

// Volume writes a volume line
func (f *TextFormatter) Volume(v models.Volume) error {
	_, err := fmt.Fprintln(f.w, VolumeLine(v))
	return err
}

// Snapshot writes a snapshot line
func (f *TextFormatter) Snapshot(s models.Snapshot, instanceID string) error {
	_, err := fmt.Fprintln(f.w, SnapshotLine(s, instanceID))
	return err
}

// Flush is a no-op; lines are written immediately
func (f *TextFormatter) Flush() error {
	return nil
}

// TableFormatter buffers rows and renders them as a single table on Flush
type TableFormatter struct {
	w      io.Writer
	tw     table.Writer
	header table.Row
	rows   int
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	f := &TableFormatter{w: w}
	f.reset()
	return f
}

func (f *TableFormatter) reset() {
	f.tw = table.NewWriter()
	f.tw.SetStyle(table.StyleLight)
	f.header = nil
	f.rows = 0
}

// FormatType returns the format type
func (f *TableFormatter) FormatType() string {
	return "table"
}

func (f *TableFormatter) append(header, row table.Row) {
	if f.header == nil {
		f.header = header
		f.tw.AppendHeader(header)
	}
	f.tw.AppendRow(row)
	f.rows++
}

// Instance buffers an instance row
func (f *TableFormatter) Instance(i models.Instance) error {
	f.append(
		table.Row{"Instance", "Type", "Zone", "State", "Public DNS", "Project"},
		table.Row{i.ID, i.Type, i.AvailabilityZone, i.State, i.PublicDNSName, i.Project()},
	)
	return nil
}

// Volume buffers a volume row
func (f *TableFormatter) Volume(v models.Volume) error {
	f.append(
		table.Row{"Volume", "Instance", "State", "Size", "Encryption"},
		table.Row{v.ID, v.InstanceID, v.State, fmt.Sprintf("%dGiB", v.SizeGiB), v.EncryptionStatus()},
	)
	return nil
}

// Snapshot buffers a snapshot row
func (f *TableFormatter) Snapshot(s models.Snapshot, instanceID string) error {
	f.append(
		table.Row{"Snapshot", "Volume", "Instance", "State", "Progress", "Started"},
		table.Row{s.ID, s.VolumeID, instanceID, s.State, s.Progress, s.StartTime.Format(SnapshotTimeLayout)},
	)
	return nil
}

// Flush renders the buffered rows, if any, and starts a new table
func (f *TableFormatter) Flush() error {
	defer f.reset()
	if f.rows == 0 {
		return nil
	}
	_, err := fmt.Fprintln(f.w, f.tw.Render())
	return err
}
