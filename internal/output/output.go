// Package output formats records as delimiter-separated text.
//
// Fields are joined with FieldSeparator and records with RecordSeparator.
// Field values are written as-is: a value containing a separator is not
// escaped and will split when read back.
package output

import (
	"io"
	"strconv"
	"strings"
)

const (
	RecordSeparator = "\n"
	FieldSeparator  = ":"
)

// Record is anything that can be rendered as a list of fields.
type Record interface {
	Fields() []string
}

// FieldJoin joins the fields of one record with the field separator.
func FieldJoin(fields []string) string {
	return strings.Join(fields, FieldSeparator)
}

// RecordJoin joins already formatted records with the record separator.
func RecordJoin(records []string) string {
	return strings.Join(records, RecordSeparator)
}

// Format renders records one per line.
func Format[R Record](records []R) string {
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, FieldJoin(r.Fields()))
	}
	return RecordJoin(lines)
}

// Strings renders single-field records, one per line.
func Strings(values []string) string {
	return RecordJoin(values)
}

// IDs renders integer identifiers, one per line.
func IDs(ids []int64) string {
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, strconv.FormatInt(id, 10))
	}
	return RecordJoin(lines)
}

// Write writes text followed by a record separator. Empty text writes nothing.
func Write(w io.Writer, text string) error {
	if text == "" {
		return nil
	}
	_, err := io.WriteString(w, text+RecordSeparator)
	return err
}
