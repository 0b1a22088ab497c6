// Package record defines the correction rows read from spreadsheets and the
// credential table used to authenticate them against the payment API.
package record

import (
	"strings"
)

// ColumnPublicID is the column holding the merchant public identifier.
const ColumnPublicID = "publicId"

// Record is one spreadsheet row: an ordered mapping of column name to value.
// A Record is read-only once built.
type Record struct {
	columns []string
	values  map[string]string
}

// New builds a Record from parallel header and value slices.
// Missing trailing values are stored as empty strings; surplus values are dropped.
func New(columns, values []string) Record {
	r := Record{
		columns: make([]string, 0, len(columns)),
		values:  make(map[string]string, len(columns)),
	}
	for i, col := range columns {
		value := ""
		if i < len(values) {
			value = strings.TrimSpace(values[i])
		}
		if _, dup := r.values[col]; !dup {
			r.columns = append(r.columns, col)
		}
		r.values[col] = value
	}
	return r
}

// FromMap builds a Record from a map, ordering columns as given.
// Columns not present in the map are stored as empty strings.
func FromMap(columns []string, values map[string]string) Record {
	row := make([]string, len(columns))
	for i, col := range columns {
		row[i] = values[col]
	}
	return New(columns, row)
}

// Get returns the value of a column, or "" when the column is absent.
func (r Record) Get(column string) string {
	return r.values[column]
}

// Lookup returns the value of a column and whether the column exists.
func (r Record) Lookup(column string) (string, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns a copy of the column names in sheet order.
func (r Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of columns.
func (r Record) Len() int {
	return len(r.columns)
}

// PublicID returns the trimmed publicId column.
func (r Record) PublicID() string {
	return strings.TrimSpace(r.values[ColumnPublicID])
}

// IsEmpty reports whether every value in the row is blank.
func (r Record) IsEmpty() bool {
	for _, v := range r.values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// String renders the raw row content as {col=value, col=value}.
// This is what lands in the failure log when a record hits an internal error.
func (r Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col)
		b.WriteByte('=')
		b.WriteString(r.values[col])
	}
	b.WriteByte('}')
	return b.String()
}
