// Package gtf provides GTF record parsing, attribute extraction and serialization.
package gtf

import "strconv"

// Canonical GTF column names, in file order.
const (
	ColSeqname   = "seqname"
	ColSource    = "source"
	ColFeature   = "feature"
	ColStart     = "start"
	ColEnd       = "end"
	ColScore     = "score"
	ColStrand    = "strand"
	ColFrame     = "frame"
	ColAttribute = "attribute"
)

// Columns lists the nine GTF columns in file order.
var Columns = []string{
	ColSeqname, ColSource, ColFeature, ColStart, ColEnd,
	ColScore, ColStrand, ColFrame, ColAttribute,
}

// Record is one row of a GTF feature table.
type Record struct {
	Seqname    string // Chromosome or contig name
	Source     string // Annotation source (e.g., HAVANA)
	Feature    string // Feature type (gene, transcript, exon, ...)
	Start      int64  // 1-based, inclusive
	End        int64  // 1-based, inclusive
	Score      string // Score or "."
	Strand     string // "+", "-" or "."
	Frame      string // Frame or "."
	Attributes string // Raw attribute column
}

// Len returns the number of bases covered by the record.
func (r *Record) Len() int64 {
	return r.End - r.Start + 1
}

// IsReverseStrand returns true if the record is on the minus strand.
func (r *Record) IsReverseStrand() bool {
	return r.Strand == "-"
}

// fixedField returns the value of one of the eight fixed columns.
func (r *Record) fixedField(name string) (string, bool) {
	switch name {
	case ColSeqname:
		return r.Seqname, true
	case ColSource:
		return r.Source, true
	case ColFeature:
		return r.Feature, true
	case ColStart:
		return strconv.FormatInt(r.Start, 10), true
	case ColEnd:
		return strconv.FormatInt(r.End, 10), true
	case ColScore:
		return r.Score, true
	case ColStrand:
		return r.Strand, true
	case ColFrame:
		return r.Frame, true
	}
	return "", false
}

// Value is a nullable attribute value. Valid is false when the attribute
// is missing from the record.
type Value struct {
	String string
	Valid  bool
}

// Some returns a present value.
func Some(s string) Value {
	return Value{String: s, Valid: true}
}

// Null is the missing-value marker.
var Null = Value{}

// Or returns the value, or def when missing.
func (v Value) Or(def string) string {
	if !v.Valid {
		return def
	}
	return v.String
}

// FeatureSource is a row-oriented view of a feature table. Both Table and
// ExpandedTable implement it.
type FeatureSource interface {
	Len() int
	Row(i int) Record
	// Field resolves a fixed column by name first and falls back to an
	// attribute key.
	Field(i int, name string) Value
}

// Table is an ordered collection of GTF records. Row order is file order.
type Table struct {
	Records []Record
}

// NewTable creates a table owning the given records.
func NewTable(records []Record) *Table {
	return &Table{Records: records}
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Records)
}

// Row returns the i-th record.
func (t *Table) Row(i int) Record {
	return t.Records[i]
}

// Field returns a fixed column, the raw attribute column, or an attribute
// value retrieved with last-match semantics.
func (t *Table) Field(i int, name string) Value {
	r := &t.Records[i]
	if v, ok := r.fixedField(name); ok {
		return Some(v)
	}
	if name == ColAttribute {
		return Some(r.Attributes)
	}
	return RetrieveField(name, r.Attributes)
}

// Filter returns a new table holding the records for which keep returns true.
func (t *Table) Filter(keep func(r *Record) bool) *Table {
	out := &Table{}
	for i := range t.Records {
		if keep(&t.Records[i]) {
			out.Records = append(out.Records, t.Records[i])
		}
	}
	return out
}

// FilterFeature returns the records of the given feature type.
func (t *Table) FilterFeature(feature string) *Table {
	return t.Filter(func(r *Record) bool { return r.Feature == feature })
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	records := make([]Record, len(t.Records))
	copy(records, t.Records)
	return &Table{Records: records}
}
