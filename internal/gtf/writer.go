package gtf

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Serialize formats the table as GTF lines: nine tab-separated columns,
// no header, fields passed through unquoted.
func Serialize(t *Table) []string {
	lines := make([]string, len(t.Records))
	for i := range t.Records {
		lines[i] = formatRecord(&t.Records[i])
	}
	return lines
}

// Serialize formats the expanded table as GTF lines, collapsing the
// attribute columns back into one attribute column.
func (e *ExpandedTable) Serialize() []string {
	lines := make([]string, len(e.Rows))
	for i := range e.Rows {
		rec := e.Row(i)
		lines[i] = formatRecord(&rec)
	}
	return lines
}

// WriteTable writes the table in GTF format.
func WriteTable(w io.Writer, t *Table) error {
	return writeLines(w, Serialize(t))
}

// WriteExpanded writes an expanded table in GTF format.
func WriteExpanded(w io.Writer, e *ExpandedTable) error {
	return writeLines(w, e.Serialize())
}

func writeLines(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatRecord(r *Record) string {
	return strings.Join([]string{
		r.Seqname,
		r.Source,
		r.Feature,
		strconv.FormatInt(r.Start, 10),
		strconv.FormatInt(r.End, 10),
		r.Score,
		r.Strand,
		r.Frame,
		r.Attributes,
	}, "\t")
}

// collapse builds an attribute column from expanded values.
// Clauses are separated by `"; ` and the last one ends with `";`.
// Keys without a value in this row are left out.
func collapse(keys []string, values map[string]string) string {
	var sb strings.Builder
	for _, key := range keys {
		v, ok := values[key]
		if !ok {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(key)
		sb.WriteString(` "`)
		sb.WriteString(v)
		sb.WriteString(`";`)
	}
	return sb.String()
}

// WriteExpandedTSV writes the expanded table as a tab-separated table with
// a header row. Missing values are written as empty cells.
func WriteExpandedTSV(w io.Writer, e *ExpandedTable) error {
	bw := bufio.NewWriter(w)

	header := append(append([]string(nil), Columns[:8]...), e.Keys...)
	if _, err := bw.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}

	row := make([]string, 0, len(header))
	for i := range e.Rows {
		r := &e.Rows[i]
		row = append(row[:0],
			r.Seqname, r.Source, r.Feature,
			strconv.FormatInt(r.Start, 10), strconv.FormatInt(r.End, 10),
			r.Score, r.Strand, r.Frame)
		for _, key := range e.Keys {
			row = append(row, r.Values[key])
		}
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadExpandedTSV reads a table written by WriteExpandedTSV. Empty cells
// are treated as missing values.
func ReadExpandedTSV(r io.Reader) (*ExpandedTable, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return &ExpandedTable{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 8 {
		return nil, &FormatError{Line: 1, Fields: len(header), Msg: "expanded table needs the 8 fixed columns"}
	}

	e := &ExpandedTable{Keys: append([]string(nil), header[8:]...)}
	lineNum := 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", lineNum, err)
		}
		if len(fields) != len(header) {
			return nil, &FormatError{Line: lineNum, Fields: len(fields),
				Msg: fmt.Sprintf("expected %d fields, got %d", len(header), len(fields))}
		}

		// Reuse the GTF line validation for the fixed columns.
		rec, err := parseLine(strings.Join(append(fields[:8:8], ""), "\t"), lineNum)
		if err != nil {
			return nil, err
		}

		values := make(map[string]string, len(e.Keys))
		for j, key := range e.Keys {
			if v := fields[8+j]; v != "" {
				values[key] = v
			}
		}
		e.Rows = append(e.Rows, ExpandedRow{Record: rec, Values: values})
	}
	return e, nil
}
