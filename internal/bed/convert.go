// Package bed converts GTF feature tables into BED intervals and computes
// promoter windows.
package bed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-gtf/internal/gtf"
)

// ErrFormat is returned for BED lines that cannot be parsed.
var ErrFormat = errors.New("invalid BED format")

// Record is one BED6 row. Coordinates are passed through from the source
// table unless the zero-based option is used.
type Record struct {
	Chrom      string
	ChromStart int64
	ChromEnd   int64
	Name       string
	Score      string
	Strand     string
}

// Table is an ordered list of BED rows.
type Table struct {
	Records []Record
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Records)
}

// Option configures FromGTF.
type Option func(*options)

type options struct {
	zeroBased bool
}

// WithZeroBased converts GTF 1-based inclusive starts to BED 0-based
// half-open starts by subtracting one from chromStart.
func WithZeroBased() Option {
	return func(o *options) { o.zeroBased = true }
}

// FromGTF converts a feature table to BED6 using nameField for the name
// column. nameField may be a fixed GTF column or an attribute key; rows
// without it get ".". Identical rows are collapsed, keeping the first.
func FromGTF(src gtf.FeatureSource, nameField string, opts ...Option) *Table {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	seen := make(map[Record]struct{}, src.Len())
	t := &Table{}
	for i := 0; i < src.Len(); i++ {
		row := src.Row(i)
		rec := Record{
			Chrom:      row.Seqname,
			ChromStart: row.Start,
			ChromEnd:   row.End,
			Name:       src.Field(i, nameField).Or("."),
			Score:      row.Score,
			Strand:     row.Strand,
		}
		if o.zeroBased {
			rec.ChromStart--
		}
		if _, dup := seen[rec]; dup {
			continue
		}
		seen[rec] = struct{}{}
		t.Records = append(t.Records, rec)
	}
	return t
}

// Serialize formats the table as BED lines: six tab-separated columns,
// no header.
func Serialize(t *Table) []string {
	lines := make([]string, len(t.Records))
	for i := range t.Records {
		lines[i] = formatRecord(&t.Records[i])
	}
	return lines
}

// Write writes the table in BED format.
func Write(w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	for i := range t.Records {
		if _, err := bw.WriteString(formatRecord(&t.Records[i]) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatRecord(r *Record) string {
	return strings.Join([]string{
		r.Chrom,
		strconv.FormatInt(r.ChromStart, 10),
		strconv.FormatInt(r.ChromEnd, 10),
		r.Name,
		r.Score,
		r.Strand,
	}, "\t")
}

// Read parses BED rows. At least three columns are required; missing
// name, score and strand columns default to ".". Columns past the sixth
// are ignored. Track, browser and comment lines are skipped.
func Read(r io.Reader) (*Table, error) {
	reader, closer, err := gtf.OpenReader(r)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	scanner := bufio.NewScanner(reader)
	t := &Table{}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: %w: expected at least 3 fields, got %d", lineNum, ErrFormat, len(fields))
		}
		start, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: parse chromStart: %v", lineNum, ErrFormat, err)
		}
		end, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: parse chromEnd: %v", lineNum, ErrFormat, err)
		}

		rec := Record{Chrom: fields[0], ChromStart: start, ChromEnd: end, Name: ".", Score: ".", Strand: "."}
		if len(fields) > 3 {
			rec.Name = fields[3]
		}
		if len(fields) > 4 {
			rec.Score = fields[4]
		}
		if len(fields) > 5 {
			rec.Strand = fields[5]
		}
		t.Records = append(t.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan BED: %w", err)
	}
	return t, nil
}
