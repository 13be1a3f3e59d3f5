package duckdb

import (
	"fmt"
	"slices"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-gtf/internal/bed"
)

// BED-layout tables.
const (
	TableBED       = "bed"
	TablePromoters = "promoters"
)

var bedTables = []string{TableBED, TablePromoters}

func checkBEDTable(table string) error {
	if !slices.Contains(bedTables, table) {
		return fmt.Errorf("unknown BED table %q", table)
	}
	return nil
}

// WriteBED appends BED rows to one of the BED-layout tables.
func (s *Store) WriteBED(table string, t *bed.Table) error {
	if err := checkBEDTable(table); err != nil {
		return err
	}
	if t.Len() == 0 {
		return nil
	}

	return s.withAppender(table, func(a *goduckdb.Appender) error {
		for _, r := range t.Records {
			if err := a.AppendRow(r.Chrom, r.ChromStart, r.ChromEnd, r.Name, r.Score, r.Strand); err != nil {
				return fmt.Errorf("append %s row: %w", table, err)
			}
		}
		return nil
	})
}

// ReadBED returns the rows of a BED-layout table in insertion order.
func (s *Store) ReadBED(table string) (*bed.Table, error) {
	if err := checkBEDTable(table); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(fmt.Sprintf(
		"SELECT chrom, chrom_start, chrom_end, name, score, strand FROM %s ORDER BY rowid", table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	t := &bed.Table{}
	for rows.Next() {
		var r bed.Record
		if err := rows.Scan(&r.Chrom, &r.ChromStart, &r.ChromEnd, &r.Name, &r.Score, &r.Strand); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		t.Records = append(t.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return t, nil
}

// ClearBED removes all rows from a BED-layout table.
func (s *Store) ClearBED(table string) error {
	if err := checkBEDTable(table); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM " + table)
	return err
}
