package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-gtf/internal/gtf"
)

// WriteFeatures appends the records of t to the features table and their
// parsed attributes to the attributes table, using the Appender API.
// Row IDs continue after the highest existing one. Duplicate attribute
// keys keep the last value. If the attributes cannot be written, the
// batch's feature rows are removed again.
func (s *Store) WriteFeatures(t *gtf.Table) error {
	if t.Len() == 0 {
		return nil
	}

	var next int64
	if err := s.db.QueryRow("SELECT COALESCE(MAX(row_id) + 1, 0) FROM features").Scan(&next); err != nil {
		return fmt.Errorf("query next row id: %w", err)
	}

	err := s.withAppender("features", func(a *goduckdb.Appender) error {
		for i := range t.Records {
			r := &t.Records[i]
			if err := a.AppendRow(
				next+int64(i), r.Seqname, r.Source, r.Feature, r.Start, r.End,
				r.Score, r.Strand, r.Frame, r.Attributes,
			); err != nil {
				return fmt.Errorf("append feature: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.withAppender("attributes", func(a *goduckdb.Appender) error {
		for i := range t.Records {
			for key, value := range gtf.ParseAttributes(t.Records[i].Attributes) {
				if err := a.AppendRow(next+int64(i), key, value); err != nil {
					return fmt.Errorf("append attribute: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		if derr := s.deleteFrom(next); derr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, derr)
		}
		return err
	}
	return nil
}

// deleteFrom removes features and attributes with row_id >= first, undoing
// a partially written batch.
func (s *Store) deleteFrom(first int64) error {
	if _, err := s.db.Exec("DELETE FROM attributes WHERE row_id >= ?", first); err != nil {
		return fmt.Errorf("delete attributes: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM features WHERE row_id >= ?", first); err != nil {
		return fmt.Errorf("delete features: %w", err)
	}
	return nil
}

// withAppender runs fn with an Appender on the given table and flushes it.
func (s *Store) withAppender(table string, fn func(a *goduckdb.Appender) error) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	if err := fn(appender); err != nil {
		return err
	}
	return appender.Flush()
}

// FeatureCount returns the number of exported features, optionally
// restricted to one feature type.
func (s *Store) FeatureCount(feature string) (int, error) {
	var n int
	var err error
	if feature == "" {
		err = s.db.QueryRow("SELECT COUNT(*) FROM features").Scan(&n)
	} else {
		err = s.db.QueryRow("SELECT COUNT(*) FROM features WHERE feature=?", feature).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count features: %w", err)
	}
	return n, nil
}

// AttributeValues returns one value per exported feature, in row order,
// for the given attribute key. Features without the key are Null.
func (s *Store) AttributeValues(key string) ([]gtf.Value, error) {
	rows, err := s.db.Query(`SELECT a.value
		FROM features f
		LEFT JOIN attributes a ON a.row_id = f.row_id AND a.key = ?
		ORDER BY f.row_id`, key)
	if err != nil {
		return nil, fmt.Errorf("query attribute %s: %w", key, err)
	}
	defer rows.Close()

	var values []gtf.Value
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		values = append(values, gtf.Value{String: v.String, Valid: v.Valid})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributes: %w", err)
	}
	return values, nil
}

// AttributeKeys returns the distinct attribute keys with the number of
// features carrying each, most common first.
func (s *Store) AttributeKeys() ([]KeyCount, error) {
	rows, err := s.db.Query(`SELECT key, COUNT(*) AS n
		FROM attributes
		GROUP BY key
		ORDER BY n DESC, key`)
	if err != nil {
		return nil, fmt.Errorf("query attribute keys: %w", err)
	}
	defer rows.Close()

	var keys []KeyCount
	for rows.Next() {
		var kc KeyCount
		if err := rows.Scan(&kc.Key, &kc.Count); err != nil {
			return nil, fmt.Errorf("scan attribute key: %w", err)
		}
		keys = append(keys, kc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attribute keys: %w", err)
	}
	return keys, nil
}

// KeyCount is an attribute key and the number of features carrying it.
type KeyCount struct {
	Key   string
	Count int
}

// ClearFeatures removes all exported features and attributes.
func (s *Store) ClearFeatures() error {
	if _, err := s.db.Exec("DELETE FROM attributes"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM features")
	return err
}
