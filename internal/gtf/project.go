package gtf

// Project extracts one attribute column from the table, one value per
// record in table order. Missing attributes are Null.
func Project(t *Table, key string) []Value {
	return ProjectWith(t, key, LastMatch)
}

// ProjectWith is Project with an explicit duplicate-key policy.
func ProjectWith(t *Table, key string, policy MatchPolicy) []Value {
	values := make([]Value, len(t.Records))
	for i := range t.Records {
		values[i] = policy.Retrieve(key, t.Records[i].Attributes)
	}
	return values
}

// ProjectField extracts any column by name, fixed or attribute, from a
// table or expanded table.
func ProjectField(src FeatureSource, name string) []Value {
	values := make([]Value, src.Len())
	for i := range values {
		values[i] = src.Field(i, name)
	}
	return values
}

// ExpandedRow is a record whose attribute column has been split into
// named values. Values is sparse: keys absent from the record are absent
// from the map.
type ExpandedRow struct {
	Record
	Values map[string]string
}

// ExpandedTable is a feature table with one column per attribute key.
// Keys holds the column order after the eight fixed columns.
type ExpandedTable struct {
	Keys []string
	Rows []ExpandedRow
}

// ExpandAll replaces the attribute column with one column per attribute
// key found anywhere in the table. The input table is not modified.
func ExpandAll(t *Table) *ExpandedTable {
	return Expand(t, ListAttributeKeys(t)...)
}

// Expand replaces the attribute column with the given attribute keys.
func Expand(t *Table, keys ...string) *ExpandedTable {
	e := &ExpandedTable{
		Keys: append([]string(nil), keys...),
		Rows: make([]ExpandedRow, len(t.Records)),
	}
	for i := range t.Records {
		rec := t.Records[i]
		raw := rec.Attributes
		rec.Attributes = ""

		values := make(map[string]string, len(keys))
		for _, key := range keys {
			if v := RetrieveField(key, raw); v.Valid {
				values[key] = v.String
			}
		}
		e.Rows[i] = ExpandedRow{Record: rec, Values: values}
	}
	return e
}

// Len returns the number of rows.
func (e *ExpandedTable) Len() int {
	return len(e.Rows)
}

// Row returns the i-th row as a record whose attribute column is the
// collapsed form of its values.
func (e *ExpandedTable) Row(i int) Record {
	rec := e.Rows[i].Record
	rec.Attributes = collapse(e.Keys, e.Rows[i].Values)
	return rec
}

// Field returns a fixed column or an expanded attribute value.
func (e *ExpandedTable) Field(i int, name string) Value {
	row := &e.Rows[i]
	if v, ok := row.fixedField(name); ok {
		return Some(v)
	}
	if v, ok := row.Values[name]; ok {
		return Some(v)
	}
	return Null
}

// Column returns the values of one expanded key, one per row.
func (e *ExpandedTable) Column(key string) []Value {
	values := make([]Value, len(e.Rows))
	for i := range e.Rows {
		if v, ok := e.Rows[i].Values[key]; ok {
			values[i] = Some(v)
		}
	}
	return values
}

// HasKey reports whether key is one of the expanded columns.
func (e *ExpandedTable) HasKey(key string) bool {
	for _, k := range e.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// AddColumn appends a column of values. Null entries are left unset.
func (e *ExpandedTable) AddColumn(key string, values []Value) {
	if !e.HasKey(key) {
		e.Keys = append(e.Keys, key)
	}
	for i := range e.Rows {
		if i >= len(values) {
			break
		}
		if e.Rows[i].Values == nil {
			e.Rows[i].Values = make(map[string]string)
		}
		if values[i].Valid {
			e.Rows[i].Values[key] = values[i].String
		} else {
			delete(e.Rows[i].Values, key)
		}
	}
}

// Collapse folds the expanded columns back into a raw attribute column.
func (e *ExpandedTable) Collapse() *Table {
	t := &Table{Records: make([]Record, len(e.Rows))}
	for i := range e.Rows {
		t.Records[i] = e.Row(i)
	}
	return t
}
