package ir

// TableWalker is a borrowed view into a Table and the arenas it owns.
// It never holds a pointer into the schema's slices directly (those can
// move on append); it holds the id and re-resolves on every access, the
// same discipline the differ and calculator use throughout.
type TableWalker struct {
	Schema *SqlSchema
	ID     ID
}

// Table returns the underlying Table for the index this Set of data
// lives, erroring out with ok=false if the id is dangling.
func (s *SqlSchema) Table(id ID) (Table, bool) {
	for _, t := range s.Tables {
		if t.ID == id {
			return t, true
		}
	}
	return Table{}, false
}

// Walk returns a TableWalker for the given table id.
func (s *SqlSchema) Walk(id ID) TableWalker {
	return TableWalker{Schema: s, ID: id}
}

// Get resolves the walker's table row.
func (w TableWalker) Get() (Table, bool) { return w.Schema.Table(w.ID) }

// Columns returns every column belonging to this table, in arena order
// (which the introspector guarantees to be ordinal_position order).
func (w TableWalker) Columns() []Column {
	var out []Column
	for _, c := range w.Schema.Columns {
		if c.TableID == w.ID {
			out = append(out, c)
		}
	}
	return out
}

// Indexes returns every index belonging to this table.
func (w TableWalker) Indexes() []Index {
	var out []Index
	for _, idx := range w.Schema.Indexes {
		if idx.TableID == w.ID {
			out = append(out, idx)
		}
	}
	return out
}

// PrimaryKey returns the table's primary-key index, if any.
func (w TableWalker) PrimaryKey() (Index, bool) {
	for _, idx := range w.Indexes() {
		if idx.Kind == IndexPrimaryKey {
			return idx, true
		}
	}
	return Index{}, false
}

// ForeignKeys returns every FK whose constrained table is this one.
func (w TableWalker) ForeignKeys() []ForeignKey {
	var out []ForeignKey
	for _, fk := range w.Schema.ForeignKeys {
		if fk.ConstrainedTableID == w.ID {
			out = append(out, fk)
		}
	}
	return out
}

// InboundForeignKeys returns every FK whose referenced table is this one.
func (w TableWalker) InboundForeignKeys() []ForeignKey {
	var out []ForeignKey
	for _, fk := range w.Schema.ForeignKeys {
		if fk.ReferencedTableID == w.ID {
			out = append(out, fk)
		}
	}
	return out
}

// IndexColumns returns the ordered columns of an index, by index id.
func (s *SqlSchema) IndexColumns(indexID ID) []IndexColumn {
	var out []IndexColumn
	for _, ic := range s.IndexColumns {
		if ic.IndexID == indexID {
			out = append(out, ic)
		}
	}
	return out
}

// ForeignKeyColumns returns the ordered column pairs of a foreign key.
func (s *SqlSchema) ForeignKeyColumns(fkID ID) []ForeignKeyColumn {
	var out []ForeignKeyColumn
	for _, fc := range s.ForeignKeyColumns {
		if fc.ForeignKeyID == fkID {
			out = append(out, fc)
		}
	}
	return out
}

// Index resolves an index id.
func (s *SqlSchema) Index(id ID) (Index, bool) {
	for _, idx := range s.Indexes {
		if idx.ID == id {
			return idx, true
		}
	}
	return Index{}, false
}

// Column resolves a column id.
func (s *SqlSchema) Column(id ID) (Column, bool) {
	for _, c := range s.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnByName finds a column on a table by name.
func (s *SqlSchema) ColumnByName(tableID ID, name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.TableID == tableID && c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// TableByName finds a table by (namespace, name) pair; namespaceID may
// be NoID for dialects without namespaces.
func (s *SqlSchema) TableByName(namespaceID ID, name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.NamespaceID == namespaceID && t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// DefaultFor returns the default value attached to a column, if any.
func (s *SqlSchema) DefaultFor(columnID ID) (DefaultValue, bool) {
	for _, d := range s.Defaults {
		if d.ColumnID == columnID {
			return d.Value, true
		}
	}
	return DefaultValue{}, false
}

// EnumVariantsOf returns the ordered variants of an enum.
func (s *SqlSchema) EnumVariantsOf(enumID ID) []EnumVariant {
	var out []EnumVariant
	for _, v := range s.EnumVariants {
		if v.EnumID == enumID {
			out = append(out, v)
		}
	}
	return out
}

// NextTableID returns an id not yet used by any table, for callers
// constructing a new SqlSchema programmatically (calculator, tests).
func (s *SqlSchema) NextTableID() ID {
	return nextID(len(s.Tables))
}

// NextColumnID returns an unused column id.
func (s *SqlSchema) NextColumnID() ID { return nextID(len(s.Columns)) }

// NextIndexID returns an unused index id.
func (s *SqlSchema) NextIndexID() ID { return nextID(len(s.Indexes)) }

// NextForeignKeyID returns an unused foreign key id.
func (s *SqlSchema) NextForeignKeyID() ID { return nextID(len(s.ForeignKeys)) }

// NextEnumID returns an unused enum id.
func (s *SqlSchema) NextEnumID() ID { return nextID(len(s.Enums)) }

// NextNamespaceID returns an unused namespace id.
func (s *SqlSchema) NextNamespaceID() ID { return nextID(len(s.Namespaces)) }

func nextID(n int) ID { return ID(n) }
