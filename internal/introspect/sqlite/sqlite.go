// Package sqlite introspects a live SQLite database into the SQL schema
// IR via PRAGMA statements, grounded on the teacher's
// database/sqlite/introspector.go (PRAGMA table_info / index_list /
// index_info / foreign_key_list), generalized from a flat
// database.Schema into the IR's id-arena form.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lockforge/schemaengine/internal/introspect"
	"github.com/lockforge/schemaengine/internal/ir"
)

// Introspector implements flavour.Introspector for SQLite. namespaces is
// ignored: SQLite has no schema/catalog concept within one file.
type Introspector struct{}

func (in *Introspector) IntrospectSchema(ctx context.Context, db *sql.DB, namespaces []string) (*ir.SqlSchema, error) {
	schema := ir.New(ir.DialectSQLite)

	tableNames, err := listTables(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("sqlite introspect: list tables: %w", err)
	}

	tableIDs := map[string]ir.ID{}
	for _, name := range tableNames {
		id := schema.NextTableID()
		tableIDs[name] = id
		schema.Tables = append(schema.Tables, ir.Table{ID: id, Name: name})
	}

	for _, name := range tableNames {
		tableID := tableIDs[name]
		pkCols, err := fetchColumns(ctx, db, schema, tableID, name)
		if err != nil {
			return nil, fmt.Errorf("sqlite introspect: columns for %s: %w", name, err)
		}
		if len(pkCols) > 0 {
			addIndex(schema, tableID, ir.IndexPrimaryKey, name+"_pkey", pkCols)
		}
		if err := fetchIndexes(ctx, db, schema, tableID, name); err != nil {
			return nil, fmt.Errorf("sqlite introspect: indexes for %s: %w", name, err)
		}
		if err := fetchForeignKeys(ctx, db, schema, tableIDs, tableID, name); err != nil {
			return nil, fmt.Errorf("sqlite introspect: foreign keys for %s: %w", name, err)
		}
	}

	return schema, nil
}

func listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table'
		ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if introspect.IgnoredSQLiteTable(name) {
			continue
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// fetchColumns runs PRAGMA table_info and returns the primary-key
// column names in PRAGMA-reported pk order (pk=1,2,... for composite keys).
func fetchColumns(ctx context.Context, db *sql.DB, schema *ir.SqlSchema, tableID ir.ID, tableName string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type pkEntry = struct {
		order int
		name  string
	}
	var pks []pkEntry
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var defaultVal sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultVal, &pk); err != nil {
			return nil, err
		}
		family := familyFromSQLiteType(colType)
		arity := ir.ArityNullable
		if notNull != 0 || pk > 0 {
			arity = ir.ArityRequired
		}
		colID := schema.NextColumnID()
		col := ir.Column{ID: colID, TableID: tableID, Name: name, Type: ir.ColumnType{Family: family, FullDataType: colType, Arity: arity}}
		if defaultVal.Valid {
			if strings.EqualFold(strings.TrimSpace(defaultVal.String), "autoincrement") {
				col.AutoIncrement = true
			} else {
				schema.Defaults = append(schema.Defaults, ir.Default{ColumnID: colID, Value: introspect.ParseDefault(defaultVal.String)})
			}
		}
		schema.Columns = append(schema.Columns, col)
		if pk > 0 {
			pks = append(pks, pkEntry{order: pk, name: name})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortPKs(pks)
	var names []string
	for _, p := range pks {
		names = append(names, p.name)
	}
	return names, nil
}

func sortPKs(pks []struct {
	order int
	name  string
}) {
	for i := 1; i < len(pks); i++ {
		j := i
		for j > 0 && pks[j-1].order > pks[j].order {
			pks[j-1], pks[j] = pks[j], pks[j-1]
			j--
		}
	}
}

func familyFromSQLiteType(t string) ir.Family {
	switch strings.ToUpper(strings.TrimSpace(t)) {
	case "INTEGER", "INT":
		return ir.FamilyInt
	case "BIGINT":
		return ir.FamilyBigInt
	case "REAL", "DOUBLE", "FLOAT":
		return ir.FamilyFloat
	case "NUMERIC", "DECIMAL":
		return ir.FamilyDecimal
	case "BOOLEAN":
		return ir.FamilyBoolean
	case "TEXT", "VARCHAR", "CHAR":
		return ir.FamilyString
	case "DATETIME", "DATE":
		return ir.FamilyDateTime
	case "BLOB":
		return ir.FamilyBinary
	default:
		return ir.FamilyUnsupported
	}
}

func fetchIndexes(ctx context.Context, db *sql.DB, schema *ir.SqlSchema, tableID ir.ID, tableName string) error {
	listRows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(tableName)))
	if err != nil {
		return err
	}
	defer listRows.Close()

	type idxMeta struct {
		name   string
		unique bool
		origin string
	}
	var metas []idxMeta
	for listRows.Next() {
		var seq int
		var name, origin string
		var unique, partial int
		if err := listRows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return err
		}
		metas = append(metas, idxMeta{name: name, unique: unique != 0, origin: origin})
	}
	if err := listRows.Err(); err != nil {
		return err
	}

	for _, m := range metas {
		if m.origin == "pk" {
			continue // already captured via PRAGMA table_info in fetchColumns
		}
		infoRows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quoteIdent(m.name)))
		if err != nil {
			return err
		}
		var cols []string
		for infoRows.Next() {
			var seqno, cid int
			var colName sql.NullString
			if err := infoRows.Scan(&seqno, &cid, &colName); err != nil {
				infoRows.Close()
				return err
			}
			if colName.Valid {
				cols = append(cols, colName.String)
			}
		}
		infoRows.Close()

		kind := ir.IndexNormal
		if m.unique {
			kind = ir.IndexUnique
		}
		addIndex(schema, tableID, kind, m.name, cols)
	}
	return nil
}

func addIndex(schema *ir.SqlSchema, tableID ir.ID, kind ir.IndexKind, name string, columnNames []string) {
	idxID := schema.NextIndexID()
	schema.Indexes = append(schema.Indexes, ir.Index{ID: idxID, TableID: tableID, Name: name, Kind: kind})
	for i, cn := range columnNames {
		col, ok := schema.ColumnByName(tableID, cn)
		if !ok {
			continue
		}
		schema.IndexColumns = append(schema.IndexColumns, ir.IndexColumn{IndexID: idxID, ColumnID: col.ID, Position: i})
	}
}

func fetchForeignKeys(ctx context.Context, db *sql.DB, schema *ir.SqlSchema, tableIDs map[string]ir.ID, tableID ir.ID, tableName string) error {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(tableName)))
	if err != nil {
		return err
	}
	defer rows.Close()

	// SQLite has no constraint names: group by (id) column, the PRAGMA's
	// own grouping key for multi-column foreign keys, per spec §4.5's
	// "group by (referencing table, referenced table, ordinal_position)
	// when names are unavailable".
	type group struct {
		refTable        string
		onUpdate        ir.ReferentialAction
		onDelete        ir.ReferentialAction
		cols, refCols   []string
	}
	groups := map[int]*group{}
	var order []int
	for rows.Next() {
		var id, seq int
		var table, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &table, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}
		g, ok := groups[id]
		if !ok {
			g = &group{refTable: table, onUpdate: actionFromSQL(onUpdate), onDelete: actionFromSQL(onDelete)}
			groups[id] = g
			order = append(order, id)
		}
		g.cols = append(g.cols, from)
		g.refCols = append(g.refCols, to)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range order {
		g := groups[id]
		refTableID, ok := tableIDs[g.refTable]
		if !ok {
			continue
		}
		fkID := schema.NextForeignKeyID()
		schema.ForeignKeys = append(schema.ForeignKeys, ir.ForeignKey{
			ID: fkID, ConstrainedTableID: tableID, ReferencedTableID: refTableID,
			OnUpdate: g.onUpdate, OnDelete: g.onDelete, // ConstraintName left empty: SQLite has no stable FK names
		})
		for i := range g.cols {
			constrained, ok1 := schema.ColumnByName(tableID, g.cols[i])
			referenced, ok2 := schema.ColumnByName(refTableID, g.refCols[i])
			if !ok1 || !ok2 {
				continue
			}
			schema.ForeignKeyColumns = append(schema.ForeignKeyColumns, ir.ForeignKeyColumn{
				ForeignKeyID: fkID, Position: i, ConstrainedColumn: constrained.ID, ReferencedColumn: referenced.ID,
			})
		}
	}
	return nil
}

func actionFromSQL(rule string) ir.ReferentialAction {
	switch strings.ToUpper(strings.TrimSpace(rule)) {
	case "CASCADE":
		return ir.ActionCascade
	case "SET NULL":
		return ir.ActionSetNull
	case "SET DEFAULT":
		return ir.ActionSetDefault
	case "RESTRICT":
		return ir.ActionRestrict
	default:
		return ir.ActionNoAction
	}
}

// quoteIdent wraps a SQLite identifier for safe interpolation into a
// PRAGMA statement, which cannot take bound parameters. Catalog-derived
// table/index names are controlled inputs (read from sqlite_master /
// PRAGMA index_list in the same call chain), never external user input.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
