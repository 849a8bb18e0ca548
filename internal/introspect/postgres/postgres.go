// Package postgres introspects a live Postgres database into the SQL
// schema IR, grounded on the teacher's database/postgres/introspector.go
// catalog-query shape (information_schema for columns/constraints,
// pg_catalog for index/RLS detail), generalized from a flat
// database.Schema into the IR's id-arena form. Columns, primary keys and
// indexes are queried per table, foreign keys with one query per
// namespace. Only the per-table column fetches run concurrently (via
// errgroup once the table list is known), the same "gather sub-results,
// assemble after" shape the teacher's IntrospectSchema loop uses
// sequentially; the other catalog reads run one after another.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lockforge/schemaengine/internal/introspect"
	"github.com/lockforge/schemaengine/internal/ir"
)

// Introspector implements flavour.Introspector for Postgres.
type Introspector struct{}

func (in *Introspector) IntrospectSchema(ctx context.Context, db *sql.DB, namespaces []string) (*ir.SqlSchema, error) {
	schema := ir.New(ir.DialectPostgres)
	if len(namespaces) == 0 {
		namespaces = []string{"public"}
	}

	for _, ns := range namespaces {
		nsID := schema.NextNamespaceID()
		schema.Namespaces = append(schema.Namespaces, ir.Namespace{ID: nsID, Name: ns})

		tableNames, err := listTables(ctx, db, ns)
		if err != nil {
			return nil, fmt.Errorf("postgres introspect: list tables in %s: %w", ns, err)
		}

		tableIDs := map[string]ir.ID{}
		for _, name := range tableNames {
			id := schema.NextTableID()
			tableIDs[name] = id
			schema.Tables = append(schema.Tables, ir.Table{ID: id, NamespaceID: nsID, Name: name})
		}

		// Column rows are fetched concurrently per table (read-only catalog
		// queries, independent per table) but assigned IDs and appended to
		// the shared schema sequentially afterward — the arenas are not
		// safe for concurrent mutation, only concurrent querying is.
		g, gctx := errgroup.WithContext(ctx)
		type tableResult struct {
			name    string
			columns []rawColumn
		}
		results := make([]tableResult, len(tableNames))
		for i, name := range tableNames {
			i, name := i, name
			g.Go(func() error {
				cols, err := fetchColumns(gctx, db, ns, name)
				if err != nil {
					return fmt.Errorf("columns for %s: %w", name, err)
				}
				results[i] = tableResult{name: name, columns: cols}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, tr := range results {
			tableID := tableIDs[tr.name]
			for _, rc := range tr.columns {
				colID := schema.NextColumnID()
				schema.Columns = append(schema.Columns, ir.Column{
					ID: colID, TableID: tableID, Name: rc.name, AutoIncrement: rc.autoIncrement,
					Type: ir.ColumnType{Family: rc.family, FullDataType: rc.fullDataType, Arity: rc.arity},
				})
				if rc.hasDefault {
					schema.Defaults = append(schema.Defaults, ir.Default{ColumnID: colID, Value: introspect.ParseDefault(rc.defaultRaw)})
				}
			}
		}

		for _, name := range tableNames {
			tableID := tableIDs[name]
			pkCols, err := fetchPrimaryKey(ctx, db, ns, name)
			if err != nil {
				return nil, fmt.Errorf("postgres introspect: primary key for %s: %w", name, err)
			}
			if len(pkCols) > 0 {
				addIndex(schema, tableID, ir.IndexPrimaryKey, name+"_pkey", pkCols)
			}
			idxs, err := fetchIndexes(ctx, db, ns, name)
			if err != nil {
				return nil, fmt.Errorf("postgres introspect: indexes for %s: %w", name, err)
			}
			for _, idx := range idxs {
				addIndex(schema, tableID, idx.kind, idx.name, idx.columns)
			}
		}

		if err := fetchForeignKeys(ctx, db, ns, tableIDs, schema); err != nil {
			return nil, fmt.Errorf("postgres introspect: foreign keys: %w", err)
		}
	}

	return schema, nil
}

func listTables(ctx context.Context, db *sql.DB, schemaName string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, schemaName)
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
		if introspect.IgnoredPostgresTable(name) {
			continue
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

type rawColumn struct {
	name          string
	family        ir.Family
	fullDataType  string
	arity         ir.Arity
	autoIncrement bool
	defaultRaw    string
	hasDefault    bool
}

func fetchColumns(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]rawColumn, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, column_default, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []rawColumn
	for rows.Next() {
		var name, dataType, nullable string
		var defaultVal sql.NullString
		var ordinal int
		if err := rows.Scan(&name, &dataType, &nullable, &defaultVal, &ordinal); err != nil {
			return nil, err
		}
		arity := ir.ArityRequired
		if nullable == "YES" {
			arity = ir.ArityNullable
		}
		rc := rawColumn{
			name: name, family: familyFromPostgresType(dataType),
			fullDataType: strings.TrimSpace(dataType), arity: arity,
		}
		if defaultVal.Valid {
			if isSerialDefault(defaultVal.String) {
				rc.autoIncrement = true
			} else {
				rc.hasDefault = true
				rc.defaultRaw = defaultVal.String
			}
		}
		cols = append(cols, rc)
	}
	return cols, rows.Err()
}

func isSerialDefault(raw string) bool {
	return strings.HasPrefix(raw, "nextval(") && strings.Contains(raw, "_seq")
}

func familyFromPostgresType(dataType string) ir.Family {
	switch strings.ToLower(strings.TrimSpace(dataType)) {
	case "integer", "smallint":
		return ir.FamilyInt
	case "bigint":
		return ir.FamilyBigInt
	case "double precision", "real":
		return ir.FamilyFloat
	case "numeric":
		return ir.FamilyDecimal
	case "boolean":
		return ir.FamilyBoolean
	case "text", "character varying", "character":
		return ir.FamilyString
	case "timestamp without time zone", "timestamp with time zone", "date":
		return ir.FamilyDateTime
	case "jsonb", "json":
		return ir.FamilyJSON
	case "bytea":
		return ir.FamilyBinary
	case "uuid":
		return ir.FamilyUUID
	default:
		return ir.FamilyUnsupported
	}
}

func fetchPrimaryKey(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.table_schema = $1 AND tc.table_name = $2 AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position`, schemaName, tableName)
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
		out = append(out, name)
	}
	return out, rows.Err()
}

type indexInfo struct {
	name    string
	kind    ir.IndexKind
	columns []string
}

func fetchIndexes(ctx context.Context, db *sql.DB, schemaName, tableName string) ([]indexInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT ix.relname AS index_name, a.attname AS column_name, idx.indisunique, ic.ord
		FROM pg_class t
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_index idx ON idx.indrelid = t.oid AND idx.indisprimary = false
		JOIN pg_class ix ON ix.oid = idx.indexrelid
		JOIN unnest(idx.indkey) WITH ORDINALITY AS ic(attnum, ord) ON true
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ic.attnum
		WHERE n.nspname = $1 AND t.relname = $2
		ORDER BY ix.relname, ic.ord`, schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := map[string]*indexInfo{}
	var order []string
	for rows.Next() {
		var idxName, colName string
		var unique bool
		var ord int
		if err := rows.Scan(&idxName, &colName, &unique, &ord); err != nil {
			return nil, err
		}
		info, ok := byName[idxName]
		if !ok {
			kind := ir.IndexNormal
			if unique {
				kind = ir.IndexUnique
			}
			info = &indexInfo{name: idxName, kind: kind}
			byName[idxName] = info
			order = append(order, idxName)
		}
		info.columns = append(info.columns, colName)
	}
	sort.Strings(order)
	var out []indexInfo
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out, rows.Err()
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

func fetchForeignKeys(ctx context.Context, db *sql.DB, schemaName string, tableIDs map[string]ir.ID, schema *ir.SqlSchema) error {
	rows, err := db.QueryContext(ctx, `
		SELECT tc.constraint_name, tc.table_name, kcu.column_name, ccu.table_name, ccu.column_name,
			rc.update_rule, rc.delete_rule, kcu.ordinal_position
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		JOIN information_schema.referential_constraints rc ON rc.constraint_name = tc.constraint_name AND rc.constraint_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = $1
		ORDER BY tc.constraint_name, kcu.ordinal_position`, schemaName)
	if err != nil {
		return err
	}
	defer rows.Close()

	type group struct {
		fk      ir.ForeignKey
		cols    []string
		refCols []string
	}
	byName := map[string]*group{}
	var order []string
	for rows.Next() {
		var name, tableName, colName, refTable, refCol, updateRule, deleteRule string
		var ordinal int
		if err := rows.Scan(&name, &tableName, &colName, &refTable, &refCol, &updateRule, &deleteRule, &ordinal); err != nil {
			return err
		}
		g, ok := byName[name]
		if !ok {
			g = &group{fk: ir.ForeignKey{
				ConstrainedTableID: tableIDs[tableName],
				ReferencedTableID:  tableIDs[refTable],
				OnUpdate:           actionFromSQL(updateRule),
				OnDelete:           actionFromSQL(deleteRule),
				ConstraintName:     name,
			}}
			byName[name] = g
			order = append(order, name)
		}
		g.cols = append(g.cols, colName)
		g.refCols = append(g.refCols, refCol)
	}

	for _, name := range order {
		g := byName[name]
		fkID := schema.NextForeignKeyID()
		g.fk.ID = fkID
		schema.ForeignKeys = append(schema.ForeignKeys, g.fk)
		for i := range g.cols {
			constrained, ok1 := schema.ColumnByName(g.fk.ConstrainedTableID, g.cols[i])
			referenced, ok2 := schema.ColumnByName(g.fk.ReferencedTableID, g.refCols[i])
			if !ok1 || !ok2 {
				continue
			}
			schema.ForeignKeyColumns = append(schema.ForeignKeyColumns, ir.ForeignKeyColumn{
				ForeignKeyID: fkID, Position: i, ConstrainedColumn: constrained.ID, ReferencedColumn: referenced.ID,
			})
		}
	}
	return rows.Err()
}

func actionFromSQL(rule string) ir.ReferentialAction {
	switch strings.ToUpper(rule) {
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
