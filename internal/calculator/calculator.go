// Package calculator projects a validated data model into the
// dialect-neutral SQL schema IR: one table per model, one column per
// scalar field, indexes from @id/@unique/@@index/@@fulltext, foreign
// keys from owning relations, and enum objects lowered per the
// dialect's flavour policy. Grounded on the per-object-kind translation
// loop shape of the teacher's internal/planner/planner.go (there,
// diff-steps to SQL; here, data-model items to IR rows), parameterized
// by internal/flavour the way the rest of the engine is.
package calculator

import (
	"fmt"
	"strings"

	"github.com/lockforge/schemaengine/internal/datamodel"
	"github.com/lockforge/schemaengine/internal/flavour"
	"github.com/lockforge/schemaengine/internal/ir"
)

// Calculate projects vs into a new SqlSchema for the given dialect.
func Calculate(vs *datamodel.ValidatedSchema, dialect ir.Dialect) (*ir.SqlSchema, error) {
	fl, ok := flavour.Get(dialect)
	if !ok {
		return nil, fmt.Errorf("calculator: %w: %s", flavour.ErrDialectNotImplemented, dialect)
	}
	schema := ir.New(dialect)

	nsID := ir.NoID
	if fl.Connector.SupportsNamespaces {
		nsID = schema.NextNamespaceID()
		schema.Namespaces = append(schema.Namespaces, ir.Namespace{ID: nsID, Name: "public"})
	}

	tableIDs := map[string]ir.ID{}
	for name, model := range vs.Models {
		id := schema.NextTableID()
		tableIDs[name] = id
		schema.Tables = append(schema.Tables, ir.Table{ID: id, NamespaceID: nsID, Name: tableName(model)})
	}

	for name, model := range vs.Models {
		tableID := tableIDs[name]
		if err := calculateColumns(schema, fl, model, tableID); err != nil {
			return nil, err
		}
		calculateIndexes(schema, model, tableID)
	}

	for _, rel := range vs.Relations {
		calculateForeignKey(schema, fl, vs, rel, tableIDs)
	}

	for name, enumItem := range vs.Enums {
		calculateEnum(schema, fl, name, enumItem, nsID)
	}

	return schema, nil
}

func tableName(model *datamodel.Item) string {
	for _, a := range model.Attributes {
		if a.Name == "map" && len(a.Args) > 0 {
			return strings.Trim(a.Args[0].Value, `"`)
		}
	}
	return model.Name
}

func columnName(f datamodel.Field) string {
	for _, a := range f.Attributes {
		if a.Name == "map" && len(a.Args) > 0 {
			return strings.Trim(a.Args[0].Value, `"`)
		}
	}
	return f.Name
}

func calculateColumns(schema *ir.SqlSchema, fl *flavour.Flavour, model *datamodel.Item, tableID ir.ID) error {
	for _, f := range model.Fields {
		if f.Type.Kind == datamodel.TypeReference {
			// Relation fields never become columns directly; owning-side
			// scalar FK fields are synthesized separately by the
			// reformatter's implicit-relation completion before this runs.
			continue
		}
		colID := schema.NextColumnID()
		ct, err := lowerScalarType(fl, f)
		if err != nil {
			return err
		}
		autoIncrement := hasAttribute(f, "default") && defaultIsAutoincrement(f)
		schema.Columns = append(schema.Columns, ir.Column{
			ID: colID, TableID: tableID, Name: columnName(f), Type: ct, AutoIncrement: autoIncrement,
		})
		if dv, ok := defaultValueOf(f); ok {
			schema.Defaults = append(schema.Defaults, ir.Default{ColumnID: colID, Value: dv})
		}
	}
	return nil
}

func lowerScalarType(fl *flavour.Flavour, f datamodel.Field) (ir.ColumnType, error) {
	family, full := scalarFamily(f.Type.Name)
	arity := ir.ArityRequired
	switch f.Arity {
	case datamodel.ArityOptional:
		arity = ir.ArityNullable
	case datamodel.ArityList:
		arity = ir.ArityList
	}
	var native *ir.NativeType
	for _, a := range f.Attributes {
		if strings.HasPrefix(a.Name, "db.") {
			var args []string
			for _, arg := range a.Args {
				args = append(args, arg.Value)
			}
			native = &ir.NativeType{Name: strings.TrimPrefix(a.Name, "db."), Args: args}
		}
	}
	return ir.ColumnType{Family: family, FullDataType: full, Arity: arity, Native: native}, nil
}

func scalarFamily(name string) (ir.Family, string) {
	switch name {
	case "String":
		return ir.FamilyString, "text"
	case "Boolean":
		return ir.FamilyBoolean, "boolean"
	case "Int":
		return ir.FamilyInt, "integer"
	case "BigInt":
		return ir.FamilyBigInt, "bigint"
	case "Float":
		return ir.FamilyFloat, "double precision"
	case "Decimal":
		return ir.FamilyDecimal, "decimal"
	case "DateTime":
		return ir.FamilyDateTime, "timestamp"
	case "Json":
		return ir.FamilyJSON, "jsonb"
	case "Bytes":
		return ir.FamilyBinary, "bytea"
	default:
		return ir.FamilyUnsupported, name
	}
}

func hasAttribute(f datamodel.Field, name string) bool {
	for _, a := range f.Attributes {
		if a.Name == name {
			return true
		}
	}
	return false
}

func defaultIsAutoincrement(f datamodel.Field) bool {
	for _, a := range f.Attributes {
		if a.Name != "default" {
			continue
		}
		for _, arg := range a.Args {
			if arg.Value == "autoincrement()" {
				return true
			}
		}
	}
	return false
}

func defaultValueOf(f datamodel.Field) (ir.DefaultValue, bool) {
	for _, a := range f.Attributes {
		if a.Name != "default" || len(a.Args) == 0 {
			continue
		}
		raw := a.Args[0].Value
		switch {
		case raw == "now()":
			return ir.Now(), true
		case raw == "autoincrement()":
			// AutoIncrement is carried on the Column itself (see
			// calculateColumns); no separate Default row is needed and
			// emitting one would double up with the renderer's
			// GENERATED BY DEFAULT AS IDENTITY clause.
			return ir.DefaultValue{}, false
		case strings.HasPrefix(raw, `"`):
			return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarString, Text: strings.Trim(raw, `"`)}}, true
		case raw == "true" || raw == "false":
			return ir.DefaultValue{Kind: ir.DefaultValueLiteral, Literal: ir.Scalar{Kind: ir.ScalarBoolean, Text: raw}}, true
		default:
			return ir.DbGenerated(raw), true
		}
	}
	return ir.DefaultValue{}, false
}

func calculateIndexes(schema *ir.SqlSchema, model *datamodel.Item, tableID ir.ID) {
	for _, f := range model.Fields {
		if hasAttribute(f, "id") {
			addIndex(schema, tableID, ir.IndexPrimaryKey, []string{columnName(f)}, model.Name)
		}
		if hasAttribute(f, "unique") {
			addIndex(schema, tableID, ir.IndexUnique, []string{columnName(f)}, model.Name)
		}
	}
	for _, a := range model.Attributes {
		var kind ir.IndexKind
		switch a.Name {
		case "id":
			kind = ir.IndexPrimaryKey
		case "unique":
			kind = ir.IndexUnique
		case "index":
			kind = ir.IndexNormal
		case "fulltext":
			kind = ir.IndexFulltext
		default:
			continue
		}
		cols := attributeColumnList(a)
		if len(cols) > 0 {
			addIndex(schema, tableID, kind, cols, model.Name)
		}
	}
}

func attributeColumnList(a datamodel.Attribute) []string {
	if len(a.Args) == 0 {
		return nil
	}
	raw := a.Args[0].Value
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	var cols []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			cols = append(cols, part)
		}
	}
	return cols
}

func addIndex(schema *ir.SqlSchema, tableID ir.ID, kind ir.IndexKind, columnNames []string, modelName string) {
	idxID := schema.NextIndexID()
	maxLen := 63
	if fl, ok := flavour.Get(schema.Dialect); ok {
		maxLen = fl.Calculator.MaxConstraintNameLength
	}
	name := constraintName(tableNameOf(schema, tableID), columnNames, kind, maxLen)
	schema.Indexes = append(schema.Indexes, ir.Index{ID: idxID, TableID: tableID, Name: name, Kind: kind})
	for i, cn := range columnNames {
		col, ok := schema.ColumnByName(tableID, cn)
		if !ok {
			continue
		}
		schema.IndexColumns = append(schema.IndexColumns, ir.IndexColumn{IndexID: idxID, ColumnID: col.ID, Position: i})
	}
}

// constraintName builds the deterministic shapes of spec §4.4:
// <table>_pkey, <table>_<col…>_key, <table>_<col…>_idx,
// <table>_<col>_fkey — clamped to maxLen per dialect.
func constraintName(table string, cols []string, kind ir.IndexKind, maxLen int) string {
	var suffix string
	switch kind {
	case ir.IndexPrimaryKey:
		return clamp(table+"_pkey", maxLen)
	case ir.IndexUnique:
		suffix = "_key"
	case ir.IndexFulltext:
		suffix = "_idx"
	default:
		suffix = "_idx"
	}
	return clamp(table+"_"+strings.Join(cols, "_")+suffix, maxLen)
}

func clamp(name string, maxLen int) string {
	if len(name) <= maxLen {
		return name
	}
	return name[:maxLen]
}

func calculateForeignKey(schema *ir.SqlSchema, fl *flavour.Flavour, vs *datamodel.ValidatedSchema, rel datamodel.Relation, tableIDs map[string]ir.ID) {
	owningModelName, referencedModelName := rel.ModelA, rel.ModelB
	owningField := rel.FieldA
	if rel.OwningField == rel.FieldB {
		owningModelName, referencedModelName = rel.ModelB, rel.ModelA
		owningField = rel.FieldB
	}
	owningTableID, ok1 := tableIDs[owningModelName]
	referencedTableID, ok2 := tableIDs[referencedModelName]
	if !ok1 || !ok2 {
		return
	}
	_ = owningField

	fkName := camel(referencedModelName) + "Id"
	constrainedCol, ok := schema.ColumnByName(owningTableID, fkName)
	if !ok {
		return
	}
	referencedPK, ok := findPrimaryKeyColumn(schema, referencedTableID)
	if !ok {
		return
	}

	fkID := schema.NextForeignKeyID()
	name := clamp(fmt.Sprintf("%s_%s_fkey", tableNameOf(schema, owningTableID), fkName), fl.Calculator.MaxConstraintNameLength)
	schema.ForeignKeys = append(schema.ForeignKeys, ir.ForeignKey{
		ID: fkID, ConstrainedTableID: owningTableID, ReferencedTableID: referencedTableID,
		OnDelete: ir.ActionRestrict, OnUpdate: ir.ActionCascade, ConstraintName: name,
	})
	schema.ForeignKeyColumns = append(schema.ForeignKeyColumns, ir.ForeignKeyColumn{
		ForeignKeyID: fkID, Position: 0, ConstrainedColumn: constrainedCol.ID, ReferencedColumn: referencedPK.ID,
	})
}

func findPrimaryKeyColumn(schema *ir.SqlSchema, tableID ir.ID) (ir.Column, bool) {
	w := schema.Walk(tableID)
	pk, ok := w.PrimaryKey()
	if !ok {
		return ir.Column{}, false
	}
	ics := schema.IndexColumns(pk.ID)
	if len(ics) == 0 {
		return ir.Column{}, false
	}
	return schema.Column(ics[0].ColumnID)
}

func tableNameOf(schema *ir.SqlSchema, id ir.ID) string {
	t, _ := schema.Table(id)
	return t.Name
}

func camel(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func calculateEnum(schema *ir.SqlSchema, fl *flavour.Flavour, name string, item *datamodel.Item, nsID ir.ID) {
	if fl.Calculator.EnumLowering == flavour.EnumAsString {
		return // erased to a plain string column on the scalar side, nothing to emit here
	}
	enumID := schema.NextEnumID()
	schema.Enums = append(schema.Enums, ir.Enum{ID: enumID, NamespaceID: nsID, Name: name})
	for _, v := range item.EnumValues {
		schema.EnumVariants = append(schema.EnumVariants, ir.EnumVariant{EnumID: enumID, Name: v.Name})
	}
}
