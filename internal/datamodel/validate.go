package datamodel

import "fmt"

// ScalarFieldInfo is a resolved, type-checked field on a model/view/
// composite type.
type ScalarFieldInfo struct {
	Field     Field
	ModelName string
}

// RelationSide describes one resolved end of a relation once both
// fields participating in it are known.
type RelationSide struct {
	FieldName   string
	ModelName   string
	Fields      []string // @relation(fields: [...])
	References  []string // @relation(references: [...])
	Name        string   // explicit relation name, if given
	IsOwning    bool     // carries the foreign key (scalar fields + @relation)
}

// Relation is a fully resolved two-sided (or self-) relation between two
// models, after the tie-break algorithm of spec §4.3 has picked the
// owning side.
type Relation struct {
	Name        string
	ModelA      string
	ModelB      string
	FieldA      string
	FieldB      string
	OwningField string // name of the field on the owning side
}

// ValidatedSchema is the "parser database": every item/field name
// resolved, relations paired up, ready for the calculator and
// reformatter's implicit-field-completion pass to consume. Grounded on
// the teacher's two-pass style in internal/schema/diff.go, which first
// indexes everything by name before comparing.
type ValidatedSchema struct {
	Doc        *Document
	Models     map[string]*Item
	Views      map[string]*Item
	Enums      map[string]*Item
	Composites map[string]*Item
	Aliases    map[string]*Item
	Datasource *Item
	Generators []*Item
	Relations  []Relation
}

// Validate runs the full validation pipeline of spec §4.1/§4.3 over a
// parsed Document: name-uniqueness, primary-key cardinality, relation
// resolution, and unknown-type reference checks. It never stops at
// the first problem; every Diagnostic found is returned together.
func Validate(doc *Document) (*ValidatedSchema, *Diagnostics) {
	var diag Diagnostics
	vs := &ValidatedSchema{
		Doc:        doc,
		Models:     map[string]*Item{},
		Views:      map[string]*Item{},
		Enums:      map[string]*Item{},
		Composites: map[string]*Item{},
		Aliases:    map[string]*Item{},
	}

	seen := map[string]Span{}
	for i := range doc.Items {
		it := &doc.Items[i]
		if it.Kind == ItemDatasource || it.Kind == ItemGenerator {
			if it.Kind == ItemDatasource {
				if vs.Datasource != nil {
					diag.Add(ErrDuplicateName, it.Span, "only one datasource block is allowed, %q is a duplicate", it.Name)
				}
				vs.Datasource = it
			} else {
				vs.Generators = append(vs.Generators, it)
			}
			continue
		}
		if prev, ok := seen[it.Name]; ok {
			diag.Add(ErrDuplicateName, it.Span, "%q is already declared at line %d", it.Name, prev.Line)
			continue
		}
		seen[it.Name] = it.Span

		switch it.Kind {
		case ItemModel:
			vs.Models[it.Name] = it
		case ItemView:
			vs.Views[it.Name] = it
		case ItemEnum:
			vs.Enums[it.Name] = it
		case ItemCompositeType:
			vs.Composites[it.Name] = it
		case ItemTypeAlias:
			vs.Aliases[it.Name] = it
		}
	}

	if vs.Datasource == nil {
		diag.Add(ErrMissingDatasource, Span{}, "schema has no datasource block")
	}

	for name, model := range vs.Models {
		validatePrimaryKey(name, model, &diag)
		validateFieldTypes(vs, model, &diag)
	}

	resolveRelations(vs, &diag)

	return vs, &diag
}

func validatePrimaryKey(modelName string, model *Item, diag *Diagnostics) {
	count := 0
	for _, f := range model.Fields {
		for _, a := range f.Attributes {
			if a.Name == "id" {
				count++
			}
		}
	}
	hasBlockID := false
	for _, a := range model.Attributes {
		if a.Name == "id" {
			hasBlockID = true
		}
	}
	if hasBlockID {
		count++
	}
	if count == 0 {
		diag.Add(ErrMissingPrimaryKey, model.Span, "model %q has no primary key: add @id to a field or @@id([...]) to the model", modelName)
	} else if count > 1 {
		diag.Add(ErrMultiplePrimaryKeys, model.Span, "model %q declares more than one primary key", modelName)
	}
}

func validateFieldTypes(vs *ValidatedSchema, model *Item, diag *Diagnostics) {
	for _, f := range model.Fields {
		if f.Type.Kind != TypeReference {
			continue
		}
		name := f.Type.Name
		if _, ok := vs.Models[name]; ok {
			continue
		}
		if _, ok := vs.Enums[name]; ok {
			continue
		}
		if _, ok := vs.Composites[name]; ok {
			continue
		}
		diag.Add(ErrUnresolvedReference, f.Type.Span, "field %q references unknown type %q", f.Name, name)
	}
}

// resolveRelations pairs up fields whose type references another model
// into Relations, applying the owning-side tie-break algorithm of spec
// §4.3: the side carrying an explicit @relation(fields: ..., references:
// ...) attribute owns the foreign key; if neither side has one, the
// non-list side owns it (the "one" side's model holds no FK for an
// implicit one-to-many); if both sides are singular, a required side
// owns it over an optional one, and if that still ties, the side whose
// model name sorts lexicographically first owns it.
func resolveRelations(vs *ValidatedSchema, diag *Diagnostics) {
	type endpoint struct {
		modelName string
		field     Field
	}
	var endpoints []endpoint
	for name, model := range vs.Models {
		for _, f := range model.Fields {
			if f.Type.Kind == TypeReference {
				if _, ok := vs.Models[f.Type.Name]; ok {
					endpoints = append(endpoints, endpoint{modelName: name, field: f})
				}
			}
		}
	}

	paired := map[string]bool{}
	for i, a := range endpoints {
		key := relationKey(a)
		if paired[key] {
			continue
		}
		var b *endpoint
		for j := i + 1; j < len(endpoints); j++ {
			cand := endpoints[j]
			if cand.modelName == a.field.Type.Name && a.modelName == cand.field.Type.Name && relationName(a.field) == relationName(cand.field) {
				b = &endpoints[j]
				break
			}
		}
		if b == nil {
			// Self-relation or one-sided back-reference: completion will
			// materialize the missing side; nothing to pair here yet.
			continue
		}
		paired[key] = true
		paired[relationKey(*b)] = true

		owningA := hasExplicitRelation(a.field)
		owningB := hasExplicitRelation(b.field)
		var owning endpoint
		switch {
		case owningA && owningB:
			diag.Add(ErrAmbiguousRelation, a.field.Span, "both sides of relation between %q and %q declare @relation fields/references", a.modelName, b.modelName)
			owning = a
		case owningA:
			owning = a
		case owningB:
			owning = *b
		case a.field.Arity == ArityList && b.field.Arity != ArityList:
			owning = *b
		case b.field.Arity == ArityList && a.field.Arity != ArityList:
			owning = a
		case a.field.Arity == ArityRequired && b.field.Arity == ArityOptional:
			owning = a
		case b.field.Arity == ArityRequired && a.field.Arity == ArityOptional:
			owning = *b
		case b.modelName < a.modelName:
			owning = *b
		default:
			owning = a
		}

		vs.Relations = append(vs.Relations, Relation{
			Name:        relationName(a.field),
			ModelA:      a.modelName,
			ModelB:      b.modelName,
			FieldA:      a.field.Name,
			FieldB:      b.field.Name,
			OwningField: owning.field.Name,
		})
	}
}

func relationKey(e struct {
	modelName string
	field     Field
}) string {
	return fmt.Sprintf("%s.%s", e.modelName, e.field.Name)
}

func relationName(f Field) string {
	for _, a := range f.Attributes {
		if a.Name == "relation" {
			for _, arg := range a.Args {
				if arg.Name == "" && len(arg.Value) > 0 && arg.Value[0] == '"' {
					return arg.Value
				}
			}
		}
	}
	return ""
}

func hasExplicitRelation(f Field) bool {
	for _, a := range f.Attributes {
		if a.Name == "relation" {
			for _, arg := range a.Args {
				if arg.Name == "fields" || arg.Name == "references" {
					return true
				}
			}
		}
	}
	return false
}
