package differ

import "github.com/lockforge/schemaengine/internal/ir"

// diffEnums pairs enums by (namespace, name) and emits CreateEnum/DropEnum
// for unmatched rows, AlterEnum for paired enums whose variant list
// differs. Skipped entirely for dialects that lower enums to a CHECK
// constraint or a plain string column instead of a native type
// (PushEnumSteps false, e.g. SQLite).
func (d *differ) diffEnums() []ir.MigrationStep {
	if !d.fl.Differ.PushEnumSteps {
		return nil
	}
	var steps []ir.MigrationStep
	matchedNext := map[ir.ID]bool{}

	for _, pe := range d.prev.Enums {
		pns := d.namespaceName(d.prev, pe.NamespaceID)
		var match *ir.Enum
		for i, ne := range d.next.Enums {
			if matchedNext[ne.ID] {
				continue
			}
			if d.namespaceName(d.next, ne.NamespaceID) == pns && ne.Name == pe.Name {
				match = &d.next.Enums[i]
				matchedNext[ne.ID] = true
				break
			}
		}
		if match == nil {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepDropEnum, EnumID: pe.ID, Description: "drop enum " + pe.Name})
			continue
		}
		added, removed, renamed := diffEnumVariants(d.prev.EnumVariantsOf(pe.ID), d.next.EnumVariantsOf(match.ID))
		if len(added) > 0 || len(removed) > 0 || len(renamed) > 0 {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepAlterEnum, EnumID: match.ID, EnumAdded: added, EnumRemoved: removed, EnumRenamed: renamed, Description: "alter enum " + pe.Name})
		}
	}
	for _, ne := range d.next.Enums {
		if !matchedNext[ne.ID] {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepCreateEnum, EnumID: ne.ID, Description: "create enum " + ne.Name})
		}
	}
	return steps
}

// diffEnumVariants separates a plain add/remove from a rename: a variant
// dropped from one ordinal position and a variant added at the same
// position is treated as a rename (preserves any existing column values
// already using that label), rather than two independent steps.
func diffEnumVariants(prev, next []ir.EnumVariant) (added, removed []string, renamed map[string]string) {
	prevNames := map[string]bool{}
	for _, v := range prev {
		prevNames[v.Name] = true
	}
	nextNames := map[string]bool{}
	for _, v := range next {
		nextNames[v.Name] = true
	}

	var droppedAt, addedAt []string
	for _, v := range prev {
		if !nextNames[v.Name] {
			droppedAt = append(droppedAt, v.Name)
		}
	}
	for _, v := range next {
		if !prevNames[v.Name] {
			addedAt = append(addedAt, v.Name)
		}
	}

	renamed = map[string]string{}
	n := min(len(droppedAt), len(addedAt))
	for i := 0; i < n; i++ {
		renamed[droppedAt[i]] = addedAt[i]
	}
	removed = droppedAt[n:]
	added = addedAt[n:]
	if len(renamed) == 0 {
		renamed = nil
	}
	return added, removed, renamed
}

// diffSequences pairs standalone sequence objects by (namespace, name).
// Only Postgres/CockroachDB own standalone sequences in this engine;
// SQLite's rowid autoincrement needs no sequence object at all.
func (d *differ) diffSequences() []ir.MigrationStep {
	if !d.fl.Differ.PushAlterSequenceSteps {
		return nil
	}
	var steps []ir.MigrationStep
	matchedNext := map[string]bool{}

	for _, ps := range d.prev.Sequences {
		pns := d.namespaceName(d.prev, ps.NamespaceID)
		key := pns + "." + ps.Name
		var match *ir.SequenceObject
		for i, ns := range d.next.Sequences {
			k := d.namespaceName(d.next, ns.NamespaceID) + "." + ns.Name
			if matchedNext[k] || k != key {
				continue
			}
			match = &d.next.Sequences[i]
			matchedNext[k] = true
			break
		}
		if match == nil {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepDropSequence, SequenceNamespaceID: ps.NamespaceID, SequenceName: ps.Name, Description: "drop sequence " + ps.Name})
			continue
		}
		if match.InitialValue != ps.InitialValue || match.AllocationSize != ps.AllocationSize {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepAlterSequence, SequenceNamespaceID: match.NamespaceID, SequenceName: match.Name, PreviousSequenceName: ps.Name, Description: "alter sequence " + ps.Name})
		}
	}
	for _, ns := range d.next.Sequences {
		key := d.namespaceName(d.next, ns.NamespaceID) + "." + ns.Name
		if !matchedNext[key] {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepCreateSequence, SequenceNamespaceID: ns.NamespaceID, SequenceName: ns.Name, Description: "create sequence " + ns.Name})
		}
	}
	return steps
}

// diffExtensions pairs Postgres extensions by name; version changes
// produce an AlterExtension (ALTER EXTENSION ... UPDATE), not a
// drop/create, since extensions usually own dependent objects that a
// DROP would cascade into removing.
func (d *differ) diffExtensions() []ir.MigrationStep {
	if !d.fl.Differ.PushExtensionSteps {
		return nil
	}
	var steps []ir.MigrationStep
	matchedNext := map[string]bool{}

	for _, pe := range d.prev.Extensions {
		var match *ir.Extension
		for i, ne := range d.next.Extensions {
			if matchedNext[ne.Name] || ne.Name != pe.Name {
				continue
			}
			match = &d.next.Extensions[i]
			matchedNext[ne.Name] = true
			break
		}
		if match == nil {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepDropExtension, ExtensionName: pe.Name, Description: "drop extension " + pe.Name})
			continue
		}
		if match.Version != pe.Version {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepAlterExtension, ExtensionName: pe.Name, Description: "alter extension " + pe.Name})
		}
	}
	for _, ne := range d.next.Extensions {
		if !matchedNext[ne.Name] {
			steps = append(steps, ir.MigrationStep{Kind: ir.StepCreateExtension, ExtensionName: ne.Name, Description: "create extension " + ne.Name})
		}
	}
	return steps
}
