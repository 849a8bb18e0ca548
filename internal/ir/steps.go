package ir

// StepKind tags a MigrationStep's variant. The numeric values fix the
// natural ordering used by the differ's initial sort pass (spec §4.6.5):
// CreateSchema < DropForeignKey < DropIndex < ... < CreateTable < ... <
// AddForeignKey, matching the exact sequence spec §4.6.2 enumerates.
type StepKind int

const (
	StepCreateSchema StepKind = iota
	StepDropForeignKey
	StepDropIndex
	StepDropTable
	StepCreateTable
	StepCreateIndex
	StepAlterTable
	StepRedefineTables
	StepAddForeignKey
	StepRenameForeignKey
	StepRenameIndex
	StepRedefineIndex
	StepAlterPrimaryKey
	StepCreateEnum
	StepDropEnum
	StepAlterEnum
	StepCreateSequence
	StepDropSequence
	StepRenameSequence
	StepAlterSequence
	StepCreateExtension
	StepDropExtension
	StepAlterExtension
	StepDropView
	StepDropUserDefinedType
)

// TableChangeKind tags one entry of an AlterTable's Changes list.
type TableChangeKind string

const (
	ChangeDropColumn            TableChangeKind = "drop_column"
	ChangeAddColumn             TableChangeKind = "add_column"
	ChangeAlterColumn           TableChangeKind = "alter_column"
	ChangeDropAndRecreateColumn TableChangeKind = "drop_and_recreate_column"
	ChangeDropPrimaryKey        TableChangeKind = "drop_primary_key"
	ChangeAddPrimaryKey         TableChangeKind = "add_primary_key"
	ChangeRenamePrimaryKey      TableChangeKind = "rename_primary_key"
)

// ColumnChangeBit is one bit of the ColumnChanges bitset (spec §4.6).
type ColumnChangeBit uint16

const (
	ChangeArity             ColumnChangeBit = 1 << iota
	ChangeDefaultChanged
	ChangeTypeChanged
	ChangeAutoIncrementChanged
	ChangeSequenceChanged
	ChangeDescriptionChanged
	ChangeNotNullAdded
	ChangeNotNullRemoved
)

func (b ColumnChangeBit) Has(set ColumnChangeBit) bool { return set&b != 0 }

// TableChange is one entry of AlterTable.Changes.
type TableChange struct {
	Kind TableChangeKind

	// ChangeDropColumn / ChangeAddColumn / ChangeAlterColumn / ChangeDropAndRecreateColumn
	ColumnID        ID // previous-schema id for drops/alters, next-schema id for adds
	PreviousColumnID ID
	NextColumnID     ID
	HasVirtualDefault bool // AddColumn only

	Changes    ColumnChangeBit // AlterColumn / DropAndRecreateColumn only
	TypeChange ColumnTypeChangeClass
}

// AlterTable groups every per-column/per-constraint change to one paired
// table, emitted in the exact order of spec §4.6.3.
type AlterTable struct {
	PreviousTableID ID
	NextTableID     ID
	Changes         []TableChange
}

// RedefineTable is one table rewritten via the SQLite/MSSQL five-step
// CREATE-INTO-INSERT-DROP-RENAME sequence (spec §4.6.4).
type RedefineTable struct {
	PreviousTableID ID
	NextTableID     ID
	// ColumnCasts maps next-schema column id to the SQL cast expression
	// (or plain column reference) used in the INSERT ... SELECT projection.
	ColumnCasts map[ID]string
}

// MigrationStep is one entry of the differ's output. Exactly one of the
// typed payload fields is meaningful, selected by Kind — modeled as a
// flat struct (rather than an interface union) to keep the differ's
// ordering/permutation pass simple slice manipulation, the same flat-
// struct discipline the teacher uses for PlanStep.
type MigrationStep struct {
	Kind StepKind

	NamespaceID ID // StepCreateSchema

	TableID ID // StepCreateTable (next), StepDropTable (prev)

	IndexID               ID // StepDropIndex, most index-affecting kinds
	PreviousIndexID       ID // StepRenameIndex/StepRedefineIndex
	NextIndexID           ID
	FromDropAndRecreate   bool // StepCreateIndex

	ForeignKeyID         ID // StepAddForeignKey (next), StepDropForeignKey (prev)
	PreviousForeignKeyID ID // StepRenameForeignKey
	NextForeignKeyID     ID

	AlterTable     *AlterTable     // StepAlterTable
	RedefineTables []RedefineTable // StepRedefineTables

	PreviousPrimaryKeyTableID ID // StepAlterPrimaryKey / rename
	NextPrimaryKeyTableID     ID

	EnumID         ID // StepCreateEnum/StepDropEnum
	EnumAdded      []string
	EnumRemoved    []string
	EnumRenamed    map[string]string

	SequenceNamespaceID ID
	SequenceName        string
	PreviousSequenceName string

	ExtensionName string

	ViewID           ID
	UserDefinedTypeID ID

	// Description is a short human-readable summary, filled in by the
	// differ for diagnostics/logging; never consulted for semantics.
	Description string
}
