package ir

// Family is the dialect-neutral scalar family a column belongs to.
type Family string

const (
	FamilyInt         Family = "int"
	FamilyBigInt      Family = "bigint"
	FamilyFloat       Family = "float"
	FamilyDecimal     Family = "decimal"
	FamilyBoolean     Family = "boolean"
	FamilyString      Family = "string"
	FamilyDateTime    Family = "datetime"
	FamilyJSON        Family = "json"
	FamilyBinary      Family = "binary"
	FamilyUUID        Family = "uuid"
	FamilyEnum        Family = "enum"
	FamilyUnsupported Family = "unsupported"
)

// Arity is the nullability/cardinality of a column or relation field.
type Arity string

const (
	ArityRequired Arity = "required"
	ArityNullable Arity = "nullable"
	ArityList     Arity = "list"
)

// NativeType is an opaque, dialect-tagged payload attached to a column,
// e.g. VarChar(200), Timestamp(3), Decimal(18,0). Args are the native
// type's numeric/string arguments in declaration order.
type NativeType struct {
	Name string
	Args []string
}

// ColumnType is the full type of a SQL column: its dialect-neutral
// family, the literal SQL type string as it appears in DDL, its arity,
// the id of the backing enum when Family == FamilyEnum, and an optional
// native type annotation.
type ColumnType struct {
	Family       Family
	FullDataType string
	Arity        Arity
	EnumID       ID // valid only when Family == FamilyEnum
	Native       *NativeType
}

// Unsupported reports a column type family carrying an opaque native
// literal the engine could not classify (spec §3.1 Unsupported(lit)).
func (c ColumnType) Unsupported() bool {
	return c.Family == FamilyUnsupported
}

// ColumnTypeChangeClass classifies a transition from one ColumnType to
// another, per the dialect's column_type_change flavour callback.
type ColumnTypeChangeClass string

const (
	SafeCast    ColumnTypeChangeClass = "safe_cast"
	RiskyCast   ColumnTypeChangeClass = "risky_cast"
	NotCastable ColumnTypeChangeClass = "not_castable"
)
