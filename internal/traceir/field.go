package traceir

// Field is a value filled in against a FieldClass. Shape must match the
// FieldClass tree it was built for: a StructField's Values has exactly
// one entry per Structure.Members, in the same order; the stream runtime
// walks both trees in lockstep and reports an error only when a value is
// missing or has the wrong type, not when extra values are supplied.
type Field interface {
	isField()
}

// BoolField is a value for a Bool field class.
type BoolField bool

func (BoolField) isField() {}

// BitArrayField is a value for a BitArray field class, stored as the raw
// unsigned pattern.
type BitArrayField uint64

func (BitArrayField) isField() {}

// UnsignedIntField is a value for an UnsignedInteger or
// UnsignedEnumeration field class.
type UnsignedIntField uint64

func (UnsignedIntField) isField() {}

// SignedIntField is a value for a SignedInteger or SignedEnumeration
// field class.
type SignedIntField int64

func (SignedIntField) isField() {}

// RealField is a value for a SinglePrecisionReal or DoublePrecisionReal
// field class; the class itself says which width to serialize as.
type RealField float64

func (RealField) isField() {}

// StringField is a value for a String field class.
type StringField string

func (StringField) isField() {}

// StructField holds one Field per member of the Structure it was built
// against, in declaration order.
type StructField struct {
	Values []Field
}

func (StructField) isField() {}

// ArrayField holds the elements of a StaticArray or DynamicArray field.
// For a StaticArray, len(Elements) must equal the class's Length.
type ArrayField struct {
	Elements []Field
}

func (ArrayField) isField() {}

// OptionField is the value of an Option field class: either absent, or
// present with a Value matching the class's ContentFC.
type OptionField struct {
	HasValue bool
	Value    Field
}

func (OptionField) isField() {}

// VariantField is the value of a Variant field class: SelectedIndex
// indexes into the class's Options, and Value matches that option's FC.
type VariantField struct {
	SelectedIndex int
	Value         Field
}

func (VariantField) isField() {}
