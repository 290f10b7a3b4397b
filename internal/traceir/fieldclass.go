// Package traceir models the trace-IR input contract: the
// rich, self-describing field-class tree a producer builds once per
// stream/event class, and the field-value tree filled in per message.
// Nothing here constrains a FieldClass to be representable in CTF 1.8 —
// narrowing that down is internal/translate's job.
package traceir

// FieldClass is implemented by every trace-IR schema node. Identity is
// pointer identity: two field classes are "the same" iff they are the
// same Go pointer, which is what internal/translate's reference
// resolution keys on.
type FieldClass interface {
	isFieldClass()
}

// Bool is a boolean field class.
type Bool struct{}

func (*Bool) isFieldClass() {}

// BitArray is a fixed-width opaque bit pattern, no sign or enum mapping.
type BitArray struct {
	SizeBits  uint
	Alignment uint
}

func (*BitArray) isFieldClass() {}

// UnsignedInteger is an unsigned integer field, optionally carrying a
// clock-mapping.
type UnsignedInteger struct {
	SizeBits        uint
	Alignment       uint
	PreferredBase   int // a ctfir.DisplayBase value (BaseBinary..BaseHexadecimal), stored as a plain int
	MappedClockName string
}

func (*UnsignedInteger) isFieldClass() {}

// SignedInteger is a signed integer field class.
type SignedInteger struct {
	SizeBits      uint
	Alignment     uint
	PreferredBase int
}

func (*SignedInteger) isFieldClass() {}

// EnumRange is one value range of an enumeration mapping, stored as a raw
// 64-bit pattern; the owning enumeration's signedness says how to read it.
type EnumRange struct {
	Lo, Hi uint64
}

// EnumMapping is a single label with the set of ranges it covers. Ranges
// for a single mapping, and across mappings of the same enumeration, may
// overlap.
type EnumMapping struct {
	Label  string
	Ranges []EnumRange
}

// UnsignedEnumeration is an unsigned integer field class with label
// mappings attached.
type UnsignedEnumeration struct {
	SizeBits      uint
	Alignment     uint
	PreferredBase int
	Mappings      []EnumMapping
}

func (*UnsignedEnumeration) isFieldClass() {}

// SignedEnumeration is a signed integer field class with label mappings.
type SignedEnumeration struct {
	SizeBits      uint
	Alignment     uint
	PreferredBase int
	Mappings      []EnumMapping
}

func (*SignedEnumeration) isFieldClass() {}

// SinglePrecisionReal is a 32-bit IEEE 754 field class.
type SinglePrecisionReal struct{}

func (*SinglePrecisionReal) isFieldClass() {}

// DoublePrecisionReal is a 64-bit IEEE 754 field class.
type DoublePrecisionReal struct{}

func (*DoublePrecisionReal) isFieldClass() {}

// String is a null-terminated UTF-8 byte sequence field class.
type String struct{}

func (*String) isFieldClass() {}

// StructureMember is one named, ordered child of a Structure.
type StructureMember struct {
	Name string
	FC   FieldClass
}

// Structure is an ordered sequence of named member field classes.
type Structure struct {
	Members []StructureMember
}

func (*Structure) isFieldClass() {}

// MemberByName returns the member named name, if any.
func (s *Structure) MemberByName(name string) (StructureMember, bool) {
	for _, m := range s.Members {
		if m.Name == name {
			return m, true
		}
	}
	return StructureMember{}, false
}

// StaticArray is a fixed-length array of a single element field class.
type StaticArray struct {
	ElementFC FieldClass
	Length    uint64
}

func (*StaticArray) isFieldClass() {}

// DynamicArray is a variable-length array whose element count is carried
// by another field, named by LengthFieldRef.
type DynamicArray struct {
	ElementFC     FieldClass
	LengthFieldRef FieldRef
}

func (*DynamicArray) isFieldClass() {}

// Option is a field class present or absent per a separate tag field,
// named by TagFieldRef. When TagRanges is non-empty the option is
// "selector-mapped": present iff the tag's current value falls within
// one of TagRanges; otherwise the tag is itself a Bool and
// presence follows its value directly.
type Option struct {
	ContentFC  FieldClass
	TagFieldRef FieldRef
	TagRanges  []EnumRange
	TagSigned  bool
}

func (*Option) isFieldClass() {}

// VariantOption is one named alternative of a Variant, selected when the
// tag's current value falls within Ranges.
type VariantOption struct {
	Name   string
	FC     FieldClass
	Ranges []EnumRange
}

// Variant is a tagged union: exactly one of Options is live at a time,
// chosen by the enumeration field named TagFieldRef.
type Variant struct {
	Options     []VariantOption
	TagFieldRef FieldRef
	TagSigned   bool
}

func (*Variant) isFieldClass() {}
