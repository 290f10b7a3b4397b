// Package ctfir holds the CTF-IR data model: the narrow field-class tree
// that CTF 1.8 TSDL can express, plus the EventClass/StreamClass/Trace
// records that own those trees.
package ctfir

// DisplayBase is the preferred textual base for an integer field.
type DisplayBase int

const (
	BaseBinary DisplayBase = iota
	BaseOctal
	BaseDecimal
	BaseHexadecimal
)

// FieldClass is a node in the CTF-IR field-class tree. Every node carries
// an alignment in bits, its index within its parent, and an opaque
// identity (Source) back to the trace-IR node it was translated from —
// read back only by Struct.MemberWithSource; the identity is never
// dereferenced by the emitter or the stream runtime.
type FieldClass interface {
	Alignment() uint
	SetAlignment(uint)
	IndexInParent() int
	SetIndexInParent(int)
	Source() any
}

type base struct {
	alignment     uint
	indexInParent int
	source        any
}

func (b *base) Alignment() uint          { return b.alignment }
func (b *base) SetAlignment(a uint)      { b.alignment = a }
func (b *base) IndexInParent() int       { return b.indexInParent }
func (b *base) SetIndexInParent(i int)   { b.indexInParent = i }
func (b *base) Source() any              { return b.source }
func (b *base) SetSource(s any)          { b.source = s }

// Bool is rendered in TSDL as an 8-bit unsigned integer.
type Bool struct{ base }

func NewBool(source any) *Bool {
	b := &Bool{}
	b.SetSource(source)
	b.SetAlignment(8)
	return b
}

// BitArray is rendered as an unsigned integer with hex display base.
type BitArray struct {
	base
	SizeBits uint
}

func NewBitArray(source any, sizeBits uint, alignment uint) *BitArray {
	n := &BitArray{SizeBits: sizeBits}
	n.SetSource(source)
	n.SetAlignment(alignment)
	return n
}

// Int is both plain integers and, when EnumMappings is non-empty, integer
// enumerations (the same TSDL type wrapped in `enum : integer { ... }`).
type Int struct {
	base
	SizeBits        uint
	Signed          bool
	Base            DisplayBase
	MappedClockName string // "" unless this integer maps a clock value
	EnumMappings    []EnumMapping
}

func NewInt(source any, sizeBits uint, signed bool, base_ DisplayBase, alignment uint) *Int {
	n := &Int{SizeBits: sizeBits, Signed: signed, Base: base_}
	n.SetSource(source)
	n.SetAlignment(alignment)
	return n
}

// Float is a 32- or 64-bit IEEE 754 field.
type Float struct {
	base
	SizeBits uint
}

func NewFloat(source any, sizeBits uint) *Float {
	n := &Float{SizeBits: sizeBits}
	n.SetSource(source)
	n.SetAlignment(sizeBits)
	return n
}

// String is a null-terminated UTF-8 byte sequence, always byte-aligned.
type String struct{ base }

func NewString(source any) *String {
	n := &String{}
	n.SetSource(source)
	n.SetAlignment(8)
	return n
}

// StructMember is one named child of a Struct. Synthesized is true for a
// length or tag field the translator inserted immediately before the
// dynamic array/option/variant it serves ("before" synthesis):
// such a member has no corresponding trace-IR value of its own, and the
// stream runtime derives its value from the member that follows it
// instead of reading one from the caller.
type StructMember struct {
	Name        string
	FC          FieldClass
	Synthesized bool
}

// Struct is an ordered sequence of named fields. Its alignment is the max
// of its members' alignments, raised lazily as members are
// appended.
type Struct struct {
	base
	Members []StructMember
}

func NewStruct(source any) *Struct {
	s := &Struct{}
	s.SetSource(source)
	s.SetAlignment(1)
	return s
}

// HasMember reports whether name is already used by a direct member.
func (s *Struct) HasMember(name string) bool {
	for _, m := range s.Members {
		if m.Name == name {
			return true
		}
	}
	return false
}

// MemberWithSource returns the member named name whose field class
// originated from src, so a caller can confirm a name refers to the
// field it actually meant (not just a same-named sibling).
func (s *Struct) MemberWithSource(name string, src any) (StructMember, bool) {
	for _, m := range s.Members {
		if m.Name == name && m.FC.Source() == src {
			return m, true
		}
	}
	return StructMember{}, false
}

// AppendMember adds a member in declaration order and raises the
// struct's alignment to at least the member's.
func (s *Struct) AppendMember(name string, fc FieldClass) {
	s.appendMember(name, fc, false)
}

// AppendSynthesizedMember is AppendMember for a translator-inserted
// length/tag field with no trace-IR value of its own.
func (s *Struct) AppendSynthesizedMember(name string, fc FieldClass) {
	s.appendMember(name, fc, true)
}

func (s *Struct) appendMember(name string, fc FieldClass, synthesized bool) {
	fc.SetIndexInParent(len(s.Members))
	s.Members = append(s.Members, StructMember{Name: name, FC: fc, Synthesized: synthesized})
	if fc.Alignment() > s.Alignment() {
		s.SetAlignment(fc.Alignment())
	}
}

// Array is a static-length sequence of a single element field class.
type Array struct {
	base
	Elem   FieldClass
	Length uint64
}

func NewArray(source any, elem FieldClass, length uint64) *Array {
	a := &Array{Elem: elem, Length: length}
	a.SetSource(source)
	a.SetAlignment(elem.Alignment())
	return a
}

// Sequence is a dynamic-length array. LengthRef names the integer field
// that carries the element count: either a preceding sibling (when
// LengthIsBefore is false) or a field synthesized immediately before this
// one (when true).
type Sequence struct {
	base
	Elem           FieldClass
	LengthRef      string
	LengthIsBefore bool
}

func NewSequence(source any, elem FieldClass, lengthRef string, lengthIsBefore bool) *Sequence {
	s := &Sequence{Elem: elem, LengthRef: lengthRef, LengthIsBefore: lengthIsBefore}
	s.SetSource(source)
	s.SetAlignment(elem.Alignment())
	return s
}

// Option is always synthesized in CTF 1.8 as a two-alternative variant
// (none=0, content=1) controlled by an 8-bit unsigned enum tag emitted
// immediately before it; TagRef names that synthesized tag.
type Option struct {
	base
	Content FieldClass
	TagRef  string
}

func NewOption(source any, content FieldClass, tagRef string) *Option {
	o := &Option{Content: content, TagRef: tagRef}
	o.SetSource(source)
	o.SetAlignment(content.Alignment())
	return o
}

// VariantOption is one named alternative of a Variant.
type VariantOption struct {
	Name string
	FC   FieldClass
}

// Variant selects one of its Options by TagRef, an external enum field
// (TagIsBefore == false) or a synthesized 16-bit unsigned enum emitted
// just before it (TagIsBefore == true).
type Variant struct {
	base
	Options     []VariantOption
	TagRef      string
	TagIsBefore bool
}

func NewVariant(source any, options []VariantOption, tagRef string, tagIsBefore bool) *Variant {
	v := &Variant{Options: options, TagRef: tagRef, TagIsBefore: tagIsBefore}
	v.SetSource(source)
	align := uint(1)
	for _, o := range options {
		if o.FC.Alignment() > align {
			align = o.FC.Alignment()
		}
	}
	v.SetAlignment(align)
	return v
}
