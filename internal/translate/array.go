package translate

import (
	"fmt"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/traceir"
)

// translateDynamicArray resolves the array's length field against
// already-translated siblings; when it can't, it synthesizes a 32-bit
// unsigned length field immediately before the array ("before"
// synthesis), which requires parent to be non-nil.
func (t *Translator) translateDynamicArray(c *ctx, src traceir.FieldClass, v *traceir.DynamicArray, parent *ctfir.Struct, memberName string) (ctfir.FieldClass, error) {
	elem, err := t.translateFieldClass(c, v.ElementFC, nil, "")
	if err != nil {
		return nil, fmt.Errorf("dynamic array element: %w", err)
	}

	if name, ok := c.resolve(v.LengthFieldRef); ok {
		return ctfir.NewSequence(src, elem, name, false), nil
	}
	if parent == nil {
		return nil, fmt.Errorf("dynamic array length reference unresolved and no struct to synthesize one in: %w", ErrUnsupportedSchema)
	}
	lenName := chooseBeforeName(parent.HasMember, memberName, "len")
	lenFC := ctfir.NewInt(src, 32, false, ctfir.BaseDecimal, 8)
	parent.AppendSynthesizedMember(lenName, lenFC)
	return ctfir.NewSequence(src, elem, lenName, true), nil
}

// translateOption always synthesizes its presence tag immediately before
// the content field (CTF 1.8 has no native optional-field
// type, only a two-alternative variant keyed by a fresh enum), so it
// always requires a non-nil parent.
func (t *Translator) translateOption(c *ctx, src traceir.FieldClass, v *traceir.Option, parent *ctfir.Struct, memberName string) (ctfir.FieldClass, error) {
	if parent == nil {
		return nil, fmt.Errorf("option field has no enclosing struct to synthesize a presence tag in: %w", ErrUnsupportedSchema)
	}
	content, err := t.translateFieldClass(c, v.ContentFC, nil, "")
	if err != nil {
		return nil, fmt.Errorf("option content: %w", err)
	}
	tagName := chooseBeforeName(parent.HasMember, memberName, "tag")
	tagFC := ctfir.NewInt(src, 8, false, ctfir.BaseDecimal, 8)
	tagFC.EnumMappings = []ctfir.EnumMapping{
		{Label: "none", Ranges: ctfir.SingleValue(false, 0)},
		{Label: "content", Ranges: ctfir.SingleValue(false, 1)},
	}
	parent.AppendSynthesizedMember(tagName, tagFC)
	return ctfir.NewOption(src, content, tagName), nil
}
