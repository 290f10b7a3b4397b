package translate

import (
	"fmt"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/identifier"
	"github.com/ctftrace/fs-sink/internal/traceir"
)

// translateFieldClass dispatches on the concrete trace-IR field class
// type and returns its CTF-IR equivalent.
//
// parent and memberName are non-nil/non-empty only when fc is a direct
// member of a struct currently being built: that's the only place a
// dynamic array, option, or variant can synthesize a "before" sibling
// field for a length or tag it can't otherwise resolve. A
// field nested inside an array or another composite has no such place
// to put one, and translation fails if it needs one.
func (t *Translator) translateFieldClass(c *ctx, fc traceir.FieldClass, parent *ctfir.Struct, memberName string) (ctfir.FieldClass, error) {
	switch v := fc.(type) {
	case *traceir.Bool:
		return ctfir.NewBool(fc), nil

	case *traceir.BitArray:
		return ctfir.NewBitArray(fc, v.SizeBits, v.Alignment), nil

	case *traceir.UnsignedInteger:
		n := ctfir.NewInt(fc, v.SizeBits, false, ctfir.DisplayBase(v.PreferredBase), v.Alignment)
		n.MappedClockName = t.mappedClockName(v.MappedClockName)
		return n, nil

	case *traceir.SignedInteger:
		return ctfir.NewInt(fc, v.SizeBits, true, ctfir.DisplayBase(v.PreferredBase), v.Alignment), nil

	case *traceir.UnsignedEnumeration:
		n := ctfir.NewInt(fc, v.SizeBits, false, ctfir.DisplayBase(v.PreferredBase), v.Alignment)
		n.EnumMappings = translateMappings(false, v.Mappings)
		return n, nil

	case *traceir.SignedEnumeration:
		n := ctfir.NewInt(fc, v.SizeBits, true, ctfir.DisplayBase(v.PreferredBase), v.Alignment)
		n.EnumMappings = translateMappings(true, v.Mappings)
		return n, nil

	case *traceir.SinglePrecisionReal:
		return ctfir.NewFloat(fc, 32), nil

	case *traceir.DoublePrecisionReal:
		return ctfir.NewFloat(fc, 64), nil

	case *traceir.String:
		return ctfir.NewString(fc), nil

	case *traceir.Structure:
		return t.translateStruct(c, fc, v)

	case *traceir.StaticArray:
		elem, err := t.translateFieldClass(c, v.ElementFC, nil, "")
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		return ctfir.NewArray(fc, elem, v.Length), nil

	case *traceir.DynamicArray:
		return t.translateDynamicArray(c, fc, v, parent, memberName)

	case *traceir.Option:
		return t.translateOption(c, fc, v, parent, memberName)

	case *traceir.Variant:
		return t.translateVariant(c, fc, v, parent, memberName)

	default:
		return nil, fmt.Errorf("unrepresentable field class %T: %w", fc, ErrUnsupportedSchema)
	}
}

func (t *Translator) mappedClockName(clockName string) string {
	if clockName == "" {
		return ""
	}
	return identifier.Protect(clockName)
}

func translateMappings(signed bool, in []traceir.EnumMapping) []ctfir.EnumMapping {
	out := make([]ctfir.EnumMapping, 0, len(in))
	for _, m := range in {
		rs := ctfir.RangeSet{Signed: signed}
		for _, r := range m.Ranges {
			rs.Ranges = append(rs.Ranges, ctfir.Range{Lo: r.Lo, Hi: r.Hi})
		}
		out = append(out, ctfir.EnumMapping{Label: m.Label, Ranges: rs})
	}
	return out
}

// translateStruct translates every member in declaration order, pushing
// a frame so later members (and nested scopes) can resolve relative
// references back into this structure, and passing itself down as the
// synthesis target for its own direct members.
func (t *Translator) translateStruct(c *ctx, src traceir.FieldClass, in *traceir.Structure) (*ctfir.Struct, error) {
	out := ctfir.NewStruct(src)
	c.push(frame{traceStruct: in})
	defer c.pop()

	for _, m := range in.Members {
		name := identifier.Protect(m.Name)
		if out.HasMember(name) {
			return nil, fmt.Errorf("duplicate member name %q after identifier protection: %w", name, ErrUnsupportedIdentifier)
		}
		fc, err := t.translateFieldClass(c, m.FC, out, name)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", m.Name, err)
		}
		out.AppendMember(name, fc)
		c.markTranslated(m.FC, name, fc)
	}
	return out, nil
}
