package tsdl

import (
	"fmt"
	"strings"

	"github.com/ctftrace/fs-sink/internal/ctfir"
)

// declType returns the TSDL type text to place before a field's name
// (prefix) and, for array-shaped field classes, the bracket suffix to
// place after it. Nested arrays/sequences recurse so `int x[4][8];`-style
// chains render correctly: the prefix always bottoms out at the
// innermost element's scalar or composite type.
func (r *renderer) declType(fc ctfir.FieldClass) (prefix, suffix string, err error) {
	switch v := fc.(type) {
	case *ctfir.Array:
		p, s, err := r.declType(v.Elem)
		if err != nil {
			return "", "", err
		}
		return p, fmt.Sprintf("[%d]%s", v.Length, s), nil

	case *ctfir.Sequence:
		p, s, err := r.declType(v.Elem)
		if err != nil {
			return "", "", err
		}
		if v.LengthIsBefore {
			return p, fmt.Sprintf("[length = %s]%s", v.LengthRef, s), nil
		}
		return p, fmt.Sprintf("[%s]%s", v.LengthRef, s), nil

	default:
		p, err := r.scalarType(fc)
		return p, "", err
	}
}

func (r *renderer) scalarType(fc ctfir.FieldClass) (string, error) {
	switch v := fc.(type) {
	case *ctfir.Bool:
		return "integer { size = 8; align = 8; signed = false; base = decimal; }", nil

	case *ctfir.BitArray:
		return fmt.Sprintf("integer { size = %d; align = %d; signed = false; base = hexadecimal; }", v.SizeBits, v.Alignment()), nil

	case *ctfir.Int:
		return r.intType(v)

	case *ctfir.Float:
		mantDig, expDig := 24, 8
		if v.SizeBits == 64 {
			mantDig, expDig = 53, 11
		}
		return fmt.Sprintf("floating_point { mant_dig = %d; exp_dig = %d; align = %d; }", mantDig, expDig, v.Alignment()), nil

	case *ctfir.String:
		return "string", nil

	case *ctfir.Struct:
		return r.structType(v)

	case *ctfir.Option:
		return r.optionType(v)

	case *ctfir.Variant:
		return r.variantType(v)

	default:
		return "", fmt.Errorf("unrenderable field class %T", fc)
	}
}

func baseName(b ctfir.DisplayBase) string {
	switch b {
	case ctfir.BaseBinary:
		return "binary"
	case ctfir.BaseOctal:
		return "octal"
	case ctfir.BaseHexadecimal:
		return "hexadecimal"
	default:
		return "decimal"
	}
}

func (r *renderer) intType(v *ctfir.Int) (string, error) {
	var mapClause string
	if v.MappedClockName != "" {
		mapClause = fmt.Sprintf(" map(clock.%s.value);", v.MappedClockName)
	}
	head := fmt.Sprintf("integer { size = %d; align = %d; signed = %t; base = %s;%s }",
		v.SizeBits, v.Alignment(), v.Signed, baseName(v.Base), mapClause)
	if len(v.EnumMappings) == 0 {
		return head, nil
	}
	var b strings.Builder
	b.WriteString("enum : ")
	b.WriteString(head)
	b.WriteString(" {\n")
	for i, m := range v.EnumMappings {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "        %s = %s", quoteString(m.Label), formatRanges(m.Ranges))
	}
	b.WriteString("\n    }")
	return b.String(), nil
}

func formatRanges(rs ctfir.RangeSet) string {
	parts := make([]string, 0, len(rs.Ranges))
	for _, rg := range rs.Ranges {
		if rg.Lo == rg.Hi {
			parts = append(parts, formatRangeValue(rs.Signed, rg.Lo))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s ... %s", formatRangeValue(rs.Signed, rg.Lo), formatRangeValue(rs.Signed, rg.Hi)))
	}
	return strings.Join(parts, ", ")
}

func formatRangeValue(signed bool, v uint64) string {
	if signed {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%d", v)
}

func (r *renderer) structType(s *ctfir.Struct) (string, error) {
	var b strings.Builder
	b.WriteString("struct {\n")
	for _, m := range s.Members {
		p, suf, err := r.declType(m.FC)
		if err != nil {
			return "", fmt.Errorf("member %q: %w", m.Name, err)
		}
		fmt.Fprintf(&b, "        %s %s%s;\n", p, m.Name, suf)
	}
	fmt.Fprintf(&b, "    } align(%d)", s.Alignment())
	return b.String(), nil
}

func (r *renderer) optionType(o *ctfir.Option) (string, error) {
	p, suf, err := r.declType(o.Content)
	if err != nil {
		return "", fmt.Errorf("option content: %w", err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "variant <%s> {\n", o.TagRef)
	b.WriteString("        struct { } none;\n")
	fmt.Fprintf(&b, "        %s content%s;\n", p, suf)
	b.WriteString("    }")
	return b.String(), nil
}

func (r *renderer) variantType(v *ctfir.Variant) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "variant <%s> {\n", v.TagRef)
	for _, opt := range v.Options {
		p, suf, err := r.declType(opt.FC)
		if err != nil {
			return "", fmt.Errorf("variant option %q: %w", opt.Name, err)
		}
		fmt.Fprintf(&b, "        %s %s%s;\n", p, opt.Name, suf)
	}
	b.WriteString("    }")
	return b.String(), nil
}
