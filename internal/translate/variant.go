package translate

import (
	"fmt"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/identifier"
	"github.com/ctftrace/fs-sink/internal/traceir"
)

// translateVariant resolves the variant's tag against an already-translated
// sibling enumeration when possible, but only reuses it when it is a
// suitable selector: an integer enumeration with exactly one mapping per
// option, each mapping's range set equal to the corresponding option's
// range set, and the mapping's label usable as that option's TSDL name.
// Any mismatch forces full synthesis instead — a fresh 8-bit-aligned
// unsigned enum emitted immediately before the variant, with one mapping
// per option. Each option's TSDL name is the protected form of its
// trace-IR name, disambiguated against its siblings when protection
// collapses two distinct names together.
func (t *Translator) translateVariant(c *ctx, src traceir.FieldClass, v *traceir.Variant, parent *ctfir.Struct, memberName string) (ctfir.FieldClass, error) {
	contents := make([]ctfir.FieldClass, len(v.Options))
	for i, opt := range v.Options {
		fc, err := t.translateFieldClass(c, opt.FC, nil, "")
		if err != nil {
			return nil, fmt.Errorf("variant option %q: %w", opt.Name, err)
		}
		contents[i] = fc
	}

	if tagName, tagFC, ok := c.resolveFC(v.TagFieldRef); ok {
		if names, ok := matchExternalTag(v, tagFC); ok {
			options := make([]ctfir.VariantOption, len(v.Options))
			for i, name := range names {
				options[i] = ctfir.VariantOption{Name: name, FC: contents[i]}
			}
			return ctfir.NewVariant(src, options, tagName, false), nil
		}
	}

	if parent == nil {
		return nil, fmt.Errorf("variant tag reference unresolved or incompatible and no struct to synthesize one in: %w", ErrUnsupportedSchema)
	}
	names := disambiguateOptionNames(v)
	options := make([]ctfir.VariantOption, len(v.Options))
	for i, name := range names {
		options[i] = ctfir.VariantOption{Name: name, FC: contents[i]}
	}
	tagName := chooseBeforeName(parent.HasMember, memberName, "tag")
	tagFC := ctfir.NewInt(src, 16, false, ctfir.BaseDecimal, 8)
	for i, name := range names {
		tagFC.EnumMappings = append(tagFC.EnumMappings, ctfir.EnumMapping{
			Label:  name,
			Ranges: ctfir.SingleValue(false, uint64(i)),
		})
	}
	parent.AppendSynthesizedMember(tagName, tagFC)
	return ctfir.NewVariant(src, options, tagName, true), nil
}

// matchExternalTag verifies that tagFC is a suitable externally-resolved
// selector for v and, if so, returns the TSDL name each option must use
// (the external mapping's label). It fails closed: any cardinality,
// range-set, or label mismatch returns ok=false, which sends the caller
// to full synthesis rather than risk a silently wrong selector.
func matchExternalTag(v *traceir.Variant, tagFC ctfir.FieldClass) (names []string, ok bool) {
	tagInt, isInt := tagFC.(*ctfir.Int)
	if !isInt || len(tagInt.EnumMappings) != len(v.Options) {
		return nil, false
	}

	names = make([]string, len(v.Options))
	for i, opt := range v.Options {
		rs := ctfir.RangeSet{Signed: v.TagSigned}
		for _, r := range opt.Ranges {
			rs.Ranges = append(rs.Ranges, ctfir.Range{Lo: r.Lo, Hi: r.Hi})
		}

		matched := ""
		matchCount := 0
		for _, m := range tagInt.EnumMappings {
			if m.Ranges.Equal(rs) {
				matchCount++
				matched = m.Label
			}
		}
		if matchCount != 1 {
			return nil, false
		}

		name := identifier.Protect(opt.Name)
		if matched != name {
			if identifier.MustProtect(opt.Name) {
				return nil, false
			}
			forced := "_" + opt.Name
			if matched != forced {
				return nil, false
			}
			name = forced
		}
		names[i] = name
	}

	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			return nil, false
		}
		seen[name] = true
	}
	return names, true
}

// disambiguateOptionNames protects each option's source name and appends
// a numeric suffix when protection collapses two distinct names together.
func disambiguateOptionNames(v *traceir.Variant) []string {
	names := make([]string, len(v.Options))
	used := map[string]bool{}
	for i, opt := range v.Options {
		name := identifier.Protect(opt.Name)
		if used[name] {
			for j := 2; ; j++ {
				candidate := fmt.Sprintf("%s_%d", name, j)
				if !used[candidate] {
					name = candidate
					break
				}
			}
		}
		used[name] = true
		names[i] = name
	}
	return names
}
