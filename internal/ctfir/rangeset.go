package ctfir

import "sort"

// Range is a closed integer interval [Lo, Hi]. Values are always stored as
// the raw 64-bit pattern; RangeSet.Signed says whether to interpret (and
// print) that pattern as signed or unsigned.
type Range struct {
	Lo, Hi uint64
}

// RangeSet is the arbitrary range set attached to enumeration mappings
// and to variant option selectors. Signed and unsigned enumerations
// share this one type so that comparing a variant option's range set
// against an enumeration mapping's range set is a single code path
// regardless of which flavor produced either side.
type RangeSet struct {
	Signed bool
	Ranges []Range
}

// SingleValue builds a RangeSet containing exactly one value, used for the
// synthesized none/content and option-index enumerations.
func SingleValue(signed bool, v uint64) RangeSet {
	return RangeSet{Signed: signed, Ranges: []Range{{Lo: v, Hi: v}}}
}

// Equal reports whether two range sets contain exactly the same ranges,
// order-insensitively. Signedness must match too: a set of unsigned
// ranges is never equal to a signed set even if the bit patterns coincide,
// since a label attached to [0, 0xff] unsigned means something different
// printed as signed.
func (a RangeSet) Equal(b RangeSet) bool {
	if a.Signed != b.Signed || len(a.Ranges) != len(b.Ranges) {
		return false
	}
	as := append([]Range(nil), a.Ranges...)
	bs := append([]Range(nil), b.Ranges...)
	sortRanges(as)
	sortRanges(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func sortRanges(rs []Range) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].Lo != rs[j].Lo {
			return rs[i].Lo < rs[j].Lo
		}
		return rs[i].Hi < rs[j].Hi
	})
}

// EnumMapping is a single `label = ranges` entry of an integer
// enumeration, preserved verbatim from the source trace-IR.
type EnumMapping struct {
	Label  string
	Ranges RangeSet
}
