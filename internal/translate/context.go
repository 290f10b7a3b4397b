// Package translate narrows a trace-IR schema (internal/traceir) down to
// the CTF 1.8-representable field-class tree (internal/ctfir):
// protecting identifiers, resolving length/tag references, and
// synthesizing the extra fields CTF 1.8 needs that trace-IR doesn't
// require (option tags, forward-referencing length/tag fields).
package translate

import (
	"fmt"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/traceir"
)

// frame is one open ancestor structure during struct translation.
type frame struct {
	traceStruct *traceir.Structure
}

// ctx threads translation-wide state through a single TranslateTrace
// call: the open ancestor frames (for relative ref resolution), the
// per-scope roots (for absolute ref resolution), and which trace-IR
// field classes have already been translated (a forward reference is
// never resolvable; only "before" synthesis can serve it).
type ctx struct {
	ancestors []frame
	roots     map[traceir.Scope]frame
	names     map[traceir.FieldClass]string
	fcs       map[traceir.FieldClass]ctfir.FieldClass
}

func newCtx() *ctx {
	return &ctx{
		roots: map[traceir.Scope]frame{},
		names: map[traceir.FieldClass]string{},
		fcs:   map[traceir.FieldClass]ctfir.FieldClass{},
	}
}

func (c *ctx) push(f frame) { c.ancestors = append(c.ancestors, f) }
func (c *ctx) pop()         { c.ancestors = c.ancestors[:len(c.ancestors)-1] }

func (c *ctx) markTranslated(src traceir.FieldClass, name string, fc ctfir.FieldClass) {
	c.names[src] = name
	c.fcs[src] = fc
}

// resolve looks up ref against already-translated fields: relative refs
// search the open ancestor frames innermost-first, absolute refs walk
// down from the named scope's root. It returns ok=false when ref cannot
// be resolved to an already-translated field — the caller's only
// remaining option is "before" synthesis.
func (c *ctx) resolve(ref traceir.FieldRef) (name string, ok bool) {
	src, found := c.findSource(ref)
	if !found {
		return "", false
	}
	name, ok = c.names[src]
	return name, ok
}

// resolveFC is resolve's counterpart for callers that need the resolved
// CTF-IR field class itself, not just its TSDL name — used by variant
// tag translation to verify the referenced field is a suitable
// enumeration before committing to reusing it (PI5).
func (c *ctx) resolveFC(ref traceir.FieldRef) (name string, fc ctfir.FieldClass, ok bool) {
	src, found := c.findSource(ref)
	if !found {
		return "", nil, false
	}
	name, ok = c.names[src]
	if !ok {
		return "", nil, false
	}
	return name, c.fcs[src], true
}

// findSource walks ref down to the trace-IR field class it names,
// reporting a match only when a translation has already been recorded
// for that field class.
func (c *ctx) findSource(ref traceir.FieldRef) (traceir.FieldClass, bool) {
	switch ref.Kind {
	case traceir.RefRelative:
		for i := len(c.ancestors) - 1; i >= 0; i-- {
			fr := c.ancestors[i]
			if m, found := fr.traceStruct.MemberByName(ref.RelativeName); found {
				if _, seen := c.names[m.FC]; seen {
					return m.FC, true
				}
			}
		}
		return nil, false
	case traceir.RefAbsolute:
		root, found := c.roots[ref.AbsoluteScope]
		if !found {
			return nil, false
		}
		cur := root.traceStruct
		for i, comp := range ref.AbsolutePath {
			m, found := cur.MemberByName(comp)
			if !found {
				return nil, false
			}
			if i == len(ref.AbsolutePath)-1 {
				if _, seen := c.names[m.FC]; !seen {
					return nil, false
				}
				return m.FC, true
			}
			next, isStruct := m.FC.(*traceir.Structure)
			if !isStruct {
				return nil, false
			}
			cur = next
		}
		return nil, false
	default:
		return nil, false
	}
}

// chooseBeforeName picks a collision-free ref name for a field
// synthesized immediately before fieldName (kind is "len" for a dynamic
// array's length or "tag" for an option/variant tag): the initial
// candidate is `__<fieldName>_<kind>`, and while that collides with an
// existing member of the enclosing struct, an incrementing numeric
// suffix is appended.
func chooseBeforeName(taken func(string) bool, fieldName, kind string) string {
	candidate := "__" + fieldName + "_" + kind
	if !taken(candidate) {
		return candidate
	}
	for i := 2; ; i++ {
		next := fmt.Sprintf("%s_%d", candidate, i)
		if !taken(next) {
			return next
		}
	}
}
