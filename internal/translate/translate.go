package translate

import (
	"fmt"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/identifier"
	"github.com/ctftrace/fs-sink/internal/traceir"
)

// Translator narrows trace-IR schemas down to CTF-IR, caching clock
// class translations so two stream classes sharing a clock end up
// pointing at the same *ctfir.ClockClass (and so the same TSDL clock
// block is only emitted once).
type Translator struct {
	clocks         map[*traceir.ClockClass]*ctfir.ClockClass
	usedClockNames map[string]bool
}

// New returns a Translator ready to translate one trace.
func New() *Translator {
	return &Translator{
		clocks:         map[*traceir.ClockClass]*ctfir.ClockClass{},
		usedClockNames: map[string]bool{},
	}
}

// TranslateTrace translates an entire trace-IR schema.
func (t *Translator) TranslateTrace(src *traceir.Trace) (*ctfir.Trace, error) {
	out := &ctfir.Trace{UUID: src.UUID}
	t.usedClockNames = map[string]bool{}
	for _, e := range src.Environment {
		if !identifier.Valid(e.Name) {
			return nil, fmt.Errorf("environment entry name %q: %w", e.Name, ErrUnsupportedEnvironment)
		}
		if err := checkEnvironmentValue(e.Value); err != nil {
			return nil, fmt.Errorf("environment entry %q: %w", e.Name, err)
		}
		out.Environment = append(out.Environment, ctfir.EnvEntry{Name: e.Name, Value: e.Value})
	}
	for _, sc := range src.StreamClasses {
		csc, err := t.translateStreamClass(sc)
		if err != nil {
			return nil, fmt.Errorf("stream class %d: %w", sc.ID, err)
		}
		csc.Trace = out
		out.StreamClasses = append(out.StreamClasses, csc)
	}
	return out, nil
}

func checkEnvironmentValue(v any) error {
	switch v.(type) {
	case int64, string:
		return nil
	default:
		return fmt.Errorf("unsupported environment value type %T (must be int64 or string): %w", v, ErrUnsupportedEnvironment)
	}
}

// translateClockClass protects the source clock name and, if that still
// isn't a valid TSDL identifier (empty, reserved, or otherwise
// malformed), falls back to a synthesized "default", "default0",
// "default1", ... name unique among every clock class already assigned
// a name within this trace.
func (t *Translator) translateClockClass(cc *traceir.ClockClass) *ctfir.ClockClass {
	if cc == nil {
		return nil
	}
	if cached, ok := t.clocks[cc]; ok {
		return cached
	}
	name := identifier.Protect(cc.Name)
	if !identifier.Valid(name) {
		name = t.synthesizeClockName()
	}
	t.usedClockNames[name] = true
	out := &ctfir.ClockClass{
		Name:              name,
		HasDescription:    cc.HasDescription,
		Description:       cc.Description,
		FrequencyHz:       cc.FrequencyHz,
		Precision:         cc.Precision,
		OffsetSeconds:     cc.OffsetSeconds,
		OffsetCycles:      cc.OffsetCycles,
		OriginIsUnixEpoch: cc.OriginIsUnixEpoch,
		Source:            cc,
	}
	if cc.HasUUID {
		u := cc.UUID
		out.UUID = &u
	}
	t.clocks[cc] = out
	return out
}

func (t *Translator) synthesizeClockName() string {
	if !t.usedClockNames["default"] {
		return "default"
	}
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("default%d", i)
		if !t.usedClockNames[candidate] {
			return candidate
		}
	}
}

// checkStreamShape rejects a stream class whose discarded-events or
// discarded-packets ranges are timestamped but whose packets aren't both
// begin- and end-timestamped: the stream runtime has no clock snapshot to
// validate such a range against.
func checkStreamShape(sc *traceir.StreamClass) error {
	needsPacketTS := (sc.HasDiscardedEvents && sc.DiscardedEventsHaveTS) ||
		(sc.HasDiscardedPackets && sc.DiscardedPacketsHaveTS)
	if needsPacketTS && !(sc.PacketsHaveBeginTS && sc.PacketsHaveEndTS) {
		return fmt.Errorf("stream class %d: discarded-range timestamps require begin- and end-timestamped packets: %w", sc.ID, ErrIncompatibleStreamShape)
	}
	return nil
}

func (t *Translator) translateStreamClass(sc *traceir.StreamClass) (*ctfir.StreamClass, error) {
	if err := checkStreamShape(sc); err != nil {
		return nil, err
	}
	out := &ctfir.StreamClass{
		ID:                     sc.ID,
		HasPackets:             sc.HasPackets,
		PacketsHaveBeginTS:     sc.PacketsHaveBeginTS,
		PacketsHaveEndTS:       sc.PacketsHaveEndTS,
		HasDiscardedEvents:     sc.HasDiscardedEvents,
		DiscardedEventsHaveTS:  sc.DiscardedEventsHaveTS,
		HasDiscardedPackets:    sc.HasDiscardedPackets,
		DiscardedPacketsHaveTS: sc.DiscardedPacketsHaveTS,
		Source:                 sc,
	}
	out.DefaultClockClass = t.translateClockClass(sc.DefaultClockClass)

	c := newCtx()

	if sc.PacketContextFC != nil {
		csFC, err := t.translateStruct(c, sc.PacketContextFC, sc.PacketContextFC)
		if err != nil {
			return nil, fmt.Errorf("packet context: %w", err)
		}
		out.UserPacketContextFC = csFC
		c.roots[traceir.ScopePacketContext] = frame{traceStruct: sc.PacketContextFC}
	}

	if sc.EventCommonContextFC != nil {
		fc, err := t.translateFieldClass(c, sc.EventCommonContextFC, nil, "")
		if err != nil {
			return nil, fmt.Errorf("event common context: %w", err)
		}
		out.EventCommonContextFC = fc
		if s, ok := sc.EventCommonContextFC.(*traceir.Structure); ok {
			c.roots[traceir.ScopeEventCommonContext] = frame{traceStruct: s}
		}
	}

	for _, ec := range sc.EventClasses {
		cec, err := t.translateEventClass(c, ec)
		if err != nil {
			return nil, fmt.Errorf("event class %d: %w", ec.ID, err)
		}
		cec.StreamClass = out
		out.EventClasses = append(out.EventClasses, cec)
	}
	return out, nil
}

func (t *Translator) translateEventClass(c *ctx, ec *traceir.EventClass) (*ctfir.EventClass, error) {
	out := &ctfir.EventClass{
		ID:          ec.ID,
		Name:        identifier.Protect(ec.Name),
		HasEMFURI:   ec.HasEMFURI,
		EMFURI:      ec.EMFURI,
		HasLogLevel: ec.HasLogLevel,
		LogLevel:    ec.LogLevel,
		Source:      ec,
	}

	if ec.SpecificContextFC != nil {
		fc, err := t.translateFieldClass(c, ec.SpecificContextFC, nil, "")
		if err != nil {
			return nil, fmt.Errorf("specific context: %w", err)
		}
		out.SpecContextFC = fc
		if s, ok := ec.SpecificContextFC.(*traceir.Structure); ok {
			c.roots[traceir.ScopeEventSpecificContext] = frame{traceStruct: s}
		}
	}
	if ec.PayloadFC != nil {
		fc, err := t.translateFieldClass(c, ec.PayloadFC, nil, "")
		if err != nil {
			return nil, fmt.Errorf("payload: %w", err)
		}
		out.PayloadFC = fc
		if s, ok := ec.PayloadFC.(*traceir.Structure); ok {
			c.roots[traceir.ScopeEventPayload] = frame{traceStruct: s}
		}
	}
	delete(c.roots, traceir.ScopeEventSpecificContext)
	delete(c.roots, traceir.ScopeEventPayload)
	return out, nil
}
