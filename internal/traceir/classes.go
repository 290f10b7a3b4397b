package traceir

// ClockClass describes one clock a trace's streams may reference.
type ClockClass struct {
	Name              string
	HasDescription    bool
	Description       string
	FrequencyHz       uint64
	Precision         uint64
	OffsetSeconds     int64
	OffsetCycles      uint64
	OriginIsUnixEpoch bool
	HasUUID           bool
	UUID              [16]byte
}

// EventClass is the schema for one kind of event a StreamClass can emit.
// SpecificContextFC and PayloadFC are nil when the producer declared no
// such field class for this event class.
type EventClass struct {
	ID                uint64
	Name              string
	HasEMFURI         bool
	EMFURI            string
	HasLogLevel       bool
	LogLevel          int
	SpecificContextFC FieldClass
	PayloadFC         FieldClass
}

// StreamClass is the schema shared by every StreamInstance of one kind.
// PacketContextFC and EventCommonContextFC are nil when the producer
// declared none.
type StreamClass struct {
	ID                     uint64
	DefaultClockClass      *ClockClass
	PacketContextFC        *Structure
	EventCommonContextFC   FieldClass
	EventClasses           []*EventClass
	HasPackets             bool
	PacketsHaveBeginTS     bool
	PacketsHaveEndTS       bool
	HasDiscardedEvents     bool
	DiscardedEventsHaveTS  bool
	HasDiscardedPackets    bool
	DiscardedPacketsHaveTS bool
}

// EventClassByID returns the event class with the given ID, if any.
func (sc *StreamClass) EventClassByID(id uint64) (*EventClass, bool) {
	for _, ec := range sc.EventClasses {
		if ec.ID == id {
			return ec, true
		}
	}
	return nil, false
}

// EnvEntry is one `name = value` environment pair; Value is always int64
// or string.
type EnvEntry struct {
	Name  string
	Value any
}

// Trace is the schema root: a UUID, an environment, and the set of
// stream classes it declares.
type Trace struct {
	UUID          [16]byte
	Environment   []EnvEntry
	StreamClasses []*StreamClass
}
