package ctfir

// ClockClass is the translated form of a trace-IR clock class: its TSDL
// name has already gone through the identifier protection rules.
type ClockClass struct {
	Name              string
	HasDescription    bool
	Description       string
	FrequencyHz       uint64
	Precision         uint64
	OffsetSeconds     int64
	OffsetCycles      uint64
	OriginIsUnixEpoch bool
	UUID              *[16]byte
	Source            any
}

// EventClass is created lazily on first sight of its source event class
// and lives for as long as its owning StreamClass.
type EventClass struct {
	ID            uint64
	Name          string
	HasEMFURI     bool
	EMFURI        string
	HasLogLevel   bool
	LogLevel      int
	SpecContextFC FieldClass // nil if the source event class has none
	PayloadFC     FieldClass // nil if the source event class has none
	StreamClass   *StreamClass
	Source        any
}

// StreamClass is created lazily on first sight of its source stream
// class. The packet context is kept split between the reserved prefix
// (computed from the flags below) and the translated
// user portion, rather than merged into one opaque Struct — this is what
// lets the stream runtime patch only the reserved prefix cheaply at
// packet-end instead of rewriting user fields it doesn't
// need to touch.
type StreamClass struct {
	ID                     uint64
	DefaultClockClass      *ClockClass
	UserPacketContextFC    *Struct // nil if the source stream class has none
	EventCommonContextFC   FieldClass // nil if none; always a *Struct when present
	EventClasses           []*EventClass
	HasPackets             bool
	PacketsHaveBeginTS     bool
	PacketsHaveEndTS       bool
	HasDiscardedEvents     bool
	DiscardedEventsHaveTS  bool
	HasDiscardedPackets    bool
	DiscardedPacketsHaveTS bool
	Trace                  *Trace
	Source                 any
}

// ReservedPacketContextMember is one of the fixed-position packet-context
// fields every StreamClass carries, used by the TSDL
// emitter to render the combined reserved+user packet-context struct.
type ReservedPacketContextMember struct {
	Name            string
	MappedClockName string // only set for timestamp_begin/timestamp_end
}

// ReservedPacketContextMembers returns the fixed members in declaration
// order, gated by the StreamClass's flags: packet_size, content_size
// always; timestamp_begin/_end iff the corresponding *HaveTS flag;
// events_discarded iff HasDiscardedEvents; packet_seq_num always.
func (sc *StreamClass) ReservedPacketContextMembers() []ReservedPacketContextMember {
	members := []ReservedPacketContextMember{
		{Name: "packet_size"},
		{Name: "content_size"},
	}
	clockName := ""
	if sc.DefaultClockClass != nil {
		clockName = sc.DefaultClockClass.Name
	}
	if sc.PacketsHaveBeginTS {
		members = append(members, ReservedPacketContextMember{Name: "timestamp_begin", MappedClockName: clockName})
	}
	if sc.PacketsHaveEndTS {
		members = append(members, ReservedPacketContextMember{Name: "timestamp_end", MappedClockName: clockName})
	}
	if sc.HasDiscardedEvents {
		members = append(members, ReservedPacketContextMember{Name: "events_discarded"})
	}
	members = append(members, ReservedPacketContextMember{Name: "packet_seq_num"})
	return members
}

// EnvEntry is one `name = value` pair of a Trace's environment; Value is
// always int64 or string (validated at translation time).
type EnvEntry struct {
	Name  string
	Value any
}

// Trace owns its StreamClasses exclusively: nothing else
// mutates this tree once built.
type Trace struct {
	UUID          [16]byte
	Environment   []EnvEntry
	StreamClasses []*StreamClass
	Source        any

	Dir          string
	MetadataPath string
}
