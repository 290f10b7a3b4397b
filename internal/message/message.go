// Package message models the iterator contract the sink consumes from:
// a flat sequence of dispatchable messages describing stream and packet
// lifecycle, events, and discarded ranges.
package message

import "github.com/ctftrace/fs-sink/internal/traceir"

// Kind identifies what a Message carries.
type Kind int

const (
	KindStreamBegin Kind = iota
	KindStreamEnd
	KindPacketBegin
	KindPacketEnd
	KindEvent
	KindDiscardedEvents
	KindDiscardedPackets
)

func (k Kind) String() string {
	switch k {
	case KindStreamBegin:
		return "stream_begin"
	case KindStreamEnd:
		return "stream_end"
	case KindPacketBegin:
		return "packet_begin"
	case KindPacketEnd:
		return "packet_end"
	case KindEvent:
		return "event"
	case KindDiscardedEvents:
		return "discarded_events"
	case KindDiscardedPackets:
		return "discarded_packets"
	default:
		return "unknown"
	}
}

// ClockSnapshot is an optional clock reading: HasValue is false when the
// producer did not supply one for this message (packet begin
// and end timestamps, and discarded-range timestamps, are each
// independently optional).
type ClockSnapshot struct {
	HasValue bool
	Value    uint64
}

// DiscardedRange describes a run of discarded events or packets: Count
// may be unknown (HasCount false), and the begin/end timestamps of the
// gap may be unknown independently of each other.
type DiscardedRange struct {
	HasCount bool
	Count    uint64
	BeginTS  ClockSnapshot
	EndTS    ClockSnapshot
}

// Message is one unit handed to the stream runtime. Only the fields
// relevant to Kind are populated; the rest are zero.
type Message struct {
	Kind Kind

	StreamInstance *traceir.StreamInstance

	// Packet is set for PacketBegin and PacketEnd.
	Packet *traceir.Packet
	// PacketTS is the packet's begin timestamp for PacketBegin and its
	// end timestamp for PacketEnd, when the stream class declares packets
	// carry that timestamp.
	PacketTS ClockSnapshot

	// Event is set for KindEvent.
	Event *traceir.Event

	// Discarded is set for KindDiscardedEvents and KindDiscardedPackets.
	Discarded DiscardedRange
}

// Status is what an Iterator reports alongside (or instead of) a
// Message.
type Status int

const (
	StatusOK Status = iota
	StatusEnd
	StatusAgain
)

// Iterator is the pull-based contract the sink drives: each
// call returns either a Message with StatusOK, an empty Message with
// StatusEnd once the sequence is exhausted, StatusAgain to ask the
// caller to retry without treating it as an error, or a non-nil error.
type Iterator interface {
	Next() (Message, Status, error)
}
