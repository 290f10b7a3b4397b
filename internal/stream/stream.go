// Package stream drives the per-stream packet/event binary serialization
// state machine: packet-begin/event/packet-end dispatch, the
// reserved packet-context rewrite-on-close pattern, and discarded-range
// bookkeeping.
package stream

import (
	"errors"
	"fmt"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/ctfser"
	"github.com/ctftrace/fs-sink/internal/message"
	"github.com/ctftrace/fs-sink/internal/traceir"
)

const packetMagic = 0xC1FC1FC1

var (
	// ErrPacketAlreadyOpen is returned when a packet-begin message
	// arrives while a packet from the same stream is already open.
	ErrPacketAlreadyOpen = errors.New("stream: packet already open")
	// ErrNoPacketOpen is returned when an event or packet-end message
	// arrives with no packet currently open.
	ErrNoPacketOpen = errors.New("stream: no packet open")
	// ErrStreamClosed is returned by any operation after Close.
	ErrStreamClosed = errors.New("stream: already closed")
	// ErrDiscardedPacketsWhileOpen is returned when a discarded-packets
	// message arrives while a packet is open (the gap a
	// discarded-packets message describes can only fall between two
	// closed packets).
	ErrDiscardedPacketsWhileOpen = errors.New("stream: packet open during discarded-packets message")
	// ErrDiscardedEventsWhileOpen is returned when a timestamped
	// discarded-events message arrives while a packet is open: a
	// timestamped gap can only fall between two closed packets.
	ErrDiscardedEventsWhileOpen = errors.New("stream: packet open during timestamped discarded-events message")
	// ErrDiscardedRangeAlreadyPending is returned when a discarded-events
	// or discarded-packets message arrives while an earlier range of the
	// same kind is still awaiting validation against a following packet.
	ErrDiscardedRangeAlreadyPending = errors.New("stream: discarded range already pending")
	// ErrIncompatibleDiscardedRange is returned when a pending
	// timestamped discarded range's begin or end clock value doesn't
	// match the packet boundary it's checked against.
	ErrIncompatibleDiscardedRange = errors.New("stream: discarded range incompatible with surrounding packet timestamps")
)

// pendingRange is a timestamped discarded-events or discarded-packets gap
// awaiting validation against the packet that follows it.
type pendingRange struct {
	beginCS uint64
	endCS   uint64
}

// Stream is one running StreamClass instance's serialization state.
type Stream struct {
	sc         *ctfir.StreamClass
	trace      *ctfir.Trace
	instanceID uint64
	ser        *ctfser.Serializer
	flush      func([]byte) error

	packetOpen bool
	closed     bool
	seqNum     uint64

	discardedEventsTotal uint64

	pendingDiscardedEvents  *pendingRange
	pendingDiscardedPackets *pendingRange

	hasPrevPacketEnd bool
	prevPacketEndCS  uint64

	offPacketSize  uint64
	offContentSize uint64
	offTSEnd       uint64
}

// New returns a Stream ready to serialize packets for sc under the given
// stream instance ID, flushing each closed packet's bytes through flush.
func New(trace *ctfir.Trace, sc *ctfir.StreamClass, instanceID uint64, order ctfser.ByteOrder, flush func([]byte) error) *Stream {
	return &Stream{sc: sc, trace: trace, instanceID: instanceID, ser: ctfser.Open(order), flush: flush}
}

// OpenPacket begins a new packet: the packet header, then the reserved
// packet-context prefix, then the user packet-context
// fields from pkt.Context.
func (s *Stream) OpenPacket(pkt *traceir.Packet, beginTS message.ClockSnapshot) error {
	if s.closed {
		return ErrStreamClosed
	}
	if s.packetOpen {
		return ErrPacketAlreadyOpen
	}

	if err := s.checkPendingRangesAtBegin(beginTS); err != nil {
		return err
	}

	s.ser.OpenPacket()

	s.ser.WriteUnsigned(packetMagic, 32)
	for _, b := range s.trace.UUID {
		s.ser.WriteUnsigned(uint64(b), 8)
	}
	s.ser.WriteUnsigned(s.sc.ID, 64)
	s.ser.WriteUnsigned(s.instanceID, 64)

	if s.sc.HasPackets {
		s.ser.AlignTo(8)
		s.offPacketSize = s.ser.CurrentOffsetBits()
		s.ser.WriteUnsigned(0, 64)
		s.offContentSize = s.ser.CurrentOffsetBits()
		s.ser.WriteUnsigned(0, 64)
		if s.sc.PacketsHaveBeginTS {
			s.ser.WriteUnsigned(beginTS.Value, 64)
		}
		if s.sc.PacketsHaveEndTS {
			s.offTSEnd = s.ser.CurrentOffsetBits()
			s.ser.WriteUnsigned(0, 64)
		}
		if s.sc.HasDiscardedEvents {
			s.ser.WriteUnsigned(s.discardedEventsTotal, 64)
		}
		s.ser.WriteUnsigned(s.seqNum, 64)

		if s.sc.UserPacketContextFC != nil {
			if pkt == nil || pkt.Context == nil {
				return fmt.Errorf("stream: packet context declared but no value supplied")
			}
			if err := writeStructMembers(s.ser, s.sc.UserPacketContextFC, pkt.Context); err != nil {
				return fmt.Errorf("packet context: %w", err)
			}
		}
	}

	s.packetOpen = true
	return nil
}

// checkPendingRangesAtBegin validates any pending timestamped discarded
// range against the packet now opening. A pending discarded-events
// range's begin must equal the previous packet's end cs, or this
// packet's own begin cs when there is no previous packet; its end is
// checked separately at this packet's end. A pending discarded-packets
// range is fully resolved here: its begin must equal the previous
// packet's end cs (which must exist) and its end must equal this
// packet's begin cs.
func (s *Stream) checkPendingRangesAtBegin(beginTS message.ClockSnapshot) error {
	if s.pendingDiscardedEvents != nil {
		expected, known := s.expectedRangeBeginCS(beginTS)
		if known && s.pendingDiscardedEvents.beginCS != expected {
			return ErrIncompatibleDiscardedRange
		}
	}
	if s.pendingDiscardedPackets != nil {
		if !s.hasPrevPacketEnd || s.pendingDiscardedPackets.beginCS != s.prevPacketEndCS {
			return ErrIncompatibleDiscardedRange
		}
		if !s.sc.PacketsHaveBeginTS || !beginTS.HasValue || s.pendingDiscardedPackets.endCS != beginTS.Value {
			return ErrIncompatibleDiscardedRange
		}
		s.pendingDiscardedPackets = nil
	}
	return nil
}

func (s *Stream) expectedRangeBeginCS(beginTS message.ClockSnapshot) (uint64, bool) {
	if s.hasPrevPacketEnd {
		return s.prevPacketEndCS, true
	}
	if s.sc.PacketsHaveBeginTS && beginTS.HasValue {
		return beginTS.Value, true
	}
	return 0, false
}

// WriteEvent serializes one event's header, optional common context,
// specific context, and payload.
func (s *Stream) WriteEvent(ev *traceir.Event) error {
	if s.closed {
		return ErrStreamClosed
	}
	if !s.packetOpen {
		return ErrNoPacketOpen
	}
	var ec *ctfir.EventClass
	for _, c := range s.sc.EventClasses {
		if c.ID == ev.EventClass.ID {
			ec = c
			break
		}
	}
	if ec == nil {
		return fmt.Errorf("stream: event class %d not in stream class %d", ev.EventClass.ID, s.sc.ID)
	}
	s.ser.AlignTo(8)
	s.ser.WriteUnsigned(ev.EventClass.ID, 64)
	if s.sc.DefaultClockClass != nil {
		s.ser.WriteUnsigned(ev.Timestamp, 64)
	}
	if s.sc.EventCommonContextFC != nil {
		if err := writeField(s.ser, s.sc.EventCommonContextFC, ev.CommonContext); err != nil {
			return fmt.Errorf("event common context: %w", err)
		}
	}
	if ec.SpecContextFC != nil {
		if err := writeField(s.ser, ec.SpecContextFC, ev.Specific); err != nil {
			return fmt.Errorf("event specific context: %w", err)
		}
	}
	if ec.PayloadFC != nil {
		if err := writeField(s.ser, ec.PayloadFC, ev.Payload); err != nil {
			return fmt.Errorf("event payload: %w", err)
		}
	}
	return nil
}

// ClosePacket patches the reserved size/timestamp-end fields now that
// they're known, flushes the packet, and advances the sequence number.
func (s *Stream) ClosePacket(endTS message.ClockSnapshot) error {
	if s.closed {
		return ErrStreamClosed
	}
	if !s.packetOpen {
		return ErrNoPacketOpen
	}

	if s.pendingDiscardedEvents != nil {
		if !s.sc.PacketsHaveEndTS || !endTS.HasValue || s.pendingDiscardedEvents.endCS != endTS.Value {
			return ErrIncompatibleDiscardedRange
		}
		s.pendingDiscardedEvents = nil
	}

	contentSizeBits := s.ser.CurrentOffsetBits()
	s.ser.AlignTo(8)
	if s.sc.HasPackets {
		s.ser.WriteUnsignedAt(contentSizeBits, 64, s.offContentSize)
		s.ser.WriteUnsignedAt(s.ser.CurrentOffsetBits(), 64, s.offPacketSize)
		if s.sc.PacketsHaveEndTS {
			s.ser.WriteUnsignedAt(endTS.Value, 64, s.offTSEnd)
		}
	}

	if err := s.flush(s.ser.ClosePacket()); err != nil {
		return fmt.Errorf("flush packet: %w", err)
	}
	s.packetOpen = false
	s.seqNum++
	if s.sc.PacketsHaveEndTS && endTS.HasValue {
		s.hasPrevPacketEnd = true
		s.prevPacketEndCS = endTS.Value
	}
	return nil
}

// HandleDiscardedEvents folds a run of discarded events into the running
// total the next packet's events_discarded field will report. A
// timestamped range is held pending until the packet that follows it
// proves its begin/end clock values are consistent with the gap.
func (s *Stream) HandleDiscardedEvents(dr message.DiscardedRange) error {
	if s.closed {
		return ErrStreamClosed
	}
	if s.pendingDiscardedEvents != nil {
		return ErrDiscardedRangeAlreadyPending
	}
	if s.packetOpen && s.sc.DiscardedEventsHaveTS {
		return ErrDiscardedEventsWhileOpen
	}
	if s.sc.DiscardedEventsHaveTS {
		if !dr.BeginTS.HasValue || !dr.EndTS.HasValue {
			return fmt.Errorf("stream: timestamped discarded-events range missing a begin or end timestamp")
		}
		s.pendingDiscardedEvents = &pendingRange{beginCS: dr.BeginTS.Value, endCS: dr.EndTS.Value}
	}
	count := dr.Count
	if !dr.HasCount {
		count = 1
	}
	s.discardedEventsTotal += count
	return nil
}

// HandleDiscardedPackets validates a discarded-packets message against
// the stream's current state and folds its count into packet_seq_num, so
// the gap is visible as a jump in that field the next packet writes. CTF
// 1.8 has no dedicated discarded-packets field; a timestamped range is
// still held pending so the following packet-begin can confirm it lines
// up with where the gap actually occurred.
func (s *Stream) HandleDiscardedPackets(dr message.DiscardedRange) error {
	if s.closed {
		return ErrStreamClosed
	}
	if s.packetOpen {
		return ErrDiscardedPacketsWhileOpen
	}
	if s.pendingDiscardedPackets != nil {
		return ErrDiscardedRangeAlreadyPending
	}
	if s.sc.DiscardedPacketsHaveTS {
		if !dr.BeginTS.HasValue || !dr.EndTS.HasValue {
			return fmt.Errorf("stream: timestamped discarded-packets range missing a begin or end timestamp")
		}
		s.pendingDiscardedPackets = &pendingRange{beginCS: dr.BeginTS.Value, endCS: dr.EndTS.Value}
	}
	count := dr.Count
	if !dr.HasCount {
		count = 1
	}
	s.seqNum += count
	return nil
}

// Close finalizes the stream. It is an error to close a stream with a
// packet still open.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	if s.packetOpen {
		return fmt.Errorf("stream: close with packet still open")
	}
	s.closed = true
	return nil
}
