package stream

import (
	"encoding/binary"
	"testing"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/ctfser"
	"github.com/ctftrace/fs-sink/internal/message"
	"github.com/ctftrace/fs-sink/internal/traceir"
	"github.com/stretchr/testify/require"
)

func buildStreamClass() (*ctfir.Trace, *ctfir.StreamClass) {
	trace := &ctfir.Trace{UUID: [16]byte{0xAA}}
	sc := &ctfir.StreamClass{ID: 1, HasPackets: true}
	payload := ctfir.NewStruct(nil)
	payload.AppendMember("value", ctfir.NewInt(nil, 32, false, ctfir.BaseDecimal, 32))
	ec := &ctfir.EventClass{ID: 0, Name: "ev", PayloadFC: payload, StreamClass: sc}
	sc.EventClasses = []*ctfir.EventClass{ec}
	trace.StreamClasses = []*ctfir.StreamClass{sc}
	return trace, sc
}

func TestPacketLifecycleProducesNonEmptyPacket(t *testing.T) {
	trace, sc := buildStreamClass()
	var flushed [][]byte
	s := New(trace, sc, 7, ctfser.LittleEndian, func(b []byte) error {
		flushed = append(flushed, b)
		return nil
	})

	require.NoError(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{}))
	ev := &traceir.Event{
		EventClass: &traceir.EventClass{ID: sc.EventClasses[0].ID},
		Payload:    traceir.StructField{Values: []traceir.Field{traceir.UnsignedIntField(42)}},
	}
	require.NoError(t, s.WriteEvent(ev))
	require.NoError(t, s.ClosePacket(message.ClockSnapshot{}))
	require.Len(t, flushed, 1)
	require.NotEmpty(t, flushed[0])
	require.NoError(t, s.Close())
}

func TestOpenPacketTwiceFails(t *testing.T) {
	trace, sc := buildStreamClass()
	s := New(trace, sc, 7, ctfser.LittleEndian, func([]byte) error { return nil })
	require.NoError(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{}))
	require.ErrorIs(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{}), ErrPacketAlreadyOpen)
}

func TestWriteEventWithoutOpenPacketFails(t *testing.T) {
	trace, sc := buildStreamClass()
	s := New(trace, sc, 7, ctfser.LittleEndian, func([]byte) error { return nil })
	err := s.WriteEvent(&traceir.Event{EventClass: &traceir.EventClass{ID: sc.EventClasses[0].ID}})
	require.ErrorIs(t, err, ErrNoPacketOpen)
}

func TestCloseWithOpenPacketFails(t *testing.T) {
	trace, sc := buildStreamClass()
	s := New(trace, sc, 7, ctfser.LittleEndian, func([]byte) error { return nil })
	require.NoError(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{}))
	require.Error(t, s.Close())
}

func TestDiscardedPacketsWhileOpenFails(t *testing.T) {
	trace, sc := buildStreamClass()
	s := New(trace, sc, 7, ctfser.LittleEndian, func([]byte) error { return nil })
	require.NoError(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{}))
	require.ErrorIs(t, s.HandleDiscardedPackets(message.DiscardedRange{}), ErrDiscardedPacketsWhileOpen)
}

func TestHandleDiscardedEventsAccumulates(t *testing.T) {
	trace, sc := buildStreamClass()
	sc.HasDiscardedEvents = true
	s := New(trace, sc, 7, ctfser.LittleEndian, func([]byte) error { return nil })
	require.NoError(t, s.HandleDiscardedEvents(message.DiscardedRange{HasCount: true, Count: 3}))
	require.Equal(t, uint64(3), s.discardedEventsTotal)
}

func TestSequenceWithSynthesizedLength(t *testing.T) {
	trace := &ctfir.Trace{}
	sc := &ctfir.StreamClass{ID: 0}
	payload := ctfir.NewStruct(nil)
	lenFC := ctfir.NewInt(nil, 16, false, ctfir.BaseDecimal, 16)
	payload.AppendSynthesizedMember("items_length", lenFC)
	seqFC := ctfir.NewSequence(nil, ctfir.NewInt(nil, 8, false, ctfir.BaseDecimal, 8), "items_length", true)
	payload.AppendMember("items", seqFC)
	ec := &ctfir.EventClass{ID: 0, Name: "ev", PayloadFC: payload, StreamClass: sc}
	sc.EventClasses = []*ctfir.EventClass{ec}
	trace.StreamClasses = []*ctfir.StreamClass{sc}

	s := New(trace, sc, 7, ctfser.LittleEndian, func([]byte) error { return nil })
	require.NoError(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{}))
	ev := &traceir.Event{
		EventClass: &traceir.EventClass{ID: ec.ID},
		Payload: traceir.StructField{Values: []traceir.Field{
			traceir.ArrayField{Elements: []traceir.Field{
				traceir.UnsignedIntField(1), traceir.UnsignedIntField(2), traceir.UnsignedIntField(3),
			}},
		}},
	}
	require.NoError(t, s.WriteEvent(ev))
	require.NoError(t, s.ClosePacket(message.ClockSnapshot{}))
}

func TestOpenPacketWritesStreamInstanceID(t *testing.T) {
	trace, sc := buildStreamClass()
	var flushed []byte
	s := New(trace, sc, 0xCAFEBABE, ctfser.LittleEndian, func(b []byte) error {
		flushed = b
		return nil
	})
	require.NoError(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{}))
	require.NoError(t, s.ClosePacket(message.ClockSnapshot{}))

	// magic(4) + uuid(16) + stream_id(8) + stream_instance_id(8)
	require.GreaterOrEqual(t, len(flushed), 36)
	gotStreamID := binary.LittleEndian.Uint64(flushed[20:28])
	gotInstanceID := binary.LittleEndian.Uint64(flushed[28:36])
	require.Equal(t, sc.ID, gotStreamID)
	require.Equal(t, uint64(0xCAFEBABE), gotInstanceID)
}

func TestDiscardedEventsRangeMismatchAtPacketEndFails(t *testing.T) {
	trace, sc := buildStreamClass()
	sc.HasDiscardedEvents = true
	sc.DiscardedEventsHaveTS = true
	sc.PacketsHaveBeginTS = true
	sc.PacketsHaveEndTS = true
	s := New(trace, sc, 1, ctfser.LittleEndian, func([]byte) error { return nil })

	require.NoError(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{HasValue: true, Value: 100}))
	require.NoError(t, s.ClosePacket(message.ClockSnapshot{HasValue: true, Value: 200}))

	require.NoError(t, s.HandleDiscardedEvents(message.DiscardedRange{
		HasCount: true, Count: 5,
		BeginTS: message.ClockSnapshot{HasValue: true, Value: 200},
		EndTS:   message.ClockSnapshot{HasValue: true, Value: 250},
	}))

	require.NoError(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{HasValue: true, Value: 300}))
	err := s.ClosePacket(message.ClockSnapshot{HasValue: true, Value: 999})
	require.ErrorIs(t, err, ErrIncompatibleDiscardedRange)
}

func TestDiscardedEventsRangeMismatchAtPacketBeginFails(t *testing.T) {
	trace, sc := buildStreamClass()
	sc.HasDiscardedEvents = true
	sc.DiscardedEventsHaveTS = true
	sc.PacketsHaveBeginTS = true
	sc.PacketsHaveEndTS = true
	s := New(trace, sc, 1, ctfser.LittleEndian, func([]byte) error { return nil })

	require.NoError(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{HasValue: true, Value: 100}))
	require.NoError(t, s.ClosePacket(message.ClockSnapshot{HasValue: true, Value: 200}))

	require.NoError(t, s.HandleDiscardedEvents(message.DiscardedRange{
		HasCount: true, Count: 5,
		BeginTS: message.ClockSnapshot{HasValue: true, Value: 201},
		EndTS:   message.ClockSnapshot{HasValue: true, Value: 250},
	}))

	err := s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{HasValue: true, Value: 300})
	require.ErrorIs(t, err, ErrIncompatibleDiscardedRange)
}

func TestDiscardedEventsRangeConsistentAcrossPacket(t *testing.T) {
	trace, sc := buildStreamClass()
	sc.HasDiscardedEvents = true
	sc.DiscardedEventsHaveTS = true
	sc.PacketsHaveBeginTS = true
	sc.PacketsHaveEndTS = true
	s := New(trace, sc, 1, ctfser.LittleEndian, func([]byte) error { return nil })

	require.NoError(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{HasValue: true, Value: 100}))
	require.NoError(t, s.ClosePacket(message.ClockSnapshot{HasValue: true, Value: 200}))

	require.NoError(t, s.HandleDiscardedEvents(message.DiscardedRange{
		HasCount: true, Count: 5,
		BeginTS: message.ClockSnapshot{HasValue: true, Value: 200},
		EndTS:   message.ClockSnapshot{HasValue: true, Value: 250},
	}))

	require.NoError(t, s.OpenPacket(&traceir.Packet{}, message.ClockSnapshot{HasValue: true, Value: 300}))
	require.NoError(t, s.ClosePacket(message.ClockSnapshot{HasValue: true, Value: 250}))
}

func TestSecondPendingDiscardedEventsRangeFails(t *testing.T) {
	trace, sc := buildStreamClass()
	sc.HasDiscardedEvents = true
	sc.DiscardedEventsHaveTS = true
	s := New(trace, sc, 1, ctfser.LittleEndian, func([]byte) error { return nil })

	dr := message.DiscardedRange{
		HasCount: true, Count: 1,
		BeginTS: message.ClockSnapshot{HasValue: true, Value: 1},
		EndTS:   message.ClockSnapshot{HasValue: true, Value: 2},
	}
	require.NoError(t, s.HandleDiscardedEvents(dr))
	require.ErrorIs(t, s.HandleDiscardedEvents(dr), ErrDiscardedRangeAlreadyPending)
}
