// Package sink is the dispatcher that drives a message.Iterator to
// completion against one trace-IR trace: translating its schema, opening
// the on-disk trace run, and routing each message to the right stream.
package sink

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/ctfser"
	"github.com/ctftrace/fs-sink/internal/message"
	"github.com/ctftrace/fs-sink/internal/obs"
	"github.com/ctftrace/fs-sink/internal/stream"
	"github.com/ctftrace/fs-sink/internal/tracerun"
	"github.com/ctftrace/fs-sink/internal/traceir"
	"github.com/ctftrace/fs-sink/internal/translate"
)

// Config holds the knobs a caller sets per sink run.
type Config struct {
	OutputDir              string
	SingleTraceMode        bool
	BigEndian              bool
	IgnoreDiscardedEvents  bool
	IgnoreDiscardedPackets bool
	Quiet                  bool
}

func (c Config) byteOrder() ctfser.ByteOrder {
	if c.BigEndian {
		return ctfser.BigEndian
	}
	return ctfser.LittleEndian
}

// Sink drives one traceir.Trace's messages to disk under cfg.OutputDir.
type Sink struct {
	cfg     Config
	log     *logrus.Entry
	metrics *obs.Metrics

	translator *translate.Translator
	run        *tracerun.Run

	streamClassByTrace map[*traceir.StreamClass]*ctfir.StreamClass
	streamByInstance   map[*traceir.StreamInstance]*stream.Stream
	fileByInstance     map[*traceir.StreamInstance]*openFile
}

// New returns a Sink configured by cfg.
func New(cfg Config, log *logrus.Entry, metrics *obs.Metrics) *Sink {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Sink{
		cfg:                cfg,
		log:                log.WithField("component", "sink"),
		metrics:            metrics,
		translator:         translate.New(),
		streamClassByTrace: map[*traceir.StreamClass]*ctfir.StreamClass{},
		streamByInstance:   map[*traceir.StreamInstance]*stream.Stream{},
		fileByInstance:     map[*traceir.StreamInstance]*openFile{},
	}
}

// ProcessTrace translates src's schema, opens its on-disk run, drains it
// fully through it, and finalizes the run (writing the metadata file).
func (s *Sink) ProcessTrace(src *traceir.Trace, it message.Iterator) error {
	ctfirTrace, err := s.translator.TranslateTrace(src)
	if err != nil {
		return wrap(classifyTranslateErr(err), "translate trace: %w", err)
	}
	for i, sc := range src.StreamClasses {
		s.streamClassByTrace[sc] = ctfirTrace.StreamClasses[i]
	}

	run, err := tracerun.Open(s.cfg.OutputDir, s.cfg.SingleTraceMode, ctfirTrace)
	if err != nil {
		return wrap(classifyTracerunErr(err), "open trace run: %w", err)
	}
	s.run = run

	for {
		msg, status, err := it.Next()
		if err != nil {
			return wrap(IO, "read message: %w", err)
		}
		switch status {
		case message.StatusEnd:
			return s.finish()
		case message.StatusAgain:
			continue
		}
		if err := s.dispatch(ctfirTrace, msg); err != nil {
			return err
		}
	}
}

func (s *Sink) finish() error {
	for inst, st := range s.streamByInstance {
		if err := st.Close(); err != nil {
			return wrap(IncompatibleStreamShape, "close stream for instance %d: %w", inst.ID, err)
		}
		if s.metrics != nil {
			s.metrics.StreamsOpen.Dec()
		}
	}
	for _, f := range s.fileByInstance {
		if err := f.Close(); err != nil {
			return wrap(IO, "close stream file: %w", err)
		}
	}
	if err := s.run.Close(); err != nil {
		return wrap(IO, "close trace run: %w", err)
	}
	return nil
}

func (s *Sink) dispatch(ctfirTrace *ctfir.Trace, msg message.Message) error {
	switch msg.Kind {
	case message.KindStreamBegin:
		return s.openStream(ctfirTrace, msg.StreamInstance)
	case message.KindStreamEnd:
		return s.closeStream(msg.StreamInstance)
	case message.KindPacketBegin:
		st, err := s.streamFor(msg.StreamInstance)
		if err != nil {
			return err
		}
		if err := st.OpenPacket(msg.Packet, msg.PacketTS); err != nil {
			return wrap(classifyStreamErr(err), "packet begin: %w", err)
		}
		return nil
	case message.KindPacketEnd:
		st, err := s.streamFor(msg.StreamInstance)
		if err != nil {
			return err
		}
		if err := st.ClosePacket(msg.PacketTS); err != nil {
			return wrap(classifyStreamErr(err), "packet end: %w", err)
		}
		if s.metrics != nil {
			s.metrics.PacketsWritten.Inc()
		}
		return nil
	case message.KindEvent:
		st, err := s.streamFor(msg.StreamInstance)
		if err != nil {
			return err
		}
		if err := st.WriteEvent(msg.Event); err != nil {
			return wrap(classifyStreamErr(err), "event: %w", err)
		}
		if s.metrics != nil {
			s.metrics.EventsWritten.Inc()
		}
		return nil
	case message.KindDiscardedEvents:
		if s.cfg.IgnoreDiscardedEvents {
			return nil
		}
		st, err := s.streamFor(msg.StreamInstance)
		if err != nil {
			return err
		}
		if err := st.HandleDiscardedEvents(msg.Discarded); err != nil {
			return wrap(classifyStreamErr(err), "discarded events: %w", err)
		}
		if s.metrics != nil {
			count := msg.Discarded.Count
			if !msg.Discarded.HasCount {
				count = 1
			}
			s.metrics.DiscardedEvents.Add(float64(count))
		}
		return nil
	case message.KindDiscardedPackets:
		if s.cfg.IgnoreDiscardedPackets {
			return nil
		}
		st, err := s.streamFor(msg.StreamInstance)
		if err != nil {
			return err
		}
		if err := st.HandleDiscardedPackets(msg.Discarded); err != nil {
			return wrap(classifyStreamErr(err), "discarded packets: %w", err)
		}
		return nil
	default:
		return wrap(IncompatibleStreamShape, "unhandled message kind %v", msg.Kind)
	}
}

func (s *Sink) streamFor(inst *traceir.StreamInstance) (*stream.Stream, error) {
	st, ok := s.streamByInstance[inst]
	if !ok {
		return nil, wrap(IncompatibleStreamShape, "message for stream instance %d with no preceding stream-begin", inst.ID)
	}
	return st, nil
}

// OutputDir returns the trace's final output directory. Only meaningful
// after ProcessTrace has returned successfully.
func (s *Sink) OutputDir() string {
	if s.run == nil {
		return ""
	}
	return s.run.Dir()
}

// classifyTranslateErr maps a TranslateTrace failure to the taxonomy entry
// its sentinel names, defaulting to UnsupportedSchema for anything that
// doesn't match one of the four translate-package sentinels.
func classifyTranslateErr(err error) Kind {
	switch {
	case errors.Is(err, translate.ErrUnsupportedIdentifier):
		return UnsupportedIdentifier
	case errors.Is(err, translate.ErrUnsupportedEnvironment):
		return UnsupportedEnvironment
	case errors.Is(err, translate.ErrIncompatibleStreamShape):
		return IncompatibleStreamShape
	default:
		return UnsupportedSchema
	}
}

// classifyTracerunErr maps a trace run failure to SingleTraceModeCollision
// when it was caused by assume-single-trace mode targeting an existing
// output path, and to IO otherwise.
func classifyTracerunErr(err error) Kind {
	if errors.Is(err, tracerun.ErrSingleTraceModeCollision) {
		return SingleTraceModeCollision
	}
	return IO
}

// classifyStreamErr maps a stream runtime failure to
// IncompatibleDiscardedRange when it came from discarded-range
// validation, and to IncompatibleStreamShape for every other stream
// state machine violation (packet reopened, event with no packet open,
// and similar ordering errors the stream package reports).
func classifyStreamErr(err error) Kind {
	switch {
	case errors.Is(err, stream.ErrIncompatibleDiscardedRange),
		errors.Is(err, stream.ErrDiscardedRangeAlreadyPending),
		errors.Is(err, stream.ErrDiscardedEventsWhileOpen),
		errors.Is(err, stream.ErrDiscardedPacketsWhileOpen):
		return IncompatibleDiscardedRange
	default:
		return IncompatibleStreamShape
	}
}
