package sink

import (
	"os"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/stream"
	"github.com/ctftrace/fs-sink/internal/traceir"
)

// openFile is the append-only destination one stream instance's packets
// are flushed to.
type openFile struct {
	f *os.File
}

func (o *openFile) write(p []byte) error {
	_, err := o.f.Write(p)
	return err
}

func (o *openFile) Close() error {
	return o.f.Close()
}

func (s *Sink) openStream(ctfirTrace *ctfir.Trace, inst *traceir.StreamInstance) error {
	if _, exists := s.streamByInstance[inst]; exists {
		return wrap(IncompatibleStreamShape, "stream-begin for instance %d already open", inst.ID)
	}
	csc, ok := s.streamClassByTrace[inst.StreamClass]
	if !ok {
		return wrap(IncompatibleStreamShape, "stream instance %d references an untranslated stream class", inst.ID)
	}

	path := s.run.StreamFilePath(csc, inst.ID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return wrap(IO, "open stream file %s: %w", path, err)
	}
	of := &openFile{f: f}
	s.fileByInstance[inst] = of

	s.streamByInstance[inst] = stream.New(ctfirTrace, csc, inst.ID, s.cfg.byteOrder(), of.write)
	if s.metrics != nil {
		s.metrics.StreamsOpen.Inc()
	}
	s.log.WithField("stream_instance", inst.ID).Debug("stream opened")
	return nil
}

func (s *Sink) closeStream(inst *traceir.StreamInstance) error {
	st, ok := s.streamByInstance[inst]
	if !ok {
		return wrap(IncompatibleStreamShape, "stream-end for instance %d with no matching stream-begin", inst.ID)
	}
	if err := st.Close(); err != nil {
		return wrap(IncompatibleStreamShape, "close stream for instance %d: %w", inst.ID, err)
	}
	delete(s.streamByInstance, inst)
	if s.metrics != nil {
		s.metrics.StreamsOpen.Dec()
	}

	of := s.fileByInstance[inst]
	delete(s.fileByInstance, inst)
	if of != nil {
		if err := of.Close(); err != nil {
			return wrap(IO, "close stream file: %w", err)
		}
	}
	s.log.WithField("stream_instance", inst.ID).Debug("stream closed")
	return nil
}
