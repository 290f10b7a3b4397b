// Command ctf-fs-sink drains a trace-IR message sequence to a CTF 1.8
// trace directory on disk.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ctftrace/fs-sink/internal/message"
	"github.com/ctftrace/fs-sink/internal/message/fakeiter"
	"github.com/ctftrace/fs-sink/internal/obs"
	"github.com/ctftrace/fs-sink/internal/sink"
	"github.com/ctftrace/fs-sink/internal/traceir"
)

var (
	path                   string
	assumeSingleTrace      bool
	ignoreDiscardedEvents  bool
	ignoreDiscardedPackets bool
	quiet                  bool
	listenAddr             string
)

func main() {
	root := &cobra.Command{
		Use:   "ctf-fs-sink",
		Short: "Serialize trace-IR messages to a CTF 1.8 trace directory",
		RunE:  run,
	}

	root.Flags().StringVar(&path, "path", ".", "output directory the trace is written under")
	root.Flags().BoolVar(&assumeSingleTrace, "assume-single-trace", false, "write directly under --path instead of a derived per-trace subdirectory; error if --path already exists")
	root.Flags().BoolVar(&ignoreDiscardedEvents, "ignore-discarded-events", false, "drop discarded-events messages entirely instead of validating and folding them in")
	root.Flags().BoolVar(&ignoreDiscardedPackets, "ignore-discarded-packets", false, "drop discarded-packets messages entirely instead of validating and folding them in")
	root.Flags().BoolVar(&quiet, "quiet", false, "suppress the \"Created CTF trace\" line printed on success")
	root.Flags().StringVar(&listenAddr, "listen", "", "address to serve Prometheus metrics on, e.g. :9090 (disabled if empty)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level := logrus.InfoLevel
	if quiet {
		level = logrus.WarnLevel
	}
	log := obs.NewLogger(level)

	registry := prometheus.NewRegistry()
	metrics := obs.NewMetrics(registry)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if listenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: listenAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
		log.WithField("addr", listenAddr).Info("serving metrics")
	}

	cfg := sink.Config{
		OutputDir:              path,
		SingleTraceMode:        assumeSingleTrace,
		IgnoreDiscardedEvents:  ignoreDiscardedEvents,
		IgnoreDiscardedPackets: ignoreDiscardedPackets,
		Quiet:                  quiet,
	}
	s := sink.New(cfg, log, metrics)

	trace, msgs := demoTrace()
	log.Info("draining trace-IR messages")
	if err := s.ProcessTrace(trace, fakeiter.New(msgs)); err != nil {
		return fmt.Errorf("process trace: %w", err)
	}
	if !quiet {
		fmt.Printf("Created CTF trace `%s`.\n", s.OutputDir())
	}
	return nil
}

// demoTrace builds a tiny one-event trace so the binary has something
// to serialize without a real trace-IR producer wired in. Replace this
// with the iterator your trace-IR producer exposes.
func demoTrace() (*traceir.Trace, []message.Message) {
	payload := &traceir.Structure{Members: []traceir.StructureMember{
		{Name: "value", FC: &traceir.UnsignedInteger{SizeBits: 32, Alignment: 32}},
	}}
	sc := &traceir.StreamClass{ID: 0, HasPackets: true}
	ec := &traceir.EventClass{ID: 0, Name: "demo_event", PayloadFC: payload}
	sc.EventClasses = []*traceir.EventClass{ec}
	trace := &traceir.Trace{StreamClasses: []*traceir.StreamClass{sc}}
	inst := &traceir.StreamInstance{ID: 0, StreamClass: sc}

	msgs := []message.Message{
		{Kind: message.KindStreamBegin, StreamInstance: inst},
		{Kind: message.KindPacketBegin, StreamInstance: inst, Packet: &traceir.Packet{StreamInstance: inst}},
		{Kind: message.KindEvent, StreamInstance: inst, Event: &traceir.Event{
			EventClass: ec, StreamInstance: inst,
			Payload: traceir.StructField{Values: []traceir.Field{traceir.UnsignedIntField(1)}},
		}},
		{Kind: message.KindPacketEnd, StreamInstance: inst},
		{Kind: message.KindStreamEnd, StreamInstance: inst},
	}
	return trace, msgs
}
