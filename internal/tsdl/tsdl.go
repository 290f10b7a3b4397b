// Package tsdl renders a translated CTF-IR trace (internal/ctfir) as
// CTF 1.8 TSDL metadata text: the trace/env/clock preamble
// followed by one stream block and its event blocks per stream class.
package tsdl

import (
	"fmt"
	"strings"

	"github.com/ctftrace/fs-sink/internal/ctfir"
)

// Render produces the complete TSDL text for trace.
func Render(trace *ctfir.Trace) (string, error) {
	var b strings.Builder
	r := &renderer{b: &b}

	fmt.Fprintf(r.b, "/* CTF 1.8 */\n")
	fmt.Fprintf(r.b, "/* Generated by ctf-fs-sink. */\n\n")
	r.renderTraceBlock(trace)
	r.renderEnvBlock(trace)

	seenClocks := map[*ctfir.ClockClass]bool{}
	for _, sc := range trace.StreamClasses {
		if sc.DefaultClockClass != nil && !seenClocks[sc.DefaultClockClass] {
			r.renderClockBlock(sc.DefaultClockClass)
			seenClocks[sc.DefaultClockClass] = true
		}
	}

	for _, sc := range trace.StreamClasses {
		if err := r.renderStreamBlock(sc); err != nil {
			return "", fmt.Errorf("stream class %d: %w", sc.ID, err)
		}
		for _, ec := range sc.EventClasses {
			if err := r.renderEventBlock(ec); err != nil {
				return "", fmt.Errorf("event class %d: %w", ec.ID, err)
			}
		}
	}

	if r.err != nil {
		return "", r.err
	}
	return b.String(), nil
}

type renderer struct {
	b   *strings.Builder
	err error
}

func (r *renderer) renderTraceBlock(t *ctfir.Trace) {
	fmt.Fprintf(r.b, "trace {\n")
	fmt.Fprintf(r.b, "    major = 1;\n")
	fmt.Fprintf(r.b, "    minor = 8;\n")
	fmt.Fprintf(r.b, "    uuid = %q;\n", formatUUID(t.UUID))
	fmt.Fprintf(r.b, "    byte_order = le;\n")
	fmt.Fprintf(r.b, "    packet.header := struct {\n")
	fmt.Fprintf(r.b, "        integer { size = 32; align = 32; signed = false; base = hexadecimal; } magic;\n")
	fmt.Fprintf(r.b, "        integer { size = 8; align = 8; signed = false; base = hexadecimal; } uuid[16];\n")
	fmt.Fprintf(r.b, "        integer { size = 64; align = 8; signed = false; base = decimal; } stream_id;\n")
	fmt.Fprintf(r.b, "        integer { size = 64; align = 8; signed = false; base = decimal; } stream_instance_id;\n")
	fmt.Fprintf(r.b, "    };\n")
	fmt.Fprintf(r.b, "};\n\n")
}

func formatUUID(u [16]byte) string {
	return fmt.Sprintf("%x-%x-%x-%x-%x", u[0:4], u[4:6], u[6:8], u[8:10], u[10:16])
}

func (r *renderer) renderEnvBlock(t *ctfir.Trace) {
	if len(t.Environment) == 0 {
		return
	}
	fmt.Fprintf(r.b, "env {\n")
	for _, e := range t.Environment {
		switch v := e.Value.(type) {
		case int64:
			fmt.Fprintf(r.b, "    %s = %d;\n", e.Name, v)
		case string:
			fmt.Fprintf(r.b, "    %s = %s;\n", e.Name, quoteString(v))
		}
	}
	fmt.Fprintf(r.b, "};\n\n")
}

func (r *renderer) renderClockBlock(cc *ctfir.ClockClass) {
	fmt.Fprintf(r.b, "clock {\n")
	fmt.Fprintf(r.b, "    name = %s;\n", cc.Name)
	if cc.HasDescription {
		fmt.Fprintf(r.b, "    description = %s;\n", quoteString(cc.Description))
	}
	fmt.Fprintf(r.b, "    freq = %d;\n", cc.FrequencyHz)
	fmt.Fprintf(r.b, "    precision = %d;\n", cc.Precision)
	fmt.Fprintf(r.b, "    offset_s = %d;\n", cc.OffsetSeconds)
	fmt.Fprintf(r.b, "    offset = %d;\n", cc.OffsetCycles)
	if cc.OriginIsUnixEpoch {
		fmt.Fprintf(r.b, "    absolute = true;\n")
	}
	if cc.UUID != nil {
		fmt.Fprintf(r.b, "    uuid = %q;\n", formatUUID(*cc.UUID))
	}
	fmt.Fprintf(r.b, "};\n\n")
}

func (r *renderer) renderStreamBlock(sc *ctfir.StreamClass) error {
	fmt.Fprintf(r.b, "stream {\n")
	fmt.Fprintf(r.b, "    id = %d;\n", sc.ID)

	fmt.Fprintf(r.b, "    event.header := struct {\n")
	fmt.Fprintf(r.b, "        integer { size = 64; align = 8; signed = false; base = decimal; } id;\n")
	if sc.DefaultClockClass != nil {
		fmt.Fprintf(r.b, "        integer { size = 64; align = 8; signed = false; base = decimal; map(clock.%s.value); } timestamp;\n", sc.DefaultClockClass.Name)
	}
	fmt.Fprintf(r.b, "    };\n")

	if sc.EventCommonContextFC != nil {
		p, _, err := r.declType(sc.EventCommonContextFC)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.b, "    event.context := %s;\n", p)
	}

	if sc.HasPackets {
		body, err := r.packetContextBody(sc)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.b, "    packet.context := %s;\n", body)
	}

	fmt.Fprintf(r.b, "};\n\n")
	return nil
}

// packetContextBody renders the packet-context struct as the reserved
// members, gated by the stream class's flags, followed by
// the user-declared ones, in one struct block.
func (r *renderer) packetContextBody(sc *ctfir.StreamClass) (string, error) {
	var b strings.Builder
	b.WriteString("struct {\n")
	for _, m := range sc.ReservedPacketContextMembers() {
		switch m.Name {
		case "packet_size", "content_size", "packet_seq_num", "events_discarded":
			fmt.Fprintf(&b, "        integer { size = 64; align = 8; signed = false; base = decimal; } %s;\n", m.Name)
		case "timestamp_begin", "timestamp_end":
			fmt.Fprintf(&b, "        integer { size = 64; align = 8; signed = false; base = decimal; map(clock.%s.value); } %s;\n", m.MappedClockName, m.Name)
		}
	}
	if sc.UserPacketContextFC != nil {
		for _, m := range sc.UserPacketContextFC.Members {
			p, s, err := r.declType(m.FC)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "        %s %s%s;\n", p, m.Name, s)
		}
	}
	b.WriteString("    }")
	return b.String(), nil
}

func (r *renderer) renderEventBlock(ec *ctfir.EventClass) error {
	fmt.Fprintf(r.b, "event {\n")
	fmt.Fprintf(r.b, "    name = %s;\n", quoteString(ec.Name))
	fmt.Fprintf(r.b, "    id = %d;\n", ec.ID)
	fmt.Fprintf(r.b, "    stream_id = %d;\n", ec.StreamClass.ID)
	if ec.HasLogLevel {
		fmt.Fprintf(r.b, "    loglevel = %d;\n", ec.LogLevel)
	}
	if ec.HasEMFURI {
		fmt.Fprintf(r.b, "    model.emf.uri = %s;\n", quoteString(ec.EMFURI))
	}
	if ec.SpecContextFC != nil {
		p, _, err := r.declType(ec.SpecContextFC)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.b, "    context := %s;\n", p)
	}
	if ec.PayloadFC != nil {
		p, _, err := r.declType(ec.PayloadFC)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.b, "    fields := %s;\n", p)
	}
	fmt.Fprintf(r.b, "};\n\n")
	return nil
}

// quoteString renders a TSDL double-quoted string literal, escaping
// backslashes and double quotes.
func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}
