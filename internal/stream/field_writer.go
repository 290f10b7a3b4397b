package stream

import (
	"fmt"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/ctfser"
	"github.com/ctftrace/fs-sink/internal/traceir"
)

// writeField serializes val, a trace-IR field value, against fc, the
// CTF-IR field class it was translated from.
func writeField(ser *ctfser.Serializer, fc ctfir.FieldClass, val traceir.Field) error {
	switch v := fc.(type) {
	case *ctfir.Bool:
		b, ok := val.(traceir.BoolField)
		if !ok {
			return fmt.Errorf("expected BoolField, got %T", val)
		}
		ser.AlignTo(v.Alignment())
		iv := uint64(0)
		if b {
			iv = 1
		}
		ser.WriteUnsigned(iv, 8)
		return nil

	case *ctfir.BitArray:
		b, ok := val.(traceir.BitArrayField)
		if !ok {
			return fmt.Errorf("expected BitArrayField, got %T", val)
		}
		ser.AlignTo(v.Alignment())
		ser.WriteUnsigned(uint64(b), v.SizeBits)
		return nil

	case *ctfir.Int:
		ser.AlignTo(v.Alignment())
		if v.Signed {
			sv, ok := val.(traceir.SignedIntField)
			if !ok {
				return fmt.Errorf("expected SignedIntField, got %T", val)
			}
			ser.WriteSigned(int64(sv), v.SizeBits)
			return nil
		}
		uv, ok := val.(traceir.UnsignedIntField)
		if !ok {
			return fmt.Errorf("expected UnsignedIntField, got %T", val)
		}
		ser.WriteUnsigned(uint64(uv), v.SizeBits)
		return nil

	case *ctfir.Float:
		rv, ok := val.(traceir.RealField)
		if !ok {
			return fmt.Errorf("expected RealField, got %T", val)
		}
		ser.AlignTo(v.Alignment())
		if v.SizeBits == 32 {
			ser.WriteFloat32(float32(rv))
		} else {
			ser.WriteFloat64(float64(rv))
		}
		return nil

	case *ctfir.String:
		sv, ok := val.(traceir.StringField)
		if !ok {
			return fmt.Errorf("expected StringField, got %T", val)
		}
		ser.WriteString(string(sv))
		return nil

	case *ctfir.Struct:
		return writeStructMembers(ser, v, val)

	case *ctfir.Array:
		af, ok := val.(traceir.ArrayField)
		if !ok {
			return fmt.Errorf("expected ArrayField, got %T", val)
		}
		if uint64(len(af.Elements)) != v.Length {
			return fmt.Errorf("static array length mismatch: class wants %d, got %d", v.Length, len(af.Elements))
		}
		for i, el := range af.Elements {
			if err := writeField(ser, v.Elem, el); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil

	case *ctfir.Sequence:
		af, ok := val.(traceir.ArrayField)
		if !ok {
			return fmt.Errorf("expected ArrayField, got %T", val)
		}
		for i, el := range af.Elements {
			if err := writeField(ser, v.Elem, el); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil

	case *ctfir.Option:
		of, ok := val.(traceir.OptionField)
		if !ok {
			return fmt.Errorf("expected OptionField, got %T", val)
		}
		if of.HasValue {
			return writeField(ser, v.Content, of.Value)
		}
		return nil

	case *ctfir.Variant:
		vf, ok := val.(traceir.VariantField)
		if !ok {
			return fmt.Errorf("expected VariantField, got %T", val)
		}
		if vf.SelectedIndex < 0 || vf.SelectedIndex >= len(v.Options) {
			return fmt.Errorf("variant selected index %d out of range [0,%d)", vf.SelectedIndex, len(v.Options))
		}
		return writeField(ser, v.Options[vf.SelectedIndex].FC, vf.Value)

	default:
		return fmt.Errorf("unwritable field class %T", fc)
	}
}

// writeStructMembers walks a Struct's members in declaration order. A
// synthesized member (a length or tag the translator inserted) has no
// corresponding trace-IR value of its own: its value is derived from the
// member that immediately follows it, and the trace-IR value list is not
// advanced for it.
func writeStructMembers(ser *ctfser.Serializer, s *ctfir.Struct, val traceir.Field) error {
	sf, ok := val.(traceir.StructField)
	if !ok {
		return fmt.Errorf("expected StructField, got %T", val)
	}
	ser.AlignTo(s.Alignment())

	valueIdx := 0
	for i := 0; i < len(s.Members); i++ {
		m := s.Members[i]
		if m.Synthesized {
			if i+1 >= len(s.Members) {
				return fmt.Errorf("synthesized member %q has no following field to derive its value from", m.Name)
			}
			if valueIdx >= len(sf.Values) {
				return fmt.Errorf("synthesized member %q: no following trace-IR value available", m.Name)
			}
			next := s.Members[i+1]
			synthVal, err := synthesizedValue(next.FC, sf.Values[valueIdx])
			if err != nil {
				return fmt.Errorf("synthesized member %q: %w", m.Name, err)
			}
			if err := writeField(ser, m.FC, synthVal); err != nil {
				return fmt.Errorf("synthesized member %q: %w", m.Name, err)
			}
			continue
		}
		if valueIdx >= len(sf.Values) {
			return fmt.Errorf("member %q: no trace-IR value available", m.Name)
		}
		if err := writeField(ser, m.FC, sf.Values[valueIdx]); err != nil {
			return fmt.Errorf("member %q: %w", m.Name, err)
		}
		valueIdx++
	}
	return nil
}

// synthesizedValue derives a before-field's own value from the
// trace-IR value of the field it annotates.
func synthesizedValue(followingFC ctfir.FieldClass, followingVal traceir.Field) (traceir.Field, error) {
	switch followingFC.(type) {
	case *ctfir.Sequence:
		af, ok := followingVal.(traceir.ArrayField)
		if !ok {
			return nil, fmt.Errorf("expected ArrayField for length synthesis, got %T", followingVal)
		}
		return traceir.UnsignedIntField(uint64(len(af.Elements))), nil
	case *ctfir.Option:
		of, ok := followingVal.(traceir.OptionField)
		if !ok {
			return nil, fmt.Errorf("expected OptionField for tag synthesis, got %T", followingVal)
		}
		if of.HasValue {
			return traceir.UnsignedIntField(1), nil
		}
		return traceir.UnsignedIntField(0), nil
	case *ctfir.Variant:
		vf, ok := followingVal.(traceir.VariantField)
		if !ok {
			return nil, fmt.Errorf("expected VariantField for tag synthesis, got %T", followingVal)
		}
		return traceir.UnsignedIntField(uint64(vf.SelectedIndex)), nil
	default:
		return nil, fmt.Errorf("unexpected synthesized-field companion %T", followingFC)
	}
}
