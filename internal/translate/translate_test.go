package translate

import (
	"testing"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/traceir"
	"github.com/stretchr/testify/require"
)

func TestTranslateScalarStruct(t *testing.T) {
	payload := &traceir.Structure{Members: []traceir.StructureMember{
		{Name: "int", FC: &traceir.UnsignedInteger{SizeBits: 32, Alignment: 32}},
		{Name: "count", FC: &traceir.SignedInteger{SizeBits: 16, Alignment: 16}},
	}}
	src := &traceir.Trace{
		StreamClasses: []*traceir.StreamClass{{
			ID: 0,
			EventClasses: []*traceir.EventClass{{
				ID: 0, Name: "ev", PayloadFC: payload,
			}},
		}},
	}

	tr := New()
	out, err := tr.TranslateTrace(src)
	require.NoError(t, err)
	require.Len(t, out.StreamClasses, 1)
	ec := out.StreamClasses[0].EventClasses[0]
	st, ok := ec.PayloadFC.(*ctfir.Struct)
	require.True(t, ok)
	require.Len(t, st.Members, 2)
	require.Equal(t, "_int", st.Members[0].Name)
	require.Equal(t, "count", st.Members[1].Name)
}

func TestTranslateDynamicArraySynthesizesLength(t *testing.T) {
	payload := &traceir.Structure{Members: []traceir.StructureMember{
		{Name: "items", FC: &traceir.DynamicArray{
			ElementFC:      &traceir.UnsignedInteger{SizeBits: 8, Alignment: 8},
			LengthFieldRef: traceir.FieldRef{Kind: traceir.RefRelative, RelativeName: "nonexistent"},
		}},
	}}
	src := &traceir.Trace{StreamClasses: []*traceir.StreamClass{{
		EventClasses: []*traceir.EventClass{{Name: "ev", PayloadFC: payload}},
	}}}

	tr := New()
	out, err := tr.TranslateTrace(src)
	require.NoError(t, err)
	st := out.StreamClasses[0].EventClasses[0].PayloadFC.(*ctfir.Struct)
	require.Len(t, st.Members, 2)
	require.Equal(t, "__items_len", st.Members[0].Name)
	seq, ok := st.Members[1].FC.(*ctfir.Sequence)
	require.True(t, ok)
	require.True(t, seq.LengthIsBefore)
	require.Equal(t, "__items_len", seq.LengthRef)
}

func TestTranslateDynamicArrayResolvesExistingLength(t *testing.T) {
	payload := &traceir.Structure{Members: []traceir.StructureMember{
		{Name: "len", FC: &traceir.UnsignedInteger{SizeBits: 16, Alignment: 16}},
		{Name: "items", FC: &traceir.DynamicArray{
			ElementFC:      &traceir.UnsignedInteger{SizeBits: 8, Alignment: 8},
			LengthFieldRef: traceir.FieldRef{Kind: traceir.RefRelative, RelativeName: "len"},
		}},
	}}
	src := &traceir.Trace{StreamClasses: []*traceir.StreamClass{{
		EventClasses: []*traceir.EventClass{{Name: "ev", PayloadFC: payload}},
	}}}

	tr := New()
	out, err := tr.TranslateTrace(src)
	require.NoError(t, err)
	st := out.StreamClasses[0].EventClasses[0].PayloadFC.(*ctfir.Struct)
	require.Len(t, st.Members, 2)
	seq := st.Members[1].FC.(*ctfir.Sequence)
	require.False(t, seq.LengthIsBefore)
	require.Equal(t, "len", seq.LengthRef)
}

func TestTranslateOptionSynthesizesTag(t *testing.T) {
	payload := &traceir.Structure{Members: []traceir.StructureMember{
		{Name: "maybe", FC: &traceir.Option{ContentFC: &traceir.UnsignedInteger{SizeBits: 32, Alignment: 32}}},
	}}
	src := &traceir.Trace{StreamClasses: []*traceir.StreamClass{{
		EventClasses: []*traceir.EventClass{{Name: "ev", PayloadFC: payload}},
	}}}

	tr := New()
	out, err := tr.TranslateTrace(src)
	require.NoError(t, err)
	st := out.StreamClasses[0].EventClasses[0].PayloadFC.(*ctfir.Struct)
	require.Len(t, st.Members, 2)
	require.Equal(t, "__maybe_tag", st.Members[0].Name)
	opt, ok := st.Members[1].FC.(*ctfir.Option)
	require.True(t, ok)
	require.Equal(t, "__maybe_tag", opt.TagRef)
}

func TestTranslateVariantSynthesizesTagAndDisambiguatesOptionNames(t *testing.T) {
	payload := &traceir.Structure{Members: []traceir.StructureMember{
		{Name: "v", FC: &traceir.Variant{Options: []traceir.VariantOption{
			{Name: "int", FC: &traceir.UnsignedInteger{SizeBits: 32, Alignment: 32}},
			{Name: "int", FC: &traceir.SignedInteger{SizeBits: 32, Alignment: 32}},
		}}},
	}}
	src := &traceir.Trace{StreamClasses: []*traceir.StreamClass{{
		EventClasses: []*traceir.EventClass{{Name: "ev", PayloadFC: payload}},
	}}}

	tr := New()
	out, err := tr.TranslateTrace(src)
	require.NoError(t, err)
	st := out.StreamClasses[0].EventClasses[0].PayloadFC.(*ctfir.Struct)
	require.Equal(t, "__v_tag", st.Members[0].Name)
	variant := st.Members[1].FC.(*ctfir.Variant)
	require.True(t, variant.TagIsBefore)
	require.Equal(t, "_int", variant.Options[0].Name)
	require.Equal(t, "_int_2", variant.Options[1].Name)
}

func TestTranslateVariantReusesMatchingExternalTag(t *testing.T) {
	payload := &traceir.Structure{Members: []traceir.StructureMember{
		{Name: "sel", FC: &traceir.UnsignedEnumeration{SizeBits: 8, Alignment: 8, Mappings: []traceir.EnumMapping{
			{Label: "a", Ranges: []traceir.EnumRange{{Lo: 0, Hi: 0}}},
			{Label: "b", Ranges: []traceir.EnumRange{{Lo: 1, Hi: 1}}},
		}}},
		{Name: "v", FC: &traceir.Variant{
			TagFieldRef: traceir.FieldRef{Kind: traceir.RefRelative, RelativeName: "sel"},
			Options: []traceir.VariantOption{
				{Name: "a", FC: &traceir.UnsignedInteger{SizeBits: 32, Alignment: 32}, Ranges: []traceir.EnumRange{{Lo: 0, Hi: 0}}},
				{Name: "b", FC: &traceir.SignedInteger{SizeBits: 32, Alignment: 32}, Ranges: []traceir.EnumRange{{Lo: 1, Hi: 1}}},
			},
		}},
	}}
	src := &traceir.Trace{StreamClasses: []*traceir.StreamClass{{
		EventClasses: []*traceir.EventClass{{Name: "ev", PayloadFC: payload}},
	}}}

	tr := New()
	out, err := tr.TranslateTrace(src)
	require.NoError(t, err)
	st := out.StreamClasses[0].EventClasses[0].PayloadFC.(*ctfir.Struct)
	require.Len(t, st.Members, 2)
	variant := st.Members[1].FC.(*ctfir.Variant)
	require.False(t, variant.TagIsBefore)
	require.Equal(t, "sel", variant.TagRef)
	require.Equal(t, "a", variant.Options[0].Name)
	require.Equal(t, "b", variant.Options[1].Name)
}

func TestTranslateVariantForcesSynthesisOnTagCardinalityMismatch(t *testing.T) {
	payload := &traceir.Structure{Members: []traceir.StructureMember{
		{Name: "sel", FC: &traceir.UnsignedEnumeration{SizeBits: 8, Alignment: 8, Mappings: []traceir.EnumMapping{
			{Label: "a", Ranges: []traceir.EnumRange{{Lo: 0, Hi: 0}}},
		}}},
		{Name: "v", FC: &traceir.Variant{
			TagFieldRef: traceir.FieldRef{Kind: traceir.RefRelative, RelativeName: "sel"},
			Options: []traceir.VariantOption{
				{Name: "a", FC: &traceir.UnsignedInteger{SizeBits: 32, Alignment: 32}, Ranges: []traceir.EnumRange{{Lo: 0, Hi: 0}}},
				{Name: "b", FC: &traceir.SignedInteger{SizeBits: 32, Alignment: 32}, Ranges: []traceir.EnumRange{{Lo: 1, Hi: 1}}},
			},
		}},
	}}
	src := &traceir.Trace{StreamClasses: []*traceir.StreamClass{{
		EventClasses: []*traceir.EventClass{{Name: "ev", PayloadFC: payload}},
	}}}

	tr := New()
	out, err := tr.TranslateTrace(src)
	require.NoError(t, err)
	st := out.StreamClasses[0].EventClasses[0].PayloadFC.(*ctfir.Struct)
	require.Len(t, st.Members, 3)
	require.Equal(t, "__v_tag", st.Members[1].Name)
	variant := st.Members[2].FC.(*ctfir.Variant)
	require.True(t, variant.TagIsBefore)
	require.Equal(t, "a", variant.Options[0].Name)
	require.Equal(t, "b", variant.Options[1].Name)
}

func TestTranslateRejectsBadEnvironmentValue(t *testing.T) {
	src := &traceir.Trace{Environment: []traceir.EnvEntry{{Name: "bad", Value: 3.14}}}
	tr := New()
	_, err := tr.TranslateTrace(src)
	require.Error(t, err)
}

func TestTranslateRejectsBadEnvironmentName(t *testing.T) {
	src := &traceir.Trace{Environment: []traceir.EnvEntry{{Name: "int", Value: int64(1)}}}
	tr := New()
	_, err := tr.TranslateTrace(src)
	require.Error(t, err)
}

func TestTranslateSynthesizesClockNameWhenInvalid(t *testing.T) {
	src := &traceir.Trace{StreamClasses: []*traceir.StreamClass{
		{ID: 0, DefaultClockClass: &traceir.ClockClass{Name: ""}},
		{ID: 1, DefaultClockClass: &traceir.ClockClass{Name: "3bad"}},
	}}
	tr := New()
	out, err := tr.TranslateTrace(src)
	require.NoError(t, err)
	require.Equal(t, "default", out.StreamClasses[0].DefaultClockClass.Name)
	require.Equal(t, "default0", out.StreamClasses[1].DefaultClockClass.Name)
}

func TestTranslateRejectsTimestampedDiscardedRangeWithoutPacketTimestamps(t *testing.T) {
	src := &traceir.Trace{StreamClasses: []*traceir.StreamClass{
		{
			ID:                    0,
			HasPackets:            true,
			HasDiscardedEvents:    true,
			DiscardedEventsHaveTS: true,
		},
	}}
	tr := New()
	_, err := tr.TranslateTrace(src)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrIncompatibleStreamShape)
}

func TestTranslateAcceptsTimestampedDiscardedRangeWithPacketTimestamps(t *testing.T) {
	src := &traceir.Trace{StreamClasses: []*traceir.StreamClass{
		{
			ID:                     0,
			HasPackets:             true,
			PacketsHaveBeginTS:     true,
			PacketsHaveEndTS:       true,
			HasDiscardedPackets:    true,
			DiscardedPacketsHaveTS: true,
		},
	}}
	tr := New()
	_, err := tr.TranslateTrace(src)
	require.NoError(t, err)
}
