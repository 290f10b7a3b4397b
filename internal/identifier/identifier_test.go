package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	cases := map[string]bool{
		"":       false,
		"int":    false,
		"_int":   true,
		"x":      true,
		"_x1":    true,
		"1x":     false,
		"a b":    false,
		"a_b2":   true,
		"struct": false,
		"Struct": true,
	}
	for name, want := range cases {
		assert.Equalf(t, want, Valid(name), "Valid(%q)", name)
	}
}

func TestProtect(t *testing.T) {
	require.Equal(t, "_int", Protect("int"))
	require.Equal(t, "x", Protect("x"))
	require.Equal(t, "_x", Protect("_x"))
}

func TestProtectIdempotent(t *testing.T) {
	names := []string{"int", "x", "_x", "struct", "_already"}
	for _, n := range names {
		once := Protect(n)
		twice := Protect(once)
		assert.Equalf(t, once, twice, "Protect(Protect(%q))", n)
	}
}

func TestMustProtect(t *testing.T) {
	assert.True(t, MustProtect("int"))
	assert.True(t, MustProtect("_x"))
	assert.False(t, MustProtect("x"))
}
