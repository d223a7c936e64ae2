package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalNull(t *testing.T) {
	for _, v := range []any{nil, IRNull{}} {
		result, err := MarshalCanonical(v)
		require.NoError(t, err)
		assert.Equal(t, "null", string(result))
	}

	result, err := MarshalCanonical(IRObject{"v": IRNull{}, "a": IRArray{IRNull{}}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":[null],"v":null}`, string(result))
}

func TestMarshalCanonicalFloats(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"fraction", IRFloat(3.5), "3.5"},
		{"integral float prints as int", IRFloat(1000), "1000"},
		{"negative zero prints as zero", IRFloat(math.Copysign(0, -1)), "0"},
		{"negative", IRFloat(-0.25), "-0.25"},
		{"beyond 2^53 keeps float form", IRFloat(1e20), "1e+20"},
		{"go float64", 0.5, "0.5"},
		{"go integral float64 becomes int", 7.0, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	for _, v := range []any{IRFloat(math.NaN()), IRFloat(math.Inf(1)), IRArray{IRFloat(math.Inf(-1))}} {
		_, err := MarshalCanonical(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "float")
	}
}

func TestMarshalCanonicalNestedValues(t *testing.T) {
	v := IRObject{
		"items": IRArray{
			IRObject{"value": IRInt(1), "label": IRString("one")},
			IRObject{"value": IRFloat(2.5), "label": IRString("two")},
		},
		"flags": IRArray{IRBool(true), IRBool(false), IRNull{}},
		"empty": IRObject{},
	}

	result, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t,
		`{"empty":{},"flags":[true,false,null],"items":[{"label":"one","value":1},{"label":"two","value":2.5}]}`,
		string(result))

	again, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, result, again, "output is stable across calls")
}

func TestMarshalCanonicalGoValuesMatchIR(t *testing.T) {
	goValue := map[string]any{
		"n":    int64(3),
		"list": []any{"x", 1.5, nil},
	}
	irValue := IRObject{
		"n":    IRInt(3),
		"list": IRArray{IRString("x"), IRFloat(1.5), IRNull{}},
	}

	fromGo, err := MarshalCanonical(goValue)
	require.NoError(t, err)
	fromIR, err := MarshalCanonical(irValue)
	require.NoError(t, err)
	assert.Equal(t, string(fromIR), string(fromGo))
}

func TestMarshalCanonicalKeyOrdering(t *testing.T) {
	// Keys sort by UTF-16 code units: the surrogate pair of U+10000 sorts
	// before U+FF61, the reverse of UTF-8 byte order.
	obj := IRObject{
		"zebra":      IRInt(1),
		"alpha":      IRInt(2),
		"\uFF61":     IRInt(3),
		"\U00010000": IRInt(4),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"alpha\":2,\"zebra\":1,\"\U00010000\":4,\"\uFF61\":3}", string(result))
}
