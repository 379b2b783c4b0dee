package canon

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"b": 1, "a": 2, "c": map[string]any{"z": true, "y": nil}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":{"y":null,"z":true}}`, string(data))
}

func TestMarshal_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as a surrogate pair (0xD83D...) which sorts before U+FFFD
	// in UTF-16 but after it in UTF-8.
	data, err := Marshal(map[string]any{"\uFFFD": 1, "\U0001F600": 2})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFFFD\":1}", string(data))
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	data, err := Marshal("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(data))
}

func TestMarshal_LineSeparators(t *testing.T) {
	data, err := Marshal("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(data))

	// A literal backslash followed by the text u2028 stays escaped
	data, err = Marshal(`x\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"x\\u2028"`, string(data))
}

func TestMarshal_NFC(t *testing.T) {
	decomposed := "e\u0301"
	data, err := Marshal(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(data))
}

func TestMarshal_Structs(t *testing.T) {
	type item struct {
		Name string   `json:"name"`
		Tags []string `json:"tags"`
	}
	data, err := Marshal(item{Name: "f", Tags: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"f","tags":["x"]}`, string(data))

	data, err = Marshal(map[string]any{"tags": []string{"b", "a"}})
	require.NoError(t, err)
	assert.Equal(t, `{"tags":["b","a"]}`, string(data))
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-1.5, "-1.5"},
		{100, "100"},
		{0.000001, "0.000001"},
		{0.0000001, "1e-7"},
		{1e21, "1e+21"},
		{123456789012345680000, "123456789012345680000"},
		{1.7976931348623157e308, "1.7976931348623157e+308"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in), "FormatNumber(%v)", tt.in)
	}
}

func TestMarshal_JSONNumber(t *testing.T) {
	data, err := Marshal(map[string]any{"n": json.Number("1.50"), "m": json.Number("1e2")})
	require.NoError(t, err)
	assert.Equal(t, `{"m":100,"n":1.5}`, string(data))
}

func TestDigest_StableAcrossKeyOrder(t *testing.T) {
	var a, b map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"x":1,"y":[1,2]}`), &a))
	require.NoError(t, json.Unmarshal([]byte(`{"y":[1,2],"x":1}`), &b))

	da, err := Digest(DomainTestCase, a)
	require.NoError(t, err)
	db, err := Digest(DomainTestCase, b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
	assert.Len(t, da, 64)

	dt, err := Digest(DomainTranscript, a)
	require.NoError(t, err)
	assert.NotEqual(t, da, dt, "domains separate digests")
}

func TestIndent(t *testing.T) {
	out, err := Indent([]byte(`{"b":1,"a":[true]}`))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": [\n    true\n  ]\n}", string(out))
}
