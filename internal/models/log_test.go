package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeData_LargeIntegersStayExact(t *testing.T) {
	const big = int64(9007199254740993) // 2^53 + 1

	raw, err := EncodeData(map[string]any{
		"traceId": big,
		"nested":  map[string]any{"ids": []any{big, 2}},
		"ratio":   0.25,
		"small":   42,
	})
	require.NoError(t, err)

	got, err := DecodeData(raw)
	require.NoError(t, err)
	assert.Equal(t, big, got["traceId"])
	assert.Equal(t, []any{big, float64(2)}, got["nested"].(map[string]any)["ids"])
	assert.Equal(t, 0.25, got["ratio"])
	assert.Equal(t, float64(42), got["small"])
}

func TestNormalizeData_MatchesDecode(t *testing.T) {
	in := map[string]any{"id": int64(-9007199254740995)}
	norm, err := NormalizeData(in)
	require.NoError(t, err)
	assert.Equal(t, int64(-9007199254740995), norm["id"])
}

func TestDecodeData_Malformed(t *testing.T) {
	cases := map[string]string{
		"truncated":     `{"a":`,
		"trailing data": `{"a":1} {"b":2}`,
		"not an object": `[1,2]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeData(raw)
			assert.Error(t, err)
			assert.Empty(t, got)
		})
	}

	got, err := DecodeData("null")
	require.NoError(t, err)
	assert.Empty(t, got)
}
