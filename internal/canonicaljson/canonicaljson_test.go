package canonicaljson

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Zebra string `json:"zebra"`
	Alpha string `json:"alpha"`
	Nested struct {
		Delta int `json:"delta"`
		Charlie int `json:"charlie"`
	} `json:"nested"`
}

func TestCanonicalizeSortsKeys(t *testing.T) {
	var s sample
	s.Zebra = "z"
	s.Alpha = "a"
	s.Nested.Delta = 2
	s.Nested.Charlie = 1

	canon, err := Canonicalize(s)
	assert.NoError(t, err)
	assert.Equal(t, `{"alpha":"a","nested":{"charlie":1,"delta":2},"zebra":"z"}`, string(canon))
}

func TestHashIsDeterministic(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1}
	b := map[string]any{"a": 1, "b": 2}

	ha, err := Hash(a)
	assert.NoError(t, err)
	hb, err := Hash(b)
	assert.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 64) // hex-encoded SHA-256
}

func TestHashDiffersOnContentChange(t *testing.T) {
	h1 := MustHash(map[string]any{"a": 1})
	h2 := MustHash(map[string]any{"a": 2})
	assert.NotEqual(t, h1, h2)
}
