package stablehash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash64Deterministic(t *testing.T) {
	assert.Equal(t, Hash64("POS-1"), Hash64("POS-1"))
	assert.NotEqual(t, Hash64("POS-1"), Hash64("POS-2"))
}

func TestBucketWithinRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		id := "POS-" + string(rune('A'+i%26))
		b := Bucket(id, 4)
		assert.GreaterOrEqual(t, b, 0)
		assert.Less(t, b, 4)
	}
}

func TestBucketDefaultModIsOne(t *testing.T) {
	assert.Equal(t, 0, Bucket("anything", 0))
	assert.Equal(t, 0, Bucket("anything", 1))
}
