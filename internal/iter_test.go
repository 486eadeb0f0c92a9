package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcatSeq2(t *testing.T) {
	assert := assert.New(t)

	a := map[string]int{"one": 1}
	b := map[string]int{"two": 2, "three": 3}

	got := map[string]int{}
	for k, v := range ConcatSeq2(maps.All(a), maps.All(b)) {
		got[k] = v
	}
	assert.Equal(map[string]int{"one": 1, "two": 2, "three": 3}, got)
}

func TestConcatSeq2EarlyStop(t *testing.T) {
	assert := assert.New(t)

	count := 0
	for range ConcatSeq2(maps.All(map[int]int{1: 1}), maps.All(map[int]int{2: 2})) {
		count++
		break
	}
	assert.Equal(1, count)
}
