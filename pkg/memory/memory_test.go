package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRememberAndRecall(t *testing.T) {
	s := New()
	s.Remember("read_file", "read the config file at config.yaml")
	s.Remember("write_file", "wrote output to result.txt")
	s.Remember("read_file", "read the config file at settings.yaml")

	results := s.Recall("read config file", 2)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "read_file", r.Key)
	}
}

func TestRecallEmptyStore(t *testing.T) {
	s := New()
	assert.Nil(t, s.Recall("anything", 5))
}

func TestRecallNoOverlapReturnsNothing(t *testing.T) {
	s := New()
	s.Remember("a", "apples and oranges")
	assert.Empty(t, s.Recall("zzz qqq", 5))
}

func TestCapacityEvictsOldest(t *testing.T) {
	s := New()
	for i := 0; i < Capacity+10; i++ {
		s.Remember("k", fmt.Sprintf("observation number %d", i))
	}
	assert.Equal(t, Capacity, s.Len())
}

func TestRecallRespectsK(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.Remember("k", "shared common words appear here")
	}
	results := s.Recall("shared common words", 3)
	assert.Len(t, results, 3)
}
