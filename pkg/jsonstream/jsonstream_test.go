package jsonstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushDrainSingleFragment(t *testing.T) {
	e := New()
	require.NoError(t, e.Push(`{"name":"read_file","args":{"path":"a.go"}}`))

	objs := e.Drain()
	require.Len(t, objs, 1)
	assert.Equal(t, "read_file", objs[0].Value["name"])
}

func TestPushDrainAcrossFragments(t *testing.T) {
	e := New()
	whole := `{"name":"list_dir","args":{"path":"."}}`
	for _, chunk := range splitEvery(whole, 3) {
		require.NoError(t, e.Push(chunk))
	}

	objs := e.Drain()
	require.Len(t, objs, 1)
	assert.Equal(t, "list_dir", objs[0].Value["name"])
	assert.Equal(t, 0, e.Pending())
}

func TestPushIgnoresBracesInsideStrings(t *testing.T) {
	e := New()
	require.NoError(t, e.Push(`{"name":"echo","args":{"text":"a { b } c"}}`))

	objs := e.Drain()
	require.Len(t, objs, 1)
	args := objs[0].Value["args"].(map[string]any)
	assert.Equal(t, "a { b } c", args["text"])
}

func TestPushHandlesEscapedQuotesInsideStrings(t *testing.T) {
	e := New()
	require.NoError(t, e.Push(`{"name":"echo","args":{"text":"he said \"hi\""}}`))

	objs := e.Drain()
	require.Len(t, objs, 1)
}

func TestPushMultipleObjectsInOneFragment(t *testing.T) {
	e := New()
	require.NoError(t, e.Push(`{"a":1}garbage{"b":2}`))

	objs := e.Drain()
	require.Len(t, objs, 2)
	assert.InDelta(t, 1, objs[0].Value["a"], 0)
	assert.InDelta(t, 2, objs[1].Value["b"], 0)
}

func TestPushSurfacesByteOffsets(t *testing.T) {
	e := New()
	require.NoError(t, e.Push(`xxxxx{"a":1}`))
	objs := e.Drain()
	require.Len(t, objs, 1)
	assert.Equal(t, 5, objs[0].Offset)
}

func TestPushOverflowOnUnterminatedObject(t *testing.T) {
	e := New()
	var err error
	err = e.Push(`{"data":"`)
	require.NoError(t, err)
	for i := 0; i < (1<<20)/1024+2; i++ {
		err = e.Push(strings.Repeat("x", 1024))
		if err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrOverflow)
	assert.Equal(t, 0, e.Pending(), "overflow must reset the buffer, not leave it wedged")
}

func TestPushAfterOverflowRecovers(t *testing.T) {
	e := New()
	_ = e.Push(`{"data":"`)
	for i := 0; i < (1<<20)/1024+2; i++ {
		if e.Push(strings.Repeat("x", 1024)) != nil {
			break
		}
	}
	require.NoError(t, e.Push(`{"tool":"next"}`))
	objs := e.Drain()
	require.Len(t, objs, 1)
	assert.Equal(t, "next", objs[0].Value["tool"])
}

func TestDrainEmptyWhenNothingCompleted(t *testing.T) {
	e := New()
	require.NoError(t, e.Push(`{"incomplete":`))
	assert.Nil(t, e.Drain())
	assert.Greater(t, e.Pending(), 0)
}

func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > 0 {
		if len(s) < n {
			out = append(out, s)
			break
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}
