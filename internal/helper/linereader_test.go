// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package helper

import (
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type collector struct {
	mu    sync.Mutex
	lines []Line
}

func (c *collector) add(l Line) {
	c.mu.Lock()
	c.lines = append(c.lines, l)
	c.mu.Unlock()
}

func (c *collector) all() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func TestLineReader_LinesThenSingleEOF(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var c collector
	r := NewLineReader(7, Stdout, io.NopCloser(strings.NewReader("WIFI: OK\r\nsecond\nno newline")), c.add)
	r.Run()

	got := c.all()
	require.Len(t, got, 4)
	assert.Equal(t, "WIFI: OK", got[0].Text)
	assert.Equal(t, "second", got[1].Text)
	assert.Equal(t, "no newline", got[2].Text)
	assert.True(t, got[3].EOF)
	for _, l := range got {
		assert.Equal(t, uint64(7), l.Process)
		assert.Equal(t, Stdout, l.Stream)
	}
}

type failingReader struct{ n int }

func (f *failingReader) Read(p []byte) (int, error) {
	if f.n == 0 {
		f.n++
		return copy(p, "partial\n"), nil
	}
	return 0, errors.New("device gone")
}

func (f *failingReader) Close() error { return nil }

func TestLineReader_ErrorIsFault(t *testing.T) {
	var c collector
	r := NewLineReader(1, Stderr, &failingReader{}, c.add)
	r.Run()

	got := c.all()
	require.Len(t, got, 2)
	assert.Equal(t, "partial", got[0].Text)
	require.Error(t, got[1].Err)
	assert.False(t, got[1].EOF)
	assert.Equal(t, Stderr, got[1].Stream)
}

func TestLineReader_InterruptSilences(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pr, pw := io.Pipe()
	var c collector
	r := NewLineReader(1, Stdout, pr, c.add)
	go r.Run()

	_, err := pw.Write([]byte("before\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(c.all()) == 1 }, time.Second, time.Millisecond)

	r.Interrupt()
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("reader did not stop after interrupt")
	}
	_ = pw.Close()

	got := c.all()
	require.Len(t, got, 1, "no EOF or fault after interrupt")
	assert.Equal(t, "before", got[0].Text)
}

func TestLineRing(t *testing.T) {
	r := NewLineRing(3)
	assert.Empty(t, r.Last(5))

	r.Add("line1")
	r.Add("line2")
	assert.Equal(t, []string{"line1", "line2"}, r.Last(10))

	r.Add("line3")
	r.Add("line4")
	assert.Equal(t, []string{"line2", "line3", "line4"}, r.Last(10))
	assert.Equal(t, []string{"line3", "line4"}, r.Last(2))
}

func TestStreamString(t *testing.T) {
	assert.Equal(t, "stdout", Stdout.String())
	assert.Equal(t, "stderr", Stderr.String())
}
