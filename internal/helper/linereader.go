// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package helper

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"sync/atomic"
)

// Stream identifies which helper output a line came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Line is one unit of reader output. Exactly one of Text, EOF or Err is meaningful.
type Line struct {
	Process uint64
	Stream  Stream
	Text    string
	EOF     bool
	Err     error
}

// LineFunc receives reader output. It must not block.
type LineFunc func(Line)

const readBufferSize = 8192

// LineReader forwards a stream line by line. It reports end-of-stream exactly
// once, reports the first read error as a fault, and goes silent once
// interrupted.
type LineReader struct {
	process     uint64
	stream      Stream
	src         io.ReadCloser
	emit        LineFunc
	interrupted atomic.Bool
	done        chan struct{}
}

// NewLineReader binds a reader to one stream of one helper process.
func NewLineReader(process uint64, stream Stream, src io.ReadCloser, emit LineFunc) *LineReader {
	return &LineReader{
		process: process,
		stream:  stream,
		src:     src,
		emit:    emit,
		done:    make(chan struct{}),
	}
}

// Run reads until end-of-stream, an error, or Interrupt.
func (r *LineReader) Run() {
	defer close(r.done)
	defer r.src.Close()

	br := bufio.NewReaderSize(r.src, readBufferSize)
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			r.send(Line{Text: strings.TrimRight(text, "\r\n")})
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			r.send(Line{EOF: true})
		} else {
			r.send(Line{Err: err})
		}
		return
	}
}

func (r *LineReader) send(l Line) {
	if r.interrupted.Load() {
		return
	}
	l.Process = r.process
	l.Stream = r.stream
	r.emit(l)
}

// Interrupt stops the reader. Pending reads are unblocked by closing the source.
func (r *LineReader) Interrupt() {
	if r.interrupted.Swap(true) {
		return
	}
	_ = r.src.Close()
}

// Done is closed when Run has returned.
func (r *LineReader) Done() <-chan struct{} {
	return r.done
}
