// Package stream holds generic, context-aware channel pipeline stages.
// Every stage owns and closes its output channel, and returns as soon as
// its context is done.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"
)

// Slice, et al., taken from:
// https://betterprogramming.pub/writing-a-stream-api-in-go-afbc3c4350e2

func Slice[T any](ctx context.Context, in []T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for _, element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

// Lines reads JSON values (one per line, or simply concatenated) from in
// and sends each raw value. Reading stops at EOF or on the first syntax error,
// which is sent on the returned error channel.
func Lines(ctx context.Context, in io.Reader) (<-chan []byte, <-chan error) {
	out := make(chan []byte)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)
		dec := json.NewDecoder(in)
		for {
			msg := json.RawMessage{}
			if err := dec.Decode(&msg); err != nil {
				if !errors.Is(err, io.EOF) {
					errs <- err
				}
				return
			}
			select {
			case <-ctx.Done():
				return
			case out <- msg:
			}
		}
	}()
	return out, errs
}

// MaxLineSize is the longest line ScanLines accepts.
const MaxLineSize = 1 << 20

// ScanLines sends each non-blank line of in, without its newline.
// Lines are not parsed, so one corrupt line does not end the stream.
// Reading stops at EOF or on a read error (eg. a line over MaxLineSize),
// which is sent on the returned error channel.
func ScanLines(ctx context.Context, in io.Reader) (<-chan []byte, <-chan error) {
	out := make(chan []byte)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			// The scanner reuses its buffer.
			select {
			case <-ctx.Done():
				return
			case out <- bytes.Clone(line):
			}
		}
		if err := scanner.Err(); err != nil {
			errs <- err
		}
	}()
	return out, errs
}

func Filter[T any](ctx context.Context, predicate func(T) bool, in <-chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for element := range in {
			if !predicate(element) {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

func Transform[I any, O any](ctx context.Context, transformer func(I) O, in <-chan I) <-chan O {
	out := make(chan O)
	go func() {
		defer close(out)
		for element := range in {
			select {
			case <-ctx.Done():
				return
			case out <- transformer(element):
			}
		}
	}()
	return out
}

// TransformOK is Transform for fallible transformers; elements for which
// the transformer returns false are dropped.
func TransformOK[I any, O any](ctx context.Context, transformer func(I) (O, bool), in <-chan I) <-chan O {
	out := make(chan O)
	go func() {
		defer close(out)
		for element := range in {
			o, ok := transformer(element)
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case out <- o:
			}
		}
	}()
	return out
}

// Paced delays each element so that elements are sent with the spacing of
// their timestamps, divided by speedup. A speedup <= 0 disables pacing.
// Timestamps going backwards are sent without delay.
func Paced[T any](ctx context.Context, timeOf func(T) time.Time, speedup float64, in <-chan T) <-chan T {
	if speedup <= 0 {
		return in
	}
	out := make(chan T)
	go func() {
		defer close(out)
		var last time.Time
		for element := range in {
			at := timeOf(element)
			if !last.IsZero() {
				if wait := time.Duration(float64(at.Sub(last)) / speedup); wait > 0 {
					timer := time.NewTimer(wait)
					select {
					case <-ctx.Done():
						timer.Stop()
						return
					case <-timer.C:
					}
				}
			}
			last = at
			select {
			case <-ctx.Done():
				return
			case out <- element:
			}
		}
	}()
	return out
}

func Collect[T any](ctx context.Context, in <-chan T) []T {
	out := make([]T, 0)
	for element := range in {
		select {
		case <-ctx.Done():
			return out
		default:
			out = append(out, element)
		}
	}
	return out
}
