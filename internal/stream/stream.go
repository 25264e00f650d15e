package stream

import (
	"context"
	"fmt"
	"iter"
	"strings"
)

// Sink consumes cleaned fragments in order.
type Sink interface {
	Accept(fragment string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(fragment string) error

func (f SinkFunc) Accept(fragment string) error {
	return f(fragment)
}

// Accumulator collects every fragment it receives.
type Accumulator struct {
	b strings.Builder
}

func (a *Accumulator) Accept(fragment string) error {
	a.b.WriteString(fragment)
	return nil
}

// String returns the concatenated fragments.
func (a *Accumulator) String() string {
	return a.b.String()
}

// Clean yields the cleaned, non-empty fragments of src and stops at its first error.
func Clean(src iter.Seq2[string, error], c *Cleaner) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for fragment, err := range src {
			if err != nil {
				yield("", err)
				return
			}
			if out := c.Push(fragment); out != "" {
				if !yield(out, nil) {
					return
				}
			}
		}
		if out := c.Flush(); out != "" {
			yield(out, nil)
		}
	}
}

// Pump drains src through c and hands each fragment to every sink in order.
// It returns nil only when the source completed and ctx is still live; on any
// error the caller must not persist what the sinks received.
func Pump(ctx context.Context, src iter.Seq2[string, error], c *Cleaner, sinks ...Sink) error {
	for fragment, err := range Clean(src, c) {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, sink := range sinks {
			if err := sink.Accept(fragment); err != nil {
				return fmt.Errorf("failed to deliver fragment: %w", err)
			}
		}
	}
	return ctx.Err()
}

// FromStrings is a finished source over fixed fragments.
func FromStrings(fragments ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, f := range fragments {
			if !yield(f, nil) {
				return
			}
		}
	}
}
