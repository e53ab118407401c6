// Package state injects shared application values into every request.
package state

import (
	"fmt"

	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// Cloner is implemented by values that need a deeper copy than assignment
// gives them, such as values holding maps or slices.
type Cloner[T any] interface {
	Clone() T
}

// State stores a copy of Value on each request it sees, then delegates to
// next. Handlers read it back with Get.
type State[T any] struct {
	Value T
}

// New returns a State handler for v.
func New[T any](v T) State[T] {
	return State[T]{Value: v}
}

func (s State[T]) Run(req *envelope.Request, next pipeline.Next) (*envelope.Request, error) {
	envelope.SetExt(req, clone(s.Value))
	return next.Run(req)
}

func (s State[T]) Name() string {
	return fmt.Sprintf("state(%T)", s.Value)
}

// Get returns the injected value of type T.
func Get[T any](req *envelope.Request) (T, bool) {
	return envelope.Ext[T](req)
}

func clone[T any](v T) T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone()
	}
	return v
}
