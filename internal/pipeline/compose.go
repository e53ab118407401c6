package pipeline

import (
	"github.com/albedosehen/dawn/internal/envelope"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
)

type pair struct {
	first  Handler
	second Handler
}

// Pair runs first, with second standing between first and the outer next.
func Pair(first, second Handler) Handler {
	if first == nil || second == nil {
		panic(dawnerrors.New(dawnerrors.ErrCodeInvalidHandler, "pair requires two non-nil handlers"))
	}
	return pair{first: first, second: second}
}

func (p pair) Run(req *envelope.Request, next Next) (*envelope.Request, error) {
	return p.first.Run(req, pairNext{second: p.second, next: next})
}

type pairNext struct {
	second Handler
	next   Next
}

func (n pairNext) Run(req *envelope.Request) (*envelope.Request, error) {
	return n.second.Run(req, n.next)
}

// Compose nests handlers so that the first one is outermost. It panics when
// called with no handlers.
func Compose(handlers ...Handler) Handler {
	if len(handlers) == 0 {
		panic(dawnerrors.New(dawnerrors.ErrCodeInvalidHandler, "compose requires at least one handler"))
	}

	h := handlers[len(handlers)-1]
	if h == nil {
		panic(dawnerrors.New(dawnerrors.ErrCodeInvalidHandler, "compose received a nil handler"))
	}
	for i := len(handlers) - 2; i >= 0; i-- {
		h = Pair(handlers[i], h)
	}
	return h
}

// List is a runtime-length sequence of handlers of one type, run in order.
// An empty List delegates straight to next.
type List[H Handler] []H

func (l List[H]) Run(req *envelope.Request, next Next) (*envelope.Request, error) {
	return sliceNext[H]{handlers: l, next: next}.Run(req)
}

type sliceNext[H Handler] struct {
	handlers []H
	next     Next
}

func (s sliceNext[H]) Run(req *envelope.Request) (*envelope.Request, error) {
	if len(s.handlers) == 0 {
		return s.next.Run(req)
	}
	rest := sliceNext[H]{handlers: s.handlers[1:], next: s.next}
	return s.handlers[0].Run(req, rest)
}
