package pipeline

// Chain is an immutable builder for handler lists. Every method returns a new
// Chain and leaves the receiver unchanged.
type Chain struct {
	handlers []Handler
}

func NewChain(handlers ...Handler) Chain {
	return Chain{handlers: append([]Handler{}, handlers...)}
}

// Use adds a handler innermost.
func (c Chain) Use(h Handler) Chain {
	return c.Append(h)
}

// Append extends the chain with additional handlers.
func (c Chain) Append(handlers ...Handler) Chain {
	combined := make([]Handler, len(c.handlers)+len(handlers))
	copy(combined, c.handlers)
	copy(combined[len(c.handlers):], handlers)

	return Chain{handlers: combined}
}

// Then terminates the chain with final.
func (c Chain) Then(final Handler) Handler {
	return c.Append(final).Handler()
}

// ThenFunc terminates the chain with an endpoint function.
func (c Chain) ThenFunc(final EndpointFunc) Handler {
	return c.Then(final)
}

// Handler returns the chain as a List. The result falls through to the
// outer next once every handler has called its own.
func (c Chain) Handler() Handler {
	return List[Handler](append([]Handler{}, c.handlers...))
}

func (c Chain) Len() int {
	return len(c.handlers)
}
