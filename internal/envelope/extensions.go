package envelope

// typeKey is the map key for values of type T. Each instantiation is a
// distinct comparable type, so keys never collide across types.
type typeKey[T any] struct{}

// Extensions is a type-keyed store holding at most one value per type.
// The zero value is ready to use.
type Extensions struct {
	values map[any]any
}

func (e *Extensions) Len() int {
	return len(e.values)
}

// Get returns the value of type T.
func Get[T any](e *Extensions) (T, bool) {
	v, ok := e.values[typeKey[T]{}]
	if !ok {
		var zero T
		return zero, false
	}
	// A nil interface value stored under an interface type asserts to zero.
	t, _ := v.(T)
	return t, true
}

// Set stores v, replacing and returning any previous value of type T.
func Set[T any](e *Extensions, v T) (T, bool) {
	if e.values == nil {
		e.values = make(map[any]any)
	}

	prev, had := Get[T](e)
	e.values[typeKey[T]{}] = v
	return prev, had
}

// Take removes and returns the value of type T.
func Take[T any](e *Extensions) (T, bool) {
	v, ok := Get[T](e)
	if ok {
		delete(e.values, typeKey[T]{})
	}
	return v, ok
}
