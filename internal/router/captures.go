package router

// Capture is one named parameter captured from a request path.
type Capture struct {
	Name  string
	Value string
}

// Captures holds what a route match extracted from the path. It is a value
// type and is never modified after the router stores it.
type Captures struct {
	params        []Capture
	wildcard      string
	wildcardName  string
	wildcardStart int
	hasWildcard   bool
}

// Get returns the value captured under name. A named wildcard is reported
// like a parameter.
func (c Captures) Get(name string) (string, bool) {
	for i := len(c.params) - 1; i >= 0; i-- {
		if c.params[i].Name == name {
			return c.params[i].Value, true
		}
	}
	if c.hasWildcard && c.wildcardName != "" && c.wildcardName == name {
		return c.wildcard, true
	}
	return "", false
}

// Params returns the named parameters as a fresh map.
func (c Captures) Params() map[string]string {
	out := make(map[string]string, len(c.params))
	for _, p := range c.params {
		out[p.Name] = p.Value
	}
	return out
}

// List returns the parameters in path order.
func (c Captures) List() []Capture {
	return append([]Capture(nil), c.params...)
}

// Wildcard returns the text matched by a trailing wildcard.
func (c Captures) Wildcard() (string, bool) {
	return c.wildcard, c.hasWildcard
}

// WildcardStart returns the byte offset in the full request path where the
// wildcard text begins.
func (c Captures) WildcardStart() (int, bool) {
	return c.wildcardStart, c.hasWildcard
}

// Len is the number of named parameters.
func (c Captures) Len() int {
	return len(c.params)
}

// inherit returns c with the parameters of outer that c does not redefine
// placed in front.
func (c Captures) inherit(outer Captures) Captures {
	if len(outer.params) == 0 {
		return c
	}

	merged := make([]Capture, 0, len(outer.params)+len(c.params))
	for _, p := range outer.params {
		if _, shadowed := c.own(p.Name); !shadowed {
			merged = append(merged, p)
		}
	}
	merged = append(merged, c.params...)

	c.params = merged
	return c
}

func (c Captures) own(name string) (string, bool) {
	for _, p := range c.params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}
