// Package query decodes URL query strings into typed structs.
package query

import (
	"net/url"

	"github.com/go-viper/mapstructure/v2"

	"github.com/albedosehen/dawn/internal/envelope"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
)

// TagName is the struct tag naming query parameters.
const TagName = "query"

// Decode parses the request's query string into a T. Fields are matched by
// their `query` tag and scalar strings are weakly converted to the field
// type. A request with no query string at all fails with
// ErrCodeQueryMissing; "/path?" is present but empty and decodes to the zero
// value.
func Decode[T any](req *envelope.Request) (T, error) {
	var out T

	u := req.URL()
	if u.RawQuery == "" && !u.ForceQuery {
		return out, dawnerrors.New(dawnerrors.ErrCodeQueryMissing, "missing query string")
	}

	if err := DecodeString(u.RawQuery, &out); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeString decodes a raw query string into out, which must be a pointer.
func DecodeString(raw string, out any) error {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return dawnerrors.Wrap(dawnerrors.ErrCodeQueryInvalid, "failed to parse query string", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          TagName,
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
		),
	})
	if err != nil {
		return dawnerrors.Wrap(dawnerrors.ErrCodeQueryInvalid, "invalid query target", err)
	}

	if err := decoder.Decode(flatten(values)); err != nil {
		return dawnerrors.Wrap(dawnerrors.ErrCodeQueryInvalid, "failed to parse query string", err)
	}
	return nil
}

// flatten turns single-valued parameters into plain strings so they decode
// into scalar fields. Repeated parameters stay slices.
func flatten(values url.Values) map[string]any {
	m := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) == 1 {
			m[k] = v[0]
			continue
		}
		m[k] = v
	}
	return m
}
