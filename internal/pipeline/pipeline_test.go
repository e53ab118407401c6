package pipeline

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albedosehen/dawn/internal/envelope"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
)

type trace struct {
	events []string
}

// tracer records entry and exit around next.
func (tr *trace) tracer(name string) Handler {
	return HandlerFunc(func(req *envelope.Request, next Next) (*envelope.Request, error) {
		tr.events = append(tr.events, name+">")
		out, err := next.Run(req)
		tr.events = append(tr.events, "<"+name)
		return out, err
	})
}

// stopper answers without calling next.
func (tr *trace) stopper(name string) Handler {
	return EndpointFunc(func(req *envelope.Request) (*envelope.Request, error) {
		tr.events = append(tr.events, name)
		req.SetResponse(envelope.Text(http.StatusOK, name))
		return req, nil
	})
}

func (tr *trace) next() Next {
	return NextFunc(func(req *envelope.Request) (*envelope.Request, error) {
		tr.events = append(tr.events, "next")
		return req, nil
	})
}

func newRequest() *envelope.Request {
	return envelope.NewRequest(httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestCompose_OnionOrder(t *testing.T) {
	tr := &trace{}
	h := Compose(tr.tracer("A"), tr.tracer("B"), tr.tracer("C"))

	req := newRequest()
	out, err := h.Run(req, tr.next())

	require.NoError(t, err)
	assert.Same(t, req, out)
	assert.Equal(t, []string{"A>", "B>", "C>", "next", "<C", "<B", "<A"}, tr.events)
}

func TestCompose_ShortCircuit(t *testing.T) {
	tr := &trace{}
	h := Compose(tr.tracer("A"), tr.stopper("B"), tr.tracer("C"))

	out, err := h.Run(newRequest(), tr.next())

	require.NoError(t, err)
	assert.Equal(t, []string{"A>", "B", "<A"}, tr.events)
	assert.Equal(t, "B", string(out.Response().Body))
}

func TestCompose_Single(t *testing.T) {
	tr := &trace{}
	only := tr.tracer("A")

	h := Compose(only)

	_, err := h.Run(newRequest(), tr.next())
	require.NoError(t, err)
	assert.Equal(t, []string{"A>", "next", "<A"}, tr.events)
}

func TestCompose_Empty_Panics(t *testing.T) {
	assert.PanicsWithError(t, "compose requires at least one handler", func() {
		Compose()
	})
}

func TestPair_Nil_Panics(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		code, _ := dawnerrors.CodeOf(err)
		assert.Equal(t, dawnerrors.ErrCodeInvalidHandler, code)
	}()
	Pair(nil, HandlerFunc(nil))
}

func TestPair_Nesting(t *testing.T) {
	tr := &trace{}
	h := Pair(Pair(tr.tracer("A"), tr.tracer("B")), tr.tracer("C"))

	_, err := h.Run(newRequest(), tr.next())

	require.NoError(t, err)
	assert.Equal(t, []string{"A>", "B>", "C>", "next", "<C", "<B", "<A"}, tr.events)
}

func TestList(t *testing.T) {
	tests := []struct {
		name  string
		build func(tr *trace) List[Handler]
		want  []string
	}{
		{
			name:  "List_Empty",
			build: func(tr *trace) List[Handler] { return nil },
			want:  []string{"next"},
		},
		{
			name: "List_OnionOrder",
			build: func(tr *trace) List[Handler] {
				return List[Handler]{tr.tracer("A"), tr.tracer("B"), tr.tracer("C")}
			},
			want: []string{"A>", "B>", "C>", "next", "<C", "<B", "<A"},
		},
		{
			name: "List_ShortCircuit",
			build: func(tr *trace) List[Handler] {
				return List[Handler]{tr.tracer("A"), tr.stopper("B"), tr.tracer("C")}
			},
			want: []string{"A>", "B", "<A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &trace{}

			_, err := tt.build(tr).Run(newRequest(), tr.next())

			require.NoError(t, err)
			assert.Equal(t, tt.want, tr.events)
		})
	}
}

func TestList_Homogeneous(t *testing.T) {
	var hits int
	counter := HandlerFunc(func(req *envelope.Request, next Next) (*envelope.Request, error) {
		hits++
		return next.Run(req)
	})

	l := List[HandlerFunc]{counter, counter, counter}
	_, err := Execute(l, newRequest())

	require.NoError(t, err)
	assert.Equal(t, 3, hits)
}

func TestList_ErrorPropagates(t *testing.T) {
	tr := &trace{}
	boom := errors.New("boom")
	failing := EndpointFunc(func(req *envelope.Request) (*envelope.Request, error) {
		return req.Fail(boom)
	})

	req := newRequest()
	out, err := List[Handler]{tr.tracer("A"), failing}.Run(req, tr.next())

	assert.Nil(t, out)
	assert.ErrorIs(t, err, boom)
	got, ok := envelope.SplitError(err)
	require.True(t, ok)
	assert.Same(t, req, got)
	assert.Equal(t, []string{"A>", "<A"}, tr.events)
}

func TestChain_Immutable(t *testing.T) {
	tr := &trace{}
	base := NewChain(tr.tracer("A"))

	extended := base.Use(tr.tracer("B"))
	other := base.Append(tr.tracer("C"))

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, extended.Len())
	assert.Equal(t, 2, other.Len())

	_, err := extended.Then(tr.stopper("end")).Run(newRequest(), tr.next())
	require.NoError(t, err)
	assert.Equal(t, []string{"A>", "B>", "end", "<B", "<A"}, tr.events)
}

func TestChain_HandlerFallsThrough(t *testing.T) {
	tr := &trace{}
	h := NewChain(tr.tracer("A")).Handler()

	_, err := h.Run(newRequest(), tr.next())

	require.NoError(t, err)
	assert.Equal(t, []string{"A>", "next", "<A"}, tr.events)
}

func TestChain_ThenFunc(t *testing.T) {
	h := NewChain().ThenFunc(func(req *envelope.Request) (*envelope.Request, error) {
		req.SetResponse(envelope.Text(http.StatusAccepted, "ok"))
		return req, nil
	})

	out, err := Execute(h, newRequest())

	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, out.Response().Status)
}

func TestIdentity(t *testing.T) {
	req := newRequest()
	out, err := Identity.Run(req)

	require.NoError(t, err)
	assert.Same(t, req, out)
	assert.Nil(t, out.Response())
}

func TestHTTP_Adapter(t *testing.T) {
	h := HTTP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-From", "net/http")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("created"))
	}))

	tr := &trace{}
	out, err := h.Run(newRequest(), tr.next())

	require.NoError(t, err)
	assert.Empty(t, tr.events)
	res := out.Response()
	require.NotNil(t, res)
	assert.Equal(t, http.StatusCreated, res.Status)
	assert.Equal(t, "net/http", res.Header.Get("X-From"))
	assert.Equal(t, "created", string(res.Body))
}

type namedHandler struct{ EndpointFunc }

func (namedHandler) Name() string { return "named" }

func TestName(t *testing.T) {
	assert.Equal(t, "named", Name(namedHandler{}))
	assert.Equal(t, "pipeline.HandlerFunc", Name(HandlerFunc(nil)))
}
