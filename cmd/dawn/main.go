package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/albedosehen/dawn/internal/di"
	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
	"github.com/albedosehen/dawn/internal/query"
	"github.com/albedosehen/dawn/internal/router"
	"github.com/albedosehen/dawn/internal/state"
)

type greeting struct {
	Salutation string
}

type searchParams struct {
	Term  string `query:"q"`
	Limit int    `query:"limit"`
}

func routes(r *router.Router) {
	r.Get("/", pipeline.EndpointFunc(func(req *envelope.Request) (*envelope.Request, error) {
		req.SetResponse(envelope.Text(http.StatusOK, "hello, world!"))
		return req, nil
	}))

	r.Get("/greet/:name", pipeline.NewChain(state.New(greeting{Salutation: "hello"})).ThenFunc(greet))

	r.Get("/search", pipeline.EndpointFunc(search))

	r.Get("/error", pipeline.EndpointFunc(func(req *envelope.Request) (*envelope.Request, error) {
		return req.Fail(errors.New("this is an error"))
	}))
}

func greet(req *envelope.Request) (*envelope.Request, error) {
	name, _ := router.Param(req, "name")
	g, _ := state.Get[greeting](req)

	req.SetResponse(envelope.Text(http.StatusOK, fmt.Sprintf("%s, %s!", g.Salutation, name)))
	return req, nil
}

func search(req *envelope.Request) (*envelope.Request, error) {
	params, err := query.Decode[searchParams](req)
	if err != nil {
		return req.Fail(err)
	}
	if params.Limit <= 0 {
		params.Limit = 10
	}

	res, err := envelope.JSON(http.StatusOK, map[string]any{
		"term":    params.Term,
		"limit":   params.Limit,
		"results": []string{},
	})
	if err != nil {
		return req.Fail(err)
	}
	req.SetResponse(res)
	return req, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := di.InitializeApplication(routes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	app.Logger.Info(ctx, "dawn is running",
		observability.Int("pid", os.Getpid()),
	)

	if err := app.Run(ctx); err != nil {
		cleanup()
		os.Exit(1)
	}
}
