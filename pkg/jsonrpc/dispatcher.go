package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/errors"
	"github.com/taskmill/taskmill-go/pkg/telemetry"
)

// HandlerFunc serves one request/response method.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError)

// StreamHandlerFunc serves a streaming method.  The handler owns the sink
// for the rest of the exchange and is responsible for closing it.
type StreamHandlerFunc func(ctx context.Context, params json.RawMessage, sink a2a.EventSink)

/*
Dispatcher maps method names onto registered handlers and converts every
outcome into a response envelope.  Handler failures never escape as raw
errors; they always come back as the JSON-RPC error shape.
*/
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	streams  map[string]StreamHandlerFunc
	metrics  *telemetry.Metrics
}

type Option func(*Dispatcher)

// WithMetrics wires prometheus counters into the dispatch path.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		streams:  make(map[string]StreamHandlerFunc),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Dispatcher) Register(method string, handler HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[method] = handler
}

func (d *Dispatcher) RegisterStream(method string, handler StreamHandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.streams[method] = handler
}

// IsStream reports whether a method was registered as streaming.
func (d *Dispatcher) IsStream(method string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, ok := d.streams[method]
	return ok
}

// Dispatch routes one request to its handler and wraps the outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	method, rpcErr := d.validate(req)

	if rpcErr != nil {
		d.record(method, rpcErr)
		return NewErrorResponse(req.NormalizedID(), rpcErr)
	}

	d.mu.RLock()
	handler, ok := d.handlers[method]
	_, isStream := d.streams[method]
	d.mu.RUnlock()

	if !ok {
		if isStream {
			rpcErr = errors.ErrInvalidRequest.WithMessagef(
				"method %s requires a streaming transport", method,
			)
		} else {
			rpcErr = errors.ErrMethodNotFound.WithMessagef("method %s not found", method)
		}

		d.record(method, rpcErr)
		return NewErrorResponse(req.NormalizedID(), rpcErr)
	}

	result, rpcErr := handler(ctx, req.Params)

	d.record(method, rpcErr)

	if rpcErr != nil {
		log.Error("rpc handler failed", "method", method, "code", rpcErr.Code, "message", rpcErr.Message)
		return NewErrorResponse(req.NormalizedID(), rpcErr)
	}

	return NewResponse(req.NormalizedID(), result)
}

/*
DispatchBatch runs the requests concurrently and returns their responses in
input order.  Completion order of the underlying work is irrelevant; only
the result-to-request pairing is guaranteed.
*/
func (d *Dispatcher) DispatchBatch(ctx context.Context, reqs []Request) []Response {
	responses := make([]Response, len(reqs))
	group, ctx := errgroup.WithContext(ctx)

	for i, req := range reqs {
		group.Go(func() error {
			responses[i] = d.Dispatch(ctx, req)
			return nil
		})
	}

	_ = group.Wait()

	return responses
}

/*
DispatchStream routes a request to its streaming handler.  Validation
failures are written to the sink as a single error event followed by a
close, mirroring the envelope path.
*/
func (d *Dispatcher) DispatchStream(ctx context.Context, req Request, sink a2a.EventSink) {
	method, rpcErr := d.validate(req)

	if rpcErr != nil {
		d.record(method, rpcErr)
		_ = sink.WriteError(rpcErr.Code, rpcErr.Message, rpcErr.Data)
		_ = sink.Close()
		return
	}

	d.mu.RLock()
	handler, ok := d.streams[method]
	d.mu.RUnlock()

	if !ok {
		rpcErr = errors.ErrMethodNotFound.WithMessagef("method %s not found", method)
		d.record(method, rpcErr)
		_ = sink.WriteError(rpcErr.Code, rpcErr.Message, rpcErr.Data)
		_ = sink.Close()
		return
	}

	d.record(method, nil)
	handler(ctx, req.Params, sink)
}

func (d *Dispatcher) validate(req Request) (string, *errors.RpcError) {
	if req.JSONRPC != Version {
		return "", errors.ErrInvalidRequest.WithMessagef("Invalid JSON-RPC version")
	}

	return req.MethodName()
}

func (d *Dispatcher) record(method string, rpcErr *errors.RpcError) {
	if d.metrics == nil {
		return
	}

	d.metrics.RecordRequest(method)

	if rpcErr != nil {
		d.metrics.RecordError(method, rpcErr.Code)
	}
}

/*
Parse splits a raw HTTP body into its requests, reporting whether it was a
batch.  An empty body or undecodable JSON yields the appropriate reserved
error.
*/
func Parse(body []byte) ([]Request, bool, *errors.RpcError) {
	body = bytes.TrimSpace(body)

	if len(body) == 0 {
		return nil, false, errors.ErrInvalidRequest
	}

	// Support batch requests if the first byte is '['
	if body[0] == '[' {
		var batch []Request

		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, false, errors.ErrParseError
		}

		return batch, true, nil
	}

	var req Request

	if err := json.Unmarshal(body, &req); err != nil {
		return nil, false, errors.ErrParseError
	}

	return []Request{req}, false, nil
}
