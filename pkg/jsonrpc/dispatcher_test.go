package jsonrpc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/errors"
)

func rawRequest(t *testing.T, body string) Request {
	t.Helper()

	var req Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	return req
}

func TestDispatchEcho(t *testing.T) {
	d := NewDispatcher()
	d.Register("echo", func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
		var v string
		if err := json.Unmarshal(params, &v); err != nil {
			return nil, errors.ErrInvalidParams
		}
		return v, nil
	})

	resp := d.Dispatch(context.Background(), rawRequest(t,
		`{"jsonrpc":"2.0","id":1,"method":"echo","params":"hello"}`))

	assert.Equal(t, Version, resp.JSONRPC)
	assert.Equal(t, json.RawMessage("1"), resp.ID)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "hello", resp.Result)
}

func TestDispatchRejectsWrongVersion(t *testing.T) {
	called := false
	d := NewDispatcher()
	d.Register("echo", func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
		called = true
		return nil, nil
	})

	resp := d.Dispatch(context.Background(), rawRequest(t,
		`{"jsonrpc":"1.0","id":1,"method":"echo"}`))

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32600, resp.Error.Code)
	assert.Equal(t, "Invalid JSON-RPC version", resp.Error.Message)
	assert.False(t, called)
}

func TestDispatchRejectsNonStringMethod(t *testing.T) {
	d := NewDispatcher()

	resp := d.Dispatch(context.Background(), rawRequest(t,
		`{"jsonrpc":"2.0","id":1,"method":42}`))

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32600, resp.Error.Code)
	assert.Equal(t, "Method must be a string", resp.Error.Message)
}

func TestDispatchMethodNotFound(t *testing.T) {
	d := NewDispatcher()

	resp := d.Dispatch(context.Background(), rawRequest(t,
		`{"jsonrpc":"2.0","id":1,"method":"does.not.exist"}`))

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32601, resp.Error.Code)
	assert.Equal(t, "method does.not.exist not found", resp.Error.Message)
}

func TestDispatchMissingIDEchoesNull(t *testing.T) {
	d := NewDispatcher()
	d.Register("ping", func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
		return "pong", nil
	})

	resp := d.Dispatch(context.Background(), rawRequest(t,
		`{"jsonrpc":"2.0","method":"ping"}`))

	assert.Equal(t, json.RawMessage("null"), resp.ID)
	assert.Equal(t, "pong", resp.Result)
}

func TestDispatchHandlerError(t *testing.T) {
	d := NewDispatcher()
	d.Register("fail", func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
		return nil, &errors.RpcError{Code: 123, Message: "boom"}
	})

	resp := d.Dispatch(context.Background(), rawRequest(t,
		`{"jsonrpc":"2.0","id":7,"method":"fail"}`))

	require.NotNil(t, resp.Error)
	assert.Equal(t, 123, resp.Error.Code)
	assert.Equal(t, "boom", resp.Error.Message)
	assert.Nil(t, resp.Result)
}

func TestDispatchStreamingMethodOnEnvelopePath(t *testing.T) {
	d := NewDispatcher()
	d.RegisterStream("subscribe", func(ctx context.Context, params json.RawMessage, sink a2a.EventSink) {})

	resp := d.Dispatch(context.Background(), rawRequest(t,
		`{"jsonrpc":"2.0","id":1,"method":"subscribe"}`))

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32600, resp.Error.Code)
	assert.Equal(t, "method subscribe requires a streaming transport", resp.Error.Message)
}

func TestDispatchBatchKeepsInputOrder(t *testing.T) {
	d := NewDispatcher()
	d.Register("delay", func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
		var ms int
		if err := json.Unmarshal(params, &ms); err != nil {
			return nil, errors.ErrInvalidParams
		}
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return ms, nil
	})

	// The earliest request finishes last; responses still come back in
	// input order.
	reqs := []Request{
		rawRequest(t, `{"jsonrpc":"2.0","id":1,"method":"delay","params":30}`),
		rawRequest(t, `{"jsonrpc":"2.0","id":2,"method":"delay","params":10}`),
		rawRequest(t, `{"jsonrpc":"2.0","id":3,"method":"missing"}`),
	}

	responses := d.DispatchBatch(context.Background(), reqs)

	require.Len(t, responses, 3)
	assert.Equal(t, json.RawMessage("1"), responses[0].ID)
	assert.Equal(t, 30, responses[0].Result)
	assert.Equal(t, json.RawMessage("2"), responses[1].ID)
	assert.Equal(t, 10, responses[1].Result)
	require.NotNil(t, responses[2].Error)
	assert.Equal(t, -32601, responses[2].Error.Code)
}

func TestDispatchBatchIsConcurrent(t *testing.T) {
	d := NewDispatcher()

	gate := make(chan struct{})
	d.Register("rendezvous", func(ctx context.Context, params json.RawMessage) (any, *errors.RpcError) {
		// Both handlers must be in flight at once for either to finish.
		select {
		case gate <- struct{}{}:
		case <-gate:
		}
		return "ok", nil
	})

	reqs := []Request{
		rawRequest(t, `{"jsonrpc":"2.0","id":1,"method":"rendezvous"}`),
		rawRequest(t, `{"jsonrpc":"2.0","id":2,"method":"rendezvous"}`),
	}

	done := make(chan []Response, 1)
	go func() {
		done <- d.DispatchBatch(context.Background(), reqs)
	}()

	select {
	case responses := <-done:
		require.Len(t, responses, 2)
		assert.Equal(t, "ok", responses[0].Result)
		assert.Equal(t, "ok", responses[1].Result)
	case <-time.After(5 * time.Second):
		t.Fatal("batch did not dispatch concurrently")
	}
}

type nullSink struct {
	errors []int
	closes int
}

func (sink *nullSink) WriteStatus(string, a2a.TaskStatus, bool) error { return nil }
func (sink *nullSink) WriteArtifact(string, a2a.Artifact) error { return nil }
func (sink *nullSink) WriteError(code int, message string, data any) error {
	sink.errors = append(sink.errors, code)
	return nil
}
func (sink *nullSink) IsOpen() bool { return true }
func (sink *nullSink) Close() error {
	sink.closes++
	return nil
}

func TestDispatchStream(t *testing.T) {
	d := NewDispatcher()

	handled := false
	d.RegisterStream("subscribe", func(ctx context.Context, params json.RawMessage, sink a2a.EventSink) {
		handled = true
		_ = sink.Close()
	})

	sink := &nullSink{}
	d.DispatchStream(context.Background(), rawRequest(t,
		`{"jsonrpc":"2.0","id":1,"method":"subscribe"}`), sink)

	assert.True(t, handled)
	assert.Equal(t, 1, sink.closes)
}

func TestDispatchStreamValidationError(t *testing.T) {
	d := NewDispatcher()

	sink := &nullSink{}
	d.DispatchStream(context.Background(), rawRequest(t,
		`{"jsonrpc":"1.0","id":1,"method":"subscribe"}`), sink)

	require.Len(t, sink.errors, 1)
	assert.Equal(t, -32600, sink.errors[0])
	assert.Equal(t, 1, sink.closes)
}

func TestDispatchStreamUnknownMethod(t *testing.T) {
	d := NewDispatcher()

	sink := &nullSink{}
	d.DispatchStream(context.Background(), rawRequest(t,
		`{"jsonrpc":"2.0","id":1,"method":"missing"}`), sink)

	require.Len(t, sink.errors, 1)
	assert.Equal(t, -32601, sink.errors[0])
	assert.Equal(t, 1, sink.closes)
}

func TestParse(t *testing.T) {
	reqs, batch, rpcErr := Parse([]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	require.Nil(t, rpcErr)
	assert.False(t, batch)
	require.Len(t, reqs, 1)

	reqs, batch, rpcErr = Parse([]byte(`[{"jsonrpc":"2.0","id":1,"method":"a"},{"jsonrpc":"2.0","id":2,"method":"b"}]`))
	require.Nil(t, rpcErr)
	assert.True(t, batch)
	assert.Len(t, reqs, 2)

	_, _, rpcErr = Parse(nil)
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32600, rpcErr.Code)

	_, _, rpcErr = Parse([]byte("{not json"))
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32700, rpcErr.Code)

	_, _, rpcErr = Parse([]byte("[{not json"))
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32700, rpcErr.Code)
}

func TestNewRequestRoundTrip(t *testing.T) {
	req, err := NewRequest(json.RawMessage(`"abc"`), "tasks/send", map[string]any{"id": "t1"})
	require.NoError(t, err)

	name, rpcErr := req.MethodName()
	require.Nil(t, rpcErr)
	assert.Equal(t, "tasks/send", name)
	assert.Equal(t, Version, req.JSONRPC)

	encoded, err := json.Marshal(req)
	require.NoError(t, err)
	assert.Equal(t, rawRequest(t, string(encoded)), req)
}

func TestResponseEnvelopes(t *testing.T) {
	resp := NewResponse(nil, "ok")
	assert.Equal(t, json.RawMessage("null"), resp.ID)

	errResp := NewErrorResponse(json.RawMessage("5"), nil)
	require.NotNil(t, errResp.Error)
	assert.Equal(t, -32603, errResp.Error.Code)
	assert.Equal(t, json.RawMessage("5"), errResp.ID)
}
