package sse

// An EventSink implementation that writes protocol envelopes as Server-Sent
// Events on a live HTTP response.  Each event is one single-line SSE message
// of the form:
//
//	data: {json}\n\n
//
// The sink tracks the request context: once the client disconnects IsOpen
// reports false and producers stop asking for output.

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/errors"
	"github.com/taskmill/taskmill-go/pkg/jsonrpc"
)

type Sink struct {
	mu        sync.Mutex
	w         http.ResponseWriter
	flusher   http.Flusher
	ctx       context.Context
	requestID json.RawMessage
	closed    bool
}

// NewSink prepares the response for event streaming.  The request id is
// echoed into every event envelope.
func NewSink(w http.ResponseWriter, r *http.Request, requestID json.RawMessage) (*Sink, error) {
	flusher, ok := w.(http.Flusher)

	if !ok {
		return nil, errors.ErrInternal.WithMessagef("streaming unsupported by transport")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &Sink{
		w:         w,
		flusher:   flusher,
		ctx:       r.Context(),
		requestID: requestID,
	}, nil
}

func (sink *Sink) WriteStatus(taskID string, status a2a.TaskStatus, final bool) error {
	return sink.write(jsonrpc.NewResponse(sink.requestID, a2a.TaskStatusUpdateEvent{
		ID:     taskID,
		Status: status,
		Final:  final,
	}))
}

func (sink *Sink) WriteArtifact(taskID string, artifact a2a.Artifact) error {
	return sink.write(jsonrpc.NewResponse(sink.requestID, a2a.TaskArtifactUpdateEvent{
		ID:       taskID,
		Artifact: artifact,
	}))
}

func (sink *Sink) WriteError(code int, message string, data any) error {
	return sink.write(jsonrpc.NewErrorResponse(sink.requestID, &errors.RpcError{
		Code:    code,
		Message: message,
		Data:    data,
	}))
}

// IsOpen reports whether the client is still connected and the sink has not
// been closed by the producer side.
func (sink *Sink) IsOpen() bool {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	return !sink.closed && sink.ctx.Err() == nil
}

// Close marks the stream finished.  Idempotent; the HTTP connection itself
// ends when the handler returns.
func (sink *Sink) Close() error {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	sink.closed = true
	return nil
}

func (sink *Sink) write(envelope jsonrpc.Response) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	if sink.closed || sink.ctx.Err() != nil {
		// client gone – drop the event, producers notice via IsOpen.
		return nil
	}

	msg, err := json.Marshal(envelope)

	if err != nil {
		log.Error("failed to marshal stream event", "error", err)
		return err
	}

	if _, err := sink.w.Write([]byte("data: ")); err != nil {
		return err
	}

	if _, err := sink.w.Write(msg); err != nil {
		return err
	}

	if _, err := sink.w.Write([]byte("\n\n")); err != nil {
		return err
	}

	sink.flusher.Flush()

	return nil
}
