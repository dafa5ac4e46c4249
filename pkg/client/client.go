package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	fiberClient "github.com/gofiber/fiber/v3/client"
	"github.com/google/uuid"

	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/jsonrpc"
)

/*
Client speaks the task protocol against a remote server.
*/
type Client struct {
	baseURL string
	conn    *fiberClient.Client
}

/*
NewClient creates a new protocol client.
*/
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		conn:    fiberClient.New().SetBaseURL(baseURL),
	}
}

func newRequestID() json.RawMessage {
	id, _ := json.Marshal(uuid.NewString())
	return id
}

/*
doRequest sends one JSON-RPC request and decodes the response envelope.
*/
func (client *Client) doRequest(method string, params any) (jsonrpc.Response, error) {
	req, err := jsonrpc.NewRequest(newRequestID(), method, params)

	if err != nil {
		return jsonrpc.Response{}, err
	}

	res, err := client.conn.Post(
		"/rpc",
		fiberClient.Config{
			Header: map[string]string{
				"Content-Type": "application/json",
			},
			Body: req,
		},
	)

	if err != nil {
		return jsonrpc.Response{}, err
	}

	var resp jsonrpc.Response

	if err := json.Unmarshal(res.Body(), &resp); err != nil {
		log.Error("failed to decode rpc response", "method", method, "error", err)
		return jsonrpc.Response{}, err
	}

	return resp, nil
}

// decodeTask re-decodes a response result into a Task.
func decodeTask(resp jsonrpc.Response) (*a2a.Task, error) {
	if resp.Error != nil {
		return nil, resp.Error
	}

	buf, err := json.Marshal(resp.Result)

	if err != nil {
		return nil, err
	}

	var task a2a.Task

	if err := json.Unmarshal(buf, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

/*
SendTask sends a task message to the agent and waits for the settled task.
*/
func (client *Client) SendTask(params a2a.TaskSendParams) (*a2a.Task, error) {
	resp, err := client.doRequest("tasks/send", params)

	if err != nil {
		return nil, err
	}

	return decodeTask(resp)
}

/*
GetTask retrieves the current state of a task.
*/
func (client *Client) GetTask(params a2a.TaskQueryParams) (*a2a.Task, error) {
	resp, err := client.doRequest("tasks/get", params)

	if err != nil {
		return nil, err
	}

	return decodeTask(resp)
}

/*
CancelTask cancels a task.
*/
func (client *Client) CancelTask(params a2a.TaskIDParams) (*a2a.Task, error) {
	resp, err := client.doRequest("tasks/cancel", params)

	if err != nil {
		return nil, err
	}

	return decodeTask(resp)
}

/*
StreamEvent is one decoded sendSubscribe event: exactly one of Status or
Artifact is set unless the stream failed, in which case Err carries the
protocol error.
*/
type StreamEvent struct {
	Status   *a2a.TaskStatusUpdateEvent
	Artifact *a2a.TaskArtifactUpdateEvent
	Err      error
}

/*
SendTaskStreaming sends a task message and forwards the decoded event
stream until the final status event or the context ends.  The events
channel is closed when the stream terminates.
*/
func (client *Client) SendTaskStreaming(ctx context.Context, params a2a.TaskSendParams, events chan<- StreamEvent) error {
	defer close(events)

	req, err := jsonrpc.NewRequest(newRequestID(), "tasks/sendSubscribe", params)

	if err != nil {
		return err
	}

	res, err := client.conn.Post(
		"/rpc",
		fiberClient.Config{
			Header: map[string]string{
				"Content-Type": "application/json",
				"Accept":       "text/event-stream",
			},
			Body: req,
		},
	)

	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(bytes.NewReader(res.Body()))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		event, err := decodeStreamEvent([]byte(strings.TrimPrefix(line, "data: ")))

		if err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}

		if event.Err != nil {
			return event.Err
		}
	}

	return scanner.Err()
}

func decodeStreamEvent(data []byte) (StreamEvent, error) {
	var envelope struct {
		jsonrpc.Response
		Result json.RawMessage `json:"result,omitempty"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return StreamEvent{}, err
	}

	if envelope.Response.Error != nil {
		return StreamEvent{Err: envelope.Response.Error}, nil
	}

	// Status events always carry a state; artifact events never do.
	var status a2a.TaskStatusUpdateEvent

	if err := json.Unmarshal(envelope.Result, &status); err == nil && status.Status.State != "" {
		return StreamEvent{Status: &status}, nil
	}

	var artifact a2a.TaskArtifactUpdateEvent

	if err := json.Unmarshal(envelope.Result, &artifact); err != nil {
		return StreamEvent{}, err
	}

	return StreamEvent{Artifact: &artifact}, nil
}
