package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/jsonrpc"
)

func testRequest(t *testing.T, srv *Server, method, target, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.App().Test(req, fiber.TestConfig{Timeout: 10 * time.Second})
	require.NoError(t, err)

	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) jsonrpc.Response {
	t.Helper()

	var out jsonrpc.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))

	return out
}

func TestServerAgentCard(t *testing.T) {
	srv := NewServerWithDefaults("http://localhost:3210")

	resp := testRequest(t, srv, http.MethodGet, "/.well-known/agent.json", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var card a2a.AgentCard
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&card))

	assert.Equal(t, "Taskmill Agent", card.Name)
	assert.True(t, card.Capabilities.Streaming)
	require.Len(t, card.Skills, 2)
	assert.Equal(t, "greet", card.Skills[0].ID)
	assert.Equal(t, "echo-stream", card.Skills[1].ID)
}

func TestServerRoot(t *testing.T) {
	srv := NewServerWithDefaults("")

	resp := testRequest(t, srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv := NewServerWithDefaults("")

	resp := testRequest(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServerSendRoundTrip(t *testing.T) {
	srv := NewServerWithDefaults("")

	resp := testRequest(t, srv, http.MethodPost, "/rpc",
		`{"jsonrpc":"2.0","id":1,"method":"tasks/send","params":{
			"id":"t1",
			"message":{"role":"user","parts":[{"type":"text","text":"World"}]},
			"metadata":{"skillId":"greet"}
		}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	envelope := decodeResponse(t, resp)
	require.Nil(t, envelope.Error)

	raw, err := json.Marshal(envelope.Result)
	require.NoError(t, err)

	var task a2a.Task
	require.NoError(t, json.Unmarshal(raw, &task))

	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	require.Len(t, task.History, 2)
	assert.Equal(t, "Hello, World!", task.History[1].FirstTextPart())
}

func TestServerGetUnknownTask(t *testing.T) {
	srv := NewServerWithDefaults("")

	resp := testRequest(t, srv, http.MethodPost, "/rpc",
		`{"jsonrpc":"2.0","id":2,"method":"tasks/get","params":{"id":"nope"}}`)

	envelope := decodeResponse(t, resp)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, -32000, envelope.Error.Code)
}

func TestServerParseError(t *testing.T) {
	srv := NewServerWithDefaults("")

	resp := testRequest(t, srv, http.MethodPost, "/rpc", "{not json")

	envelope := decodeResponse(t, resp)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, -32700, envelope.Error.Code)
	assert.Equal(t, json.RawMessage("null"), envelope.ID)
}

func TestServerBatch(t *testing.T) {
	srv := NewServerWithDefaults("")

	resp := testRequest(t, srv, http.MethodPost, "/rpc",
		`[{"jsonrpc":"2.0","id":1,"method":"tasks/send","params":{
			"id":"b1",
			"message":{"role":"user","parts":[{"type":"text","text":"A"}]},
			"metadata":{"skillId":"greet"}
		}},
		{"jsonrpc":"2.0","id":2,"method":"no.such.method"},
		{"jsonrpc":"2.0","id":3,"method":"tasks/sendSubscribe","params":{"id":"b3"}}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelopes []jsonrpc.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelopes))
	require.Len(t, envelopes, 3)

	assert.Equal(t, json.RawMessage("1"), envelopes[0].ID)
	assert.Nil(t, envelopes[0].Error)

	require.NotNil(t, envelopes[1].Error)
	assert.Equal(t, -32601, envelopes[1].Error.Code)

	// Streaming methods cannot ride inside a batch.
	require.NotNil(t, envelopes[2].Error)
	assert.Equal(t, -32600, envelopes[2].Error.Code)
}

func TestServerSendSubscribe(t *testing.T) {
	srv := NewServerWithDefaults("")

	resp := testRequest(t, srv, http.MethodPost, "/rpc",
		`{"jsonrpc":"2.0","id":9,"method":"tasks/sendSubscribe","params":{
			"id":"s1",
			"message":{"role":"user","parts":[{"type":"text","text":"hi"}]},
			"metadata":{"skillId":"echo-stream"}
		}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelopes []jsonrpc.Response
	for _, line := range strings.Split(string(body), "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var envelope jsonrpc.Response
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &envelope))
		assert.Equal(t, json.RawMessage("9"), envelope.ID)
		envelopes = append(envelopes, envelope)
	}

	// working status, one delta per rune, the closing delta, final status.
	require.Len(t, envelopes, 5)

	var first a2a.TaskStatusUpdateEvent
	require.NoError(t, remarshal(envelopes[0].Result, &first))
	assert.Equal(t, a2a.TaskStateWorking, first.Status.State)
	assert.False(t, first.Final)

	var last a2a.TaskStatusUpdateEvent
	require.NoError(t, remarshal(envelopes[4].Result, &last))
	assert.Equal(t, a2a.TaskStateCompleted, last.Status.State)
	assert.True(t, last.Final)

	var delta a2a.TaskArtifactUpdateEvent
	require.NoError(t, remarshal(envelopes[1].Result, &delta))
	assert.Equal(t, "h", delta.Artifact.Parts[0].Text)
}

func remarshal(in any, out any) error {
	raw, err := json.Marshal(in)

	if err != nil {
		return err
	}

	return json.Unmarshal(raw, out)
}
