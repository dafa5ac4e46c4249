package a2a

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartValidate(t *testing.T) {
	for _, part := range []Part{
		NewTextPart("hi"),
		NewTextPart(""),
		NewDataPart(map[string]any{"k": "v"}),
	} {
		assert.NoError(t, part.Validate())
	}

	for _, part := range []Part{
		{Type: PartTypeData},
		{Type: PartTypeFile},
		{Type: "bogus"},
	} {
		assert.Error(t, part.Validate())
	}
}

func TestFileContentValidate(t *testing.T) {
	assert.NoError(t, (&FileContent{Bytes: "aGk="}).Validate())
	assert.NoError(t, (&FileContent{URI: "https://example.com/doc.txt"}).Validate())

	assert.Error(t, (&FileContent{}).Validate())
	assert.Error(t, (&FileContent{Bytes: "aGk=", URI: "https://example.com"}).Validate())
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, NewTextMessage(RoleUser, "hi").Validate())

	empty := &Message{Role: RoleUser}
	assert.ErrorContains(t, empty.Validate(), "at least one part")

	broken := &Message{Role: RoleUser, Parts: []Part{{Type: PartTypeFile}}}
	assert.ErrorContains(t, broken.Validate(), "part 0")
}

func TestMessageFirstTextPart(t *testing.T) {
	msg := &Message{Role: RoleUser, Parts: []Part{
		NewDataPart(map[string]any{"k": "v"}),
		NewTextPart("found"),
		NewTextPart("later"),
	}}

	assert.Equal(t, "found", msg.FirstTextPart())
	assert.Equal(t, "", (&Message{}).FirstTextPart())
}

func TestTaskClone(t *testing.T) {
	task := NewTask("t1", "ctx", map[string]any{"k": "v"})
	task.History = []Message{*NewTextMessage(RoleUser, "hi")}
	task.Artifacts = []Artifact{NewTextArtifact(0, "out", false)}

	clone := task.Clone()
	clone.History[0].Parts[0] = NewTextPart("tampered")
	clone.Artifacts[0].Parts[0] = NewTextPart("tampered")
	clone.Metadata["k"] = "tampered"

	assert.Equal(t, "hi", task.History[0].FirstTextPart())
	assert.Equal(t, "out", task.Artifacts[0].Parts[0].Text)
	assert.Equal(t, "v", task.Metadata["k"])
}

func TestArtifactClone(t *testing.T) {
	artifact := NewArtifactDelta(1, []Part{NewTextPart("x")}, true, false)

	clone := artifact.Clone()
	*clone.Append = false
	*clone.LastChunk = true
	clone.Parts[0] = NewTextPart("tampered")

	assert.True(t, *artifact.Append)
	assert.False(t, *artifact.LastChunk)
	assert.Equal(t, "x", artifact.Parts[0].Text)
}

func TestTaskSendParamsSkillID(t *testing.T) {
	params := TaskSendParams{Metadata: map[string]any{"skillId": "greet"}}
	assert.Equal(t, "greet", params.SkillID())

	assert.Equal(t, "", (&TaskSendParams{}).SkillID())

	wrongType := TaskSendParams{Metadata: map[string]any{"skillId": 42}}
	assert.Equal(t, "", wrongType.SkillID())
}

func TestTaskQueryParamsDecode(t *testing.T) {
	var params TaskQueryParams
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","historyLength":3}`), &params))

	assert.Equal(t, "t1", params.ID)
	require.NotNil(t, params.HistoryLength)
	assert.Equal(t, 3, *params.HistoryLength)
}

func TestFilePartConstructors(t *testing.T) {
	part := NewFilePart("doc.txt", "text/plain", []byte("hi"))
	require.NotNil(t, part.File)
	assert.Equal(t, "doc.txt", *part.File.Name)
	assert.Equal(t, "text/plain", *part.File.MimeType)
	assert.Equal(t, "aGk=", part.File.Bytes)
	assert.NoError(t, part.Validate())

	uriPart := NewFileURIPart("doc.txt", "text/plain", "https://example.com/doc.txt")
	require.NotNil(t, uriPart.File)
	assert.Equal(t, "https://example.com/doc.txt", uriPart.File.URI)
	assert.Empty(t, uriPart.File.Bytes)
	assert.NoError(t, uriPart.Validate())
}

func TestFileAndDataMessages(t *testing.T) {
	fileMsg := NewFileMessage(RoleUser, &FileContent{URI: "https://example.com/doc.txt"})
	assert.NoError(t, fileMsg.Validate())
	assert.Equal(t, "", fileMsg.FirstTextPart())

	dataMsg := NewDataMessage(RoleAgent, map[string]any{"k": "v"})
	assert.NoError(t, dataMsg.Validate())
	assert.Equal(t, "", dataMsg.FirstTextPart())
	assert.Equal(t, RoleAgent, dataMsg.Role)
}

func TestTaskLastMessage(t *testing.T) {
	task := NewTask("t1", "", nil)
	assert.Nil(t, task.LastMessage())

	task.History = []Message{
		*NewTextMessage(RoleUser, "hi"),
		*NewTextMessage(RoleAgent, "hello"),
	}

	last := task.LastMessage()
	require.NotNil(t, last)
	assert.Equal(t, RoleAgent, last.Role)
	assert.Equal(t, "hello", last.FirstTextPart())
}

func TestTaskStringSections(t *testing.T) {
	task := NewTask("t1", "ctx", map[string]any{"skillId": "greet"})
	task.Status.State = TaskStateCompleted
	task.History = []Message{
		*NewTextMessage(RoleUser, "World"),
		*NewTextMessage(RoleAgent, "Hello, World!"),
	}
	task.Artifacts = []Artifact{NewTextArtifact(0, "Hello, World!", true)}

	out := task.String()

	for _, want := range []string{
		"Task Details",
		"t1",
		"Status",
		"completed",
		"History",
		"Message 2",
		"Hello, World!",
		"Artifacts",
		"Artifact 1",
		"Metadata",
		"skillId",
	} {
		assert.Contains(t, out, want)
	}
}

func TestTaskStatusJSONShape(t *testing.T) {
	task := NewTask("t1", "", nil)

	raw, err := json.Marshal(task)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	status := decoded["status"].(map[string]any)
	assert.Equal(t, "submitted", status["state"])
	assert.NotEmpty(t, status["timestamp"])
}
