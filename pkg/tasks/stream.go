package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/skills"
)

/*
StreamTask runs the streaming variant of send: the same validation and task
lifecycle, but output leaves through the sink as ordered artifact and status
events instead of one envelope.  The sink is closed exactly once on every
path out of this function.
*/
func (m *Manager) StreamTask(ctx context.Context, params a2a.TaskSendParams, sink a2a.EventSink) {
	defer func() {
		if err := sink.Close(); err != nil {
			log.Error("failed to close event sink", "task", params.ID, "error", err)
		}
	}()

	// Validation failures create no task and emit a single error event.
	if rpcErr := m.validateSend(&params); rpcErr != nil {
		_ = sink.WriteError(rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	m.store.Create(params.ID, params.ContextID, params.Metadata)

	if _, rpcErr := m.store.AppendHistory(params.ID, params.Message); rpcErr != nil {
		_ = sink.WriteError(rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	task, rpcErr := m.store.SetWorking(params.ID)

	if rpcErr != nil {
		_ = sink.WriteError(rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	_ = sink.WriteStatus(params.ID, task.Status, false)

	result, err := m.registry.Invoke(ctx, params.SkillID(), &params.Message, task)

	if err != nil {
		// The failed terminal state is the durable record; the stream just
		// ends with a final status event reflecting it.
		m.failTask(params.ID, err)

		if failed, getErr := m.store.MustGet(params.ID); getErr == nil {
			_ = sink.WriteStatus(params.ID, failed.Status, true)
		}

		return
	}

	switch value := result.(type) {
	case skills.Immediate:
		artifact := a2a.NewTextArtifact(0, string(value), true)
		m.store.AddArtifact(params.ID, artifact)
		_ = sink.WriteArtifact(params.ID, artifact)
	case skills.Streamed:
		m.streamChunks(params.ID, value, sink)
	}

	m.finishStream(params.ID, sink)
}

/*
streamChunks forwards each chunk as an artifact delta for index 0, stopping
once the sink reports closed – cancellation is cooperative, so no further
chunks are requested after that.  A final empty append with lastChunk marks
the end of accumulation either way.
*/
func (m *Manager) streamChunks(id string, chunks <-chan string, sink a2a.EventSink) {
	first := true

	for sink.IsOpen() {
		chunk, ok := <-chunks

		if !ok {
			break
		}

		delta := a2a.NewArtifactDelta(0, []a2a.Part{a2a.NewTextPart(chunk)}, !first, false)
		first = false

		m.store.UpdateArtifact(id, 0, delta)
		_ = sink.WriteArtifact(id, delta)
	}

	closing := a2a.NewArtifactDelta(0, nil, true, true)
	m.store.UpdateArtifact(id, 0, closing)
	_ = sink.WriteArtifact(id, closing)
}

// finishStream settles the task: the agent message is rebuilt from the
// first stored artifact, the task completes, and a final status event ends
// the stream.
func (m *Manager) finishStream(id string, sink a2a.EventSink) {
	task, rpcErr := m.store.MustGet(id)

	if rpcErr != nil {
		_ = sink.WriteError(rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	parts := []a2a.Part{a2a.NewTextPart("")}

	if len(task.Artifacts) > 0 && len(task.Artifacts[0].Parts) > 0 {
		parts = task.Artifacts[0].Parts
	}

	agent := &a2a.Message{Role: a2a.RoleAgent, Parts: parts}

	completed, rpcErr := m.store.SetCompleted(id, agent)

	if rpcErr != nil {
		_ = sink.WriteError(rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	if _, rpcErr := m.store.AppendHistory(id, *agent); rpcErr != nil {
		_ = sink.WriteError(rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}

	_ = sink.WriteStatus(id, completed.Status, true)
}
