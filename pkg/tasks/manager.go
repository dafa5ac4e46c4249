package tasks

// Manager orchestrates the task store and the skill registry for one RPC
// exchange at a time.  Handlers run as independent goroutines; the store is
// the only shared mutable resource and serializes its own mutations.

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/errors"
	"github.com/taskmill/taskmill-go/pkg/skills"
	"github.com/taskmill/taskmill-go/pkg/state"
	"github.com/taskmill/taskmill-go/pkg/stores"
)

type Manager struct {
	store    *stores.InMemoryTaskStore
	registry *skills.Registry
}

func NewManager(store *stores.InMemoryTaskStore, registry *skills.Registry) *Manager {
	if store == nil {
		store = stores.NewInMemoryTaskStore()
	}

	if registry == nil {
		registry = skills.NewRegistry()
	}

	return &Manager{store: store, registry: registry}
}

func (m *Manager) Store() *stores.InMemoryTaskStore {
	return m.store
}

func (m *Manager) Registry() *skills.Registry {
	return m.registry
}

// validateSend checks the tasks/send preconditions without touching the
// store; validation failures must never mutate task state.
func (m *Manager) validateSend(params *a2a.TaskSendParams) *errors.RpcError {
	if params.ID == "" {
		return errors.ErrInvalidParams.WithMessagef("missing required field: id")
	}

	if err := params.Message.Validate(); err != nil {
		return errors.ErrInvalidParams.WithMessagef("missing required field: message (%s)", err)
	}

	skillID := params.SkillID()

	if skillID == "" {
		return errors.ErrInvalidParams.WithMessagef("missing required field: metadata.skillId")
	}

	if !m.registry.Has(skillID) {
		return errors.ErrInvalidParams.WithMessagef("unknown skill: %s", skillID)
	}

	return nil
}

/*
SendTask runs one synchronous skill invocation: get-or-create the task,
record the user message, move to working, invoke, and settle the task in a
terminal state.  Streamed results are drained fully before completion –
send never returns partial output.
*/
func (m *Manager) SendTask(ctx context.Context, params a2a.TaskSendParams) (*a2a.Task, *errors.RpcError) {
	if rpcErr := m.validateSend(&params); rpcErr != nil {
		return nil, rpcErr
	}

	m.store.Create(params.ID, params.ContextID, params.Metadata)

	if _, rpcErr := m.store.AppendHistory(params.ID, params.Message); rpcErr != nil {
		return nil, rpcErr
	}

	if _, rpcErr := m.store.SetWorking(params.ID); rpcErr != nil {
		return nil, rpcErr
	}

	task, rpcErr := m.store.MustGet(params.ID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	result, err := m.registry.Invoke(ctx, params.SkillID(), &params.Message, task)

	if err != nil {
		return nil, m.failTask(params.ID, err)
	}

	agent := a2a.NewTextMessage(a2a.RoleAgent, drain(result))

	if _, rpcErr := m.store.SetCompleted(params.ID, agent); rpcErr != nil {
		return nil, rpcErr
	}

	if _, rpcErr := m.store.AppendHistory(params.ID, *agent); rpcErr != nil {
		return nil, rpcErr
	}

	return m.store.MustGet(params.ID)
}

// failTask settles the task in the failed state carrying the error text,
// then surfaces the original error message as the RPC failure.  The
// terminal task state is the durable record even though the call fails.
func (m *Manager) failTask(id string, err error) *errors.RpcError {
	agent := a2a.NewTextMessage(a2a.RoleAgent, "Error: "+err.Error())

	if _, rpcErr := m.store.SetFailed(id, agent); rpcErr != nil {
		log.Error("could not mark task failed", "id", id, "error", rpcErr)
	}

	if rpcErr, ok := err.(*errors.RpcError); ok {
		return rpcErr
	}

	return errors.ErrInternal.WithMessagef("%s", err.Error())
}

// drain collects a result into a single string, consuming every chunk of a
// streamed sequence in order.
func drain(result skills.Result) string {
	switch value := result.(type) {
	case skills.Immediate:
		return string(value)
	case skills.Streamed:
		var sb strings.Builder
		for chunk := range value {
			sb.WriteString(chunk)
		}
		return sb.String()
	}

	return ""
}

/*
GetTask returns a snapshot of the task.  A historyLength limit truncates the
returned copy to the most recent entries; the stored history is untouched.
*/
func (m *Manager) GetTask(ctx context.Context, id string, historyLength *int) (*a2a.Task, *errors.RpcError) {
	if id == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("missing required field: id")
	}

	task, rpcErr := m.store.MustGet(id)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if historyLength != nil && *historyLength >= 0 && len(task.History) > *historyLength {
		task.History = task.History[len(task.History)-*historyLength:]
	}

	return task, nil
}

// CancelTask moves the task to canceled unless it already reached a
// terminal state.
func (m *Manager) CancelTask(ctx context.Context, id string) (*a2a.Task, *errors.RpcError) {
	if id == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("missing required field: id")
	}

	task, rpcErr := m.store.MustGet(id)

	if rpcErr != nil {
		return nil, rpcErr
	}

	if state.IsTerminal(task.Status.State) {
		return nil, errors.ErrInvalidTransition.WithMessagef(
			"task %s not cancelable in state %s", id, task.Status.State,
		)
	}

	return m.store.SetCanceled(id)
}
