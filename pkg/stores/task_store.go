package stores

// InMemoryTaskStore is the single owner of task records.  Every state change
// is serialized through the state machine inside one critical section, so
// readers observe either the pre- or post-mutation record, never a partial
// one.  All returned tasks are snapshots; the live records never leave the
// store.

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/errors"
	"github.com/taskmill/taskmill-go/pkg/state"
)

// TransitionObserver is notified of every state change the store applies.
// Creation passes an empty from state; deletion an empty to state.
type TransitionObserver func(from, to a2a.TaskState)

type InMemoryTaskStore struct {
	mu       sync.RWMutex
	tasks    map[string]*a2a.Task
	order    []string
	observer TransitionObserver
}

func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*a2a.Task),
	}
}

// SetObserver installs the transition observer. Call before serving traffic;
// the store does not synchronize observer replacement with mutators.
func (store *InMemoryTaskStore) SetObserver(fn TransitionObserver) {
	store.observer = fn
}

func (store *InMemoryTaskStore) observe(from, to a2a.TaskState) {
	if store.observer != nil {
		store.observer(from, to)
	}
}

/*
Create inserts a new submitted task, or returns the existing one untouched
when the id is already known.  First write wins: a second create with
different contextId/metadata does not overwrite.
*/
func (store *InMemoryTaskStore) Create(id, contextID string, metadata map[string]any) *a2a.Task {
	store.mu.Lock()
	defer store.mu.Unlock()

	if existing, ok := store.tasks[id]; ok {
		return existing.Clone()
	}

	log.Info("creating task", "id", id, "contextId", contextID)

	task := a2a.NewTask(id, contextID, metadata)
	store.tasks[id] = task
	store.order = append(store.order, id)
	store.observe("", task.Status.State)

	return task.Clone()
}

// Get returns a snapshot of the task, or false when absent.
func (store *InMemoryTaskStore) Get(id string) (*a2a.Task, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	task, ok := store.tasks[id]

	if !ok {
		return nil, false
	}

	return task.Clone(), true
}

// MustGet returns a snapshot of the task, or a TaskNotFound error.
func (store *InMemoryTaskStore) MustGet(id string) (*a2a.Task, *errors.RpcError) {
	task, ok := store.Get(id)

	if !ok {
		return nil, errors.ErrTaskNotFound.WithMessagef("task %s not found", id)
	}

	return task, nil
}

/*
UpdateStatus replaces the task status with the target state after the state
machine admits the transition.  The optional message rides along on the new
status.
*/
func (store *InMemoryTaskStore) UpdateStatus(id string, target a2a.TaskState, message *a2a.Message) (*a2a.Task, *errors.RpcError) {
	store.mu.Lock()
	defer store.mu.Unlock()

	task, ok := store.tasks[id]

	if !ok {
		return nil, errors.ErrTaskNotFound.WithMessagef("task %s not found", id)
	}

	if rpcErr := state.AssertTransition(task.Status.State, target); rpcErr != nil {
		return nil, rpcErr
	}

	log.Info("task status update", "id", id, "from", task.Status.State, "to", target)
	store.observe(task.Status.State, target)

	task.Status = a2a.TaskStatus{
		State:     target,
		Message:   message,
		Timestamp: time.Now(),
	}

	return task.Clone(), nil
}

func (store *InMemoryTaskStore) SetWorking(id string) (*a2a.Task, *errors.RpcError) {
	return store.UpdateStatus(id, a2a.TaskStateWorking, nil)
}

func (store *InMemoryTaskStore) SetCompleted(id string, message *a2a.Message) (*a2a.Task, *errors.RpcError) {
	return store.UpdateStatus(id, a2a.TaskStateCompleted, message)
}

func (store *InMemoryTaskStore) SetFailed(id string, message *a2a.Message) (*a2a.Task, *errors.RpcError) {
	return store.UpdateStatus(id, a2a.TaskStateFailed, message)
}

func (store *InMemoryTaskStore) SetCanceled(id string) (*a2a.Task, *errors.RpcError) {
	return store.UpdateStatus(id, a2a.TaskStateCanceled, nil)
}

func (store *InMemoryTaskStore) SetInputRequired(id string, message *a2a.Message) (*a2a.Task, *errors.RpcError) {
	return store.UpdateStatus(id, a2a.TaskStateInputReq, message)
}

// AppendHistory appends a message to the end of the task history.
func (store *InMemoryTaskStore) AppendHistory(id string, message a2a.Message) (*a2a.Task, *errors.RpcError) {
	store.mu.Lock()
	defer store.mu.Unlock()

	task, ok := store.tasks[id]

	if !ok {
		return nil, errors.ErrTaskNotFound.WithMessagef("task %s not found", id)
	}

	task.History = append(task.History, message)

	return task.Clone(), nil
}

// AddArtifact appends an artifact to the task.
func (store *InMemoryTaskStore) AddArtifact(id string, artifact a2a.Artifact) (*a2a.Task, *errors.RpcError) {
	store.mu.Lock()
	defer store.mu.Unlock()

	task, ok := store.tasks[id]

	if !ok {
		return nil, errors.ErrTaskNotFound.WithMessagef("task %s not found", id)
	}

	task.Artifacts = append(task.Artifacts, artifact.Clone())

	return task.Clone(), nil
}

/*
UpdateArtifact applies a streaming delta to the artifact at index.  When the
index is in bounds and the delta asks to append, text parts concatenate onto
the existing artifact's trailing text part; mismatched part types push a new
part instead.  A delta carrying LastChunk overwrites the stored flag.  An
out-of-bounds index is accepted as a plain append of the delta, which is how
the first chunk of a stream lands.
*/
func (store *InMemoryTaskStore) UpdateArtifact(id string, index int, delta a2a.Artifact) (*a2a.Task, *errors.RpcError) {
	store.mu.Lock()
	defer store.mu.Unlock()

	task, ok := store.tasks[id]

	if !ok {
		return nil, errors.ErrTaskNotFound.WithMessagef("task %s not found", id)
	}

	if index < 0 || index >= len(task.Artifacts) {
		task.Artifacts = append(task.Artifacts, delta.Clone())
		return task.Clone(), nil
	}

	existing := &task.Artifacts[index]

	if delta.Append != nil && *delta.Append {
		for _, part := range delta.Parts {
			n := len(existing.Parts)

			if part.Type == a2a.PartTypeText && n > 0 && existing.Parts[n-1].Type == a2a.PartTypeText {
				existing.Parts[n-1].Text += part.Text
				continue
			}

			existing.Parts = append(existing.Parts, part)
		}
	} else {
		existing.Parts = append([]a2a.Part(nil), delta.Parts...)
	}

	if delta.LastChunk != nil {
		v := *delta.LastChunk
		existing.LastChunk = &v
	}

	return task.Clone(), nil
}

// Delete removes a task, reporting whether it existed.
func (store *InMemoryTaskStore) Delete(id string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()

	task, ok := store.tasks[id]

	if !ok {
		return false
	}

	store.observe(task.Status.State, "")
	delete(store.tasks, id)

	for i, existing := range store.order {
		if existing == id {
			store.order = append(store.order[:i], store.order[i+1:]...)
			break
		}
	}

	return true
}

// Clear drops every task.
func (store *InMemoryTaskStore) Clear() {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, task := range store.tasks {
		store.observe(task.Status.State, "")
	}

	store.tasks = make(map[string]*a2a.Task)
	store.order = nil
}

// IDs returns the task ids in insertion order.
func (store *InMemoryTaskStore) IDs() []string {
	store.mu.RLock()
	defer store.mu.RUnlock()

	return append([]string(nil), store.order...)
}

// Len returns the number of stored tasks.
func (store *InMemoryTaskStore) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()

	return len(store.tasks)
}
