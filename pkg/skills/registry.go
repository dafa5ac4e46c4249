package skills

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/taskmill/taskmill-go/pkg/a2a"
	"github.com/taskmill/taskmill-go/pkg/errors"
)

/*
Registry resolves skill identifiers to executable units and computes their
call arguments from the inbound (message, task) pair.
*/
type Registry struct {
	mu     sync.RWMutex
	skills map[string]*Skill
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{
		skills: make(map[string]*Skill),
	}
}

// Register adds a skill, replacing any previous registration for the id.
func (registry *Registry) Register(skill *Skill) {
	log.Info("registering skill", "id", skill.ID, "streaming", skill.Streaming)

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, ok := registry.skills[skill.ID]; !ok {
		registry.order = append(registry.order, skill.ID)
	}

	registry.skills[skill.ID] = skill
}

func (registry *Registry) Has(id string) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	_, ok := registry.skills[id]
	return ok
}

// IsStreaming reports the advisory streaming hint; false for unknown ids.
func (registry *Registry) IsStreaming(id string) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	skill, ok := registry.skills[id]
	return ok && skill.Streaming
}

// Describe returns the discovery descriptor for a skill.
func (registry *Registry) Describe(id string) (a2a.AgentSkill, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	skill, ok := registry.skills[id]

	if !ok {
		return a2a.AgentSkill{}, false
	}

	return skill.descriptor(), true
}

// List returns descriptors for every skill in registration order.
func (registry *Registry) List() []a2a.AgentSkill {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	out := make([]a2a.AgentSkill, 0, len(registry.order))

	for _, id := range registry.order {
		out = append(out, registry.skills[id].descriptor())
	}

	return out
}

// Card builds the discovery document for this registry's skills.
func (registry *Registry) Card(name, url, version string) a2a.AgentCard {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	streaming := false
	descriptors := make([]a2a.AgentSkill, 0, len(registry.order))

	for _, id := range registry.order {
		skill := registry.skills[id]

		if skill.Streaming {
			streaming = true
		}

		descriptors = append(descriptors, skill.descriptor())
	}

	return a2a.AgentCard{
		Name:    name,
		URL:     url,
		Version: version,
		Capabilities: a2a.AgentCapabilities{
			Streaming: streaming,
		},
		Skills: descriptors,
	}
}

func (skill *Skill) descriptor() a2a.AgentSkill {
	desc := a2a.AgentSkill{
		ID:   skill.ID,
		Name: skill.Name,
		Tags: append([]string(nil), skill.Tags...),
	}

	if skill.Description != "" {
		d := skill.Description
		desc.Description = &d
	}

	return desc
}

/*
Invoke resolves the id, extracts arguments per the skill's bindings and runs
the handler.  Errors from the handler body are surfaced untouched.
*/
func (registry *Registry) Invoke(ctx context.Context, id string, message *a2a.Message, task *a2a.Task) (Result, error) {
	registry.mu.RLock()
	skill, ok := registry.skills[id]
	registry.mu.RUnlock()

	if !ok {
		return nil, errors.ErrSkillNotFound.WithMessagef("skill %s not found", id)
	}

	return skill.Handler(ctx, extractArgs(skill.Bindings, message, task))
}

// extractArgs evaluates each binding independently against the message and
// task.  With no bindings at all the sole argument falls back to the first
// text part, so unannotated skills still receive user input.
func extractArgs(bindings []Binding, message *a2a.Message, task *a2a.Task) []any {
	if len(bindings) == 0 {
		return []any{message.FirstTextPart()}
	}

	args := make([]any, len(bindings))

	for i, binding := range bindings {
		args[i] = extract(binding, message, task)
	}

	return args
}

func extract(binding Binding, message *a2a.Message, task *a2a.Task) any {
	switch binding.Kind {
	case ParamText:
		if part := partAt(message, binding.Index, a2a.PartTypeText); part != nil {
			return part.Text
		}
		return ""
	case ParamFile:
		if part := partAt(message, binding.Index, a2a.PartTypeFile); part != nil {
			return part.File
		}
		return (*a2a.FileContent)(nil)
	case ParamData:
		if part := partAt(message, binding.Index, a2a.PartTypeData); part != nil {
			return part.Data
		}
		return nil
	case ParamMessage:
		return message
	case ParamTask:
		return task
	case ParamParts:
		return append([]a2a.Part(nil), message.Parts...)
	}

	return nil
}

// partAt returns the part at an explicit positional index when it matches
// the wanted type, or the first part of that type when index is negative.
func partAt(message *a2a.Message, index int, want a2a.PartType) *a2a.Part {
	if index >= 0 {
		if index < len(message.Parts) && message.Parts[index].Type == want {
			return &message.Parts[index]
		}
		return nil
	}

	for i := range message.Parts {
		if message.Parts[i].Type == want {
			return &message.Parts[i]
		}
	}

	return nil
}
