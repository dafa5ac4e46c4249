package skills

import (
	"context"
)

/*
ParamKind selects what a skill parameter is bound to when the invoker
computes call arguments from the inbound message and task.
*/
type ParamKind string

const (
	ParamText    ParamKind = "text"
	ParamFile    ParamKind = "file"
	ParamData    ParamKind = "data"
	ParamMessage ParamKind = "message"
	ParamTask    ParamKind = "task"
	ParamParts   ParamKind = "parts"
)

/*
Binding declares how one skill parameter is extracted.  Index selects a
positional part within the message; a negative index means "first part of
the bound kind".  Bindings replace the runtime reflection the decorator
style would need: they are plain data attached at registration time.
*/
type Binding struct {
	Kind  ParamKind `json:"kind"`
	Index int       `json:"index"`
}

func BindText() Binding { return Binding{Kind: ParamText, Index: -1} }
func BindTextAt(i int) Binding { return Binding{Kind: ParamText, Index: i} }
func BindFile() Binding { return Binding{Kind: ParamFile, Index: -1} }
func BindFileAt(i int) Binding { return Binding{Kind: ParamFile, Index: i} }
func BindData() Binding { return Binding{Kind: ParamData, Index: -1} }
func BindDataAt(i int) Binding { return Binding{Kind: ParamData, Index: i} }
func BindMessage() Binding { return Binding{Kind: ParamMessage, Index: -1} }
func BindTask() Binding { return Binding{Kind: ParamTask, Index: -1} }
func BindParts() Binding { return Binding{Kind: ParamParts, Index: -1} }

/*
Result is what a skill body produces: either one immediate string or a lazy,
finite, non-restartable sequence of chunks.  The skill decides which at call
time; callers inspect the returned value with a type switch.
*/
type Result interface {
	result()
}

// Immediate is a single-shot string result.
type Immediate string

// Streamed is a lazy chunk sequence.  The producer closes the channel when
// the sequence is exhausted.
type Streamed <-chan string

func (Immediate) result() {}
func (Streamed) result()  {}

// HandlerFunc is the executable body of a skill.  Arguments arrive in
// binding order; with no bindings declared the sole argument is the first
// text part of the inbound message (or "").
type HandlerFunc func(ctx context.Context, args []any) (Result, error)

/*
Skill pairs a descriptor with its executable body and parameter bindings.
*/
type Skill struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	Streaming   bool
	Bindings    []Binding
	Handler     HandlerFunc
}
