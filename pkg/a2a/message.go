package a2a

import (
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

/*
Message represents all non‑artifact communication between client & agent.
*/
type Message struct {
	Role     string         `json:"role"` // "user" or "agent"
	Parts    []Part         `json:"parts"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewTextMessage(role string, text string) *Message {
	return &Message{
		Role: role,
		Parts: []Part{
			{Type: PartTypeText, Text: text},
		},
	}
}

func NewFileMessage(role string, file *FileContent) *Message {
	return &Message{
		Role: role,
		Parts: []Part{
			{Type: PartTypeFile, File: file},
		},
	}
}

func NewDataMessage(role string, data any) *Message {
	return &Message{
		Role: role,
		Parts: []Part{
			{Type: PartTypeData, Data: data},
		},
	}
}

// Validate checks the one-invariant the handlers rely on: a message must
// contain at least one well-formed part.
func (msg *Message) Validate() error {
	if len(msg.Parts) == 0 {
		return fmt.Errorf("message must contain at least one part")
	}

	for i := range msg.Parts {
		if err := msg.Parts[i].Validate(); err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
	}

	return nil
}

// FirstTextPart returns the text of the first text part, or "".
func (msg *Message) FirstTextPart() string {
	for _, part := range msg.Parts {
		if part.Type == PartTypeText {
			return part.Text
		}
	}

	return ""
}

func (msg *Message) String() string {
	var sb strings.Builder

	for _, part := range msg.Parts {
		sb.WriteString(part.Text)
	}

	return sb.String()
}
