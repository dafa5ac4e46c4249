package a2a

import (
	"encoding/base64"
	"fmt"
)

/*
Part is a discriminated union over Text, File and Data parts.  We keep it
simple by embedding all optional fields in a single struct – this avoids
heavy custom JSON marshalling logic while remaining spec‑compliant.
*/
type Part struct {
	Type PartType `json:"type"`

	// Exactly one of the following should be populated depending on Type.
	Text string       `json:"text,omitempty"`
	File *FileContent `json:"file,omitempty"`
	Data any          `json:"data,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// PartType is the discriminator for a Part union.
type PartType string

const (
	PartTypeText PartType = "text"
	PartTypeFile PartType = "file"
	PartTypeData PartType = "data"
)

/*
FileContent carries file payloads either inline (base64 bytes) or by
reference (URI).  Exactly one of Bytes or URI must be set.
*/
type FileContent struct {
	Name     *string `json:"name,omitempty"`
	MimeType *string `json:"mimeType,omitempty"`
	Bytes    string  `json:"bytes,omitempty"`
	URI      string  `json:"uri,omitempty"`
}

// Validate enforces the exactly-one-of bytes/uri rule.
func (fc *FileContent) Validate() error {
	if fc.Bytes != "" && fc.URI != "" {
		return fmt.Errorf("file content must not carry both bytes and uri")
	}
	if fc.Bytes == "" && fc.URI == "" {
		return fmt.Errorf("file content must carry either bytes or uri")
	}
	return nil
}

// Validate checks that the populated field matches the discriminator.
func (part *Part) Validate() error {
	switch part.Type {
	case PartTypeText:
		return nil
	case PartTypeFile:
		if part.File == nil {
			return fmt.Errorf("file part without file content")
		}
		return part.File.Validate()
	case PartTypeData:
		if part.Data == nil {
			return fmt.Errorf("data part without data")
		}
		return nil
	default:
		return fmt.Errorf("unknown part type %q", part.Type)
	}
}

func NewTextPart(text string) Part {
	return Part{
		Type: PartTypeText,
		Text: text,
	}
}

func NewFilePart(name string, mimeType string, data []byte) Part {
	return Part{
		Type: PartTypeFile,
		File: &FileContent{
			Name:     &name,
			MimeType: &mimeType,
			Bytes:    base64.StdEncoding.EncodeToString(data),
		},
	}
}

func NewFileURIPart(name string, mimeType string, uri string) Part {
	return Part{
		Type: PartTypeFile,
		File: &FileContent{
			Name:     &name,
			MimeType: &mimeType,
			URI:      uri,
		},
	}
}

func NewDataPart(data any) Part {
	return Part{
		Type: PartTypeData,
		Data: data,
	}
}
