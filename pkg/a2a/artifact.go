package a2a

/*
Artifact is the output of a task.  During streaming it doubles as a delta:
artifacts sharing an Index with Append set concatenate onto the stored
artifact, and LastChunk marks the end of accumulation for that index.
*/
type Artifact struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Index       int            `json:"index,omitempty"`
	Append      *bool          `json:"append,omitempty"`
	LastChunk   *bool          `json:"lastChunk,omitempty"`
}

func NewTextArtifact(index int, text string, lastChunk bool) Artifact {
	return Artifact{
		Parts:     []Part{NewTextPart(text)},
		Index:     index,
		LastChunk: &lastChunk,
	}
}

// NewArtifactDelta builds a streaming delta for the given index.
func NewArtifactDelta(index int, parts []Part, append, lastChunk bool) Artifact {
	return Artifact{
		Parts:     parts,
		Index:     index,
		Append:    &append,
		LastChunk: &lastChunk,
	}
}

// Clone returns a copy that shares no mutable state with the receiver.
func (artifact Artifact) Clone() Artifact {
	out := artifact
	out.Parts = append([]Part(nil), artifact.Parts...)

	if artifact.Append != nil {
		v := *artifact.Append
		out.Append = &v
	}

	if artifact.LastChunk != nil {
		v := *artifact.LastChunk
		out.LastChunk = &v
	}

	return out
}
