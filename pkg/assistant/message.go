package assistant

import (
	"time"

	"github.com/sagelab/go-sage/pkg/chat"
	"github.com/sagelab/go-sage/pkg/research"
)

// Message is one turn in the conversation history. Messages are append-only
// and never mutated after they are added.
type Message struct {
	ID        string            `json:"id"`
	Role      chat.Role         `json:"role"`
	Content   string            `json:"content"`
	Sources   []research.Source `json:"sources,omitempty"`
	Metadata  *Metadata         `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Metadata is a diagnostics snapshot attached to assistant turns only.
// It records what produced the answer and is never sent back upstream.
type Metadata struct {
	LLM      LLMMetadata      `json:"llm"`
	Research ResearchMetadata `json:"research"`
	TTS      TTSMetadata      `json:"tts"`
}

// LLMMetadata records the completion config and what it cost.
type LLMMetadata struct {
	Config chat.Config `json:"config"`
	Usage  chat.Usage  `json:"usage"`
	Model  string      `json:"model"`
}

// ResearchMetadata records the retrieval strategy and the raw remote
// response behind the answer's context.
type ResearchMetadata struct {
	Method string `json:"method"`
	Raw    []byte `json:"raw,omitempty"`
}

// TTSMetadata records the voice the answer was spoken with.
type TTSMetadata struct {
	Voice string `json:"voice"`
}
