// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Turn is one message in the conversation history.
type Turn struct {
	Role string `json:"role" yaml:"role"`
	Text string `json:"text" yaml:"text"`
}

// AnswerStyle selects how the final answer is phrased.
type AnswerStyle string

const (
	StyleComprehensive  AnswerStyle = "comprehensive"
	StyleConcise        AnswerStyle = "concise"
	StyleConversational AnswerStyle = "conversational"
)

// ParseAnswerStyle maps a raw string onto an AnswerStyle, defaulting to comprehensive.
func ParseAnswerStyle(s string) AnswerStyle {
	switch AnswerStyle(s) {
	case StyleConcise, StyleConversational:
		return AnswerStyle(s)
	default:
		return StyleComprehensive
	}
}

// Preferences are free-form user preferences. The keys "style" and
// "language" are read by the answer stage.
type Preferences map[string]string

// Style returns the requested answer style.
func (p Preferences) Style() AnswerStyle {
	return ParseAnswerStyle(p["style"])
}

// Language returns the requested answer language, defaulting to English.
func (p Preferences) Language() string {
	if l := p["language"]; l != "" {
		return l
	}
	return "English"
}

// ProgressFunc receives progress events in stage order.
type ProgressFunc func(Event)

// Request is the immutable input to one orchestrator run.
type Request struct {
	Query       string      `json:"query" yaml:"query"`
	Context     string      `json:"context,omitempty" yaml:"context,omitempty"`
	History     []Turn      `json:"history,omitempty" yaml:"history,omitempty"`
	Preferences Preferences `json:"preferences,omitempty" yaml:"preferences,omitempty"`

	// RequireClarification enables the clarification stage.
	RequireClarification bool `json:"require_clarification" yaml:"require_clarification"`

	// RequireVerification enables the verification stage.
	RequireVerification bool `json:"require_verification" yaml:"require_verification"`

	// UserID identifies the requester for retrieval and confidentiality auditing.
	UserID string `json:"user_id,omitempty" yaml:"user_id,omitempty"`

	// MaxResults caps the number of research findings. Zero uses the configured default.
	MaxResults int `json:"max_results,omitempty" yaml:"max_results,omitempty"`

	// DisableGraph turns off graph-augmented retrieval for this run.
	DisableGraph bool `json:"disable_graph,omitempty" yaml:"disable_graph,omitempty"`

	// Progress, when set, receives progress events during Run.
	Progress ProgressFunc `json:"-" yaml:"-"`
}
