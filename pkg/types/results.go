// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// BackendLabel names the inference backend family that produced a result.
type BackendLabel string

const (
	BackendLocal   BackendLabel = "local"
	BackendCloud   BackendLabel = "cloud"
	BackendError   BackendLabel = "error"
	BackendUnknown BackendLabel = "unknown"
)

// ClarificationResult is the output of the clarification stage.
type ClarificationResult struct {
	IsClear        bool              `json:"is_clear" yaml:"is_clear"`
	Confidence     float64           `json:"confidence" yaml:"confidence"`
	ClarifiedQuery string            `json:"clarified_query,omitempty" yaml:"clarified_query,omitempty"`
	Questions      []string          `json:"questions" yaml:"questions"`
	Assumptions    []string          `json:"assumptions" yaml:"assumptions"`
	Filters        map[string]string `json:"filters,omitempty" yaml:"filters,omitempty"`
	Reasoning      string            `json:"reasoning" yaml:"reasoning"`
	Backend        BackendLabel      `json:"backend" yaml:"backend"`
}

// NeedsUserInput reports whether the run must stop and ask the user.
func (c *ClarificationResult) NeedsUserInput() bool {
	return c != nil && !c.IsClear && len(c.Questions) > 0
}

// ExpandedEntity is an entity reached by graph expansion from the core set.
type ExpandedEntity struct {
	Entity     Entity  `json:"entity" yaml:"entity"`
	Relation   string  `json:"relation" yaml:"relation"`
	Depth      int     `json:"depth" yaml:"depth"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Via        string  `json:"via" yaml:"via"`
}

// ContextBundle summarizes the research context handed to later stages.
type ContextBundle struct {
	Themes            []string       `json:"themes" yaml:"themes"`
	RelatedTopics     []string       `json:"related_topics" yaml:"related_topics"`
	DocumentTypes     map[string]int `json:"document_types" yaml:"document_types"`
	CoreEntities      []Entity       `json:"core_entities,omitempty" yaml:"core_entities,omitempty"`
	CoreRelationships []Relationship `json:"core_relationships,omitempty" yaml:"core_relationships,omitempty"`

	// ExpandedEntities are reached from the core set by graph traversal.
	ExpandedEntities []ExpandedEntity `json:"expanded_entities,omitempty" yaml:"expanded_entities,omitempty"`
}

// ResearchResult is the output of the research stage.
type ResearchResult struct {
	Query           string         `json:"query" yaml:"query"`
	Findings        []Finding      `json:"findings" yaml:"findings"`
	Entities        []Entity       `json:"entities" yaml:"entities"`
	Relationships   []Relationship `json:"relationships" yaml:"relationships"`
	Context         ContextBundle  `json:"context" yaml:"context"`
	Sources         []Source       `json:"sources" yaml:"sources"`
	Confidence      float64        `json:"confidence" yaml:"confidence"`
	Gaps            []string       `json:"gaps" yaml:"gaps"`
	FollowUpQueries []string       `json:"follow_up_queries" yaml:"follow_up_queries"`
	Backend         BackendLabel   `json:"backend" yaml:"backend"`
}

// Verdict is the tri-state outcome of verifying a claim.
type Verdict string

const (
	VerdictVerified     Verdict = "verified"
	VerdictContradicted Verdict = "contradicted"
	VerdictInconclusive Verdict = "inconclusive"
)

// Stance is a single source's position toward a claim.
type Stance string

const (
	StanceSupports    Stance = "supports"
	StanceContradicts Stance = "contradicts"
	StanceNeutral     Stance = "neutral"
)

// Evidence is one source's assessment of a claim. It keeps the source's
// bucket so confidentiality survives into the answer stage.
type Evidence struct {
	DocumentID   string  `json:"document_id" yaml:"document_id"`
	DocumentName string  `json:"document_name" yaml:"document_name"`
	Bucket       Bucket  `json:"bucket" yaml:"bucket"`
	Stance       Stance  `json:"stance" yaml:"stance"`
	Reliability  float64 `json:"reliability" yaml:"reliability"`
	Excerpt      string  `json:"excerpt" yaml:"excerpt"`
}

// VerificationResult is the verdict for one claim.
type VerificationResult struct {
	Claim         string         `json:"claim" yaml:"claim"`
	Verdict       Verdict        `json:"verdict" yaml:"verdict"`
	Confidence    float64        `json:"confidence" yaml:"confidence"`
	Supporting    []Evidence     `json:"supporting" yaml:"supporting"`
	Contradicting []Evidence     `json:"contradicting" yaml:"contradicting"`
	SourceCount   int            `json:"source_count" yaml:"source_count"`
	Reliability   float64        `json:"reliability" yaml:"reliability"`
	Notes         string         `json:"notes" yaml:"notes"`
	Backends      []BackendLabel `json:"backends,omitempty" yaml:"backends,omitempty"`
}

// Severity grades a detected inconsistency.
type Severity string

const (
	SeverityMajor Severity = "major"
	SeverityMinor Severity = "minor"
)

// Inconsistency is a factual conflict found between two sources.
type Inconsistency struct {
	First       Source   `json:"first" yaml:"first"`
	Second      Source   `json:"second" yaml:"second"`
	Description string   `json:"description" yaml:"description"`
	Severity    Severity `json:"severity" yaml:"severity"`
}

// VerificationReport is the verification stage output consumed by the
// orchestrator and answer stage.
type VerificationReport struct {
	Results         []VerificationResult `json:"results" yaml:"results"`
	Inconsistencies []Inconsistency      `json:"inconsistencies,omitempty" yaml:"inconsistencies,omitempty"`
}

// AnswerType classifies the shape of the question being answered.
type AnswerType string

const (
	AnswerFactual     AnswerType = "factual"
	AnswerHowTo       AnswerType = "how_to"
	AnswerExplanation AnswerType = "explanation"
	AnswerComparison  AnswerType = "comparison"
	AnswerOpinion     AnswerType = "opinion"
	AnswerTimeline    AnswerType = "timeline"
	AnswerList        AnswerType = "list"
)

// ParseAnswerType maps a raw string onto an AnswerType, defaulting to factual.
func ParseAnswerType(s string) AnswerType {
	switch t := AnswerType(s); t {
	case AnswerFactual, AnswerHowTo, AnswerExplanation, AnswerComparison,
		AnswerOpinion, AnswerTimeline, AnswerList:
		return t
	default:
		return AnswerFactual
	}
}

// AnswerResult is the output of the answer stage.
type AnswerResult struct {
	Query      string       `json:"query" yaml:"query"`
	Answer     string       `json:"answer" yaml:"answer"`
	Type       AnswerType   `json:"type" yaml:"type"`
	KeyPoints  []string     `json:"key_points" yaml:"key_points"`
	Sources    []Source     `json:"sources" yaml:"sources"`
	Confidence float64      `json:"confidence" yaml:"confidence"`
	Caveats    []string     `json:"caveats" yaml:"caveats"`
	FollowUps  []string     `json:"follow_ups" yaml:"follow_ups"`
	Backend    BackendLabel `json:"backend" yaml:"backend"`
}

// Stage names used in AgentResults and events.
const (
	StageClarifier  = "clarifier"
	StageResearcher = "researcher"
	StageVerifier   = "verifier"
	StageAnswerer   = "answerer"
)

// AgentStatus is the outcome tag of one stage execution.
type AgentStatus string

const (
	StatusComplete AgentStatus = "complete"
	StatusError    AgentStatus = "error"
)

// AgentResult records one stage execution.
type AgentResult struct {
	Stage    string        `json:"stage" yaml:"stage"`
	Status   AgentStatus   `json:"status" yaml:"status"`
	Output   any           `json:"output,omitempty" yaml:"output,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// PipelineState is a node of the orchestrator state machine.
type PipelineState string

const (
	StateIdle        PipelineState = "idle"
	StateClarifying  PipelineState = "clarifying"
	StateResearching PipelineState = "researching"
	StateVerifying   PipelineState = "verifying"
	StateAnswering   PipelineState = "answering"
	StateComplete    PipelineState = "complete"
	StateError       PipelineState = "error"
)

// Metadata keys set on OrchestratorResult.Metadata.
const (
	MetaRunID          = "run_id"
	MetaNeedsUserInput = "needs_user_input"
	MetaFindings       = "findings_count"
	MetaEntities       = "entities_count"
	MetaVerifiedClaims = "verified_claims"
	MetaConfidence     = "confidence"
	MetaError          = "error"
)

// OrchestratorResult is the aggregate outcome of one run.
type OrchestratorResult struct {
	Query         string               `json:"query" yaml:"query"`
	Answer        string               `json:"answer" yaml:"answer"`
	Clarification *ClarificationResult `json:"clarification,omitempty" yaml:"clarification,omitempty"`
	Research      *ResearchResult      `json:"research,omitempty" yaml:"research,omitempty"`
	Verification  *VerificationReport  `json:"verification,omitempty" yaml:"verification,omitempty"`
	AnswerDetail  *AnswerResult        `json:"answer_detail,omitempty" yaml:"answer_detail,omitempty"`
	Agents        []AgentResult        `json:"agents" yaml:"agents"`
	Duration      time.Duration        `json:"duration" yaml:"duration"`
	State         PipelineState        `json:"state" yaml:"state"`
	Metadata      map[string]any       `json:"metadata" yaml:"metadata"`
	Backend       BackendLabel         `json:"backend" yaml:"backend"`
}

// NeedsUserInput reports whether the run stopped for clarification.
func (r *OrchestratorResult) NeedsUserInput() bool {
	v, _ := r.Metadata[MetaNeedsUserInput].(bool)
	return v
}

// Agent returns the AgentResult for stage, if one was recorded.
func (r *OrchestratorResult) Agent(stage string) (AgentResult, bool) {
	for _, a := range r.Agents {
		if a.Stage == stage {
			return a, true
		}
	}
	return AgentResult{}, false
}

// EventType names a streamed orchestration event.
type EventType string

const (
	EventProgress            EventType = "progress"
	EventClarificationNeeded EventType = "clarification_needed"
	EventResearchUpdate      EventType = "research_update"
	EventVerificationUpdate  EventType = "verification_update"
	EventComplete            EventType = "complete"
	EventError               EventType = "error"
)

// Event is one streamed, timestamped orchestration event.
type Event struct {
	Type      EventType     `json:"type" yaml:"type"`
	State     PipelineState `json:"state" yaml:"state"`
	Stage     string        `json:"stage,omitempty" yaml:"stage,omitempty"`
	Message   string        `json:"message,omitempty" yaml:"message,omitempty"`
	Data      any           `json:"data,omitempty" yaml:"data,omitempty"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
}
