package types

import "time"

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format selects json (production) or console (development) output.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// StoreConfig holds settings for the corpus and knowledge-graph store.
type StoreConfig struct {
	// CorpusDir is the base directory for corpus files (contains documents/, graph.yaml).
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir" mapstructure:"corpus_dir"`

	// IndexDir holds the SQLite database and exports.
	IndexDir string `json:"index_dir" yaml:"index_dir" mapstructure:"index_dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// CloudProvider selects the cloud-hosted model API.
type CloudProvider string

const (
	ProviderAnthropic  CloudProvider = "anthropic"
	ProviderOpenRouter CloudProvider = "openrouter"
)

// ModelConfig holds settings shared by the cloud and local model backends.
type ModelConfig struct {
	// CloudProvider is anthropic or openrouter.
	CloudProvider CloudProvider `json:"cloud_provider" yaml:"cloud_provider" mapstructure:"cloud_provider"`

	// CloudModel is the cloud model identifier.
	CloudModel string `json:"cloud_model" yaml:"cloud_model" mapstructure:"cloud_model"`

	// CloudAPIKey authenticates against the cloud provider.
	CloudAPIKey string `json:"cloud_api_key,omitempty" yaml:"cloud_api_key,omitempty" mapstructure:"cloud_api_key"`

	// LocalModel is the locally hosted model name (e.g. "llama3.1:8b").
	LocalModel string `json:"local_model" yaml:"local_model" mapstructure:"local_model"`

	// LocalHost is the base URL of the local model server.
	LocalHost string `json:"local_host" yaml:"local_host" mapstructure:"local_host"`

	// CallTimeout bounds every single backend call.
	CallTimeout time.Duration `json:"call_timeout" yaml:"call_timeout" mapstructure:"call_timeout"`

	// MaxRetries is the number of retry attempts for failed calls (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// RouterConfig holds model-router settings.
type RouterConfig struct {
	// DetectPII enables PII screening of query-only calls.
	DetectPII bool `json:"detect_pii" yaml:"detect_pii" mapstructure:"detect_pii"`
}

// ResearchConfig holds research-stage settings.
type ResearchConfig struct {
	// MaxFindings is the default findings ceiling (default 10).
	MaxFindings int `json:"max_findings" yaml:"max_findings" mapstructure:"max_findings"`

	// UseGraph enables graph-augmented retrieval.
	UseGraph bool `json:"use_graph" yaml:"use_graph" mapstructure:"use_graph"`
}

// GraphConfig holds graph-augmented retrieval settings.
type GraphConfig struct {
	// MaxEntities caps the result entities kept in the core set (default 10).
	MaxEntities int `json:"max_entities" yaml:"max_entities" mapstructure:"max_entities"`

	// MaxDepth caps breadth-first expansion (default 2).
	MaxDepth int `json:"max_depth" yaml:"max_depth" mapstructure:"max_depth"`

	// CandidateLimit bounds the entity scan used to match the query (default 500).
	CandidateLimit int `json:"candidate_limit" yaml:"candidate_limit" mapstructure:"candidate_limit"`

	// MaxExpanded caps the number of entities reached by expansion (default 100).
	MaxExpanded int `json:"max_expanded" yaml:"max_expanded" mapstructure:"max_expanded"`
}

// VerificationConfig holds verification-stage settings.
type VerificationConfig struct {
	// MaxClaims is the number of claims verified per run (default 3).
	MaxClaims int `json:"max_claims" yaml:"max_claims" mapstructure:"max_claims"`

	// MaxSources caps sources consulted per claim (default 5).
	MaxSources int `json:"max_sources" yaml:"max_sources" mapstructure:"max_sources"`

	// Concurrency bounds in-flight per-source checks (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`

	// DetectInconsistencies enables pairwise source conflict detection.
	DetectInconsistencies bool `json:"detect_inconsistencies" yaml:"detect_inconsistencies" mapstructure:"detect_inconsistencies"`
}

// AnswerConfig holds answer-stage defaults.
type AnswerConfig struct {
	// Style is the default answer style when the request does not set one.
	Style AnswerStyle `json:"style" yaml:"style" mapstructure:"style"`

	// Language is the default answer language.
	Language string `json:"language" yaml:"language" mapstructure:"language"`
}

// EngineConfig groups all settings for the engine.
type EngineConfig struct {
	Log          LogConfig          `json:"log" yaml:"log" mapstructure:"log"`
	Store        StoreConfig        `json:"store" yaml:"store" mapstructure:"store"`
	Models       ModelConfig        `json:"models" yaml:"models" mapstructure:"models"`
	Router       RouterConfig       `json:"router" yaml:"router" mapstructure:"router"`
	Research     ResearchConfig     `json:"research" yaml:"research" mapstructure:"research"`
	Graph        GraphConfig        `json:"graph" yaml:"graph" mapstructure:"graph"`
	Verification VerificationConfig `json:"verification" yaml:"verification" mapstructure:"verification"`
	Answer       AnswerConfig       `json:"answer" yaml:"answer" mapstructure:"answer"`
}

// DefaultEngineConfig returns the configuration used when no file or
// environment override is present.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Log: LogConfig{Level: "info", Format: "console"},
		Store: StoreConfig{
			CorpusDir:  "corpus",
			IndexDir:   "index",
			MaxResults: 20,
		},
		Models: ModelConfig{
			CloudProvider: ProviderAnthropic,
			CloudModel:    "claude-sonnet-4-5-20250929",
			LocalModel:    "llama3.1:8b",
			LocalHost:     "http://127.0.0.1:11434",
			CallTimeout:   60 * time.Second,
			MaxRetries:    2,
		},
		Router:   RouterConfig{DetectPII: true},
		Research: ResearchConfig{MaxFindings: 10, UseGraph: true},
		Graph: GraphConfig{
			MaxEntities:    10,
			MaxDepth:       2,
			CandidateLimit: 500,
			MaxExpanded:    100,
		},
		Verification: VerificationConfig{
			MaxClaims:             3,
			MaxSources:            5,
			Concurrency:           4,
			DetectInconsistencies: true,
		},
		Answer: AnswerConfig{Style: StyleComprehensive, Language: "English"},
	}
}
