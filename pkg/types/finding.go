// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the inquiry-engine pipeline:
// retrieved evidence (Finding), knowledge-graph records (Entity, Relationship,
// EntityMention), per-stage results, and orchestration bookkeeping.
//
// All values are created fresh per run and never mutated by a later stage;
// each stage consumes its inputs and returns a new result.
package types

// Bucket is the confidentiality marker carried by every source document.
// A Finding's bucket is fixed at retrieval time and travels with every
// structure derived from it.
type Bucket string

const (
	BucketPublic       Bucket = "public"
	BucketConfidential Bucket = "confidential"
)

// IsConfidential reports whether content in this bucket must stay on the
// local backend. Unknown markers are treated as confidential.
func (b Bucket) IsConfidential() bool {
	return b != BucketPublic
}

// Finding is one retrieved unit of evidence.
type Finding struct {
	// DocumentID identifies the source document.
	DocumentID string `json:"document_id" yaml:"document_id"`

	// Bucket is the source document's confidentiality marker.
	Bucket Bucket `json:"bucket" yaml:"bucket"`

	// DocumentName is the display name of the source document.
	DocumentName string `json:"document_name" yaml:"document_name"`

	// Text is the passage snippet.
	Text string `json:"text" yaml:"text"`

	// Score is the relevance score in [0,1].
	Score float64 `json:"score" yaml:"score"`

	// Metadata holds optional structured attributes (e.g. document_type).
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Mentions lists entity mentions recorded for the source document.
	Mentions []EntityMention `json:"mentions,omitempty" yaml:"mentions,omitempty"`
}

// DocumentType returns the document_type metadata value, or "unknown".
func (f Finding) DocumentType() string {
	if t := f.Metadata["document_type"]; t != "" {
		return t
	}
	return "unknown"
}

// EntityType categorizes a knowledge-graph entity.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityLocation     EntityType = "location"
	EntityConcept      EntityType = "concept"
	EntityEvent        EntityType = "event"
	EntityProduct      EntityType = "product"
	EntityProject      EntityType = "project"
	EntityDate         EntityType = "date"
	EntityOther        EntityType = "other"
)

// validEntityTypes is the set of accepted EntityType values.
var validEntityTypes = map[EntityType]bool{
	EntityPerson:       true,
	EntityOrganization: true,
	EntityLocation:     true,
	EntityConcept:      true,
	EntityEvent:        true,
	EntityProduct:      true,
	EntityProject:      true,
	EntityDate:         true,
	EntityOther:        true,
}

// ParseEntityType maps a raw string onto an EntityType, defaulting to other.
func ParseEntityType(s string) EntityType {
	t := EntityType(s)
	if validEntityTypes[t] {
		return t
	}
	return EntityOther
}

// Entity is a typed node in the knowledge graph.
type Entity struct {
	ID           string            `json:"id" yaml:"id"`
	Name         string            `json:"name" yaml:"name"`
	Type         EntityType        `json:"type" yaml:"type"`
	Aliases      []string          `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	MentionCount int               `json:"mention_count" yaml:"mention_count"`

	// Confidence is in [0,100].
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Relationship is a typed, directed edge between two entities.
type Relationship struct {
	SourceID string `json:"source_id" yaml:"source_id"`
	TargetID string `json:"target_id" yaml:"target_id"`

	// Type is the relation label (e.g. works_at, located_in, related_to).
	Type string `json:"type" yaml:"type"`

	// Confidence is in [0,100].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	// DocumentCount is the number of documents supporting the relationship.
	DocumentCount int `json:"document_count" yaml:"document_count"`
}

// EntityMention records that a document mentions an entity.
type EntityMention struct {
	EntityID   string `json:"entity_id" yaml:"entity_id"`
	DocumentID string `json:"document_id" yaml:"document_id"`

	// Confidence is in [0,100].
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Source is a citation to a source document. It keeps the bucket so
// confidentiality survives into answer citations.
type Source struct {
	DocumentID   string `json:"document_id" yaml:"document_id"`
	DocumentName string `json:"document_name" yaml:"document_name"`
	Bucket       Bucket `json:"bucket" yaml:"bucket"`
}

// SourceOf returns the citation for a finding.
func SourceOf(f Finding) Source {
	return Source{DocumentID: f.DocumentID, DocumentName: f.DocumentName, Bucket: f.Bucket}
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}
