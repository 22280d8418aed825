// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research implements the research stage: retrieval, optional
// graph augmentation, theme extraction, entity surfacing, gap analysis,
// and follow-up query suggestions.
package research

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/internal/graphrag"
	"github.com/pdiddy/inquiry-engine/internal/knowledge"
	"github.com/pdiddy/inquiry-engine/internal/llm"
	"github.com/pdiddy/inquiry-engine/pkg/types"
)

const (
	defaultMaxFindings = 10
	maxThemes          = 5
	maxFollowUps       = 5
	limitedSources     = 5
	summaryFindings    = 5
	summarySnippet     = 240

	// GapLimitedSources is recorded when fewer than five findings were retrieved.
	GapLimitedSources = "Limited number of sources found"
)

// gapEntityTypes are the entity types whose absence is reported as a gap.
var gapEntityTypes = []types.EntityType{
	types.EntityPerson,
	types.EntityOrganization,
	types.EntityLocation,
}

// Retriever is the retrieval oracle.
type Retriever interface {
	Search(ctx context.Context, req knowledge.SearchRequest) ([]types.Finding, error)
}

// Augmenter expands and re-ranks findings through the knowledge graph.
type Augmenter interface {
	Augment(ctx context.Context, query string, findings []types.Finding) (graphrag.Result, error)
}

// Options configure a Stage.
type Options struct {
	// MaxFindings is the findings ceiling used when Input.MaxResults is zero.
	MaxFindings int
}

// Input is the research stage input.
type Input struct {
	// Query is the user's original question.
	Query string

	// ClarifiedQuery, when set, is searched instead of Query.
	ClarifiedQuery string

	// Filters are hint filters passed to the retrieval oracle.
	Filters map[string]string

	// MaxResults caps the findings returned.
	MaxResults int

	// UseGraph enables graph augmentation.
	UseGraph bool

	// Requester identifies the caller to the retrieval oracle.
	Requester string
}

// Stage is the research stage. The graph store and augmenter are optional.
type Stage struct {
	retriever Retriever
	graph     graphrag.Store
	augmenter Augmenter
	gw        *llm.Gateway
	opts      Options
	log       *zap.Logger
}

// New creates a research Stage.
func New(retriever Retriever, graph graphrag.Store, augmenter Augmenter, gw *llm.Gateway, opts Options, log *zap.Logger) *Stage {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxFindings <= 0 {
		opts.MaxFindings = defaultMaxFindings
	}
	return &Stage{
		retriever: retriever,
		graph:     graph,
		augmenter: augmenter,
		gw:        gw,
		opts:      opts,
		log:       log.Named("research"),
	}
}

// Research runs the stage. A retrieval failure is the only total failure:
// the returned result then carries the error text as its sole gap, zero
// confidence, and the error backend label, alongside the error itself.
func (s *Stage) Research(ctx context.Context, in Input) (types.ResearchResult, error) {
	limit := in.MaxResults
	if limit <= 0 {
		limit = s.opts.MaxFindings
	}
	searchQuery := in.Query
	if q := strings.TrimSpace(in.ClarifiedQuery); q != "" {
		searchQuery = q
	}

	findings, err := s.retriever.Search(ctx, knowledge.SearchRequest{
		Query:     searchQuery,
		Limit:     limit,
		Requester: in.Requester,
		Filters:   in.Filters,
	})
	if err != nil {
		err = fmt.Errorf("searching corpus: %w", err)
		return failed(in.Query, err), err
	}
	findings = capFindings(findings, limit)

	var bundle types.ContextBundle
	if in.UseGraph && s.augmenter != nil && len(findings) > 0 {
		res, err := s.augmenter.Augment(ctx, searchQuery, findings)
		if err != nil {
			s.log.Warn("graph augmentation failed, keeping base results", zap.Error(err))
		} else {
			findings = capFindings(res.Findings, limit)
			bundle.CoreEntities = res.Context.CoreEntities
			bundle.CoreRelationships = res.Context.CoreRelationships
			bundle.ExpandedEntities = res.Expanded
		}
	}
	if err := ctx.Err(); err != nil {
		return failed(in.Query, err), err
	}

	bundle.DocumentTypes = documentTypes(findings)

	var backend types.BackendLabel
	if len(findings) > 0 {
		themes, c := s.themes(ctx, in.Query, findings)
		bundle.Themes = themes.Themes
		bundle.RelatedTopics = themes.RelatedTopics
		backend = c.Label()
	}
	if bundle.Themes == nil {
		bundle.Themes = []string{}
	}
	if bundle.RelatedTopics == nil {
		bundle.RelatedTopics = []string{}
	}

	entities, relationships := s.entities(ctx, findings)
	gaps := Gaps(findings, entities)

	followUps, c := s.followUps(ctx, in.Query, findings, gaps)
	if backend == "" {
		backend = c.Label()
	}

	return types.ResearchResult{
		Query:           in.Query,
		Findings:        findings,
		Entities:        entities,
		Relationships:   relationships,
		Context:         bundle,
		Sources:         Sources(findings),
		Confidence:      Confidence(len(findings), len(entities), len(gaps)),
		Gaps:            gaps,
		FollowUpQueries: followUps,
		Backend:         backend,
	}, nil
}

func failed(query string, err error) types.ResearchResult {
	return types.ResearchResult{
		Query:           query,
		Findings:        []types.Finding{},
		Entities:        []types.Entity{},
		Relationships:   []types.Relationship{},
		Context:         types.ContextBundle{Themes: []string{}, RelatedTopics: []string{}, DocumentTypes: map[string]int{}},
		Sources:         []types.Source{},
		Confidence:      0,
		Gaps:            []string{err.Error()},
		FollowUpQueries: []string{},
		Backend:         types.BackendError,
	}
}

func capFindings(findings []types.Finding, limit int) []types.Finding {
	if findings == nil {
		return []types.Finding{}
	}
	if len(findings) > limit {
		return findings[:limit]
	}
	return findings
}

func documentTypes(findings []types.Finding) map[string]int {
	hist := make(map[string]int)
	for _, f := range findings {
		hist[f.DocumentType()]++
	}
	return hist
}

// entities resolves the entities mentioned by findings and the
// relationships among them. Graph failures degrade to empty lists.
func (s *Stage) entities(ctx context.Context, findings []types.Finding) ([]types.Entity, []types.Relationship) {
	entities := []types.Entity{}
	relationships := []types.Relationship{}
	if s.graph == nil || len(findings) == 0 {
		return entities, relationships
	}

	ids := make(map[string]bool)
	seenDocs := make(map[string]bool)
	for _, f := range findings {
		mentions := f.Mentions
		if mentions == nil {
			if seenDocs[f.DocumentID] {
				continue
			}
			seenDocs[f.DocumentID] = true
			var err error
			mentions, err = s.graph.MentionsForDocument(ctx, f.DocumentID)
			if err != nil {
				s.log.Warn("loading mentions failed", zap.String("document", f.DocumentID), zap.Error(err))
				continue
			}
		}
		for _, m := range mentions {
			ids[m.EntityID] = true
		}
	}
	if len(ids) == 0 {
		return entities, relationships
	}

	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	found, err := s.graph.Entities(ctx, sorted)
	if err != nil {
		s.log.Warn("loading entities failed", zap.Error(err))
		return entities, relationships
	}
	entities = append(entities, found...)

	for _, e := range entities {
		rels, err := s.graph.RelationshipsFrom(ctx, e.ID)
		if err != nil {
			s.log.Warn("loading relationships failed", zap.String("entity", e.ID), zap.Error(err))
			continue
		}
		for _, rel := range rels {
			if ids[rel.TargetID] {
				relationships = append(relationships, rel)
			}
		}
	}
	return entities, relationships
}

// Gaps lists information gaps: too few findings, and each of person,
// organization, or location missing from the surfaced entities.
func Gaps(findings []types.Finding, entities []types.Entity) []string {
	gaps := []string{}
	if len(findings) < limitedSources {
		gaps = append(gaps, GapLimitedSources)
	}
	present := make(map[types.EntityType]bool)
	for _, e := range entities {
		present[e.Type] = true
	}
	for _, t := range gapEntityTypes {
		if !present[t] {
			gaps = append(gaps, fmt.Sprintf("No %s entities identified", t))
		}
	}
	return gaps
}

// Confidence scores a research result from its counts.
func Confidence(findings, entities, gaps int) float64 {
	c := 0.5 +
		min(0.3, 0.02*float64(findings)) +
		min(0.15, 0.01*float64(entities)) -
		min(0.2, 0.05*float64(gaps))
	return types.Clamp01(c)
}

// Sources returns one citation per distinct document, in finding order.
func Sources(findings []types.Finding) []types.Source {
	sources := []types.Source{}
	seen := make(map[string]bool)
	for _, f := range findings {
		if seen[f.DocumentID] {
			continue
		}
		seen[f.DocumentID] = true
		sources = append(sources, types.SourceOf(f))
	}
	return sources
}

// summarize renders a short findings digest for prompts.
func summarize(findings []types.Finding) []string {
	out := make([]string, 0, min(len(findings), summaryFindings))
	for i, f := range findings {
		if i == summaryFindings {
			break
		}
		out = append(out, fmt.Sprintf("[%s] %s", f.DocumentName, llm.Truncate(f.Text, summarySnippet)))
	}
	return out
}
