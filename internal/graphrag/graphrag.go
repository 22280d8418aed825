// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graphrag expands an initial set of retrieved findings through the
// knowledge graph and re-scores them by entity proximity.
//
// The graph store is only read. For a fixed graph snapshot and fixed inputs
// Augment is deterministic: every ordering it produces has a total
// tie-break on entity or document id.
package graphrag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

const (
	coreBoost     = 0.15
	expandedBoost = 0.05
)

// Store is the read-only graph interface Augment needs.
type Store interface {
	CandidateEntities(ctx context.Context, limit int) ([]types.Entity, error)
	Entities(ctx context.Context, ids []string) ([]types.Entity, error)
	RelationshipsFrom(ctx context.Context, entityID string) ([]types.Relationship, error)
	RelationshipsTo(ctx context.Context, entityID string) ([]types.Relationship, error)
	MentionsForDocument(ctx context.Context, documentID string) ([]types.EntityMention, error)
}

// Options bound the work done by Augment.
type Options struct {
	// MaxEntities caps the result entities added to the core set.
	MaxEntities int

	// MaxDepth caps breadth-first expansion; zero means 2.
	MaxDepth int

	// CandidateLimit bounds the entity scan used for query matching.
	CandidateLimit int

	// MaxExpanded caps the number of expanded entities; zero means no cap.
	MaxExpanded int
}

// OptionsFromConfig converts graph configuration into Options.
func OptionsFromConfig(cfg types.GraphConfig) Options {
	return Options{
		MaxEntities:    cfg.MaxEntities,
		MaxDepth:       cfg.MaxDepth,
		CandidateLimit: cfg.CandidateLimit,
		MaxExpanded:    cfg.MaxExpanded,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxEntities <= 0 {
		o.MaxEntities = 10
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = 2
	}
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = 500
	}
	return o
}

// Result is the output of Augment.
type Result struct {
	// Findings are copies of the input findings, re-scored and sorted by
	// score descending. Mentions are attached.
	Findings []types.Finding

	// Expanded lists entities reached by traversal, sorted by depth
	// ascending, then relationship confidence descending, then id.
	Expanded []types.ExpandedEntity

	// Context holds the core entities and relationships among them.
	Context types.ContextBundle

	// QueryEntities and ResultEntities are the ids that formed the core set.
	QueryEntities  []string
	ResultEntities []string
}

// Retriever performs graph-augmented retrieval against a Store.
type Retriever struct {
	store Store
	opts  Options
	log   *zap.Logger
}

// New creates a Retriever.
func New(store Store, opts Options, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{store: store, opts: opts.withDefaults(), log: log.Named("graphrag")}
}

// Augment expands findings through the graph and re-ranks them. Inputs are
// never modified.
func (r *Retriever) Augment(ctx context.Context, query string, findings []types.Finding) (Result, error) {
	mentions, err := r.loadMentions(ctx, findings)
	if err != nil {
		return Result{}, err
	}

	queryIDs, err := r.queryEntities(ctx, query)
	if err != nil {
		return Result{}, err
	}
	resultIDs := r.resultEntities(findings, mentions)

	core := make(map[string]bool, len(queryIDs)+len(resultIDs))
	for _, id := range queryIDs {
		core[id] = true
	}
	for _, id := range resultIDs {
		core[id] = true
	}
	coreIDs := sortedKeys(core)

	w := &walker{store: r.store, outgoing: make(map[string][]types.Relationship)}
	expanded, err := w.expand(ctx, coreIDs, r.opts.MaxDepth, r.opts.MaxExpanded)
	if err != nil {
		return Result{}, err
	}

	bundle, err := r.coreContext(ctx, w, coreIDs, core)
	if err != nil {
		return Result{}, err
	}

	expanded, err = r.resolveExpanded(ctx, expanded)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Findings:       rerank(findings, mentions, core, expanded),
		Expanded:       expanded,
		Context:        bundle,
		QueryEntities:  queryIDs,
		ResultEntities: resultIDs,
	}

	r.log.Debug("augmented",
		zap.Int("findings", len(res.Findings)),
		zap.Int("core", len(coreIDs)),
		zap.Int("expanded", len(expanded)),
	)
	return res, nil
}

// loadMentions fetches mention records once per distinct document. Mentions
// already attached to a finding are used as-is.
func (r *Retriever) loadMentions(ctx context.Context, findings []types.Finding) (map[string][]types.EntityMention, error) {
	out := make(map[string][]types.EntityMention)
	for _, f := range findings {
		if _, ok := out[f.DocumentID]; ok {
			continue
		}
		if len(f.Mentions) > 0 {
			out[f.DocumentID] = f.Mentions
			continue
		}
		ms, err := r.store.MentionsForDocument(ctx, f.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("loading mentions for %s: %w", f.DocumentID, err)
		}
		out[f.DocumentID] = ms
	}
	return out, nil
}

// queryEntities returns ids of candidate entities whose name or alias
// appears in the query, case-insensitively.
func (r *Retriever) queryEntities(ctx context.Context, query string) ([]string, error) {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return nil, nil
	}
	candidates, err := r.store.CandidateEntities(ctx, r.opts.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("loading candidate entities: %w", err)
	}

	var ids []string
	for _, e := range candidates {
		if nameIn(q, e.Name) || anyNameIn(q, e.Aliases) {
			ids = append(ids, e.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func nameIn(query, name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return name != "" && strings.Contains(query, name)
}

func anyNameIn(query string, names []string) bool {
	for _, n := range names {
		if nameIn(query, n) {
			return true
		}
	}
	return false
}

// resultEntities scores every mentioned entity by Σ finding.score ×
// mention.confidence/100 and keeps the top MaxEntities.
func (r *Retriever) resultEntities(findings []types.Finding, mentions map[string][]types.EntityMention) []string {
	weights := make(map[string]float64)
	for _, f := range findings {
		for _, m := range mentions[f.DocumentID] {
			weights[m.EntityID] += f.Score * m.Confidence / 100
		}
	}

	ids := sortedKeys(weights)
	sort.SliceStable(ids, func(i, j int) bool {
		return weights[ids[i]] > weights[ids[j]]
	})
	if len(ids) > r.opts.MaxEntities {
		ids = ids[:r.opts.MaxEntities]
	}
	return ids
}

// coreContext lists core entities and the relationships directly between them.
func (r *Retriever) coreContext(ctx context.Context, w *walker, coreIDs []string, core map[string]bool) (types.ContextBundle, error) {
	var bundle types.ContextBundle
	if len(coreIDs) == 0 {
		return bundle, nil
	}

	entities, err := r.store.Entities(ctx, coreIDs)
	if err != nil {
		return bundle, fmt.Errorf("loading core entities: %w", err)
	}
	bundle.CoreEntities = entities

	for _, id := range coreIDs {
		edges, err := w.from(ctx, id)
		if err != nil {
			return bundle, err
		}
		for _, rel := range edges {
			if core[rel.TargetID] {
				bundle.CoreRelationships = append(bundle.CoreRelationships, rel)
			}
		}
	}
	return bundle, nil
}

// resolveExpanded fills entity records for expanded ids and sorts the list.
func (r *Retriever) resolveExpanded(ctx context.Context, expanded []types.ExpandedEntity) ([]types.ExpandedEntity, error) {
	if len(expanded) == 0 {
		return nil, nil
	}
	ids := make([]string, len(expanded))
	for i, e := range expanded {
		ids[i] = e.Entity.ID
	}
	entities, err := r.store.Entities(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading expanded entities: %w", err)
	}
	byID := make(map[string]types.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}
	for i := range expanded {
		if e, ok := byID[expanded[i].Entity.ID]; ok {
			expanded[i].Entity = e
		}
	}

	sort.SliceStable(expanded, func(i, j int) bool {
		a, b := expanded[i], expanded[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.Entity.ID < b.Entity.ID
	})
	return expanded, nil
}

// rerank applies the graph boost to copies of findings and sorts them by
// score descending. Ties keep retrieval order.
func rerank(findings []types.Finding, mentions map[string][]types.EntityMention, core map[string]bool, expanded []types.ExpandedEntity) []types.Finding {
	reached := make(map[string]types.ExpandedEntity, len(expanded))
	for _, e := range expanded {
		reached[e.Entity.ID] = e
	}

	out := make([]types.Finding, len(findings))
	for i, f := range findings {
		ms := mentions[f.DocumentID]
		boost := 0.0
		for _, m := range ms {
			if core[m.EntityID] {
				boost += coreBoost * m.Confidence / 100
			} else if e, ok := reached[m.EntityID]; ok {
				boost += expandedBoost * (1 / float64(e.Depth+1)) * e.Confidence / 100
			}
		}
		f.Score = types.Clamp01(f.Score + boost)
		f.Mentions = append([]types.EntityMention(nil), ms...)
		out[i] = f
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
