// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graphrag

import (
	"context"
	"sort"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// MemStore is an in-memory Store with the same orderings as the SQLite
// store. It is safe for concurrent reads once built.
type MemStore struct {
	entities      map[string]types.Entity
	relationships []types.Relationship
	mentions      map[string][]types.EntityMention
}

// NewMemStore builds a MemStore. Entity mention counts are derived from
// mentions.
func NewMemStore(entities []types.Entity, relationships []types.Relationship, mentions []types.EntityMention) *MemStore {
	s := &MemStore{
		entities:      make(map[string]types.Entity, len(entities)),
		relationships: append([]types.Relationship(nil), relationships...),
		mentions:      make(map[string][]types.EntityMention),
	}
	for _, e := range entities {
		e.MentionCount = 0
		s.entities[e.ID] = e
	}
	for _, m := range mentions {
		s.mentions[m.DocumentID] = append(s.mentions[m.DocumentID], m)
		if e, ok := s.entities[m.EntityID]; ok {
			e.MentionCount++
			s.entities[m.EntityID] = e
		}
	}
	for _, ms := range s.mentions {
		sort.SliceStable(ms, func(i, j int) bool {
			if ms[i].Confidence != ms[j].Confidence {
				return ms[i].Confidence > ms[j].Confidence
			}
			return ms[i].EntityID < ms[j].EntityID
		})
	}
	return s
}

// CandidateEntities implements Store.
func (s *MemStore) CandidateEntities(_ context.Context, limit int) ([]types.Entity, error) {
	out := make([]types.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MentionCount != out[j].MentionCount {
			return out[i].MentionCount > out[j].MentionCount
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Entities implements Store.
func (s *MemStore) Entities(_ context.Context, ids []string) ([]types.Entity, error) {
	var out []types.Entity
	seen := make(map[string]bool)
	for _, id := range ids {
		if e, ok := s.entities[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RelationshipsFrom implements Store.
func (s *MemStore) RelationshipsFrom(_ context.Context, id string) ([]types.Relationship, error) {
	var out []types.Relationship
	for _, r := range s.relationships {
		if r.SourceID == id {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].TargetID != out[j].TargetID {
			return out[i].TargetID < out[j].TargetID
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

// RelationshipsTo implements Store.
func (s *MemStore) RelationshipsTo(_ context.Context, id string) ([]types.Relationship, error) {
	var out []types.Relationship
	for _, r := range s.relationships {
		if r.TargetID == id {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].Type < out[j].Type
	})
	return out, nil
}

// MentionsForDocument implements Store.
func (s *MemStore) MentionsForDocument(_ context.Context, documentID string) ([]types.EntityMention, error) {
	return append([]types.EntityMention(nil), s.mentions[documentID]...), nil
}
