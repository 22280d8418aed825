// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graphrag

import (
	"context"
	"fmt"

	"github.com/pdiddy/inquiry-engine/pkg/types"
)

// walker runs the bounded breadth-first expansion. Outgoing edges are
// cached so the core-context pass does not refetch them.
type walker struct {
	store    Store
	outgoing map[string][]types.Relationship
}

func (w *walker) from(ctx context.Context, id string) ([]types.Relationship, error) {
	if edges, ok := w.outgoing[id]; ok {
		return edges, nil
	}
	edges, err := w.store.RelationshipsFrom(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("walk outgoing %s: %w", id, err)
	}
	w.outgoing[id] = edges
	return edges, nil
}

// expand visits entities reachable from roots over outgoing and incoming
// relationships, up to maxDepth hops. Each entity is visited at most once;
// roots are never reported. maxNodes <= 0 means no cap.
func (w *walker) expand(ctx context.Context, roots []string, maxDepth, maxNodes int) ([]types.ExpandedEntity, error) {
	type queueItem struct {
		id    string
		depth int
	}

	visited := make(map[string]bool, len(roots))
	queue := make([]queueItem, 0, len(roots))
	for _, id := range roots {
		visited[id] = true
		queue = append(queue, queueItem{id, 0})
	}

	var out []types.ExpandedEntity
	for len(queue) > 0 {
		if maxNodes > 0 && len(out) >= maxNodes {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]
		if current.depth >= maxDepth {
			continue
		}

		outgoing, err := w.from(ctx, current.id)
		if err != nil {
			return nil, err
		}
		incoming, err := w.store.RelationshipsTo(ctx, current.id)
		if err != nil {
			return nil, fmt.Errorf("walk incoming %s: %w", current.id, err)
		}

		visit := func(neighbor string, rel types.Relationship) {
			if visited[neighbor] || (maxNodes > 0 && len(out) >= maxNodes) {
				return
			}
			visited[neighbor] = true
			out = append(out, types.ExpandedEntity{
				Entity:     types.Entity{ID: neighbor},
				Relation:   rel.Type,
				Depth:      current.depth + 1,
				Confidence: rel.Confidence,
				Via:        current.id,
			})
			queue = append(queue, queueItem{neighbor, current.depth + 1})
		}
		for _, rel := range outgoing {
			visit(rel.TargetID, rel)
		}
		for _, rel := range incoming {
			visit(rel.SourceID, rel)
		}
	}
	return out, nil
}
