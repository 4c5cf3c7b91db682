package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/picobot/picobot/internal/embedding"
	"github.com/picobot/picobot/internal/model"
)

// MaxSearchRows caps how many rows one search loads. This trades recall
// for bounded latency: with the composite index the highest-priority,
// most-recent rows come first, and pruning normally keeps namespaces
// well under this cap anyway.
const MaxSearchRows = 500

// DefaultPriorityWeight blends similarity with stored priority.
const DefaultPriorityWeight = 0.3

// Scored pairs a memory item with its cosine similarity to the query.
type Scored struct {
	Item       model.MemoryItem `json:"item"`
	Similarity float64          `json:"similarity"`
}

// Search embeds the query and returns the top-k items whose similarity
// clears threshold, ranked by sim*(1-w) + priority*w.
func (s *Store) Search(ctx context.Context, query string, topK int, threshold float64, namespace string, priorityWeight float64) ([]Scored, error) {
	results, _, err := s.SearchWithEmbedding(ctx, query, topK, threshold, namespace, priorityWeight)
	return results, err
}

// SearchWithEmbedding is Search but also returns the query embedding so
// callers can reuse it and avoid a redundant embedding call.
func (s *Store) SearchWithEmbedding(ctx context.Context, query string, topK int, threshold float64, namespace string, priorityWeight float64) ([]Scored, embedding.Vector, error) {
	ns, err := s.resolveNamespace(namespace)
	if err != nil {
		return nil, nil, err
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.searchByVector(ctx, queryVec, topK, threshold, ns, priorityWeight)
	if err != nil {
		return nil, nil, err
	}
	return results, queryVec, nil
}

// searchByVector loads up to MaxSearchRows candidates ordered by
// (priority DESC, updated_at DESC), scores them, and bumps access_count
// for every returned row.
func (s *Store) searchByVector(ctx context.Context, queryVec embedding.Vector, topK int, threshold float64, namespace string, priorityWeight float64) ([]Scored, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, embedding, metadata, created_at, updated_at, access_count, priority, namespace
		 FROM memories WHERE namespace = ?
		 ORDER BY priority DESC, updated_at DESC
		 LIMIT ?`, namespace, MaxSearchRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type candidate struct {
		Scored
		combined float64
	}
	var candidates []candidate
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		sim := embedding.CosineSimilarity(queryVec, item.Embedding)
		if sim < threshold {
			continue
		}
		combined := sim*(1-priorityWeight) + item.Priority*priorityWeight
		candidates = append(candidates, candidate{
			Scored:   Scored{Item: *item, Similarity: sim},
			combined: combined,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].combined > candidates[j].combined
	})
	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}

	results := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE memories SET access_count = access_count + 1 WHERE id = ? AND namespace = ?`,
			c.Item.ID, c.Item.Namespace); err != nil {
			return nil, fmt.Errorf("bump access count: %w", err)
		}
		c.Item.AccessCount++
		results = append(results, c.Scored)
	}
	return results, nil
}

// NamespaceStats reports per-namespace row counts.
type NamespaceStats struct {
	Namespace string `json:"namespace"`
	Count     int    `json:"count"`
}

// Stats returns the row count of every namespace, largest first.
func (s *Store) Stats(ctx context.Context) ([]NamespaceStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT namespace, COUNT(*) FROM memories GROUP BY namespace ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NamespaceStats
	for rows.Next() {
		var ns NamespaceStats
		if err := rows.Scan(&ns.Namespace, &ns.Count); err != nil {
			return nil, err
		}
		out = append(out, ns)
	}
	return out, rows.Err()
}
