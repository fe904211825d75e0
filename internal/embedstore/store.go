// Package embedstore is the EmbeddingStore: an in-memory map of dense
// vectors keyed by SymbolId, with a parallel language map, persisted as
// a flat binary segment plus JSON sidecar files. Candidate ranking uses
// a brute-force cosine scan rather than an approximate graph index, per
// the explicit flat-store decision recorded in DESIGN.md.
package embedstore

import (
	"math"
	"sort"
	"sync"

	"github.com/bartolli/codanna/internal/errors"
	"github.com/bartolli/codanna/internal/model"
)

// Vector is a dense embedding.
type Vector []float32

// Entry is one vector to store, as produced by the embedding lifecycle.
type Entry struct {
	Id       model.SymbolId
	Vector   Vector
	Language string
}

// ScoredSymbol is one search result.
type ScoredSymbol struct {
	Id    model.SymbolId
	Score float64
}

// Store is the EmbeddingStore.
type Store struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[model.SymbolId]Vector
	languages map[model.SymbolId]string
}

// New creates an empty store for the given vector dimension. Passing a
// dimension of 0 defers dimension validation until the first
// StoreEmbeddings call, which fixes it from the first accepted vector.
func New(dimension int) *Store {
	return &Store{
		dimension: dimension,
		vectors:   make(map[model.SymbolId]Vector),
		languages: make(map[model.SymbolId]string),
	}
}

// Dimension reports the store's fixed vector width, or 0 if unset.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

// StoreEmbeddings appends entries to the in-memory map. Entries whose
// vector length does not match the store's dimension are rejected; the
// first accepted entry in an unset store fixes the dimension for all
// later calls.
func (s *Store) StoreEmbeddings(entries []Entry) (stored, rejected int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if s.dimension == 0 && len(s.vectors) == 0 && stored == 0 {
			s.dimension = len(e.Vector)
		}
		if len(e.Vector) != s.dimension {
			rejected++
			continue
		}
		s.vectors[e.Id] = e.Vector
		if e.Language != "" {
			s.languages[e.Id] = e.Language
		}
		stored++
	}
	return stored, rejected
}

// RemoveEmbeddings removes every given id from both the vector and
// language maps. Missing ids are silently ignored.
func (s *Store) RemoveEmbeddings(ids []model.SymbolId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.vectors, id)
		delete(s.languages, id)
	}
}

// Count reports the number of stored vectors.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Search computes cosine similarity between query and every candidate
// vector, filters by language first when language is non-empty, and
// returns up to k results with score >= minScore, ordered by
// descending score.
func (s *Store) Search(query Vector, k int, minScore float64, language string) ([]ScoredSymbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension != 0 && len(query) != s.dimension {
		return nil, errors.DimensionMismatch(s.dimension, len(query))
	}

	results := make([]ScoredSymbol, 0, len(s.vectors))
	for id, vec := range s.vectors {
		if language != "" {
			if lang, ok := s.languages[id]; !ok || lang != language {
				continue
			}
		}
		score := cosineSimilarity(query, vec)
		if score >= minScore {
			results = append(results, ScoredSymbol{Id: id, Score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func cosineSimilarity(a, b Vector) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func float32bits(f float32) uint32    { return math.Float32bits(f) }
func float32frombits(b uint32) float32 { return math.Float32frombits(b) }
