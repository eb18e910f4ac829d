package vectorindex

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
)

// MemoryIndex 暴力余弦相似度，向量按 L2 归一化后存储
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	records   []Record
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

func (m *MemoryIndex) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimension = dimension
	m.records = nil
	return nil
}

// Upsert 同一文档同一块号会被覆盖
func (m *MemoryIndex) Upsert(ctx context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if len(r.Vector) != m.dimension {
			return ErrDimensionMismatch
		}
	}

	for _, r := range records {
		r.Vector = normalize(r.Vector)
		replaced := false
		for i := range m.records {
			if m.records[i].DocumentID == r.DocumentID && m.records[i].ChunkIndex == r.ChunkIndex {
				m.records[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			m.records = append(m.records, r)
		}
	}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		k = 3
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(vector) != m.dimension {
		return nil, ErrDimensionMismatch
	}
	q := normalize(vector)

	hits := make([]Hit, 0, len(m.records))
	for _, r := range m.records {
		hits = append(hits, Hit{
			DocumentID: r.DocumentID,
			ChunkIndex: r.ChunkIndex,
			Content:    r.Content,
			Score:      dot(q, r.Vector),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *MemoryIndex) Delete(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	for _, r := range m.records {
		if r.DocumentID != documentID {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return nil
}

func (m *MemoryIndex) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}

func (m *MemoryIndex) Close() error {
	return nil
}

// Len 当前块数
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func normalize(v []float32) []float32 {
	norm := dot(v, v)
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	inv := 1 / math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}
