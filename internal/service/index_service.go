package service

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/embedding"
	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/pkg/textutil"
	"github.com/qs3c/rfq_alchemy/internal/repository"
	"github.com/qs3c/rfq_alchemy/internal/vectorindex"
)

const (
	defaultSearchK    = 3
	snippetLength     = 300
	chunksPerDocument = 4
	maxSearchChunks   = 4096
)

// SearchResult 按文档聚合后的检索结果
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
	Lexical    bool    `json:"lexical,omitempty"` // 向量检索不可用时的词项匹配结果
}

// IndexService 文档切块、向量化和检索
type IndexService struct {
	embedder embedding.Embedder
	index    vectorindex.Index
	docRepo  *repository.DocumentRepository
	cfg      config.VectorConfig
}

func NewIndexService(
	embedder embedding.Embedder,
	index vectorindex.Index,
	docRepo *repository.DocumentRepository,
	cfg config.VectorConfig,
) *IndexService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 200
	}
	if cfg.SearchK <= 0 {
		cfg.SearchK = defaultSearchK
	}
	return &IndexService{embedder: embedder, index: index, docRepo: docRepo, cfg: cfg}
}

func (s *IndexService) Init(ctx context.Context) error {
	return s.index.Init(ctx, s.embedder.Dimension())
}

func (s *IndexService) Close() error {
	return s.index.Close()
}

func documentText(doc *model.Document) string {
	return fmt.Sprintf("Title: %s\n\nContent: %s", doc.Title, doc.Content)
}

// IndexDocument 切块后整体替换该文档的向量
func (s *IndexService) IndexDocument(ctx context.Context, doc *model.Document) error {
	chunks := textutil.ChunkText(documentText(doc), s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", doc.ID, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed document %s: got %d vectors for %d chunks", doc.ID, len(vectors), len(chunks))
	}

	if err := s.index.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("clear index for %s: %w", doc.ID, err)
	}

	records := make([]vectorindex.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorindex.Record{
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    c,
			Vector:     vectors[i],
		}
	}
	return s.index.Upsert(ctx, records)
}

func (s *IndexService) Remove(ctx context.Context, documentID string) error {
	return s.index.Delete(ctx, documentID)
}

// Search 每个文档只保留得分最高的块；向量化失败时退回词项匹配
func (s *IndexService) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = s.cfg.SearchK
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		log.Printf("Embedding query failed, falling back to lexical search: %v", err)
		return s.lexicalSearch(query, k)
	}

	hits, err := s.searchChunks(ctx, vectors[0], k)
	if err != nil {
		log.Printf("Vector search failed, falling back to lexical search: %v", err)
		return s.lexicalSearch(query, k)
	}

	best := make(map[string]vectorindex.Hit)
	var order []string
	for _, h := range hits {
		cur, ok := best[h.DocumentID]
		if !ok {
			order = append(order, h.DocumentID)
		}
		if !ok || h.Score > cur.Score {
			best[h.DocumentID] = h
		}
	}

	docs, err := s.docRepo.GetByIDs(order)
	if err != nil {
		return nil, err
	}
	titles := make(map[string]string, len(docs))
	for _, d := range docs {
		titles[d.ID] = d.Title
	}

	results := make([]SearchResult, 0, len(best))
	for _, id := range order {
		title, ok := titles[id]
		if !ok {
			// 已删除文档的残留向量
			continue
		}
		h := best[id]
		results = append(results, SearchResult{
			DocumentID: id,
			Title:      title,
			Snippet:    textutil.Truncate(h.Content, snippetLength),
			Score:      h.Score,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// searchChunks 一个长文档可能占满前几名，块数不够 k 个文档时逐步放大检索范围
func (s *IndexService) searchChunks(ctx context.Context, vector []float32, k int) ([]vectorindex.Hit, error) {
	limit := k * chunksPerDocument
	for {
		hits, err := s.index.Search(ctx, vector, limit)
		if err != nil {
			return nil, err
		}
		docs := make(map[string]struct{}, k)
		for _, h := range hits {
			docs[h.DocumentID] = struct{}{}
		}
		if len(docs) >= k || len(hits) < limit || limit >= maxSearchChunks {
			return hits, nil
		}
		limit = min(limit*chunksPerDocument, maxSearchChunks)
	}
}

// lexicalSearch 查询词在文档中出现的比例
func (s *IndexService) lexicalSearch(query string, k int) ([]SearchResult, error) {
	terms := uniqueTokens(query)
	if len(terms) == 0 {
		return []SearchResult{}, nil
	}
	docs, err := s.docRepo.List("")
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0)
	for _, d := range docs {
		words := make(map[string]struct{})
		for _, w := range textutil.Tokenize(documentText(d)) {
			words[w] = struct{}{}
		}
		matched := 0
		for t := range terms {
			if _, ok := words[t]; ok {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		results = append(results, SearchResult{
			DocumentID: d.ID,
			Title:      d.Title,
			Snippet:    textutil.Truncate(d.Content, snippetLength),
			Score:      float64(matched) / float64(len(terms)),
			Lexical:    true,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func uniqueTokens(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range textutil.Tokenize(s) {
		out[t] = struct{}{}
	}
	return out
}

// Reindex 清空索引后重建全部文档，返回成功的文档数
func (s *IndexService) Reindex(ctx context.Context) (int, error) {
	if err := s.index.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset index: %w", err)
	}
	docs, err := s.docRepo.List("")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range docs {
		if err := s.IndexDocument(ctx, d); err != nil {
			log.Printf("Failed to index document %s: %v", d.ID, err)
			continue
		}
		n++
	}
	return n, nil
}
