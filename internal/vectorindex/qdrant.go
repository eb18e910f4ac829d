package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// qdrant 点 ID 只接受整数或 UUID，这里用文档 ID + 块号生成确定性的 UUID
var pointNamespace = uuid.MustParse("6f1c7c1e-4b7a-4f59-9a57-3c0f5d1e2a90")

type QdrantOptions struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// QdrantIndex Qdrant REST 客户端，使用余弦距离
type QdrantIndex struct {
	url        string
	collection string
	client     *http.Client
}

func NewQdrantIndex(ctx context.Context, opts QdrantOptions) *QdrantIndex {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	if opts.APIKey != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.APIKey, TokenType: "Bearer"})
		client = oauth2.NewClient(ctx, ts)
	}
	client = &http.Client{Transport: client.Transport, Timeout: timeout}

	collection := opts.Collection
	if collection == "" {
		collection = "rfq_documents"
	}

	return &QdrantIndex{
		url:        strings.TrimRight(opts.URL, "/"),
		collection: collection,
		client:     client,
	}
}

// Init 创建集合；已存在时 Qdrant 返回 409，视为成功
func (q *QdrantIndex) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	err := q.do(ctx, http.MethodPut, q.collectionURL(""), body, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusConflict {
		return nil
	}
	return err
}

func (q *QdrantIndex) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     pointID(r.DocumentID, r.ChunkIndex),
			"vector": r.Vector,
			"payload": map[string]any{
				"document_id": r.DocumentID,
				"chunk_index": r.ChunkIndex,
				"content":     r.Content,
			},
		}
	}
	return q.do(ctx, http.MethodPut, q.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (q *QdrantIndex) Search(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		k = 3
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64 `json:"score"`
			Payload struct {
				DocumentID string `json:"document_id"`
				ChunkIndex int    `json:"chunk_index"`
				Content    string `json:"content"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, q.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, Hit{
			DocumentID: r.Payload.DocumentID,
			ChunkIndex: r.Payload.ChunkIndex,
			Content:    r.Payload.Content,
			Score:      r.Score,
		})
	}
	return hits, nil
}

// Delete 按 payload 过滤删除文档的所有块
func (q *QdrantIndex) Delete(ctx context.Context, documentID string) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": documentID}},
			},
		},
	}
	return q.do(ctx, http.MethodPost, q.collectionURL("/points/delete?wait=true"), body, nil)
}

// Reset 删除整个集合，下次 Init 重建
func (q *QdrantIndex) Reset(ctx context.Context) error {
	err := q.do(ctx, http.MethodDelete, q.collectionURL(""), nil, nil)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return nil
	}
	return err
}

func (q *QdrantIndex) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

func (q *QdrantIndex) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", q.url, q.collection, suffix)
}

type statusError struct {
	method string
	url    string
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s", e.method, e.url, e.status)
}

func (q *QdrantIndex) do(ctx context.Context, method, url string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal qdrant request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &statusError{method: method, url: url, code: resp.StatusCode, status: resp.Status}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return nil
}

func pointID(documentID string, chunkIndex int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s:%d", documentID, chunkIndex))).String()
}
