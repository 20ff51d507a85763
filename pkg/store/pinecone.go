package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xhad/tutor/internal/models"
)

const pineconeAPIVersion = "2025-01"

type PineconeConfig struct {
	APIKey     string
	IndexHost  string
	VectorDim  int
	BatchSize  int
	HTTPClient *http.Client
}

// PineconeIndex talks to a Pinecone serverless index over its data
// plane REST API. One namespace per document.
type PineconeIndex struct {
	config     PineconeConfig
	httpClient *http.Client
	baseURL    string
}

func NewPineconeWithConfig(config PineconeConfig) (*PineconeIndex, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("pinecone API key is required")
	}
	if config.IndexHost == "" {
		return nil, fmt.Errorf("pinecone index host is required")
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := config.IndexHost
	if !strings.HasPrefix(baseURL, "http") {
		baseURL = "https://" + baseURL
	}

	return &PineconeIndex{
		config:     config,
		httpClient: config.HTTPClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}, nil
}

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type pineconeUpsertRequest struct {
	Vectors   []pineconeVector `json:"vectors"`
	Namespace string           `json:"namespace"`
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Namespace       string    `json:"namespace"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Metadata map[string]any `json:"metadata"`
	} `json:"matches"`
}

type pineconeDeleteRequest struct {
	DeleteAll bool   `json:"deleteAll"`
	Namespace string `json:"namespace"`
}

type pineconeListResponse struct {
	Vectors []struct {
		ID string `json:"id"`
	} `json:"vectors"`
}

type pineconeFetchResponse struct {
	Vectors map[string]pineconeVector `json:"vectors"`
}

func (p *PineconeIndex) Upsert(ctx context.Context, namespace string, records []models.VectorRecord) error {
	for start := 0; start < len(records); start += p.config.BatchSize {
		end := start + p.config.BatchSize
		if end > len(records) {
			end = len(records)
		}

		vectors := make([]pineconeVector, 0, end-start)
		for _, rec := range records[start:end] {
			vectors = append(vectors, pineconeVector{
				ID:     rec.ID,
				Values: rec.Values,
				Metadata: map[string]any{
					"text":        rec.Chunk.Text,
					"document_id": rec.Chunk.DocumentID,
					"user_id":     rec.Chunk.UserID,
					"chunk_index": rec.Chunk.Index,
					"filename":    rec.Chunk.Filename,
					"source_url":  rec.Chunk.SourceURL,
				},
			})
		}

		req := pineconeUpsertRequest{Vectors: vectors, Namespace: namespace}
		if err := p.doJSON(ctx, http.MethodPost, "/vectors/upsert", req, nil); err != nil {
			return fmt.Errorf("pinecone upsert: %w", err)
		}
	}
	return nil
}

func (p *PineconeIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.Match, error) {
	req := pineconeQueryRequest{
		Vector:          vector,
		TopK:            topK,
		Namespace:       namespace,
		IncludeMetadata: true,
	}

	var resp pineconeQueryResponse
	if err := p.doJSON(ctx, http.MethodPost, "/query", req, &resp); err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}

	matches := make([]models.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, models.Match{
			ID:    m.ID,
			Score: m.Score,
			Chunk: chunkFromMetadata(m.Metadata),
		})
	}
	return matches, nil
}

// Sample lists up to limit ids in the namespace and fetches their
// metadata. Listing avoids similarity search entirely; cosine indexes
// reject zero-vector queries, so sampling cannot go through Query.
func (p *PineconeIndex) Sample(ctx context.Context, namespace string, limit int) ([]models.Match, error) {
	listQuery := url.Values{}
	listQuery.Set("namespace", namespace)
	listQuery.Set("limit", strconv.Itoa(limit))

	var listed pineconeListResponse
	if err := p.doJSON(ctx, http.MethodGet, "/vectors/list?"+listQuery.Encode(), nil, &listed); err != nil {
		return nil, fmt.Errorf("pinecone list: %w", err)
	}
	if len(listed.Vectors) == 0 {
		return nil, nil
	}

	fetchQuery := url.Values{}
	fetchQuery.Set("namespace", namespace)
	for _, v := range listed.Vectors {
		fetchQuery.Add("ids", v.ID)
	}

	var fetched pineconeFetchResponse
	if err := p.doJSON(ctx, http.MethodGet, "/vectors/fetch?"+fetchQuery.Encode(), nil, &fetched); err != nil {
		return nil, fmt.Errorf("pinecone fetch: %w", err)
	}

	matches := make([]models.Match, 0, len(fetched.Vectors))
	for id, vec := range fetched.Vectors {
		matches = append(matches, models.Match{
			ID:    id,
			Chunk: chunkFromMetadata(vec.Metadata),
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Chunk.Index < matches[j].Chunk.Index
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (p *PineconeIndex) Delete(ctx context.Context, namespace string) error {
	req := pineconeDeleteRequest{DeleteAll: true, Namespace: namespace}
	if err := p.doJSON(ctx, http.MethodPost, "/vectors/delete", req, nil); err != nil {
		return fmt.Errorf("pinecone delete: %w", err)
	}
	return nil
}

func (p *PineconeIndex) Dimensions() int {
	return p.config.VectorDim
}

func (p *PineconeIndex) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Api-Key", p.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", pineconeAPIVersion)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("pinecone %s %s: status %d: %s", method, path, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func chunkFromMetadata(meta map[string]any) models.Chunk {
	chunk := models.Chunk{}
	if meta == nil {
		return chunk
	}
	if v, ok := meta["text"].(string); ok {
		chunk.Text = v
	}
	if v, ok := meta["document_id"].(string); ok {
		chunk.DocumentID = v
	}
	if v, ok := meta["user_id"].(string); ok {
		chunk.UserID = v
	}
	if v, ok := meta["chunk_index"].(float64); ok {
		chunk.Index = int(v)
	}
	if v, ok := meta["filename"].(string); ok {
		chunk.Filename = v
	}
	if v, ok := meta["source_url"].(string); ok {
		chunk.SourceURL = v
	}
	return chunk
}
