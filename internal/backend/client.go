// Package backend talks to the backend's knowledge persistence REST API. It
// offers the same method set as the SQLite store so either can back the
// knowledge tools and retrieval.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/httpclient"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/storage"
)

// Client is a knowledge API client.
type Client struct {
	baseURL string
	dim     int
	http    *httpclient.Client
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, dim int, client *httpclient.Client) *Client {
	if dim <= 0 {
		dim = storage.DefaultDimension
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), dim: dim, http: client}
}

// Dimension returns the embedding length the client enforces.
func (c *Client) Dimension() int { return c.dim }

func (c *Client) checkDim(vec []float32) error {
	if len(vec) != c.dim {
		return fmt.Errorf("%w: got %d, want %d", storage.ErrDimension, len(vec), c.dim)
	}
	return nil
}

// Create upserts doc on its (source, url, version, section) key.
func (c *Client) Create(ctx context.Context, doc models.KnowledgeDocument) (*models.KnowledgeDocument, error) {
	if doc.Embedding != nil {
		if err := c.checkDim(doc.Embedding); err != nil {
			return nil, err
		}
	}
	var out models.KnowledgeDocument
	if err := c.do(ctx, http.MethodPost, "/knowledge", nil, doc, &out); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	return &out, nil
}

// Update applies patch to document id.
func (c *Client) Update(ctx context.Context, id string, patch models.KnowledgePatch) (*models.KnowledgeDocument, error) {
	var out models.KnowledgeDocument
	if err := c.do(ctx, http.MethodPatch, "/knowledge/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, fmt.Errorf("update document %s: %w", id, err)
	}
	return &out, nil
}

// Delete removes document id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/knowledge/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// Get fetches document id.
func (c *Client) Get(ctx context.Context, id string) (*models.KnowledgeDocument, error) {
	var out models.KnowledgeDocument
	if err := c.do(ctx, http.MethodGet, "/knowledge/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &out, nil
}

// List returns documents matching f.
func (c *Client) List(ctx context.Context, f models.KnowledgeFilter) ([]models.KnowledgeDocument, error) {
	var out []models.KnowledgeDocument
	if err := c.do(ctx, http.MethodGet, "/knowledge", filterQuery(f), nil, &out); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return nonNil(out), nil
}

// VectorSearch asks the API for the nearest neighbors of q.Embedding.
func (c *Client) VectorSearch(ctx context.Context, q models.VectorQuery) ([]models.KnowledgeDocument, error) {
	if err := c.checkDim(q.Embedding); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		q.Limit = 5
	}
	var out []models.KnowledgeDocument
	if err := c.do(ctx, http.MethodPost, "/knowledge/search/vector", nil, q, &out); err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return nonNil(out), nil
}

type keywordRequest struct {
	Query   string                 `json:"query"`
	Limit   int                    `json:"limit"`
	Filters models.KnowledgeFilter `json:"filters"`
}

// KeywordSearch runs the API's full-text search.
func (c *Client) KeywordSearch(ctx context.Context, query string, limit int, f models.KnowledgeFilter) ([]models.KnowledgeDocument, error) {
	if limit <= 0 {
		limit = 5
	}
	var out []models.KnowledgeDocument
	body := keywordRequest{Query: query, Limit: limit, Filters: f}
	if err := c.do(ctx, http.MethodPost, "/knowledge/search/keyword", nil, body, &out); err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return nonNil(out), nil
}

// Recent returns the newest documents tagged tag within f.
func (c *Client) Recent(ctx context.Context, tag string, limit int, f models.KnowledgeFilter) ([]models.KnowledgeDocument, error) {
	if limit <= 0 {
		limit = 2
	}
	f.Tag = tag
	f.Limit = limit
	var out []models.KnowledgeDocument
	if err := c.do(ctx, http.MethodGet, "/knowledge/recent", filterQuery(f), nil, &out); err != nil {
		return nil, fmt.Errorf("recent documents: %w", err)
	}
	return nonNil(out), nil
}

// UpdateEmbedding replaces the embedding of document id.
func (c *Client) UpdateEmbedding(ctx context.Context, id string, vec []float32) error {
	if err := c.checkDim(vec); err != nil {
		return err
	}
	body := struct {
		Embedding []float32 `json:"embedding"`
	}{vec}
	if err := c.do(ctx, http.MethodPut, "/knowledge/"+url.PathEscape(id)+"/embedding", nil, body, nil); err != nil {
		return fmt.Errorf("update embedding %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	err := c.http.DoJSON(ctx, method, u, body, out)
	var se *httpclient.StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, se.Error())
	}
	return err
}

func filterQuery(f models.KnowledgeFilter) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("source", f.Source)
	set("category", f.Category)
	set("guild_id", f.GuildID)
	set("channel_id", f.ChannelID)
	set("tag", f.Tag)
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

func nonNil(docs []models.KnowledgeDocument) []models.KnowledgeDocument {
	if docs == nil {
		return []models.KnowledgeDocument{}
	}
	return docs
}
