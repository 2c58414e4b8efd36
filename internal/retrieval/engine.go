// Package retrieval ranks supporting text for a free-form question across the
// conversation log and the curated knowledge corpus, and composes several
// ranked buckets into one deduplicated, capped context list.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/logger"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
)

// Snippet sources.
const (
	SourceConversation = "conversation"
	SourceKnowledge    = "knowledge"
	SourceSummary      = "daily-summary"
)

// SummaryTag marks the daily summary documents a temporal hint pulls in.
const SummaryTag = "daily-summary"

// Corpus selects what a request searches.
type Corpus string

const (
	CorpusConversation Corpus = "conversation"
	CorpusKnowledge    Corpus = "knowledge"
	CorpusBoth         Corpus = "both"
)

// Snippet is one ranked piece of context.
type Snippet struct {
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Score     float64 `json:"score"`
	Ref       string  `json:"ref,omitempty"`
	Title     string  `json:"title,omitempty"`
	Channel   string  `json:"channel,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// MessageSource lists buffered conversation messages.
type MessageSource interface {
	Messages(ctx context.Context, channel string) ([]models.ConversationMessage, error)
}

// KnowledgeIndex is the read side of the knowledge persistence API.
type KnowledgeIndex interface {
	VectorSearch(ctx context.Context, q models.VectorQuery) ([]models.KnowledgeDocument, error)
	KeywordSearch(ctx context.Context, query string, limit int, f models.KnowledgeFilter) ([]models.KnowledgeDocument, error)
	Recent(ctx context.Context, tag string, limit int, f models.KnowledgeFilter) ([]models.KnowledgeDocument, error)
}

// Embedder computes query embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options tunes an Engine.
type Options struct {
	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
	DefaultK      int
	Logger        *logger.Logger
	Now           func() time.Time
}

// Engine runs retrieval. Any collaborator may be nil; the matching corpus
// then yields nothing.
type Engine struct {
	messages MessageSource
	index    KnowledgeIndex
	embedder Embedder
	opts     Options
	log      *logger.Logger
}

// New creates an Engine.
func New(messages MessageSource, index KnowledgeIndex, embedder Embedder, opts Options) *Engine {
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 10 * time.Second
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = 10 * time.Second
	}
	if opts.DefaultK <= 0 {
		opts.DefaultK = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	return &Engine{
		messages: messages,
		index:    index,
		embedder: embedder,
		opts:     opts,
		log:      opts.Logger.With("service", "Retrieval"),
	}
}

// Request is one retrieval against one corpus selection.
type Request struct {
	Query        string
	K            int
	Corpus       Corpus
	Channel      string
	Filter       models.KnowledgeFilter
	TemporalHint bool
}

// Conversation ranks buffered messages of channel (all channels when empty).
func (e *Engine) Conversation(ctx context.Context, query, channel string, k int) ([]Snippet, error) {
	if e.messages == nil || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	msgs, err := e.messages.Messages(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return RankMessages(query, msgs, e.k(k), e.opts.Now()), nil
}

// Knowledge ranks curated documents: vector search on the query embedding,
// keyword search when the embedding or the vector search gives nothing. With
// temporalHint the newest daily summaries in scope go first, and they are
// still returned when ranked search fails.
func (e *Engine) Knowledge(ctx context.Context, query string, k int, f models.KnowledgeFilter, temporalHint bool) ([]Snippet, error) {
	if e.index == nil || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	k = e.k(k)

	var out []Snippet
	seen := map[string]bool{}
	if temporalHint {
		rctx, cancel := context.WithTimeout(ctx, e.opts.SearchTimeout)
		summaries, err := e.index.Recent(rctx, SummaryTag, 2, f)
		cancel()
		if err != nil {
			e.log.Warn("daily summary lookup failed", "error", err)
		}
		for _, d := range summaries {
			seen[d.ID] = true
			out = append(out, docSnippet(d, SourceSummary))
		}
	}

	docs, err := e.ranked(ctx, query, k, f)
	if err != nil {
		if len(out) == 0 {
			return nil, err
		}
		e.log.Warn("ranked retrieval failed, returning summaries only", "error", err)
	}
	for _, d := range docs {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, docSnippet(d, SourceKnowledge))
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// ranked runs vector search, then keyword search when that fails or is empty.
func (e *Engine) ranked(ctx context.Context, query string, k int, f models.KnowledgeFilter) ([]models.KnowledgeDocument, error) {
	docs, err := e.vector(ctx, query, k, f)
	if err == nil && len(docs) > 0 {
		return docs, nil
	}
	if err != nil {
		e.log.Warn("vector retrieval failed, using keyword search", "error", err)
	}
	kctx, cancel := context.WithTimeout(ctx, e.opts.SearchTimeout)
	defer cancel()
	docs, err = e.index.KeywordSearch(kctx, query, k, f)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	return docs, nil
}

func (e *Engine) vector(ctx context.Context, query string, k int, f models.KnowledgeFilter) ([]models.KnowledgeDocument, error) {
	if e.embedder == nil {
		return nil, nil
	}
	ectx, cancel := context.WithTimeout(ctx, e.opts.EmbedTimeout)
	vec, err := e.embedder.Embed(ectx, query)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) == 0 {
		return nil, nil
	}
	sctx, cancel := context.WithTimeout(ctx, e.opts.SearchTimeout)
	defer cancel()
	docs, err := e.index.VectorSearch(sctx, models.VectorQuery{Embedding: vec, Limit: k, Filter: f})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return docs, nil
}

func docSnippet(d models.KnowledgeDocument, src string) Snippet {
	ref := d.URL
	if d.Section != "" {
		ref += "#" + d.Section
	}
	return Snippet{
		Text:      d.Content,
		Source:    src,
		Score:     d.Score,
		Ref:       ref,
		Title:     d.Title,
		Channel:   d.ChannelID,
		CreatedAt: d.CreatedAt,
	}
}

// Retrieve answers one request. For CorpusBoth the knowledge results rank
// ahead of the conversation results.
func (e *Engine) Retrieve(ctx context.Context, req Request) []Snippet {
	return e.Compose(ctx, e.Buckets(req), e.k(req.K))
}

// Buckets expands a request into its ranked buckets, highest priority first.
func (e *Engine) Buckets(req Request) []Bucket {
	conv := Bucket{Name: "conversation", Fetch: func(ctx context.Context) ([]Snippet, error) {
		return e.Conversation(ctx, req.Query, req.Channel, req.K)
	}}
	know := Bucket{Name: "knowledge", Fetch: func(ctx context.Context) ([]Snippet, error) {
		return e.Knowledge(ctx, req.Query, req.K, req.Filter, req.TemporalHint)
	}}
	switch req.Corpus {
	case CorpusConversation:
		return []Bucket{conv}
	case CorpusKnowledge:
		return []Bucket{know}
	case CorpusBoth, "":
		return []Bucket{know, conv}
	}
	return nil
}

// Bucket is one independently ranked source of snippets.
type Bucket struct {
	Name  string
	Fetch func(ctx context.Context) ([]Snippet, error)
}

var errPanicked = errors.New("bucket panicked")

// Compose fetches every bucket concurrently, concatenates the results in
// bucket order, drops repeated snippet text (first occurrence wins) and
// truncates to limit (the default k when not positive). A failing bucket
// contributes nothing.
func (e *Engine) Compose(ctx context.Context, buckets []Bucket, limit int) []Snippet {
	limit = e.k(limit)
	results := make([][]Snippet, len(buckets))
	var g errgroup.Group
	for i, b := range buckets {
		g.Go(func() error {
			snippets, err := e.fetch(ctx, b)
			if err != nil {
				e.log.Warn("retrieval bucket failed", "bucket", b.Name, "error", err)
				return nil
			}
			results[i] = snippets
			return nil
		})
	}
	_ = g.Wait()

	out := []Snippet{}
	seen := map[string]bool{}
	for _, rs := range results {
		for _, s := range rs {
			if seen[s.Text] {
				continue
			}
			seen[s.Text] = true
			out = append(out, s)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

func (e *Engine) fetch(ctx context.Context, b Bucket) (snippets []Snippet, err error) {
	if b.Fetch == nil {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			snippets, err = nil, fmt.Errorf("%w: %v", errPanicked, r)
		}
	}()
	return b.Fetch(ctx)
}

func (e *Engine) k(k int) int {
	if k <= 0 {
		return e.opts.DefaultK
	}
	return k
}
