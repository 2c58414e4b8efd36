package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/match"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
)

// VectorSearch ranks live documents in q.Filter by cosine similarity to
// q.Embedding. Documents without a vector are skipped. Vectors are compared
// in process; the corpus is small enough that a scan is fine.
func (s *Store) VectorSearch(ctx context.Context, q models.VectorQuery) ([]models.KnowledgeDocument, error) {
	if err := s.checkDim(q.Embedding); err != nil {
		return nil, err
	}
	where, args := filterClause(q.Filter)
	docs, err := s.query(ctx,
		`SELECT `+docColumns+` FROM documents d WHERE `+where+` AND d.embedding IS NOT NULL`,
		args...,
	)
	if err != nil {
		return nil, err
	}

	scored := docs[:0]
	for _, d := range docs {
		if len(d.Embedding) != len(q.Embedding) {
			continue
		}
		d.Score = cosineSimilarity(q.Embedding, d.Embedding)
		scored = append(scored, d)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})
	limit := limitOr(q.Limit, 5)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	for i := range scored {
		scored[i].Embedding = nil
	}
	return scored, nil
}

// KeywordSearch runs an FTS5 match over title, content and tags. The query is
// reduced to quoted tokens joined by OR so user text cannot break the syntax.
func (s *Store) KeywordSearch(ctx context.Context, query string, limit int, f models.KnowledgeFilter) ([]models.KnowledgeDocument, error) {
	fts := ftsQuery(query)
	if fts == "" {
		return nil, nil
	}
	where, args := filterClause(f)
	args = append([]any{fts}, args...)
	args = append(args, limitOr(limit, 5))

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prefixed("d.", docColumns)+`, bm25(documents_fts) AS score
		 FROM documents_fts
		 JOIN documents d ON d.rowid = documents_fts.rowid
		 WHERE documents_fts MATCH ? AND `+where+`
		 ORDER BY score, d.created_at DESC
		 LIMIT ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("search documents fts: %w", err)
	}
	defer rows.Close()

	var docs []models.KnowledgeDocument
	for rows.Next() {
		var rank float64
		doc, err := scanDocument(rankScanner{rows, &rank})
		if err != nil {
			return nil, err
		}
		doc.Score = 1.0 / (1.0 + math.Abs(rank))
		doc.Embedding = nil
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Recent returns the newest live documents tagged tag within f.
func (s *Store) Recent(ctx context.Context, tag string, limit int, f models.KnowledgeFilter) ([]models.KnowledgeDocument, error) {
	f.Tag = tag
	f.Limit = limitOr(limit, 2)
	docs, err := s.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Embedding = nil
	}
	return docs, nil
}

// rankScanner appends the trailing rank column to a document scan.
type rankScanner struct {
	sc   scanner
	rank *float64
}

func (r rankScanner) Scan(dest ...any) error {
	return r.sc.Scan(append(dest, r.rank)...)
}

func ftsQuery(q string) string {
	tokens := match.Tokenize(q)
	seen := make(map[string]bool, len(tokens))
	parts := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if seen[t] {
			continue
		}
		seen[t] = true
		parts = append(parts, `"`+t+`"`)
	}
	return strings.Join(parts, " OR ")
}

func prefixed(prefix, cols string) string {
	fields := strings.Split(cols, ",")
	for i, f := range fields {
		fields[i] = prefix + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
