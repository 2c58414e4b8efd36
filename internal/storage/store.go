package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
)

// DefaultDimension is the embedding length used when none is configured.
const DefaultDimension = 1536

var (
	// ErrNotFound is returned when no live document has the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrDimension is returned for embeddings whose length differs from the
	// store's dimension.
	ErrDimension = errors.New("embedding dimension mismatch")
)

const docColumns = `id, source, category, section, title, content, tags, url, version, guild_id, channel_id, embedding, created_at, updated_at`

// Store is the SQLite knowledge document store.
type Store struct {
	db  *sql.DB
	dim int
}

// Open opens (or creates) knowledge.db under dataDir and migrates it.
func Open(dataDir string, dim int) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if dim <= 0 {
		dim = DefaultDimension
	}
	dbPath := filepath.Join(dataDir, "knowledge.db")
	db, err := sql.Open("sqlite3", "file:"+dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open knowledge db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping knowledge db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate knowledge db: %w", err)
	}
	if _, err := db.Exec(Triggers); err != nil {
		db.Close()
		return nil, fmt.Errorf("create knowledge triggers: %w", err)
	}
	return &Store{db: db, dim: dim}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dimension returns the accepted embedding length.
func (s *Store) Dimension() int {
	return s.dim
}

func (s *Store) checkDim(vec []float32) error {
	if len(vec) != s.dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(vec), s.dim)
	}
	return nil
}

// Create stores doc, or updates the live document with the same
// (source, url, version, section) in place, keeping its id.
func (s *Store) Create(ctx context.Context, doc models.KnowledgeDocument) (*models.KnowledgeDocument, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return nil, errors.New("content is required")
	}
	if doc.Source == "" || doc.URL == "" {
		return nil, errors.New("source and url are required")
	}
	var embedding sql.NullString
	if doc.Embedding != nil {
		if err := s.checkDim(doc.Embedding); err != nil {
			return nil, err
		}
		raw, _ := json.Marshal(doc.Embedding)
		embedding = sql.NullString{String: string(raw), Valid: true}
	}
	tags, _ := json.Marshal(nonNil(doc.Tags))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE source = ? AND url = ? AND version = ? AND section = ? AND deleted_at IS NULL`,
		doc.Source, doc.URL, doc.Version, doc.Section,
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (id, source, category, section, title, content, tags, url, version, guild_id, channel_id, embedding)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, doc.Source, doc.Category, doc.Section, doc.Title, doc.Content, string(tags),
			doc.URL, doc.Version, doc.GuildID, doc.ChannelID, embedding,
		)
		if err != nil {
			return nil, fmt.Errorf("insert document: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("lookup document: %w", err)
	default:
		// an upsert without a vector keeps the stored one
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET category = ?, title = ?, content = ?, tags = ?, guild_id = ?, channel_id = ?,
			 embedding = COALESCE(?, embedding), updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
			 WHERE id = ?`,
			doc.Category, doc.Title, doc.Content, string(tags), doc.GuildID, doc.ChannelID, embedding, id,
		)
		if err != nil {
			return nil, fmt.Errorf("update document: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.Get(ctx, id)
}

// Update applies patch to a live document.
func (s *Store) Update(ctx context.Context, id string, patch models.KnowledgePatch) (*models.KnowledgeDocument, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.Section != nil {
		add("section", *patch.Section)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Content != nil {
		if strings.TrimSpace(*patch.Content) == "" {
			return nil, errors.New("content cannot be empty")
		}
		add("content", *patch.Content)
	}
	if patch.Tags != nil {
		raw, _ := json.Marshal(nonNil(*patch.Tags))
		add("tags", string(raw))
	}
	if patch.Version != nil {
		add("version", *patch.Version)
	}
	if len(sets) == 0 {
		return s.Get(ctx, id)
	}
	sets = append(sets, "updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')")
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET `+strings.Join(sets, ", ")+` WHERE id = ? AND deleted_at IS NULL`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes a document.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET deleted_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ? AND deleted_at IS NULL`, id,
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a live document by id.
func (s *Store) Get(ctx context.Context, id string) (*models.KnowledgeDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+docColumns+` FROM documents WHERE id = ? AND deleted_at IS NULL`, id,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns live documents in f, newest first.
func (s *Store) List(ctx context.Context, f models.KnowledgeFilter) ([]models.KnowledgeDocument, error) {
	where, args := filterClause(f)
	args = append(args, limitOr(f.Limit, 50))
	return s.query(ctx,
		`SELECT `+docColumns+` FROM documents d WHERE `+where+` ORDER BY d.created_at DESC, d.rowid DESC LIMIT ?`,
		args...,
	)
}

// UpdateEmbedding replaces a document's vector. Vectors of the wrong length
// are rejected with ErrDimension.
func (s *Store) UpdateEmbedding(ctx context.Context, id string, vec []float32) error {
	if err := s.checkDim(vec); err != nil {
		return err
	}
	raw, _ := json.Marshal(vec)
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET embedding = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now') WHERE id = ? AND deleted_at IS NULL`,
		string(raw), id,
	)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// filterClause builds the WHERE clause for f over alias d.
func filterClause(f models.KnowledgeFilter) (string, []any) {
	conds := []string{"d.deleted_at IS NULL"}
	var args []any
	if f.Source != "" {
		conds = append(conds, "d.source = ?")
		args = append(args, f.Source)
	}
	if f.Category != "" {
		conds = append(conds, "d.category = ?")
		args = append(args, f.Category)
	}
	if f.GuildID != "" {
		conds = append(conds, "d.guild_id = ?")
		args = append(args, f.GuildID)
	}
	if f.ChannelID != "" {
		conds = append(conds, "d.channel_id = ?")
		args = append(args, f.ChannelID)
	}
	if f.Tag != "" {
		conds = append(conds, "EXISTS (SELECT 1 FROM json_each(d.tags) WHERE json_each.value = ?)")
		args = append(args, f.Tag)
	}
	return strings.Join(conds, " AND "), args
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]models.KnowledgeDocument, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.KnowledgeDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*models.KnowledgeDocument, error) {
	var d models.KnowledgeDocument
	var tags string
	var embedding sql.NullString
	err := sc.Scan(&d.ID, &d.Source, &d.Category, &d.Section, &d.Title, &d.Content, &tags,
		&d.URL, &d.Version, &d.GuildID, &d.ChannelID, &embedding, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		d.Tags = nil
	}
	if embedding.Valid && embedding.String != "" {
		if err := json.Unmarshal([]byte(embedding.String), &d.Embedding); err != nil {
			d.Embedding = nil
		}
	}
	return &d, nil
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
