package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/storage"
)

// KnowledgeStore is the write side of knowledge persistence, served by the
// SQLite store or the backend API client.
type KnowledgeStore interface {
	Create(ctx context.Context, doc models.KnowledgeDocument) (*models.KnowledgeDocument, error)
	Update(ctx context.Context, id string, patch models.KnowledgePatch) (*models.KnowledgeDocument, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f models.KnowledgeFilter) ([]models.KnowledgeDocument, error)
	UpdateEmbedding(ctx context.Context, id string, vec []float32) error
}

// Embedder computes document embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeTools manages curated documents. Embedder is optional; without it
// documents are stored without vectors and only keyword search finds them.
type KnowledgeTools struct {
	Store    KnowledgeStore
	Embedder Embedder
}

// --- Input types ---

type CreateDocumentInput struct {
	Source    string    `json:"source" jsonschema:"Where the document came from, e.g. wiki or patch-notes"`
	Category  string    `json:"category" jsonschema:"Document category"`
	Section   string    `json:"section,omitempty" jsonschema:"Section within the source page"`
	Title     string    `json:"title,omitempty" jsonschema:"Document title"`
	Content   string    `json:"content" jsonschema:"Document text"`
	Tags      []string  `json:"tags,omitempty" jsonschema:"Tags, e.g. daily-summary"`
	URL       string    `json:"url" jsonschema:"Source URL; with source, version and section it identifies the document"`
	Version   string    `json:"version,omitempty" jsonschema:"Game or document version"`
	GuildID   string    `json:"guild_id,omitempty" jsonschema:"Guild scope"`
	ChannelID string    `json:"channel_id,omitempty" jsonschema:"Channel scope"`
	Embedding []float32 `json:"embedding,omitempty" jsonschema:"Precomputed embedding; computed when omitted and an embedder is configured"`
}

type UpdateDocumentInput struct {
	ID       string    `json:"id" jsonschema:"Document id"`
	Category *string   `json:"category,omitempty" jsonschema:"New category"`
	Section  *string   `json:"section,omitempty" jsonschema:"New section"`
	Title    *string   `json:"title,omitempty" jsonschema:"New title"`
	Content  *string   `json:"content,omitempty" jsonschema:"New content"`
	Tags     *[]string `json:"tags,omitempty" jsonschema:"Replacement tag list"`
	Version  *string   `json:"version,omitempty" jsonschema:"New version"`
}

type DeleteDocumentInput struct {
	ID string `json:"id" jsonschema:"Document id"`
}

type ListDocumentsInput struct {
	Source    string `json:"source,omitempty" jsonschema:"Filter by source"`
	Category  string `json:"category,omitempty" jsonschema:"Filter by category"`
	GuildID   string `json:"guild_id,omitempty" jsonschema:"Filter by guild"`
	ChannelID string `json:"channel_id,omitempty" jsonschema:"Filter by channel"`
	Tag       string `json:"tag,omitempty" jsonschema:"Filter by tag"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum documents (default 50)"`
}

type UpdateEmbeddingInput struct {
	ID        string    `json:"id" jsonschema:"Document id"`
	Embedding []float32 `json:"embedding" jsonschema:"Replacement embedding of the configured dimension"`
}

// --- Handlers ---

func (t *KnowledgeTools) CreateDocument(ctx context.Context, _ *mcp.CallToolRequest, input CreateDocumentInput) (*mcp.CallToolResult, any, error) {
	doc := models.KnowledgeDocument{
		Source:    input.Source,
		Category:  input.Category,
		Section:   input.Section,
		Title:     input.Title,
		Content:   input.Content,
		Tags:      input.Tags,
		URL:       input.URL,
		Version:   input.Version,
		GuildID:   input.GuildID,
		ChannelID: input.ChannelID,
		Embedding: input.Embedding,
	}
	if len(doc.Embedding) == 0 && t.Embedder != nil && strings.TrimSpace(doc.Content) != "" {
		// Best effort: a document without a vector is still keyword searchable.
		if vec, err := t.Embedder.Embed(ctx, strings.TrimSpace(doc.Title+"\n"+doc.Content)); err == nil {
			doc.Embedding = vec
		}
	}

	created, err := t.Store.Create(ctx, doc)
	if errors.Is(err, storage.ErrDimension) {
		return toolError("Embedding rejected: %v", err), nil, nil
	}
	if err != nil {
		return toolError("Failed to create document: %v", err), nil, nil
	}
	created.Embedding = nil
	return toolJSON(created)
}

func (t *KnowledgeTools) UpdateDocument(ctx context.Context, _ *mcp.CallToolRequest, input UpdateDocumentInput) (*mcp.CallToolResult, any, error) {
	if input.ID == "" {
		return toolError("Document id is required"), nil, nil
	}
	updated, err := t.Store.Update(ctx, input.ID, models.KnowledgePatch{
		Category: input.Category,
		Section:  input.Section,
		Title:    input.Title,
		Content:  input.Content,
		Tags:     input.Tags,
		Version:  input.Version,
	})
	if errors.Is(err, storage.ErrNotFound) {
		return toolError("Document %q not found", input.ID), nil, nil
	}
	if err != nil {
		return toolError("Failed to update document: %v", err), nil, nil
	}
	updated.Embedding = nil
	return toolJSON(updated)
}

func (t *KnowledgeTools) DeleteDocument(ctx context.Context, _ *mcp.CallToolRequest, input DeleteDocumentInput) (*mcp.CallToolResult, any, error) {
	if input.ID == "" {
		return toolError("Document id is required"), nil, nil
	}
	err := t.Store.Delete(ctx, input.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return toolError("Document %q not found", input.ID), nil, nil
	}
	if err != nil {
		return toolError("Failed to delete document: %v", err), nil, nil
	}
	return toolText(fmt.Sprintf("Document %q deleted.", input.ID)), nil, nil
}

func (t *KnowledgeTools) ListDocuments(ctx context.Context, _ *mcp.CallToolRequest, input ListDocumentsInput) (*mcp.CallToolResult, any, error) {
	docs, err := t.Store.List(ctx, models.KnowledgeFilter{
		Source:    input.Source,
		Category:  input.Category,
		GuildID:   input.GuildID,
		ChannelID: input.ChannelID,
		Tag:       input.Tag,
		Limit:     input.Limit,
	})
	if err != nil {
		return toolError("Failed to list documents: %v", err), nil, nil
	}
	if docs == nil {
		docs = []models.KnowledgeDocument{}
	}
	for i := range docs {
		docs[i].Embedding = nil
	}
	return toolJSON(docs)
}

func (t *KnowledgeTools) UpdateEmbedding(ctx context.Context, _ *mcp.CallToolRequest, input UpdateEmbeddingInput) (*mcp.CallToolResult, any, error) {
	if input.ID == "" {
		return toolError("Document id is required"), nil, nil
	}
	err := t.Store.UpdateEmbedding(ctx, input.ID, input.Embedding)
	switch {
	case errors.Is(err, storage.ErrDimension):
		return toolError("Embedding rejected: %v", err), nil, nil
	case errors.Is(err, storage.ErrNotFound):
		return toolError("Document %q not found", input.ID), nil, nil
	case err != nil:
		return toolError("Failed to update embedding: %v", err), nil, nil
	}
	return toolText(fmt.Sprintf("Embedding of %q updated.", input.ID)), nil, nil
}
