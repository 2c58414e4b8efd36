package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/convlog"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/retrieval"
)

// RetrievalTools exposes context retrieval and the conversation buffer.
type RetrievalTools struct {
	Engine *retrieval.Engine
	Log    *convlog.Log
}

// --- Input types ---

type RetrieveContextInput struct {
	Query        string        `json:"query" jsonschema:"Free-text question to find supporting context for"`
	K            int           `json:"k,omitempty" jsonschema:"Maximum number of snippets (default 5)"`
	Corpus       string        `json:"corpus,omitempty" jsonschema:"conversation, knowledge or both (default both)"`
	Channel      string        `json:"channel,omitempty" jsonschema:"Restrict conversation retrieval to one channel"`
	Category     string        `json:"category,omitempty" jsonschema:"Restrict knowledge retrieval to one category"`
	GuildID      string        `json:"guild_id,omitempty" jsonschema:"Restrict knowledge retrieval to one guild"`
	ChannelID    string        `json:"channel_id,omitempty" jsonschema:"Restrict knowledge retrieval to one channel"`
	TemporalHint bool          `json:"temporal_hint,omitempty" jsonschema:"Put the latest daily summaries first, for questions about recent events"`
	Buckets      []BucketInput `json:"buckets,omitempty" jsonschema:"Optional extra queries, ranked in order and merged into one list"`
}

type BucketInput struct {
	Name   string `json:"name" jsonschema:"Label used in logs"`
	Query  string `json:"query" jsonschema:"Query for this bucket"`
	Corpus string `json:"corpus,omitempty" jsonschema:"conversation, knowledge or both (default both)"`
	K      int    `json:"k,omitempty" jsonschema:"Snippets to take from this bucket"`
}

type RecordMessagesInput struct {
	Messages []MessageInput `json:"messages" jsonschema:"Chat messages to buffer for conversation retrieval"`
}

type MessageInput struct {
	Author    string `json:"author" jsonschema:"Message author"`
	Channel   string `json:"channel" jsonschema:"Channel the message was posted in"`
	Content   string `json:"content" jsonschema:"Message text"`
	CreatedAt string `json:"created_at,omitempty" jsonschema:"RFC 3339 timestamp; defaults to now"`
}

// --- Handlers ---

func (t *RetrievalTools) RetrieveContext(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveContextInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(input.Query) == "" {
		return toolError("Query is required"), nil, nil
	}
	base := retrieval.Request{
		Query:   input.Query,
		K:       input.K,
		Corpus:  retrieval.Corpus(strings.ToLower(input.Corpus)),
		Channel: input.Channel,
		Filter: models.KnowledgeFilter{
			Category:  input.Category,
			GuildID:   input.GuildID,
			ChannelID: input.ChannelID,
		},
		TemporalHint: input.TemporalHint,
	}
	if len(input.Buckets) == 0 {
		return toolJSON(t.Engine.Retrieve(ctx, base))
	}

	// The main query ranks first, then the extra buckets in the order given.
	buckets := t.Engine.Buckets(base)
	for i, b := range input.Buckets {
		if strings.TrimSpace(b.Query) == "" {
			continue
		}
		req := base
		req.Query = b.Query
		req.Corpus = retrieval.Corpus(strings.ToLower(b.Corpus))
		if b.K > 0 {
			req.K = b.K
		}
		name := b.Name
		if name == "" {
			name = fmt.Sprintf("bucket-%d", i+1)
		}
		for _, sub := range t.Engine.Buckets(req) {
			sub.Name = name + "/" + sub.Name
			buckets = append(buckets, sub)
		}
	}
	return toolJSON(t.Engine.Compose(ctx, buckets, input.K))
}

func (t *RetrievalTools) RecordMessages(_ context.Context, _ *mcp.CallToolRequest, input RecordMessagesInput) (*mcp.CallToolResult, any, error) {
	msgs := make([]models.ConversationMessage, 0, len(input.Messages))
	for i, m := range input.Messages {
		msg := models.ConversationMessage{Author: m.Author, Channel: m.Channel, Content: m.Content}
		if m.CreatedAt != "" {
			ts, err := time.Parse(time.RFC3339, m.CreatedAt)
			if err != nil {
				return toolError("Message %d: invalid created_at %q", i+1, m.CreatedAt), nil, nil
			}
			msg.CreatedAt = ts.UTC()
		}
		msgs = append(msgs, msg)
	}
	kept := t.Log.Append(msgs...)
	return toolText(fmt.Sprintf("Recorded %d messages.", kept)), nil, nil
}
