package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/match"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeMessages []models.ConversationMessage

func (f fakeMessages) Messages(context.Context, string) ([]models.ConversationMessage, error) {
	return f, nil
}

type fakeIndex struct {
	vector  []models.KnowledgeDocument
	keyword []models.KnowledgeDocument
	recent  []models.KnowledgeDocument
	vecErr  error
	kwErr   error

	vectorCalls, keywordCalls int
	lastFilter                models.KnowledgeFilter
}

func (f *fakeIndex) VectorSearch(_ context.Context, q models.VectorQuery) ([]models.KnowledgeDocument, error) {
	f.vectorCalls++
	f.lastFilter = q.Filter
	return f.vector, f.vecErr
}

func (f *fakeIndex) KeywordSearch(_ context.Context, _ string, _ int, filter models.KnowledgeFilter) ([]models.KnowledgeDocument, error) {
	f.keywordCalls++
	f.lastFilter = filter
	return f.keyword, f.kwErr
}

func (f *fakeIndex) Recent(_ context.Context, tag string, limit int, _ models.KnowledgeFilter) ([]models.KnowledgeDocument, error) {
	if tag != SummaryTag || limit != 2 {
		return nil, errors.New("unexpected recent call")
	}
	return f.recent, nil
}

type embedFunc func(ctx context.Context, text string) ([]float32, error)

func (f embedFunc) Embed(ctx context.Context, text string) ([]float32, error) { return f(ctx, text) }

func okEmbed(context.Context, string) ([]float32, error) { return []float32{1, 0, 0}, nil }

func engine(msgs MessageSource, idx KnowledgeIndex, emb Embedder) *Engine {
	return New(msgs, idx, emb, Options{
		EmbedTimeout:  50 * time.Millisecond,
		SearchTimeout: 50 * time.Millisecond,
		Now:           func() time.Time { return now },
	})
}

func TestRecencyBonusBounds(t *testing.T) {
	assert.Equal(t, 0.5, RecencyBonus(now, now))
	assert.Equal(t, 0.5, RecencyBonus(now.Add(time.Hour), now))
	assert.InDelta(t, 0.25, RecencyBonus(now.Add(-15*24*time.Hour), now), 1e-9)
	assert.Equal(t, 0.0, RecencyBonus(now.Add(-30*24*time.Hour), now))
	assert.Equal(t, 0.0, RecencyBonus(now.Add(-400*24*time.Hour), now))

	for d := 0; d <= 40; d++ {
		b := RecencyBonus(now.Add(-time.Duration(d)*24*time.Hour), now)
		assert.GreaterOrEqual(t, b, 0.0)
		assert.LessOrEqual(t, b, 0.5)
	}
}

func TestRescoringLaterLowersScore(t *testing.T) {
	q := match.TokenSet("laranite price")
	m := models.ConversationMessage{Content: "Laranite price is up!", CreatedAt: now}

	fresh := ScoreMessage(q, m, now)
	stale := ScoreMessage(q, m, now.Add(31*24*time.Hour))
	assert.Equal(t, 2.5, fresh)
	assert.Equal(t, 2.0, stale)
	assert.Less(t, stale, fresh)
}

func TestRankMessages(t *testing.T) {
	msgs := []models.ConversationMessage{
		{Author: "a", Content: "selling laranite at lorville", CreatedAt: now.Add(-20 * 24 * time.Hour)},
		{Author: "b", Content: "Laranite, Lorville, best price!", CreatedAt: now.Add(-time.Hour)},
		{Author: "c", Content: "anyone up for racing", CreatedAt: now},
		{Author: "d", Content: "laranite", CreatedAt: now},
	}
	got := RankMessages("laranite lorville", msgs, 5, now)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[0].Ref)
	assert.Equal(t, "a", got[1].Ref)
	assert.Equal(t, "d", got[2].Ref)
	assert.Equal(t, SourceConversation, got[0].Source)

	assert.Len(t, RankMessages("laranite lorville", msgs, 1, now), 1)
	assert.Empty(t, RankMessages("!!!", msgs, 5, now))
}

func TestKnowledgePrefersVectorSearch(t *testing.T) {
	idx := &fakeIndex{
		vector:  []models.KnowledgeDocument{{ID: "v1", Content: "vector hit", Score: 0.9}},
		keyword: []models.KnowledgeDocument{{ID: "k1", Content: "keyword hit"}},
	}
	e := engine(nil, idx, embedFunc(okEmbed))

	got, err := e.Knowledge(context.Background(), "q", 3, models.KnowledgeFilter{GuildID: "g"}, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "vector hit", got[0].Text)
	assert.Equal(t, 0, idx.keywordCalls)
	assert.Equal(t, "g", idx.lastFilter.GuildID)
}

func TestKnowledgeFallsBackToKeyword(t *testing.T) {
	failing := embedFunc(func(context.Context, string) ([]float32, error) { return nil, errors.New("oracle down") })
	empty := embedFunc(func(context.Context, string) ([]float32, error) { return nil, nil })
	slow := embedFunc(func(ctx context.Context, _ string) ([]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	for name, emb := range map[string]Embedder{"error": failing, "empty": empty, "timeout": slow, "none": nil} {
		t.Run(name, func(t *testing.T) {
			idx := &fakeIndex{keyword: []models.KnowledgeDocument{{ID: "k1", Content: "keyword hit"}}}
			got, err := engine(nil, idx, emb).Knowledge(context.Background(), "q", 3, models.KnowledgeFilter{Category: "lore"}, false)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "keyword hit", got[0].Text)
			assert.Equal(t, 0, idx.vectorCalls)
			assert.Equal(t, "lore", idx.lastFilter.Category)
		})
	}

	idx := &fakeIndex{keyword: []models.KnowledgeDocument{{ID: "k1", Content: "keyword hit"}}}
	got, err := engine(nil, idx, embedFunc(okEmbed)).Knowledge(context.Background(), "q", 3, models.KnowledgeFilter{}, false)
	require.NoError(t, err)
	require.Len(t, got, 1, "an empty vector result falls back too")
	assert.Equal(t, 1, idx.vectorCalls)
}

func TestTemporalHintPrependsSummaries(t *testing.T) {
	idx := &fakeIndex{
		vector: []models.KnowledgeDocument{
			{ID: "v1", Content: "best match"},
			{ID: "s1", Content: "summary monday"},
			{ID: "v2", Content: "second match"},
		},
		recent: []models.KnowledgeDocument{
			{ID: "s2", Content: "summary tuesday"},
			{ID: "s1", Content: "summary monday"},
		},
	}
	got, err := engine(nil, idx, embedFunc(okEmbed)).Knowledge(context.Background(), "what happened", 3, models.KnowledgeFilter{}, true)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "summary tuesday", got[0].Text)
	assert.Equal(t, SourceSummary, got[0].Source)
	assert.Equal(t, "summary monday", got[1].Text)
	assert.Equal(t, "best match", got[2].Text)
}

func TestSummariesSurviveSearchFailure(t *testing.T) {
	failing := embedFunc(func(context.Context, string) ([]float32, error) { return nil, errors.New("oracle down") })
	idx := &fakeIndex{
		kwErr:  errors.New("index offline"),
		recent: []models.KnowledgeDocument{{ID: "s1", Content: "summary monday"}},
	}
	e := engine(nil, idx, failing)

	got, err := e.Knowledge(context.Background(), "what happened", 3, models.KnowledgeFilter{}, true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "summary monday", got[0].Text)
	assert.Equal(t, SourceSummary, got[0].Source)
	assert.Equal(t, 1, idx.keywordCalls)

	_, err = e.Knowledge(context.Background(), "what happened", 3, models.KnowledgeFilter{}, false)
	assert.ErrorContains(t, err, "index offline")

	idx.recent = nil
	_, err = e.Knowledge(context.Background(), "what happened", 3, models.KnowledgeFilter{}, true)
	assert.ErrorContains(t, err, "keyword search")
}

func TestComposeDedupsInPriorityOrder(t *testing.T) {
	e := engine(nil, nil, nil)
	fixed := func(texts ...string) func(context.Context) ([]Snippet, error) {
		return func(context.Context) ([]Snippet, error) {
			out := make([]Snippet, len(texts))
			for i, t := range texts {
				out[i] = Snippet{Text: t}
			}
			return out, nil
		}
	}
	buckets := []Bucket{
		{Name: "topic", Fetch: fixed("a", "shared")},
		{Name: "broken", Fetch: func(context.Context) ([]Snippet, error) { return nil, errors.New("timeout") }},
		{Name: "panics", Fetch: func(context.Context) ([]Snippet, error) { panic("bad payload") }},
		{Name: "general", Fetch: fixed("shared", "b", "c")},
	}

	got := e.Compose(context.Background(), buckets, 10)
	texts := make([]string, len(got))
	for i, s := range got {
		texts[i] = s.Text
	}
	assert.Equal(t, []string{"a", "shared", "b", "c"}, texts)

	capped := e.Compose(context.Background(), buckets, 2)
	require.Len(t, capped, 2)
	assert.Equal(t, "shared", capped[1].Text)

	assert.Empty(t, e.Compose(context.Background(), nil, 5))
}

func TestRetrieveBothPutsKnowledgeFirst(t *testing.T) {
	msgs := fakeMessages{{Author: "p", Content: "quantanium runs are risky", CreatedAt: now}}
	idx := &fakeIndex{keyword: []models.KnowledgeDocument{{ID: "k", Content: "Quantanium decays over time."}}}
	e := engine(msgs, idx, nil)

	got := e.Retrieve(context.Background(), Request{Query: "quantanium", K: 5, Corpus: CorpusBoth})
	require.Len(t, got, 2)
	assert.Equal(t, SourceKnowledge, got[0].Source)
	assert.Equal(t, SourceConversation, got[1].Source)

	only := e.Retrieve(context.Background(), Request{Query: "quantanium", Corpus: CorpusConversation})
	require.Len(t, only, 1)
	assert.Equal(t, "p", only[0].Ref)

	assert.Empty(t, e.Retrieve(context.Background(), Request{Query: "quantanium", Corpus: "elsewhere"}))
}
