package retrieval

import (
	"sort"
	"time"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/match"
	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
)

const (
	// RecencyWindow is how long a message keeps any recency bonus.
	RecencyWindow = 30 * 24 * time.Hour
	// MaxRecencyBonus is the bonus of a message scored at posting time.
	MaxRecencyBonus = 0.5
)

// RecencyBonus decays linearly from MaxRecencyBonus at posting time to 0 at
// RecencyWindow, and is clamped to that range. Future timestamps get the
// full bonus.
func RecencyBonus(created, now time.Time) float64 {
	age := now.Sub(created)
	if age <= 0 {
		return MaxRecencyBonus
	}
	if age >= RecencyWindow {
		return 0
	}
	return MaxRecencyBonus * (1 - float64(age)/float64(RecencyWindow))
}

// Overlap counts the distinct query tokens present in text.
func Overlap(query map[string]struct{}, text string) int {
	if len(query) == 0 {
		return 0
	}
	n := 0
	for t := range match.TokenSet(text) {
		if _, ok := query[t]; ok {
			n++
		}
	}
	return n
}

// ScoreMessage is token overlap plus recency bonus. Messages sharing no token
// with the query score 0 regardless of age.
func ScoreMessage(query map[string]struct{}, m models.ConversationMessage, now time.Time) float64 {
	overlap := Overlap(query, m.Content)
	if overlap == 0 {
		return 0
	}
	return float64(overlap) + RecencyBonus(m.CreatedAt, now)
}

// RankMessages scores msgs against query and returns the best k as snippets.
// Ties go to the newer message, then to the lexically smaller text.
func RankMessages(query string, msgs []models.ConversationMessage, k int, now time.Time) []Snippet {
	q := match.TokenSet(query)
	type scored struct {
		msg   models.ConversationMessage
		score float64
	}
	var hits []scored
	for _, m := range msgs {
		if s := ScoreMessage(q, m, now); s > 0 {
			hits = append(hits, scored{m, s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if !hits[i].msg.CreatedAt.Equal(hits[j].msg.CreatedAt) {
			return hits[i].msg.CreatedAt.After(hits[j].msg.CreatedAt)
		}
		return hits[i].msg.Content < hits[j].msg.Content
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	out := make([]Snippet, 0, len(hits))
	for _, h := range hits {
		out = append(out, Snippet{
			Text:      h.msg.Content,
			Source:    SourceConversation,
			Score:     h.score,
			Ref:       h.msg.Author,
			Channel:   h.msg.Channel,
			CreatedAt: h.msg.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
