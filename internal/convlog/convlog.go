// Package convlog buffers recent chat messages per channel in memory. It is
// fed by the caller and read by conversation-log retrieval; nothing is
// persisted.
package convlog

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/wagnerlima/memory-cloud/verse-mcp/internal/models"
)

// DefaultCapacity is the per-channel message limit.
const DefaultCapacity = 500

// Log holds a bounded ring of messages for each channel.
type Log struct {
	mu       sync.Mutex
	capacity int
	channels map[string]*ring
	now      func() time.Time
}

type ring struct {
	buf   []models.ConversationMessage
	start int
}

// New creates a Log keeping up to capacity messages per channel.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity, channels: map[string]*ring{}, now: time.Now}
}

// Append records messages. Empty content is dropped and a zero CreatedAt is
// stamped with the current time. It returns how many were kept.
func (l *Log) Append(msgs ...models.ConversationMessage) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := 0
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = l.now().UTC()
		}
		r, ok := l.channels[m.Channel]
		if !ok {
			r = &ring{}
			l.channels[m.Channel] = r
		}
		if len(r.buf) < l.capacity {
			r.buf = append(r.buf, m)
		} else {
			r.buf[r.start] = m
			r.start = (r.start + 1) % l.capacity
		}
		kept++
	}
	return kept
}

// Messages returns a copy of a channel's messages, oldest first. An empty
// channel name returns every channel's messages.
func (l *Log) Messages(_ context.Context, channel string) ([]models.ConversationMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if channel != "" {
		r, ok := l.channels[channel]
		if !ok {
			return nil, nil
		}
		return r.ordered(), nil
	}
	var out []models.ConversationMessage
	for _, r := range l.channels {
		out = append(out, r.ordered()...)
	}
	return out, nil
}

// Len returns the number of buffered messages in channel.
func (l *Log) Len(channel string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.channels[channel]; ok {
		return len(r.buf)
	}
	return 0
}

func (r *ring) ordered() []models.ConversationMessage {
	out := make([]models.ConversationMessage, 0, len(r.buf))
	out = append(out, r.buf[r.start:]...)
	return append(out, r.buf[:r.start]...)
}
