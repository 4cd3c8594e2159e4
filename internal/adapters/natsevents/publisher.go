// Package natsevents publishes orphan-marked events to NATS.
package natsevents

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/example/orphanscan/internal/ports/secondary"
)

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// DefaultFlushTimeout bounds the wait for the server to acknowledge a
// published event. FlushWithContext rejects contexts without a deadline.
const DefaultFlushTimeout = 5 * time.Second

// Publisher implements secondary.EventPublisher over a NATS connection.
type Publisher struct {
	nc           conn
	subject      string
	flushTimeout time.Duration
}

// Connect dials NATS at url and returns a publisher for subject.
func Connect(url, subject string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("orphanscan"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return &Publisher{nc: nc, subject: subject, flushTimeout: DefaultFlushTimeout}, nil
}

// PublishOrphanMarked publishes one event and waits, at most the flush
// timeout, for the server to acknowledge the flush. The subject is suffixed with the category, e.g.
// orphanscan.orphan.marked.bug.
func (p *Publisher) PublishOrphanMarked(ctx context.Context, event secondary.OrphanEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding orphan event: %w", err)
	}
	if err := p.nc.Publish(Subject(p.subject, event.Category), data); err != nil {
		return fmt.Errorf("publishing orphan event: %w", err)
	}
	timeout := p.flushTimeout
	if timeout <= 0 {
		timeout = DefaultFlushTimeout
	}
	flushCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.nc.FlushWithContext(flushCtx); err != nil {
		return fmt.Errorf("flushing orphan event: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (p *Publisher) Close() {
	p.nc.Close()
}

// Subject returns the per-category subject under base.
func Subject(base, category string) string {
	if category == "" {
		return base
	}
	return base + "." + toToken(category)
}

// toToken lower-cases category and replaces characters NATS treats as
// subject separators or wildcards.
func toToken(category string) string {
	out := make([]byte, 0, len(category))
	for i := 0; i < len(category); i++ {
		c := category[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
		case c == '.' || c == '*' || c == '>' || c == ' ':
			out = append(out, '_')
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

var _ secondary.EventPublisher = (*Publisher)(nil)
