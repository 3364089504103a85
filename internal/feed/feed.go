// Package feed fans change notifications out to live subscribers: the
// websocket hub and the per-day transaction subscriptions.
package feed

import (
	"context"
	"errors"
	"time"
)

type EventType string

const (
	TransactionRecorded EventType = "transaction_recorded"
	StockUpdate         EventType = "stock_update"
	// Resync tells a subscriber that it fell behind and events were
	// discarded. It should reload whatever state it keeps from the feed.
	Resync EventType = "resync"
)

// ErrClosed is returned by a feed after Close.
var ErrClosed = errors.New("feed closed")

// Event is the message pushed to clients. Data carries the affected
// record, either a transaction summary or a product.
type Event struct {
	Type          EventType              `json:"type"`
	Action        string                 `json:"action,omitempty"`
	TransactionID string                 `json:"transaction_id,omitempty"`
	DateString    string                 `json:"date_string,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	Data          map[string]interface{} `json:"data,omitempty"`
	Message       string                 `json:"message,omitempty"`
}

// Feed delivers every published event to each current subscriber. A
// subscriber that does not keep up loses its unread events, which are
// replaced by a single Resync ahead of the newest one.
type Feed interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe returns a channel that is closed when ctx ends or the
	// feed is closed.
	Subscribe(ctx context.Context) (<-chan Event, error)
	Close() error
}

const subscriberBuffer = 32

// deliver hands ev to ch without blocking. On a full buffer the backlog is
// discarded for a Resync marker so the reader knows to reload. The caller
// must be the only sender on ch. It reports whether events were discarded.
func deliver(ch chan Event, ev Event) bool {
	select {
	case ch <- ev:
		return false
	default:
	}
	for drained := false; !drained; {
		select {
		case <-ch:
		default:
			drained = true
		}
	}
	ch <- Event{Type: Resync, Timestamp: time.Now()}
	ch <- ev
	return true
}
