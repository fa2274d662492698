// Package events carries catalog change notifications to listeners
package events

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bitdust-io/devel-sub003/internal/core/codec"
	"github.com/bitdust-io/devel-sub003/internal/domain"
)

// Kind indicates what happened to an item
type Kind int

const (
	KindAdded Kind = iota
	KindModified
	KindDeleted
)

func (k Kind) String() string {
	switch k {
	case KindAdded:
		return "added"
	case KindModified:
		return "modified"
	case KindDeleted:
		return "deleted"
	}
	return "unknown"
}

// Event describes one changed item, keyed by (owner, key alias, path id)
type Event struct {
	Kind     Kind
	Owner    domain.Owner
	KeyAlias string
	PathID   string

	// GlobalID addresses the item by path id, RemotePath by resolved path
	GlobalID   string
	RemotePath string

	Size     int64
	Type     domain.ItemType
	Versions []string

	// BatchID groups the events produced by one merge
	BatchID string
	Time    time.Time
}

// FromItem builds the event for one item of a namespace
func FromItem(kind Kind, owner domain.Owner, alias, pathID, path string, item *domain.Item) Event {
	size := item.Size
	if size < 0 {
		size = 0
	}
	return Event{
		Kind:       kind,
		Owner:      owner,
		KeyAlias:   alias,
		PathID:     pathID,
		GlobalID:   codec.MakeGlobalID(alias, owner, pathID),
		RemotePath: codec.MakeGlobalID(alias, owner, path),
		Size:       size,
		Type:       item.Type,
		Versions:   item.Versions(false),
		Time:       time.Now(),
	}
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s %s (%s, %s)", e.Kind, e.Type, e.RemotePath, e.GlobalID, FormatBytes(e.Size))
}

// Listener receives catalog events
type Listener interface {
	OnEvent(e Event)
}

// Callback is a function that receives events
type Callback func(e Event)

// CallbackListener implements Listener with a callback function
type CallbackListener struct {
	mu       sync.Mutex
	callback Callback
}

// NewCallbackListener creates a new CallbackListener
func NewCallbackListener(callback Callback) *CallbackListener {
	return &CallbackListener{callback: callback}
}

// OnEvent implements Listener
func (l *CallbackListener) OnEvent(e Event) {
	l.mu.Lock()
	callback := l.callback
	l.mu.Unlock()

	// Call callback outside lock to prevent deadlock
	if callback != nil {
		callback(e)
	}
}

// SetCallback replaces the callback
func (l *CallbackListener) SetCallback(callback Callback) {
	l.mu.Lock()
	l.callback = callback
	l.mu.Unlock()
}

// Recorder keeps every event it receives
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// OnEvent implements Listener
func (r *Recorder) OnEvent(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind were recorded
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// Reset forgets all recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// WriterListener prints one line per event
type WriterListener struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterListener creates a listener writing to w
func NewWriterListener(w io.Writer) *WriterListener {
	return &WriterListener{w: w}
}

// OnEvent implements Listener
func (l *WriterListener) OnEvent(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, e.String())
}

// Multi fans events out to several listeners
type Multi []Listener

// OnEvent implements Listener
func (m Multi) OnEvent(e Event) {
	for _, l := range m {
		if l != nil {
			l.OnEvent(e)
		}
	}
}

// NullListener is a no-op listener
type NullListener struct{}

func (NullListener) OnEvent(Event) {}

// FormatBytes formats bytes into human-readable string
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
