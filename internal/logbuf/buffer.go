package logbuf

import (
	"sync"
	"time"
)

// DefaultCapacity is how many entries the process keeps in memory.
const DefaultCapacity = 100

// Entry is one captured log line, the shape served by GET /logs.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Buffer is a fixed-capacity FIFO of recent log entries. When full, the
// oldest entry is evicted. Safe for concurrent use: the HTTP server appends
// from multiple goroutines.
type Buffer struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
}

func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

// Append adds an entry, evicting the oldest when the buffer is full.
func (b *Buffer) Append(level, message string) {
	b.append(Entry{Timestamp: time.Now().UTC(), Level: level, Message: message})
}

func (b *Buffer) append(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.entries) == b.capacity {
		copy(b.entries, b.entries[1:])
		b.entries = b.entries[:b.capacity-1]
	}
	b.entries = append(b.entries, e)
}

// Recent returns up to n of the newest entries in insertion order.
func (b *Buffer) Recent(n int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > len(b.entries) {
		n = len(b.entries)
	}
	out := make([]Entry, n)
	copy(out, b.entries[len(b.entries)-n:])
	return out
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
