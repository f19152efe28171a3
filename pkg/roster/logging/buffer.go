package logging

import "sync"

// DefaultBufferSize is the default number of log entries to keep in the buffer.
const DefaultBufferSize = 200

// Buffer holds recent log entries in a ring buffer. The daemon serves its
// contents through the log endpoint; the TUI shows the tail in its footer.
type Buffer struct {
	entries []Entry
	maxSize int
	start   int // Index of oldest entry
	count   int // Number of entries in buffer
	mu      sync.RWMutex
}

// NewBuffer creates a new log buffer with the given maximum size.
func NewBuffer(maxSize int) *Buffer {
	if maxSize <= 0 {
		maxSize = DefaultBufferSize
	}
	return &Buffer{
		entries: make([]Entry, maxSize),
		maxSize: maxSize,
	}
}

// Add adds a log entry to the buffer.
// If the buffer is full, the oldest entry is overwritten.
func (b *Buffer) Add(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := (b.start + b.count) % b.maxSize
	b.entries[idx] = entry

	if b.count < b.maxSize {
		b.count++
	} else {
		// Buffer is full, advance start to overwrite oldest
		b.start = (b.start + 1) % b.maxSize
	}
}

// Entries returns all entries in the buffer, oldest first.
// The returned slice is a copy and safe to modify.
func (b *Buffer) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]Entry, b.count)
	for i := 0; i < b.count; i++ {
		idx := (b.start + i) % b.maxSize
		result[i] = b.entries[idx]
	}
	return result
}

// Last returns the most recent n entries, newest last.
// If n is greater than the number of entries, all entries are returned.
func (b *Buffer) Last(n int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > b.count {
		n = b.count
	}

	result := make([]Entry, n)
	startOffset := b.count - n
	for i := 0; i < n; i++ {
		idx := (b.start + startOffset + i) % b.maxSize
		result[i] = b.entries[idx]
	}
	return result
}

// Len returns the number of entries currently in the buffer.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Clear removes all entries from the buffer.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start = 0
	b.count = 0
}
