package chat

// Log is a bounded ring of records. Pushing into a full log evicts the oldest.
type Log struct {
	buf  []Record
	head int
	size int
}

// NewLog creates a log holding at most capacity records.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = 1
	}
	return &Log{buf: make([]Record, capacity)}
}

// Push appends r and returns the evicted record when the log was full.
func (l *Log) Push(r Record) (evicted Record, ok bool) {
	if l.size == len(l.buf) {
		evicted = l.buf[l.head]
		l.buf[l.head] = r
		l.head = (l.head + 1) % len(l.buf)
		return evicted, true
	}
	l.buf[(l.head+l.size)%len(l.buf)] = r
	l.size++
	return Record{}, false
}

// Len returns the number of records held.
func (l *Log) Len() int {
	return l.size
}

// Cap returns the maximum number of records held.
func (l *Log) Cap() int {
	return len(l.buf)
}

// Records returns the records oldest first.
func (l *Log) Records() []Record {
	out := make([]Record, l.size)
	for i := range out {
		out[i] = l.buf[(l.head+i)%len(l.buf)]
	}
	return out
}
