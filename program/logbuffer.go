package program

// LogBuffer collects program log records for one invocation.
//
// The buffer is byte-bounded; once the limit is reached further records are
// dropped and the buffer is marked truncated. Records already accepted are
// never rewritten.
type LogBuffer struct {
	limit     int
	used      int
	lines     []string
	truncated bool
}

// NewLogBuffer returns a buffer holding at most limit bytes of records.
func NewLogBuffer(limit int) *LogBuffer {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	return &LogBuffer{limit: limit}
}

// Append records one line verbatim, or drops it when the buffer is full.
func (b *LogBuffer) Append(line string) {
	if b.truncated || b.used+len(line) > b.limit {
		b.truncated = true
		return
	}
	b.used += len(line)
	b.lines = append(b.lines, line)
}

// Lines returns a copy of the accepted records in emission order.
func (b *LogBuffer) Lines() []string {
	return append([]string(nil), b.lines...)
}

// Truncated reports whether any record was dropped.
func (b *LogBuffer) Truncated() bool { return b.truncated }
