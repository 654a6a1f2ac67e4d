package chat

import "unicode/utf8"

// Input is the text being composed. The length limit is enforced on every
// update, so the buffer can never hold more than limit characters.
type Input struct {
	text  string
	limit int
}

// NewInput creates an input buffer limited to limit characters.
func NewInput(limit int) *Input {
	if limit <= 0 {
		limit = MaxContentLength
	}
	return &Input{limit: limit}
}

// Set replaces the buffer and returns what was kept.
func (in *Input) Set(text string) string {
	in.text = truncate(text, in.limit)
	return in.text
}

// Text returns the buffer content.
func (in *Input) Text() string {
	return in.text
}

// Clear empties the buffer.
func (in *Input) Clear() {
	in.text = ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
