package chat

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestInputTruncates(t *testing.T) {
	in := NewInput(MaxContentLength)

	kept := in.Set(strings.Repeat("a", 600))
	assert.Len(t, kept, MaxContentLength)
	assert.Equal(t, kept, in.Text())

	kept = in.Set(strings.Repeat("é", 501))
	assert.Equal(t, MaxContentLength, utf8.RuneCountInString(kept))
	assert.True(t, utf8.ValidString(kept))

	kept = in.Set("short")
	assert.Equal(t, "short", kept)

	in.Clear()
	assert.Empty(t, in.Text())
}
