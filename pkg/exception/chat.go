package exception

import "github.com/yanun0323/errors"

// Chat errors
var (
	ErrEmptyMessage     = errors.New("chat: empty message")
	ErrMalformedPayload = errors.New("chat: malformed inbound payload")
	ErrEmptyUser        = errors.New("chat: empty current user")
)
