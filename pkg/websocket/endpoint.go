package websocket

import (
	"fmt"
	"net/url"
	"strings"
)

// EndpointPath is the chat socket path on the serving host.
const EndpointPath = "/ws"

// Endpoint derives the socket URL from the origin the client was served from.
// https maps to wss and http to ws; ws and wss origins are kept as is.
func Endpoint(origin string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOrigin, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrInvalidOrigin, origin)
	}

	var scheme string
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		scheme = "wss"
	case "http", "ws":
		scheme = "ws"
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return scheme + "://" + u.Host + EndpointPath, nil
}
