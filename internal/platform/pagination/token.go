package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

type cursor struct {
	Offset int `json:"offset"`
}

// EncodeToken serialises offset into a base64 URL-safe page token. Offsets at or below zero
// encode to the empty token.
func EncodeToken(offset int) string {
	if offset <= 0 {
		return ""
	}
	data, _ := json.Marshal(cursor{Offset: offset})
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeToken parses the page token produced by EncodeToken back into an offset.
func DecodeToken(token string) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	var c cursor
	if err := json.Unmarshal(decoded, &c); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	if c.Offset < 0 {
		return 0, fmt.Errorf("%w: negative offset", ErrInvalidPageToken)
	}
	return c.Offset, nil
}
