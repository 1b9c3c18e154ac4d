package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// Cursor marks the position after the last item of a page in a keyset scan
// ordered by (created_at DESC, id DESC).
type Cursor struct {
	LastID    string    `json:"id"`
	CreatedAt time.Time `json:"at"`
}

var ErrInvalidCursor = errors.New("invalid cursor format")

// Encode serializes the cursor to an opaque URL-safe token.
func (c Cursor) Encode() string {
	if c.LastID == "" {
		return ""
	}
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode parses a token produced by Encode. An empty token means the first
// page and decodes to nil.
func Decode(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, ErrInvalidCursor
	}
	if c.LastID == "" || c.CreatedAt.IsZero() {
		return nil, ErrInvalidCursor
	}
	return &c, nil
}
