package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC)
	token := Cursor{LastID: "doc-42", CreatedAt: at}.Encode()
	require.NotEmpty(t, token)

	decoded, err := Decode(token)
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.Equal(t, "doc-42", decoded.LastID)
	assert.True(t, decoded.CreatedAt.Equal(at))
}

func TestCursorEncode(t *testing.T) {
	t.Run("empty id encodes to the first-page token", func(t *testing.T) {
		assert.Empty(t, Cursor{}.Encode())
	})

	t.Run("token is url safe", func(t *testing.T) {
		token := Cursor{LastID: "doc-1", CreatedAt: time.Now()}.Encode()
		_, err := base64.RawURLEncoding.DecodeString(token)
		assert.NoError(t, err)
	})
}

func TestDecode(t *testing.T) {
	t.Run("empty token means the first page", func(t *testing.T) {
		c, err := Decode("")
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := Decode("not base64 at all!!!")
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("rejects valid base64 that is not a cursor", func(t *testing.T) {
		token := base64.RawURLEncoding.EncodeToString([]byte("hello"))
		_, err := Decode(token)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("rejects a cursor with missing fields", func(t *testing.T) {
		token := base64.RawURLEncoding.EncodeToString([]byte(`{"id":"","at":"2026-02-10T08:30:00Z"}`))
		_, err := Decode(token)
		assert.ErrorIs(t, err, ErrInvalidCursor)

		token = base64.RawURLEncoding.EncodeToString([]byte(`{"id":"doc-1","at":"0001-01-01T00:00:00Z"}`))
		_, err = Decode(token)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})
}
