package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	token, err := EncodeCursor(Cursor{ID: "42", At: at})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	assert.True(t, at.Equal(cursor.At))
}

func TestDecodeCursor(t *testing.T) {
	cursor, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, cursor)

	_, err = DecodeCursor("not base64!")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPage(t *testing.T) {
	rows := []int{1, 2, 3}
	toCursor := func(v int) Cursor { return Cursor{ID: string(rune('0' + v))} }

	page, info, err := Page(rows, 3, toCursor)
	require.NoError(t, err)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)

	page, info, err = Page(rows, 2, toCursor)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, page)
	assert.True(t, info.HasMore)
	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.ID)
}

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Limit(0))
	assert.Equal(t, 10, Limit(10))
	assert.Equal(t, MaxPageSize, Limit(1000))
}
