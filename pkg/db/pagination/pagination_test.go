package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "1954027311", CreatedAt: "2026-08-20T15:04:05Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "1954027311", cursor.ID)
	assert.Equal(t, "2026-08-20T15:04:05Z", cursor.CreatedAt)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := DecodeCursor("not base64 !!!")
	assert.Error(t, err)

	_, err = DecodeCursor("bm90IGpzb24=")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	type row struct{ id string }
	extract := func(r *row) string { return r.id }

	info := BuildCursorPageInfo(nil, 10, extract)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)

	rows := []*row{{"a"}, {"b"}, {"c"}}
	info = BuildCursorPageInfo(rows, 2, extract)
	assert.True(t, info.HasMore)
	assert.Equal(t, "b", info.NextPageToken)

	info = BuildCursorPageInfo(rows, 3, extract)
	assert.False(t, info.HasMore)
	assert.Equal(t, "c", info.NextPageToken)
}
