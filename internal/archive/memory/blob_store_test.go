package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutObjectStoresBytes(t *testing.T) {
	t.Parallel()

	store := New()
	uri, err := store.PutObject(context.Background(), "wins/game-1.json", "application/json", strings.NewReader(`{"id":"game-1"}`))
	require.NoError(t, err)
	require.Equal(t, "mem://wins/game-1.json", uri)

	obj, ok := store.Get("wins/game-1.json")
	require.True(t, ok)
	require.Equal(t, "application/json", obj.ContentType)
	require.JSONEq(t, `{"id":"game-1"}`, string(obj.Data))
	require.Equal(t, 1, store.Len())
}

func TestPutObjectRequiresPath(t *testing.T) {
	t.Parallel()

	store := New()
	_, err := store.PutObject(context.Background(), "  ", "", strings.NewReader("x"))
	require.Error(t, err)
}
