package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewIDIsVersion7(t *testing.T) {
	t.Parallel()

	gen := New()
	id, err := gen.NewID()
	require.NoError(t, err)

	parsed, err := goUUID.Parse(id)
	require.NoError(t, err)
	require.Equal(t, goUUID.Version(7), parsed.Version())
}

func TestNewIDsAreUniqueAndOrdered(t *testing.T) {
	t.Parallel()

	gen := New()
	first, err := gen.NewID()
	require.NoError(t, err)
	second, err := gen.NewID()
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	// V7 IDs embed the creation time in the leading bits, so lexical order
	// follows creation order.
	require.Less(t, first, second)
}
