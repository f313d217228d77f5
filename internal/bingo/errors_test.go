package bingo

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	require.Equal(t, ErrNotFound, ClassifyStatus(404))
	require.Equal(t, ErrHTTPClient, ClassifyStatus(400))
	require.Equal(t, ErrHTTPClient, ClassifyStatus(451))
	require.Equal(t, ErrHTTPServer, ClassifyStatus(500))
	require.Equal(t, ErrHTTPServer, ClassifyStatus(503))
	require.Equal(t, ErrParse, ClassifyStatus(200))
}

func TestFetchErrorTransient(t *testing.T) {
	t.Parallel()

	transient := []ErrorKind{ErrNetwork, ErrHTTPServer}
	terminal := []ErrorKind{ErrHTTPClient, ErrTimeout, ErrNotFound, ErrParse}

	for _, k := range transient {
		fe := &FetchError{Kind: k, Err: errors.New("boom")}
		require.True(t, fe.Transient(), "kind %s", k)
		require.True(t, IsTransient(fe))
	}
	for _, k := range terminal {
		fe := &FetchError{Kind: k, Err: errors.New("boom")}
		require.False(t, fe.Transient(), "kind %s", k)
		require.False(t, IsTransient(fe))
	}
}

func TestFetchErrorWrapping(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection refused")
	fe := &FetchError{Kind: ErrNetwork, Title: "Banana", Err: inner}
	wrapped := fmt.Errorf("probe: %w", fe)

	require.ErrorIs(t, wrapped, inner)
	require.Equal(t, ErrNetwork, KindOf(wrapped))

	var got *FetchError
	require.True(t, errors.As(wrapped, &got))
	require.Equal(t, "Banana", got.Title)
}

func TestIsTransientUnclassified(t *testing.T) {
	t.Parallel()

	require.True(t, IsTransient(errors.New("mystery")))
	require.False(t, IsTransient(nil))
	require.Equal(t, ErrorKind(""), KindOf(errors.New("mystery")))
}
