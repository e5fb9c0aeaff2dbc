package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type nopStore struct{}

func (nopStore) Get(context.Context, string, string) ([]byte, error)       { return nil, ErrNotFound }
func (nopStore) Put(context.Context, string, string, []byte, string) error { return nil }
func (nopStore) Close() error                                              { return nil }

func TestRegisterAndNew(t *testing.T) {
	var got Config
	Register("test-nop", func(ctx context.Context, cfg Config) (Store, error) {
		got = cfg
		return nopStore{}, nil
	})

	s, err := New(context.Background(), Config{Kind: "test-nop", Root: "/x"})
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, "/x", got.Root)
	require.Contains(t, Kinds(), "test-nop")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.ErrorContains(t, err, "missing store kind")

	_, err = New(context.Background(), Config{Kind: "nope"})
	require.ErrorContains(t, err, `unsupported store kind="nope"`)
}

func TestRegister_Panics(t *testing.T) {
	f := func(context.Context, Config) (Store, error) { return nopStore{}, nil }

	require.Panics(t, func() { Register("", f) })
	require.Panics(t, func() { Register("test-nil", nil) })

	Register("test-twice", f)
	require.Panics(t, func() { Register("test-twice", f) })
}
