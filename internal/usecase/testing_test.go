package usecase

import (
	"path/filepath"
	"testing"

	"github.com/naka-gawa/trending-digest/internal/store"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "usecase.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
