// Package apitest runs the development backend in-process for tests of the
// client-side packages.
package apitest

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blockedby/kandra/internal/api"
	"github.com/blockedby/kandra/internal/database"
	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/repository"
)

// Backend is a seeded backend on an in-memory database.
type Backend struct {
	Server  *httptest.Server
	DB      *gorm.DB
	Storage string
}

// BaseURL is the API root the client should be pointed at.
func (b *Backend) BaseURL() string {
	return b.Server.URL + "/api"
}

// New starts a backend that is shut down when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, repository.Migrate(db.GORM))
	require.NoError(t, repository.Seed(ctx, db.GORM, logger.Nop()))

	storage := t.TempDir()
	files, err := api.NewDiskStore(storage)
	require.NoError(t, err)

	srv := api.NewServer(&api.Config{Title: "Kandra", Description: "test", Version: "test"}, &api.Dependencies{
		Users:        repository.NewUsersRepository(db.GORM),
		Jobs:         repository.NewJobsRepository(db.GORM),
		Applications: repository.NewApplicationsRepository(db.GORM, logger.Nop()),
		Bookmarks:    repository.NewBookmarksRepository(db.GORM),
		Stats:        repository.NewStatsRepository(db.GORM),
		Files:        files,
		Log:          logger.Nop(),
	})

	hs := httptest.NewServer(srv.Mux())
	t.Cleanup(hs.Close)

	return &Backend{Server: hs, DB: db.GORM, Storage: storage}
}
