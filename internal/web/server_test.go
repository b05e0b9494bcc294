package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internaldb "github.com/gantry-dev/gantry/internal/db"
	"github.com/gantry-dev/gantry/internal/run"
	"github.com/gantry-dev/gantry/internal/ticket"
)

func setupServer(t *testing.T) (*Server, *ticket.Store) {
	t.Helper()
	database, err := internaldb.Open(filepath.Join(t.TempDir(), "gantry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	tickets := ticket.NewStore(database)
	runs := run.NewStore(database)
	srv, err := NewServer(tickets, runs)
	require.NoError(t, err)
	return srv, tickets
}

func TestIndexListsTicketsAndRuns(t *testing.T) {
	srv, tickets := setupServer(t)
	ctx := context.Background()

	key, err := tickets.Add(ctx, "Add footer", "Footer with a copyright line.")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), key)
	assert.Contains(t, rec.Body.String(), "Add footer")
}

func TestMarkDoneAndReopen(t *testing.T) {
	srv, tickets := setupServer(t)
	ctx := context.Background()

	key, err := tickets.Add(ctx, "Add footer", "")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tickets/"+key+"/done", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	tk, err := tickets.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusDone, tk.Status)

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tickets/"+key+"/reopen", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	tk, err = tickets.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, ticket.StatusReopened, tk.Status)
}

func TestMarkDoneUnknownTicket(t *testing.T) {
	srv, _ := setupServer(t)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tickets/GNT-999/done", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupServer(t)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
