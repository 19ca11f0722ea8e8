package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/kandra/internal/api/apitest"
	"github.com/blockedby/kandra/internal/apiclient"
	"github.com/blockedby/kandra/internal/applications"
	"github.com/blockedby/kandra/internal/auth"
	"github.com/blockedby/kandra/internal/config"
	"github.com/blockedby/kandra/internal/filter"
	"github.com/blockedby/kandra/internal/jobs"
	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/repository"
	"github.com/blockedby/kandra/internal/store"
	"github.com/blockedby/kandra/internal/web"
)

type bridge struct {
	store  *store.Store
	router http.Handler
}

func newBridge(t *testing.T) *bridge {
	t.Helper()
	b := apitest.New(t)

	st, err := store.New(context.Background(), &config.Config{
		APIBaseURL:      b.BaseURL(),
		RequestTimeout:  5 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  50,
		PageSize:        4,
		SalaryDomainMin: 10,
		SalaryDomainMax: 100,
		SessionStore:    store.SessionMemory,
	}, store.Options{Log: logger.Nop()})
	require.NoError(t, err)
	t.Cleanup(st.Close)

	srv := web.NewServer(&web.Config{}, nil)
	srv.RegisterJobsHandler(NewJobsHandler(st.Jobs))
	srv.RegisterApplicationsHandler(NewApplicationsHandler(st.Applications, st.Company))
	srv.RegisterAuthHandler(NewAuthHandler(st.Auth))

	return &bridge{store: st, router: srv.Router()}
}

func (b *bridge) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	return w
}

func (b *bridge) login(t *testing.T) {
	t.Helper()
	w := b.do(t, http.MethodPost, "/api/actions/login", map[string]string{
		"email":    repository.DemoCandidateEmail,
		"password": repository.DemoPassword,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLoginAndLogout(t *testing.T) {
	b := newBridge(t)

	w := b.do(t, http.MethodPost, "/api/actions/login", map[string]string{"email": repository.DemoCandidateEmail, "password": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")

	b.login(t)

	w = b.do(t, http.MethodGet, "/api/state/auth", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state auth.State
	require.NoError(t, json.NewDecoder(w.Body).Decode(&state))
	assert.True(t, state.Authenticated)
	require.NotNil(t, state.User)
	assert.Equal(t, repository.DemoCandidateEmail, state.User.Email)

	w = b.do(t, http.MethodPost, "/api/actions/logout", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, b.store.Session.Authenticated())
}

func TestSearchAndLoadMore(t *testing.T) {
	b := newBridge(t)

	w := b.do(t, http.MethodPost, "/api/actions/jobs/search", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first jobs.State
	require.NoError(t, json.NewDecoder(w.Body).Decode(&first))
	assert.Len(t, first.Jobs, 4)
	assert.True(t, first.HasMore)

	w = b.do(t, http.MethodPost, "/api/actions/jobs/more", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var second jobs.State
	require.NoError(t, json.NewDecoder(w.Body).Decode(&second))
	assert.Len(t, second.Jobs, 8)
	assert.Equal(t, first.Jobs[0].ID, second.Jobs[0].ID)
}

func TestApplyFilter(t *testing.T) {
	b := newBridge(t)

	w := b.do(t, http.MethodPost, "/api/actions/filter", filter.Op{Op: filter.OpToggleJobType, Value: "internship"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var state jobs.State
	require.NoError(t, json.NewDecoder(w.Body).Decode(&state))
	require.NotEmpty(t, state.Jobs)
	for _, j := range state.Jobs {
		assert.Equal(t, "internship", string(j.Kind))
	}

	w = b.do(t, http.MethodGet, "/api/state/filter", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "internship")

	t.Run("unknown op", func(t *testing.T) {
		w := b.do(t, http.MethodPost, "/api/actions/filter", filter.Op{Op: "shuffle"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBookmarkAndDetails(t *testing.T) {
	b := newBridge(t)
	b.login(t)

	w := b.do(t, http.MethodPost, "/api/actions/jobs/search", nil)
	require.Equal(t, http.StatusOK, w.Code)
	id := b.store.Jobs.Snapshot().Jobs[0].ID.String()

	w = b.do(t, http.MethodPost, "/api/actions/jobs/"+id+"/bookmark", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"bookmarked":true`)

	w = b.do(t, http.MethodGet, "/api/actions/jobs/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, b.store.Jobs.Snapshot().Selected.Bookmarked)

	w = b.do(t, http.MethodGet, "/api/actions/jobs/999999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApplicationsRefresh(t *testing.T) {
	b := newBridge(t)

	w := b.do(t, http.MethodPost, "/api/actions/applications/refresh", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "anonymous 401 is reported as a validation failure")

	b.login(t)
	require.NoError(t, b.store.Jobs.Search(context.Background()))
	_, err := b.store.Applications.Submit(context.Background(), applications.SubmitRequest{
		JobID:       b.store.Jobs.Snapshot().Jobs[0].ID,
		CoverLetter: "Keen to join",
		Resume:      &applications.Attachment{Name: "cv.pdf", Data: []byte("%PDF")},
	})
	require.NoError(t, err)

	w = b.do(t, http.MethodPost, "/api/actions/applications/refresh", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var state applications.State
	require.NoError(t, json.NewDecoder(w.Body).Decode(&state))
	require.Len(t, state.Applications, 1)
	assert.Equal(t, 1, state.Stats.Total)
	assert.Equal(t, 1, state.Stats.Pending)
}

func TestUpdateStatus_Validation(t *testing.T) {
	b := newBridge(t)

	w := b.do(t, http.MethodPut, "/api/actions/applications/1/status", map[string]string{"status": "promoted"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPut, "/api/actions/applications/1/status", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	b.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompanyState(t *testing.T) {
	b := newBridge(t)

	w := b.do(t, http.MethodGet, "/api/state/company", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	h := NewApplicationsHandler(b.store.Applications, nil)
	rec := httptest.NewRecorder()
	h.CompanyState(rec, httptest.NewRequest(http.MethodGet, "/api/state/company", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRespondSliceError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"local", errors.New("a cover letter is required"), http.StatusBadRequest},
		{"transport", &apiclient.Error{Kind: apiclient.KindTransport, Message: apiclient.MsgConnectivity}, http.StatusServiceUnavailable},
		{"expired", &apiclient.Error{Kind: apiclient.KindUnauthorized, Status: 401, Message: apiclient.MsgSessionExpired}, http.StatusUnauthorized},
		{"not found", &apiclient.Error{Kind: apiclient.KindValidation, Status: 404, Message: "Offer not found"}, http.StatusNotFound},
		{"server", &apiclient.Error{Kind: apiclient.KindServer, Status: 500, Message: apiclient.MsgServerError}, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			respondSliceError(w, tc.err)
			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), apiclient.MessageOf(tc.err))
		})
	}
}
