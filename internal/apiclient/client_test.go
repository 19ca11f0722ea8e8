package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/models"
	"github.com/blockedby/kandra/internal/notify"
	"github.com/blockedby/kandra/internal/session"
)

func newTestClient(t *testing.T, h http.Handler) (*Client, *notify.Recorder) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	rec := &notify.Recorder{}
	c := New(Options{BaseURL: srv.URL + "/api", Timeout: 2 * time.Second}, session.New(nil), rec, rec, logger.Nop())
	return c, rec
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Headers(t *testing.T) {
	var mu sync.Mutex
	var seen []http.Header
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Clone())
		mu.Unlock()
		writeJSON(w, http.StatusOK, []interface{}{})
	}))
	ctx := context.Background()

	require.NoError(t, c.ConfigureToken(ctx, "tok-1"))
	_, err := c.ListJobs(ctx, nil)
	require.NoError(t, err)

	require.NoError(t, c.ConfigureToken(ctx, ""))
	_, err = c.ListJobs(ctx, nil)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, "application/json", seen[0].Get("Accept"))
	assert.NotEmpty(t, seen[0].Get("X-Request-ID"))
	assert.Equal(t, "Bearer tok-1", seen[0].Get("Authorization"))
	_, present := seen[1]["Authorization"]
	assert.False(t, present, "signed-out requests must not carry Authorization")
}

func TestClient_TokenChangeDoesNotAffectInFlight(t *testing.T) {
	arrived := make(chan string, 1)
	release := make(chan struct{})
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived <- r.Header.Get("Authorization")
		<-release
		writeJSON(w, http.StatusOK, []interface{}{})
	}))
	ctx := context.Background()
	require.NoError(t, c.ConfigureToken(ctx, "old"))

	done := make(chan error, 1)
	go func() {
		_, err := c.ListJobs(ctx, nil)
		done <- err
	}()

	assert.Equal(t, "Bearer old", <-arrived)
	require.NoError(t, c.ConfigureToken(ctx, "new"))
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, "new", c.Session().Token())
}

func TestClient_UnauthorizedBurstRedirectsOnce(t *testing.T) {
	c, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
	}))
	ctx := context.Background()
	require.NoError(t, c.ConfigureToken(ctx, "expired"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.ListMyApplications(ctx)
			assert.Error(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, rec.Redirects())
	assert.Empty(t, c.Session().Token())

	expired := 0
	for _, n := range rec.Notifications() {
		if n.Kind == notify.KindSessionExpired {
			expired++
		}
	}
	assert.Equal(t, 1, expired)
}

func TestClient_UnauthorizedWithoutTokenIsValidation(t *testing.T) {
	c, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}))

	_, err := c.Login(context.Background(), "a@b.c", "nope")
	require.Error(t, err)

	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "Invalid credentials", MessageOf(err))
	assert.Zero(t, rec.Redirects())
}

func TestClient_LoginIgnoresStoredToken(t *testing.T) {
	var auth string
	c, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	}))
	ctx := context.Background()
	require.NoError(t, c.ConfigureToken(ctx, "still-valid"))

	_, err := c.Login(ctx, "a@b.c", "wrong")
	require.Error(t, err)

	assert.Empty(t, auth)
	assert.Equal(t, "still-valid", c.Session().Token())
	assert.Zero(t, rec.Redirects())
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	rec := &notify.Recorder{}
	c := New(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil, rec, rec, logger.Nop())

	start := time.Now()
	_, err := c.GetJob(context.Background(), "1")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, KindTransport, KindOf(err))
	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.KindConnectivity, last.Kind)
	assert.Equal(t, MsgConnectivity, last.Message)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	rec := &notify.Recorder{}
	c := New(Options{BaseURL: base}, nil, rec, rec, logger.Nop())

	_, err := c.ListJobs(context.Background(), nil)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Len(t, rec.Notifications(), 1)
}

func TestClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{"message field", 404, `{"message":"Job not found"}`, KindValidation, "Job not found"},
		{"error wins over message", 400, `{"error":"cover letter required","message":"bad"}`, KindValidation, "cover letter required"},
		{"problem detail", 500, `{"title":"Internal Server Error","status":500,"detail":"database down"}`, KindServer, "database down"},
		{"nested error", 422, `{"error":{"message":"invalid email"}}`, KindValidation, "invalid email"},
		{"empty 5xx", 503, ``, KindServer, MsgServerError},
		{"html 5xx", 502, `<html>bad gateway</html>`, KindServer, MsgServerError},
		{"empty 4xx", 409, ``, KindValidation, "Conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))

			_, err := c.GetJob(context.Background(), "7")
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)

			last, ok := rec.Last()
			require.True(t, ok)
			assert.Equal(t, tt.message, last.Message)
		})
	}
}

func TestClient_MalformedSuccessBody(t *testing.T) {
	c, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data": [`)
	}))

	_, err := c.ListJobs(context.Background(), nil)
	assert.Equal(t, KindServer, KindOf(err))
	assert.Equal(t, MsgServerError, MessageOf(err))
	assert.Len(t, rec.Notifications(), 1)
}

func TestClient_CanceledContextIsSilent(t *testing.T) {
	c, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []interface{}{})
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListJobs(ctx, nil)
	require.Error(t, err)
	assert.Empty(t, rec.Notifications())
}

func TestClient_ListJobsShapes(t *testing.T) {
	t.Run("bare array has no total", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"id":1,"title":"Go dev"},{"id":"2","title":"Designer"}]`)
		}))

		page, err := c.ListJobs(context.Background(), nil)
		require.NoError(t, err)
		assert.False(t, page.HasTotal)
		require.Len(t, page.Jobs, 2)
		assert.Equal(t, models.ID("1"), page.Jobs[0].ID)
		assert.Equal(t, models.ID("2"), page.Jobs[1].ID)
	})

	t.Run("data with pagination", func(t *testing.T) {
		var query url.Values
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query = r.URL.Query()
			assert.Equal(t, "/api/opportunites", r.URL.Path)
			_, _ = io.WriteString(w, `{"data":[{"id":5,"title":"x"}],"pagination":{"total":31,"offset":12,"limit":12}}`)
		}))

		page, err := c.ListJobs(context.Background(), url.Values{"offset": {"12"}, "limit": {"12"}, "category": {"design"}})
		require.NoError(t, err)
		assert.True(t, page.HasTotal)
		assert.Equal(t, 31, page.Total)
		assert.Len(t, page.Jobs, 1)
		assert.Equal(t, "design", query.Get("category"))
		assert.Equal(t, "12", query.Get("offset"))
	})

	t.Run("french envelope", func(t *testing.T) {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"opportunites":[{"id":9,"Titre":"Stage data"}],"totalCount":1}`)
		}))

		page, err := c.ListJobs(context.Background(), nil)
		require.NoError(t, err)
		assert.True(t, page.HasTotal)
		require.Len(t, page.Jobs, 1)
		assert.Equal(t, "Stage data", page.Jobs[0].Title)
	})
}

func TestClient_NormalizesJobFields(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"opportunite":{
			"id": 42,
			"Titre": "Stage backend",
			"title": "Backend internship",
			"Entreprise": "Acme",
			"typeOffre": "stage",
			"niveauExperience": "junior",
			"Salaire": {"min": 20, "max": 30},
			"datePublication": "2026-01-02T03:04:05Z",
			"Competences": ["go", "sql"]
		}}`)
	}))

	job, err := c.GetJob(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, models.ID("42"), job.ID)
	assert.Equal(t, "Backend internship", job.Title, "canonical key wins over alias")
	assert.Equal(t, "Acme", job.Company)
	assert.Equal(t, models.OfferInternship, job.Kind)
	assert.Equal(t, models.LevelEntry, job.ExperienceLevel)
	require.NotNil(t, job.Salary.Min)
	assert.Equal(t, 20.0, *job.Salary.Min)
	require.NotNil(t, job.PublishedAt)
	assert.Equal(t, 2026, job.PublishedAt.Year())
	assert.Equal(t, []string{"go", "sql"}, job.Skills)
}

func TestClient_SubmitApplicationMultipart(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "42", r.FormValue("job_id"))
		assert.Equal(t, "I am a great fit", r.FormValue("cover_letter"))

		f, hdr, err := r.FormFile("resume")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "cv.pdf", hdr.Filename)
		assert.Equal(t, "%PDF-1.4", string(data))

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"application": map[string]interface{}{
				"id": 1, "jobId": 42, "status": "pending", "coverLetter": "I am a great fit",
			},
		})
	}))

	form := (&Multipart{}).
		Field("job_id", "42").
		Field("cover_letter", "I am a great fit").
		Field("motivation", "").
		File("resume", &File{Name: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}).
		File("portfolio", nil)

	app, err := c.SubmitApplication(context.Background(), form)
	require.NoError(t, err)
	assert.Equal(t, models.ID("1"), app.ID)
	assert.Equal(t, models.ID("42"), app.JobID)
	assert.Equal(t, models.ApplicationPending, app.Status)
	assert.Equal(t, "I am a great fit", app.CoverLetter)
}

func TestClient_ListMyApplicationsUnknownStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/applications/user", r.URL.Path)
		_, _ = io.WriteString(w, `{"applications":[{"id":1,"statut":"archived"},{"id":2,"status":"hired"}]}`)
	}))

	apps, err := c.ListMyApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, models.ApplicationPending, apps[0].Status)
	assert.Equal(t, models.ApplicationAccepted, apps[1].Status)
}

func TestClient_RateLimitBackoff(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		n := len(hits)
		mu.Unlock()
		if n == 1 {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "slow down"})
			return
		}
		writeJSON(w, http.StatusOK, []interface{}{})
	}))
	ctx := context.Background()

	_, err := c.ListJobs(ctx, nil)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = c.ListJobs(ctx, nil)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.GreaterOrEqual(t, hits[1].Sub(hits[0]), 900*time.Millisecond)
}

func TestClient_RetryAfterCappedAtTimeout(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		n := hits
		mu.Unlock()
		if n == 1 {
			w.Header().Set("Retry-After", "3600")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "slow down"})
			return
		}
		writeJSON(w, http.StatusOK, []interface{}{})
	}))
	t.Cleanup(srv.Close)
	c := New(Options{BaseURL: srv.URL + "/api", Timeout: 300 * time.Millisecond}, session.New(nil), nil, nil, logger.Nop())
	ctx := context.Background()

	_, err := c.ListJobs(ctx, nil)
	require.Error(t, err)

	start := time.Now()
	_, err = c.ListJobs(ctx, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestClient_BackoffPastTimeoutFailsAsTransport(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	c, rec := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		writeJSON(w, http.StatusOK, []interface{}{})
	}))
	// a backoff recorded without the cap, longer than any request may wait
	c.limiter.Backoff(time.Hour, 0)

	start := time.Now()
	_, err := c.ListJobs(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	assert.Less(t, time.Since(start), time.Second)

	mu.Lock()
	assert.Zero(t, hits)
	mu.Unlock()

	last, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.KindConnectivity, last.Kind)
}
