package applications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/kandra/internal/apiclient"
	"github.com/blockedby/kandra/internal/events"
	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/models"
)

// MockAPI is a testify mock of the applications API.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) SubmitApplication(ctx context.Context, form *apiclient.Multipart) (*models.Application, error) {
	args := m.Called(ctx, form)
	if app := args.Get(0); app != nil {
		return app.(*models.Application), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPI) ListMyApplications(ctx context.Context) ([]models.Application, error) {
	args := m.Called(ctx)
	if apps := args.Get(0); apps != nil {
		return apps.([]models.Application), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPI) GetApplication(ctx context.Context, id models.ID) (*models.Application, error) {
	args := m.Called(ctx, id)
	if app := args.Get(0); app != nil {
		return app.(*models.Application), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPI) UpdateApplicationStatus(ctx context.Context, id models.ID, status models.ApplicationStatus) (*models.Application, error) {
	args := m.Called(ctx, id, status)
	if fn, ok := args.Get(0).(func(context.Context, models.ID, models.ApplicationStatus) *models.Application); ok {
		return fn(ctx, id, status), args.Error(1)
	}
	if app := args.Get(0); app != nil {
		return app.(*models.Application), args.Error(1)
	}
	return nil, args.Error(1)
}

func resume() *Attachment {
	return &Attachment{Name: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}
}

func history() []models.Application {
	return []models.Application{
		{ID: "10", JobID: "1", Status: models.ApplicationInReview},
		{ID: "11", JobID: "2", Status: models.ApplicationAccepted},
		{ID: "12", JobID: "3", Status: models.ApplicationPending},
	}
}

func assertStatsConsistent(t *testing.T, st State) {
	t.Helper()
	s := st.Stats
	assert.Equal(t, len(st.Applications), s.Total)
	assert.Equal(t, s.Total, s.Pending+s.InReview+s.Accepted+s.Rejected)
}

func TestSubmitRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  SubmitRequest
		want error
	}{
		{"ok", SubmitRequest{JobID: "1", CoverLetter: "hi", Resume: resume()}, nil},
		{"no job", SubmitRequest{CoverLetter: "hi", Resume: resume()}, ErrMissingJob},
		{"no resume", SubmitRequest{JobID: "1", CoverLetter: "hi"}, ErrMissingResume},
		{"empty resume", SubmitRequest{JobID: "1", CoverLetter: "hi", Resume: &Attachment{Name: "x"}}, ErrMissingResume},
		{"blank cover letter", SubmitRequest{JobID: "1", CoverLetter: "  ", Resume: resume()}, ErrMissingCoverLetter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Validate())
		})
	}
}

func TestSubmit_ValidationSkipsNetwork(t *testing.T) {
	api := &MockAPI{}
	m := NewManager(api, nil, logger.Nop())

	_, err := m.Submit(context.Background(), SubmitRequest{JobID: "1", Resume: resume()})
	assert.ErrorIs(t, err, ErrMissingCoverLetter)
	assert.Equal(t, ErrMissingCoverLetter.Error(), m.Snapshot().Submit.Err)
	api.AssertNotCalled(t, "SubmitApplication", mock.Anything, mock.Anything)
}

func TestSubmit_PrependsAndRecomputes(t *testing.T) {
	api := &MockAPI{}
	api.On("ListMyApplications", mock.Anything).Return(history(), nil)
	api.On("SubmitApplication", mock.Anything, mock.Anything).
		Return(&models.Application{ID: "13", Status: models.ApplicationPending}, nil)

	m := NewManager(api, nil, logger.Nop())
	ctx := context.Background()
	_, err := m.ListMine(ctx)
	require.NoError(t, err)
	before := m.Snapshot().Stats

	var hooked []models.Application
	m.OnSubmitted(func(a models.Application) { hooked = append(hooked, a) })

	app, err := m.Submit(ctx, SubmitRequest{JobID: "42", CoverLetter: "I am a great fit", Resume: resume()})
	require.NoError(t, err)
	assert.Equal(t, models.ID("42"), app.JobID, "job id filled from the request when the server omits it")

	st := m.Snapshot()
	assert.Equal(t, models.ID("13"), st.Applications[0].ID)
	assert.Equal(t, before.Pending+1, st.Stats.Pending)
	assert.Equal(t, before.Total+1, st.Stats.Total)
	assertStatsConsistent(t, st)
	require.Len(t, hooked, 1)
	assert.Equal(t, models.ID("42"), hooked[0].JobID)
}

func TestSubmit_FailureLeavesHistory(t *testing.T) {
	api := &MockAPI{}
	api.On("ListMyApplications", mock.Anything).Return(history(), nil)
	api.On("SubmitApplication", mock.Anything, mock.Anything).
		Return(nil, &apiclient.Error{Kind: apiclient.KindValidation, Status: 409, Message: "You already applied to this job"})

	m := NewManager(api, nil, logger.Nop())
	ctx := context.Background()
	_, err := m.ListMine(ctx)
	require.NoError(t, err)
	before := m.Snapshot()

	_, err = m.Submit(ctx, SubmitRequest{JobID: "1", CoverLetter: "again", Resume: resume()})
	require.Error(t, err)

	after := m.Snapshot()
	assert.Equal(t, before.Applications, after.Applications)
	assert.Equal(t, before.Stats, after.Stats)
	assert.Equal(t, "You already applied to this job", after.Submit.Err)
	assert.False(t, after.Submit.Loading)
}

func TestListMine_RecomputesFromScratch(t *testing.T) {
	api := &MockAPI{}
	api.On("ListMyApplications", mock.Anything).Return(history(), nil).Once()
	api.On("ListMyApplications", mock.Anything).Return([]models.Application{
		{ID: "10", Status: models.ApplicationRejected},
	}, nil).Once()

	m := NewManager(api, nil, logger.Nop())
	ctx := context.Background()

	_, err := m.ListMine(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStats{Total: 3, Pending: 1, InReview: 1, Accepted: 1}, m.Snapshot().Stats)

	_, err = m.ListMine(ctx)
	require.NoError(t, err)
	st := m.Snapshot()
	assert.Equal(t, models.ApplicationStats{Total: 1, Rejected: 1}, st.Stats)
	assertStatsConsistent(t, st)
}

func TestListMine_FailureKeepsList(t *testing.T) {
	api := &MockAPI{}
	api.On("ListMyApplications", mock.Anything).Return(history(), nil).Once()
	api.On("ListMyApplications", mock.Anything).Return(nil, errors.New("offline")).Once()

	m := NewManager(api, nil, logger.Nop())
	ctx := context.Background()
	_, _ = m.ListMine(ctx)

	_, err := m.ListMine(ctx)
	require.Error(t, err)
	st := m.Snapshot()
	assert.Len(t, st.Applications, 3)
	assert.Equal(t, "offline", st.List.Err)
	assert.False(t, st.List.Loading)
}

// gatedListAPI returns the i-th list when gate i is released.
type gatedListAPI struct {
	MockAPI
	mu      sync.Mutex
	n       int
	started chan int
	gates   []chan struct{}
	lists   [][]models.Application
}

func (g *gatedListAPI) ListMyApplications(context.Context) ([]models.Application, error) {
	g.mu.Lock()
	i := g.n
	g.n++
	g.mu.Unlock()
	g.started <- i
	<-g.gates[i]
	return g.lists[i], nil
}

func TestListMine_StaleResponseDropped(t *testing.T) {
	api := &gatedListAPI{
		started: make(chan int, 2),
		gates:   []chan struct{}{make(chan struct{}), make(chan struct{})},
		lists: [][]models.Application{
			{{ID: "old", Status: models.ApplicationPending}},
			{{ID: "new", Status: models.ApplicationAccepted}},
		},
	}
	m := NewManager(api, nil, logger.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.ListMine(ctx)
		}()
		<-api.started
	}
	close(api.gates[1])
	time.Sleep(10 * time.Millisecond)
	close(api.gates[0])
	wg.Wait()

	st := m.Snapshot()
	require.Len(t, st.Applications, 1)
	assert.Equal(t, models.ID("new"), st.Applications[0].ID)
	assert.False(t, st.List.Loading)
}

func TestListMine_DoesNotUndoStatusUpdate(t *testing.T) {
	api := &gatedListAPI{
		started: make(chan int, 2),
		gates:   []chan struct{}{make(chan struct{}), make(chan struct{})},
		lists: [][]models.Application{
			{{ID: "20", JobID: "4", Status: models.ApplicationPending}},
			{{ID: "20", JobID: "4", Status: models.ApplicationPending}},
		},
	}
	api.On("UpdateApplicationStatus", mock.Anything, models.ID("20"), models.ApplicationAccepted).
		Return(&models.Application{ID: "20", Status: models.ApplicationAccepted}, nil)
	m := NewManager(api, nil, logger.Nop())
	ctx := context.Background()

	close(api.gates[0])
	_, err := m.ListMine(ctx)
	require.NoError(t, err)
	<-api.started

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.ListMine(ctx)
	}()
	<-api.started

	_, err = m.UpdateStatus(ctx, "20", models.ApplicationAccepted)
	require.NoError(t, err)

	close(api.gates[1])
	<-done

	st := m.Snapshot()
	require.Len(t, st.Applications, 1)
	assert.Equal(t, models.ApplicationAccepted, st.Applications[0].Status)
	assert.Equal(t, 1, st.Stats.Accepted)
	assert.False(t, st.List.Loading)
	assertStatsConsistent(t, st)
}

func TestGetDetails_SeparateSlot(t *testing.T) {
	api := &MockAPI{}
	api.On("ListMyApplications", mock.Anything).Return(history(), nil)
	api.On("GetApplication", mock.Anything, models.ID("11")).
		Return(&models.Application{ID: "11", Status: models.ApplicationAccepted, CoverLetter: "full letter"}, nil)

	m := NewManager(api, nil, logger.Nop())
	ctx := context.Background()
	_, err := m.ListMine(ctx)
	require.NoError(t, err)

	app, err := m.GetDetails(ctx, "11")
	require.NoError(t, err)
	assert.Equal(t, "full letter", app.CoverLetter)

	st := m.Snapshot()
	require.NotNil(t, st.Selected)
	assert.Equal(t, "full letter", st.Selected.CoverLetter)
	assert.Empty(t, st.Applications[1].CoverLetter, "the list is not touched")
	api.AssertNumberOfCalls(t, "ListMyApplications", 1)
}

func TestUpdateStatus_ReplacesListAndSelected(t *testing.T) {
	api := &MockAPI{}
	api.On("ListMyApplications", mock.Anything).Return(history(), nil)
	api.On("GetApplication", mock.Anything, models.ID("12")).
		Return(&models.Application{ID: "12", JobID: "3", Status: models.ApplicationPending, CoverLetter: "letter"}, nil)
	api.On("UpdateApplicationStatus", mock.Anything, models.ID("12"), models.ApplicationRejected).
		Return(&models.Application{ID: "12", Status: models.ApplicationRejected}, nil)

	m := NewManager(api, nil, logger.Nop())
	ctx := context.Background()
	_, _ = m.ListMine(ctx)
	_, _ = m.GetDetails(ctx, "12")

	_, err := m.UpdateStatus(ctx, "12", models.ApplicationRejected)
	require.NoError(t, err)

	st := m.Snapshot()
	assert.Equal(t, models.ApplicationRejected, st.Applications[2].Status)
	assert.Equal(t, models.ID("3"), st.Applications[2].JobID, "fields missing from the response are kept")
	assert.Equal(t, models.ApplicationRejected, st.Selected.Status)
	assert.Equal(t, "letter", st.Selected.CoverLetter)
	assert.Equal(t, 1, st.Stats.Rejected)
	assert.Equal(t, 0, st.Stats.Pending)
	assertStatsConsistent(t, st)
}

type blockingUpdateAPI struct {
	MockAPI
	gate    chan struct{}
	entered chan struct{}
}

func (b *blockingUpdateAPI) UpdateApplicationStatus(_ context.Context, id models.ID, status models.ApplicationStatus) (*models.Application, error) {
	if id == "10" {
		b.entered <- struct{}{}
		<-b.gate
	}
	return &models.Application{ID: id, Status: status}, nil
}

func TestUpdateStatus_SerializedPerApplication(t *testing.T) {
	api := &blockingUpdateAPI{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	api.On("ListMyApplications", mock.Anything).Return(history(), nil)
	m := NewManager(api, nil, logger.Nop())
	ctx := context.Background()
	_, _ = m.ListMine(ctx)

	done := make(chan error, 1)
	go func() {
		_, err := m.UpdateStatus(ctx, "10", models.ApplicationAccepted)
		done <- err
	}()
	<-api.entered

	_, err := m.UpdateStatus(ctx, "10", models.ApplicationRejected)
	assert.ErrorIs(t, err, ErrUpdateInFlight)

	_, err = m.UpdateStatus(ctx, "11", models.ApplicationRejected)
	require.NoError(t, err)

	close(api.gate)
	require.NoError(t, <-done)

	st := m.Snapshot()
	assert.Equal(t, models.ApplicationAccepted, st.Applications[0].Status)
	assert.Equal(t, models.ApplicationRejected, st.Applications[1].Status)
	assert.Empty(t, st.Updating)
	assert.False(t, st.Update.Loading)
	assertStatsConsistent(t, st)
}

// Any interleaving of operations keeps the stats consistent with the list.
func TestStatsConsistency_Sequence(t *testing.T) {
	api := &MockAPI{}
	api.On("ListMyApplications", mock.Anything).Return(history(), nil)
	for i := 0; i < 5; i++ {
		api.On("SubmitApplication", mock.Anything, mock.Anything).
			Return(&models.Application{ID: models.ID(fmt.Sprintf("n%d", i)), Status: "weird-status"}, nil).Once()
	}
	api.On("UpdateApplicationStatus", mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, id models.ID, s models.ApplicationStatus) *models.Application {
			return &models.Application{ID: id, Status: s}
		}, nil)

	bus := events.NewBus()
	m := NewManager(api, bus, logger.Nop())
	bus.Subscribe(func(e events.Event) {
		assertStatsConsistent(t, e.Payload.(State))
	})
	ctx := context.Background()

	_, _ = m.ListMine(ctx)
	for i := 0; i < 5; i++ {
		_, err := m.Submit(ctx, SubmitRequest{JobID: "7", CoverLetter: "x", Resume: resume()})
		require.NoError(t, err)
		_, err = m.UpdateStatus(ctx, "10", models.ApplicationStatuses[i%4])
		require.NoError(t, err)
	}
	_, _ = m.ListMine(ctx)
	assertStatsConsistent(t, m.Snapshot())
}
