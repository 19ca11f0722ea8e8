package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/kandra/internal/models"
)

func TestToggleBookmark_AppliedAfterConfirm(t *testing.T) {
	api := pagedAPI(3, false)
	m := newManager(api)
	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx))

	on, err := m.ToggleBookmark(ctx, "1")
	require.NoError(t, err)
	assert.True(t, on)

	st := m.Snapshot()
	assert.True(t, st.Bookmarks["1"])
	assert.True(t, st.Jobs[0].Bookmarked)
	require.Len(t, st.Saved, 1)

	on, err = m.ToggleBookmark(ctx, "1")
	require.NoError(t, err)
	assert.False(t, on)
	st = m.Snapshot()
	assert.False(t, st.Bookmarks["1"])
	assert.False(t, st.Jobs[0].Bookmarked)
	assert.Empty(t, st.Saved)
}

func TestToggleBookmark_FailureLeavesStateUntouched(t *testing.T) {
	api := pagedAPI(3, false)
	api.bookmark = func(models.ID, bool) error { return errors.New("Server error. Please try again later.") }
	m := newManager(api)
	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx))

	on, err := m.ToggleBookmark(ctx, "2")
	require.Error(t, err)
	assert.False(t, on)

	st := m.Snapshot()
	assert.False(t, st.Bookmarks["2"])
	assert.False(t, st.Jobs[1].Bookmarked)
	assert.Empty(t, st.PendingBookmarks)
	assert.Equal(t, "Server error. Please try again later.", st.Bookmark.Err)
}

func TestToggleBookmark_SerializedPerJob(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	calls := map[models.ID]int{}
	api := pagedAPI(3, false)
	api.bookmark = func(id models.ID, _ bool) error {
		mu.Lock()
		calls[id]++
		mu.Unlock()
		if id == "1" {
			<-gate
		}
		return nil
	}
	m := newManager(api)
	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := m.ToggleBookmark(ctx, "1")
		done <- err
	}()
	require.Eventually(t, func() bool { return m.Snapshot().PendingBookmarks["1"] }, time.Second, time.Millisecond)

	_, err := m.ToggleBookmark(ctx, "1")
	assert.ErrorIs(t, err, ErrToggleInFlight)

	// other jobs are independent
	on, err := m.ToggleBookmark(ctx, "2")
	require.NoError(t, err)
	assert.True(t, on)

	close(gate)
	require.NoError(t, <-done)

	st := m.Snapshot()
	assert.True(t, st.Bookmarks["1"])
	assert.True(t, st.Bookmarks["2"])
	assert.Equal(t, 1, calls["1"])
}

func TestLoadBookmarks(t *testing.T) {
	api := pagedAPI(3, false)
	api.bookmarks = []models.JobPosting{{ID: "3", Title: "job 3"}, {ID: "99", Title: "elsewhere"}}
	m := newManager(api)
	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx))

	require.NoError(t, m.LoadBookmarks(ctx))

	st := m.Snapshot()
	assert.True(t, st.Bookmarks["3"])
	assert.True(t, st.Bookmarks["99"])
	assert.True(t, st.Jobs[2].Bookmarked)
	assert.False(t, st.Jobs[0].Bookmarked)
	assert.Len(t, st.Saved, 2)

	// annotation carries over to later pages
	require.NoError(t, m.Refresh(ctx))
	assert.True(t, m.Snapshot().Jobs[2].Bookmarked)
}

func TestResetSession_ClearsAccountMarks(t *testing.T) {
	api := pagedAPI(3, false)
	api.jobs = map[models.ID]models.JobPosting{"2": {ID: "2", Title: "job 2"}}
	m := newManager(api)
	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx))

	_, err := m.ToggleBookmark(ctx, "1")
	require.NoError(t, err)
	m.MarkApplied("2")
	_, err = m.GetDetails(ctx, "2")
	require.NoError(t, err)

	m.ResetSession()

	st := m.Snapshot()
	assert.Empty(t, st.Bookmarks)
	assert.Empty(t, st.PendingBookmarks)
	assert.Empty(t, st.Saved)
	assert.Nil(t, st.Selected)
	require.Len(t, st.Jobs, 3)
	for _, j := range st.Jobs {
		assert.False(t, j.Bookmarked, j.ID)
		assert.False(t, j.Applied, j.ID)
	}

	// the next account starts from an unbookmarked job
	var sent []bool
	api.bookmark = func(_ models.ID, on bool) error {
		sent = append(sent, on)
		return nil
	}
	on, err := m.ToggleBookmark(ctx, "1")
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, []bool{true}, sent)

	require.NoError(t, m.Refresh(ctx))
	assert.False(t, m.Snapshot().Jobs[1].Applied)
}

func TestResetSession_DropsToggleFromPreviousAccount(t *testing.T) {
	gate := make(chan struct{})
	started := make(chan struct{})
	api := pagedAPI(3, false)
	api.bookmark = func(models.ID, bool) error {
		close(started)
		<-gate
		return nil
	}
	m := newManager(api)
	ctx := context.Background()
	require.NoError(t, m.Refresh(ctx))

	done := make(chan error, 1)
	go func() {
		_, err := m.ToggleBookmark(ctx, "1")
		done <- err
	}()
	<-started

	m.ResetSession()
	close(gate)
	require.NoError(t, <-done)

	st := m.Snapshot()
	assert.False(t, st.Bookmarks["1"])
	assert.False(t, st.Jobs[0].Bookmarked)
	assert.Empty(t, st.PendingBookmarks)
}
