package jobs

import (
	"context"

	"github.com/blockedby/kandra/internal/apiclient"
	"github.com/blockedby/kandra/internal/models"
)

// ToggleBookmark flips the bookmark on id. The server is called first and
// local state only changes once it confirms. A second toggle on the same id
// while one is outstanding returns ErrToggleInFlight; other ids proceed
// independently.
func (m *Manager) ToggleBookmark(ctx context.Context, id models.ID) (bool, error) {
	m.mu.Lock()
	if m.state.PendingBookmarks[id] {
		m.mu.Unlock()
		return false, ErrToggleInFlight
	}
	m.state.PendingBookmarks[id] = true
	want := !m.state.Bookmarks[id]
	account := m.account
	m.state.Bookmark.Err = ""
	m.mu.Unlock()
	m.publish()

	var err error
	if want {
		err = m.api.Bookmark(ctx, id)
	} else {
		err = m.api.Unbookmark(ctx, id)
	}

	m.mu.Lock()
	if account != m.account {
		m.mu.Unlock()
		m.log.Debug().Str("job_id", id.String()).Msg("dropping bookmark change from a previous session")
		return want, err
	}
	delete(m.state.PendingBookmarks, id)
	if err != nil {
		m.state.Bookmark.Err = apiclient.MessageOf(err)
		want = m.state.Bookmarks[id]
	} else {
		m.setBookmarkLocked(id, want)
	}
	m.mu.Unlock()
	m.publish()

	if err != nil {
		m.log.Warn().Err(err).Str("job_id", id.String()).Msg("bookmark toggle failed")
		return want, err
	}
	return want, nil
}

func (m *Manager) setBookmarkLocked(id models.ID, on bool) {
	if on {
		m.state.Bookmarks[id] = true
		if job, ok := m.findLocked(id); ok && !containsJob(m.state.Saved, id) {
			job.Bookmarked = true
			m.state.Saved = append(m.state.Saved, job)
		}
	} else {
		delete(m.state.Bookmarks, id)
		saved := m.state.Saved[:0]
		for _, j := range m.state.Saved {
			if j.ID != id {
				saved = append(saved, j)
			}
		}
		m.state.Saved = saved
	}
	m.forEachLocked(id, func(j *models.JobPosting) { j.Bookmarked = on })
}

// LoadBookmarks replaces the bookmark set with the server's. Ids with a
// toggle in flight keep their local value.
func (m *Manager) LoadBookmarks(ctx context.Context) error {
	m.mu.Lock()
	m.state.Bookmark = OpState{Loading: true}
	account := m.account
	m.mu.Unlock()
	m.publish()

	saved, err := m.api.ListBookmarks(ctx)

	m.mu.Lock()
	if account != m.account {
		m.mu.Unlock()
		return err
	}
	m.state.Bookmark.Loading = false
	if err != nil {
		m.state.Bookmark.Err = apiclient.MessageOf(err)
		m.mu.Unlock()
		m.publish()
		return err
	}

	next := make(map[models.ID]bool, len(saved))
	for id := range m.state.PendingBookmarks {
		if m.state.Bookmarks[id] {
			next[id] = true
		}
	}
	list := make([]models.JobPosting, 0, len(saved))
	for _, j := range saved {
		if m.state.PendingBookmarks[j.ID] && !m.state.Bookmarks[j.ID] {
			continue
		}
		next[j.ID] = true
		j.Bookmarked = true
		list = append(list, j.Clone())
	}
	m.state.Bookmarks = next
	m.state.Saved = list
	for i := range m.state.Jobs {
		m.state.Jobs[i].Bookmarked = next[m.state.Jobs[i].ID]
	}
	if m.state.Selected != nil {
		m.state.Selected.Bookmarked = next[m.state.Selected.ID]
	}
	m.mu.Unlock()
	m.publish()
	return nil
}

func (m *Manager) findLocked(id models.ID) (models.JobPosting, bool) {
	for _, j := range m.state.Jobs {
		if j.ID == id {
			return j.Clone(), true
		}
	}
	if m.state.Selected != nil && m.state.Selected.ID == id {
		return m.state.Selected.Clone(), true
	}
	return models.JobPosting{}, false
}

func containsJob(list []models.JobPosting, id models.ID) bool {
	for _, j := range list {
		if j.ID == id {
			return true
		}
	}
	return false
}
