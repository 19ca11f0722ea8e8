package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/blockedby/kandra/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookmarksRepository handles saved jobs.
type BookmarksRepository struct {
	db   *gorm.DB
	jobs *JobsRepository
}

// NewBookmarksRepository creates a new bookmarks repository
func NewBookmarksRepository(db *gorm.DB) *BookmarksRepository {
	return &BookmarksRepository{db: db, jobs: NewJobsRepository(db)}
}

// Add saves jobID for userID. Saving twice is not an error.
func (r *BookmarksRepository) Add(ctx context.Context, userID, jobID models.ID) error {
	if _, err := r.jobs.GetRow(ctx, jobID); err != nil {
		return err
	}

	row := BookmarkRow{UserID: userID.String(), JobID: jobID.String(), CreatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("add bookmark: %w", err)
	}
	return nil
}

// Remove deletes the bookmark. Removing a missing bookmark is not an error.
func (r *BookmarksRepository) Remove(ctx context.Context, userID, jobID models.ID) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND job_id = ?", userID.String(), jobID.String()).
		Delete(&BookmarkRow{}).Error
	if err != nil {
		return fmt.Errorf("remove bookmark: %w", err)
	}
	return nil
}

// List returns the bookmarked postings of userID, most recently saved first.
func (r *BookmarksRepository) List(ctx context.Context, userID models.ID) ([]models.JobPosting, error) {
	var rows []BookmarkRow
	err := r.db.WithContext(ctx).Where("user_id = ?", userID.String()).
		Order("created_at DESC").Order("job_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.JobID)
	}
	jobs, err := r.jobs.rowsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.JobPosting, 0, len(rows))
	for _, row := range rows {
		if job, ok := jobs[row.JobID]; ok {
			m := job.Model()
			m.Bookmarked = true
			out = append(out, m)
		}
	}
	return out, nil
}
