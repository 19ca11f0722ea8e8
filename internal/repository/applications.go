package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/blockedby/kandra/internal/logger"
	"github.com/blockedby/kandra/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewApplication holds the fields of a submitted application form.
type NewApplication struct {
	JobID         models.ID
	UserID        models.ID
	CoverLetter   string
	Motivation    string
	PortfolioURL  string
	LinkedInURL   string
	ResumePath    string
	PortfolioPath string
}

// ApplicationsRepository handles applications CRUD operations
type ApplicationsRepository struct {
	db   *gorm.DB
	jobs *JobsRepository
	log  *logger.Logger
}

// NewApplicationsRepository creates a new applications repository
func NewApplicationsRepository(db *gorm.DB, log *logger.Logger) *ApplicationsRepository {
	return &ApplicationsRepository{
		db:   db,
		jobs: NewJobsRepository(db),
		log:  logger.OrGet(log),
	}
}

// Create stores a pending application and bumps the job's proposal count.
// A second application by the same user to the same job is ErrConflict.
func (r *ApplicationsRepository) Create(ctx context.Context, in NewApplication) (*models.Application, error) {
	job, err := r.jobs.GetRow(ctx, in.JobID)
	if err != nil {
		return nil, err
	}

	var count int64
	err = r.db.WithContext(ctx).Model(&ApplicationRow{}).
		Where("job_id = ? AND user_id = ?", in.JobID.String(), in.UserID.String()).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("check application: %w", err)
	}
	if count > 0 {
		return nil, ErrConflict
	}

	now := time.Now().UTC()
	row := ApplicationRow{
		ID:            uuid.NewString(),
		JobID:         in.JobID.String(),
		UserID:        in.UserID.String(),
		CoverLetter:   in.CoverLetter,
		Motivation:    in.Motivation,
		PortfolioURL:  in.PortfolioURL,
		LinkedInURL:   in.LinkedInURL,
		ResumePath:    in.ResumePath,
		PortfolioPath: in.PortfolioPath,
		Status:        string(models.ApplicationPending),
		SubmittedAt:   now,
		UpdatedAt:     now,
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create application: %w", err)
	}

	err = r.db.WithContext(ctx).Model(&JobRow{}).Where("id = ?", job.ID).
		UpdateColumn("proposals", gorm.Expr("proposals + ?", 1)).Error
	if err != nil {
		return nil, fmt.Errorf("count proposal: %w", err)
	}
	job.Proposals++

	r.log.Info().
		Str("application_id", row.ID).
		Str("job_id", row.JobID).
		Msg("created application")

	app := row.Model(job)
	return &app, nil
}

// GetRow returns the raw row with its owning user.
func (r *ApplicationsRepository) GetRow(ctx context.Context, id models.ID) (*ApplicationRow, error) {
	var row ApplicationRow
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

// GetByID returns one application with its job embedded.
func (r *ApplicationsRepository) GetByID(ctx context.Context, id models.ID) (*models.Application, error) {
	row, err := r.GetRow(ctx, id)
	if err != nil {
		return nil, err
	}
	apps, err := r.hydrate(ctx, []ApplicationRow{*row})
	if err != nil {
		return nil, err
	}
	return &apps[0], nil
}

// ListByUser returns a user's applications, newest first.
func (r *ApplicationsRepository) ListByUser(ctx context.Context, userID models.ID) ([]models.Application, error) {
	return r.list(ctx, "user_id = ?", userID.String())
}

// ListByJob returns the applications received for one job, newest first.
func (r *ApplicationsRepository) ListByJob(ctx context.Context, jobID models.ID) ([]models.Application, error) {
	return r.list(ctx, "job_id = ?", jobID.String())
}

func (r *ApplicationsRepository) list(ctx context.Context, where string, arg string) ([]models.Application, error) {
	var rows []ApplicationRow
	err := r.db.WithContext(ctx).Where(where, arg).
		Order("submitted_at DESC").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return r.hydrate(ctx, rows)
}

// UpdateStatus sets the status of an application.
func (r *ApplicationsRepository) UpdateStatus(ctx context.Context, id models.ID, status models.ApplicationStatus) (*models.Application, error) {
	row, err := r.GetRow(ctx, id)
	if err != nil {
		return nil, err
	}

	row.Status = string(status)
	row.UpdatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return nil, fmt.Errorf("update application status: %w", err)
	}

	r.log.Info().
		Str("application_id", row.ID).
		Str("status", row.Status).
		Msg("updated application status")

	apps, err := r.hydrate(ctx, []ApplicationRow{*row})
	if err != nil {
		return nil, err
	}
	return &apps[0], nil
}

// AppliedJobIDs returns the ids of every job userID applied to.
func (r *ApplicationsRepository) AppliedJobIDs(ctx context.Context, userID models.ID) (map[models.ID]bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&ApplicationRow{}).
		Where("user_id = ?", userID.String()).
		Pluck("job_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("applied jobs: %w", err)
	}

	out := make(map[models.ID]bool, len(ids))
	for _, id := range ids {
		out[models.ID(id)] = true
	}
	return out, nil
}

func (r *ApplicationsRepository) hydrate(ctx context.Context, rows []ApplicationRow) ([]models.Application, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.JobID)
	}
	jobs, err := r.jobs.rowsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.Application, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Model(jobs[row.JobID]))
	}
	return out, nil
}
