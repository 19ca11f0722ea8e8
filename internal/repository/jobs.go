package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blockedby/kandra/internal/filter"
	"github.com/blockedby/kandra/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobQuery selects a page of job postings.
type JobQuery struct {
	Filter    filter.State
	Status    models.JobStatus // empty means any
	CompanyID models.ID        // empty means every company
	Offset    int
	Limit     int
}

// NewJob holds the fields of an offer being created.
type NewJob struct {
	Title           string
	Description     string
	Location        string
	Category        string
	Kind            models.OfferKind
	ExperienceLevel models.ExperienceLevel
	Salary          models.Salary
	Skills          []string
	Status          models.JobStatus
}

// JobsRepository handles job_postings table operations
type JobsRepository struct {
	db *gorm.DB
}

// NewJobsRepository creates a new jobs repository
func NewJobsRepository(db *gorm.DB) *JobsRepository {
	return &JobsRepository{db: db}
}

// List returns the page of postings matching q and the total match count.
// Category, kind and level narrow the SQL query; the remaining constraints
// (text, salary, proposals) are applied with filter.State.Matches so both
// sides of the wire share one definition of a match.
func (r *JobsRepository) List(ctx context.Context, q JobQuery) ([]models.JobPosting, int, error) {
	tx := r.db.WithContext(ctx).Model(&JobRow{})

	if q.Status != "" {
		tx = tx.Where("status = ?", string(q.Status))
	}
	if q.CompanyID != "" {
		tx = tx.Where("company_id = ?", q.CompanyID.String())
	}

	f := q.Filter
	if f.Category != "" && f.Category != filter.CategoryAny {
		tx = tx.Where("LOWER(category) = ?", strings.ToLower(f.Category))
	}
	if kinds := activeKeys(f.JobTypes); len(kinds) > 0 {
		tx = tx.Where("kind IN ?", kinds)
	}
	if levels := activeKeys(f.Levels); len(levels) > 0 {
		tx = tx.Where("experience_level IN ?", levels)
	}

	var rows []JobRow
	if err := tx.Order("created_at DESC").Order("id").Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	matched := make([]models.JobPosting, 0, len(rows))
	for _, row := range rows {
		job := row.Model()
		if f.Matches(job) {
			matched = append(matched, job)
		}
	}

	total := len(matched)
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if q.Limit > 0 && offset+q.Limit < end {
		end = offset + q.Limit
	}

	return matched[offset:end], total, nil
}

// GetRow returns the raw row, including the owning company id.
func (r *JobsRepository) GetRow(ctx context.Context, id models.ID) (*JobRow, error) {
	var row JobRow
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

// GetByID returns one posting.
func (r *JobsRepository) GetByID(ctx context.Context, id models.ID) (*models.JobPosting, error) {
	row, err := r.GetRow(ctx, id)
	if err != nil {
		return nil, err
	}
	job := row.Model()
	return &job, nil
}

// Create stores a new offer owned by company.
func (r *JobsRepository) Create(ctx context.Context, company models.User, in NewJob) (*models.JobPosting, error) {
	now := time.Now().UTC()
	status := in.Status
	if status == "" {
		status = models.JobStatusPublished
	}

	row := JobRow{
		ID:              uuid.NewString(),
		CompanyID:       company.ID.String(),
		Company:         company.Name,
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Location:        in.Location,
		Category:        in.Category,
		Kind:            string(in.Kind),
		ExperienceLevel: string(in.ExperienceLevel),
		SalaryText:      in.Salary.Text,
		SalaryMin:       in.Salary.Min,
		SalaryMax:       in.Salary.Max,
		Skills:          joinSkills(in.Skills),
		Status:          string(status),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if status == models.JobStatusPublished {
		row.PublishedAt = &now
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	job := row.Model()
	return &job, nil
}

// UpdateStatus changes the publication state of a posting.
func (r *JobsRepository) UpdateStatus(ctx context.Context, id models.ID, status models.JobStatus) (*models.JobPosting, error) {
	row, err := r.GetRow(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	row.Status = string(status)
	row.UpdatedAt = now
	if status == models.JobStatusPublished && row.PublishedAt == nil {
		row.PublishedAt = &now
	}

	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return nil, fmt.Errorf("update job status: %w", err)
	}
	job := row.Model()
	return &job, nil
}

// rowsByID loads the given postings keyed by id.
func (r *JobsRepository) rowsByID(ctx context.Context, ids []string) (map[string]*JobRow, error) {
	out := make(map[string]*JobRow, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []JobRow
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func activeKeys[K ~string](flags map[K]bool) []string {
	var out []string
	for k, on := range flags {
		if on {
			out = append(out, string(k))
		}
	}
	return out
}
