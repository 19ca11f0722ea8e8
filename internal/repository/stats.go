package repository

import (
	"context"
	"fmt"

	"github.com/blockedby/kandra/internal/models"
	"gorm.io/gorm"
)

// CompanyStats contains aggregated statistics for a company dashboard.
type CompanyStats struct {
	TotalOffers     int                     `json:"total_offers"`
	PublishedOffers int                     `json:"published_offers"`
	DraftOffers     int                     `json:"draft_offers"`
	ExpiredOffers   int                     `json:"expired_offers"`
	Applications    models.ApplicationStats `json:"applications"`
}

// StatsRepository provides access to statistics data in the database.
type StatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new StatsRepository.
func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

type statusCount struct {
	Status string
	N      int
}

// ForCompany aggregates the offers of companyID and the applications they
// received.
func (r *StatsRepository) ForCompany(ctx context.Context, companyID models.ID) (*CompanyStats, error) {
	stats := &CompanyStats{}

	var offers []statusCount
	err := r.db.WithContext(ctx).Model(&JobRow{}).
		Select("status, COUNT(*) AS n").
		Where("company_id = ?", companyID.String()).
		Group("status").
		Scan(&offers).Error
	if err != nil {
		return nil, fmt.Errorf("get offer stats: %w", err)
	}
	for _, c := range offers {
		stats.TotalOffers += c.N
		switch models.JobStatus(c.Status) {
		case models.JobStatusPublished:
			stats.PublishedOffers += c.N
		case models.JobStatusDraft:
			stats.DraftOffers += c.N
		case models.JobStatusExpired:
			stats.ExpiredOffers += c.N
		}
	}

	var apps []statusCount
	err = r.db.WithContext(ctx).Model(&ApplicationRow{}).
		Select("applications.status AS status, COUNT(*) AS n").
		Joins("JOIN job_postings ON job_postings.id = applications.job_id").
		Where("job_postings.company_id = ?", companyID.String()).
		Group("applications.status").
		Scan(&apps).Error
	if err != nil {
		return nil, fmt.Errorf("get application stats: %w", err)
	}
	for _, c := range apps {
		status, _ := models.ParseApplicationStatus(c.Status)
		stats.Applications.Total += c.N
		switch status {
		case models.ApplicationInReview:
			stats.Applications.InReview += c.N
		case models.ApplicationAccepted:
			stats.Applications.Accepted += c.N
		case models.ApplicationRejected:
			stats.Applications.Rejected += c.N
		default:
			stats.Applications.Pending += c.N
		}
	}

	return stats, nil
}
