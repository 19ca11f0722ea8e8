package api

import (
	"context"
	"io"

	"github.com/blockedby/kandra/internal/models"
	"github.com/blockedby/kandra/internal/repository"
)

// UsersRepository defines the interface for account and token data access.
type UsersRepository interface {
	Create(ctx context.Context, email, password, name string, role models.Role) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	IssueToken(ctx context.Context, userID models.ID) (string, error)
	ByToken(ctx context.Context, token string) (*models.User, error)
}

// JobsRepository defines the interface for job posting data access.
type JobsRepository interface {
	List(ctx context.Context, q repository.JobQuery) ([]models.JobPosting, int, error)
	GetRow(ctx context.Context, id models.ID) (*repository.JobRow, error)
	GetByID(ctx context.Context, id models.ID) (*models.JobPosting, error)
	Create(ctx context.Context, company models.User, in repository.NewJob) (*models.JobPosting, error)
	UpdateStatus(ctx context.Context, id models.ID, status models.JobStatus) (*models.JobPosting, error)
}

// ApplicationsRepository defines the interface for application data access.
type ApplicationsRepository interface {
	Create(ctx context.Context, in repository.NewApplication) (*models.Application, error)
	GetRow(ctx context.Context, id models.ID) (*repository.ApplicationRow, error)
	GetByID(ctx context.Context, id models.ID) (*models.Application, error)
	ListByUser(ctx context.Context, userID models.ID) ([]models.Application, error)
	ListByJob(ctx context.Context, jobID models.ID) ([]models.Application, error)
	UpdateStatus(ctx context.Context, id models.ID, status models.ApplicationStatus) (*models.Application, error)
}

// BookmarksRepository defines the interface for saved jobs.
type BookmarksRepository interface {
	Add(ctx context.Context, userID, jobID models.ID) error
	Remove(ctx context.Context, userID, jobID models.ID) error
	List(ctx context.Context, userID models.ID) ([]models.JobPosting, error)
}

// StatsRepository defines the interface for dashboard statistics.
type StatsRepository interface {
	ForCompany(ctx context.Context, companyID models.ID) (*repository.CompanyStats, error)
}

// FileStore keeps uploaded documents and returns their stored name.
type FileStore interface {
	Save(filename string, r io.Reader) (string, error)
}
