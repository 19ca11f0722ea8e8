package handlers

import (
	"context"

	"github.com/blockedby/kandra/internal/applications"
	"github.com/blockedby/kandra/internal/auth"
	"github.com/blockedby/kandra/internal/company"
	"github.com/blockedby/kandra/internal/filter"
	"github.com/blockedby/kandra/internal/jobs"
	"github.com/blockedby/kandra/internal/models"
)

// JobsSlice defines the job listing operations a view can trigger.
type JobsSlice interface {
	Snapshot() jobs.State
	Filter() filter.State
	Search(ctx context.Context) error
	LoadMore(ctx context.Context) error
	UpdateFilter(ctx context.Context, fn func(filter.State) filter.State) error
	ToggleBookmark(ctx context.Context, id models.ID) (bool, error)
	GetDetails(ctx context.Context, id models.ID) (*models.JobPosting, error)
}

// ApplicationsSlice defines the application tracking operations.
type ApplicationsSlice interface {
	Snapshot() applications.State
	ListMine(ctx context.Context) ([]models.Application, error)
	UpdateStatus(ctx context.Context, id models.ID, status models.ApplicationStatus) (*models.Application, error)
}

// AuthSlice defines sign-in and sign-out.
type AuthSlice interface {
	Snapshot() auth.State
	Login(ctx context.Context, email, password string) (*models.User, error)
	Logout(ctx context.Context) error
}

// CompanySlice exposes the company-side state.
type CompanySlice interface {
	Snapshot() company.State
}
