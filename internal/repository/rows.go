// Package repository implements the development backend's storage over gorm.
package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/blockedby/kandra/internal/models"
	"gorm.io/gorm"
)

// errors
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserRow is an account. Companies are accounts with RoleCompany; their
// Name is the company name shown on offers.
type UserRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string
	Role         string `gorm:"not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (UserRow) TableName() string { return "users" }

// Model converts the row to the wire type.
func (u UserRow) Model() models.User {
	return models.User{ID: models.ID(u.ID), Email: u.Email, Name: u.Name, Role: models.Role(u.Role)}
}

// TokenRow is an issued bearer token.
type TokenRow struct {
	Token     string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"index;not null"`
	CreatedAt time.Time
}

func (TokenRow) TableName() string { return "tokens" }

// JobRow is a job posting.
type JobRow struct {
	ID              string `gorm:"primaryKey;size:36"`
	CompanyID       string `gorm:"index;not null"`
	Company         string
	Title           string `gorm:"not null"`
	Description     string
	Location        string
	Category        string `gorm:"index"`
	Kind            string `gorm:"index"`
	ExperienceLevel string
	SalaryText      string
	SalaryMin       *float64
	SalaryMax       *float64
	Skills          string
	Proposals       int
	Status          string `gorm:"index;not null"`
	PublishedAt     *time.Time
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time
}

func (JobRow) TableName() string { return "job_postings" }

// Model converts the row to the wire type.
func (j JobRow) Model() models.JobPosting {
	return models.JobPosting{
		ID:              models.ID(j.ID),
		Title:           j.Title,
		Description:     j.Description,
		Company:         j.Company,
		Location:        j.Location,
		Category:        j.Category,
		Salary:          models.Salary{Text: j.SalaryText, Min: j.SalaryMin, Max: j.SalaryMax},
		Kind:            models.OfferKind(j.Kind),
		ExperienceLevel: models.ExperienceLevel(j.ExperienceLevel),
		Skills:          splitSkills(j.Skills),
		Proposals:       j.Proposals,
		PublishedAt:     j.PublishedAt,
		Status:          models.JobStatus(j.Status),
	}
}

// ApplicationRow is a candidate's application to one job.
type ApplicationRow struct {
	ID            string `gorm:"primaryKey;size:36"`
	JobID         string `gorm:"uniqueIndex:idx_applications_job_user;not null"`
	UserID        string `gorm:"uniqueIndex:idx_applications_job_user;index;not null"`
	CoverLetter   string
	Motivation    string
	PortfolioURL  string
	LinkedInURL   string
	ResumePath    string
	PortfolioPath string
	Status        string `gorm:"not null"`
	SubmittedAt   time.Time
	UpdatedAt     time.Time
}

func (ApplicationRow) TableName() string { return "applications" }

// Model converts the row to the wire type. job may be nil.
func (a ApplicationRow) Model(job *JobRow) models.Application {
	status, _ := models.ParseApplicationStatus(a.Status)
	app := models.Application{
		ID:           models.ID(a.ID),
		JobID:        models.ID(a.JobID),
		SubmittedAt:  a.SubmittedAt,
		CoverLetter:  a.CoverLetter,
		Motivation:   a.Motivation,
		PortfolioURL: a.PortfolioURL,
		LinkedInURL:  a.LinkedInURL,
		ResumeRef:    a.ResumePath,
		Status:       status,
	}
	if job != nil {
		j := job.Model()
		app.Job = &j
	}
	return app
}

// BookmarkRow marks a job as saved by a user.
type BookmarkRow struct {
	UserID    string `gorm:"primaryKey;size:36"`
	JobID     string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
}

func (BookmarkRow) TableName() string { return "bookmarks" }

// Migrate creates or updates every table from the row types. It serves
// sqlite databases; postgresql gets the same schema from the SQL files in
// the migrations package.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserRow{}, &TokenRow{}, &JobRow{}, &ApplicationRow{}, &BookmarkRow{})
}

func joinSkills(skills []string) string {
	var out []string
	for _, s := range skills {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ",")
}

func splitSkills(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
