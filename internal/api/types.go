package api

import (
	"time"

	"github.com/blockedby/kandra/internal/models"
)

// ============================================================================
// Common Types
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status" example:"ok" description:"Health status"`
	Version string `json:"version" example:"dev" description:"Application version"`
}

// Pagination describes the window of a list response.
type Pagination struct {
	Total  int `json:"total" description:"Number of matching records"`
	Offset int `json:"offset" description:"Index of the first returned record"`
	Limit  int `json:"limit" description:"Requested page size"`
}

// StatusRequest is the body of every status update.
type StatusRequest struct {
	Status string `json:"status" validate:"required" description:"New status"`
}

// ============================================================================
// Auth Types
// ============================================================================

// LoginRequest contains credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required" description:"Account email"`
	Password string `json:"password" validate:"required" description:"Account password"`
}

// RegisterRequest contains the fields of a new account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required" description:"Account email"`
	Password string `json:"password" validate:"required,min=6" description:"Account password (min 6 characters)"`
	Name     string `json:"name" description:"Display or company name"`
	Role     string `json:"role" description:"candidate (default) or company"`
}

// UserResponse represents an account in API responses.
type UserResponse struct {
	ID    string `json:"id" description:"Account identifier"`
	Email string `json:"email" description:"Account email"`
	Name  string `json:"name,omitempty" description:"Display or company name"`
	Role  string `json:"role" description:"candidate, company or admin"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string       `json:"token" description:"Bearer token for subsequent requests"`
	User  UserResponse `json:"user"`
}

// MeResponse wraps the current account.
type MeResponse struct {
	User UserResponse `json:"user"`
}

// ============================================================================
// Job Types
// ============================================================================

// SalaryResponse is free text, a numeric range in thousands, or both.
type SalaryResponse struct {
	Text string   `json:"text,omitempty" description:"Free-text salary"`
	Min  *float64 `json:"min,omitempty" description:"Lower bound, in thousands"`
	Max  *float64 `json:"max,omitempty" description:"Upper bound, in thousands"`
}

// JobResponse represents a job posting in API responses.
type JobResponse struct {
	ID              string         `json:"id" description:"Posting identifier"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Company         string         `json:"company" description:"Company name"`
	Location        string         `json:"location,omitempty"`
	Category        string         `json:"category,omitempty"`
	Salary          SalaryResponse `json:"salary"`
	Kind            string         `json:"kind" description:"full_time, internship, freelance or volunteer"`
	ExperienceLevel string         `json:"experience_level,omitempty" description:"entry, intermediate or expert"`
	Skills          []string       `json:"skills,omitempty"`
	Proposals       int            `json:"proposals" description:"Number of applications received"`
	PublishedAt     *time.Time     `json:"published_at,omitempty"`
	Status          string         `json:"status" description:"draft, published or expired"`
}

// JobsListResponse contains one page of postings.
type JobsListResponse struct {
	Data       []JobResponse `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// JobEnvelope wraps a single posting.
type JobEnvelope struct {
	Job JobResponse `json:"job"`
}

// OfferRequest contains the fields of a new offer.
type OfferRequest struct {
	Title           string   `json:"title" validate:"required" description:"Offer title"`
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	Category        string   `json:"category"`
	Kind            string   `json:"kind" description:"full_time (default), internship, freelance or volunteer"`
	ExperienceLevel string   `json:"experience_level"`
	SalaryMin       *float64 `json:"salary_min" description:"Lower bound, in thousands"`
	SalaryMax       *float64 `json:"salary_max" description:"Upper bound, in thousands"`
	SalaryText      string   `json:"salary_text"`
	Skills          []string `json:"skills"`
	Status          string   `json:"status" description:"draft or published (default)"`
}

// ============================================================================
// Application Types
// ============================================================================

// ApplicationResponse represents an application in API responses.
type ApplicationResponse struct {
	ID           string       `json:"id" description:"Application identifier"`
	JobID        string       `json:"job_id"`
	Job          *JobResponse `json:"job,omitempty" description:"Embedded posting"`
	SubmittedAt  time.Time    `json:"submitted_at"`
	CoverLetter  string       `json:"cover_letter,omitempty"`
	Motivation   string       `json:"motivation,omitempty"`
	PortfolioURL string       `json:"portfolio_url,omitempty"`
	LinkedInURL  string       `json:"linkedin_url,omitempty"`
	ResumeRef    string       `json:"resume_ref,omitempty" description:"Stored resume name"`
	Status       string       `json:"status" description:"pending, in_review, accepted or rejected"`
}

// ApplicationEnvelope wraps a single application.
type ApplicationEnvelope struct {
	Application ApplicationResponse `json:"application"`
}

// ApplicationsListResponse wraps a list of applications.
type ApplicationsListResponse struct {
	Applications []ApplicationResponse `json:"applications"`
}

// ============================================================================
// Bookmark Types
// ============================================================================

// BookmarkRequest names the job to save. Both spellings are accepted.
type BookmarkRequest struct {
	JobID      string `json:"job_id"`
	JobIDCamel string `json:"jobId"`
}

// BookmarkResponse reports the bookmark state after a change.
type BookmarkResponse struct {
	JobID      string `json:"job_id"`
	Bookmarked bool   `json:"bookmarked"`
}

// BookmarksListResponse lists saved postings.
type BookmarksListResponse struct {
	Data []JobResponse `json:"data"`
}

// ============================================================================
// Converters
// ============================================================================

// UserFromModel converts an account.
func UserFromModel(u models.User) UserResponse {
	return UserResponse{ID: u.ID.String(), Email: u.Email, Name: u.Name, Role: string(u.Role)}
}

// JobFromModel converts a posting.
func JobFromModel(j models.JobPosting) JobResponse {
	return JobResponse{
		ID:              j.ID.String(),
		Title:           j.Title,
		Description:     j.Description,
		Company:         j.Company,
		Location:        j.Location,
		Category:        j.Category,
		Salary:          SalaryResponse{Text: j.Salary.Text, Min: j.Salary.Min, Max: j.Salary.Max},
		Kind:            string(j.Kind),
		ExperienceLevel: string(j.ExperienceLevel),
		Skills:          j.Skills,
		Proposals:       j.Proposals,
		PublishedAt:     j.PublishedAt,
		Status:          string(j.Status),
	}
}

// JobsFromModels converts a list of postings.
func JobsFromModels(jobs []models.JobPosting) []JobResponse {
	out := make([]JobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, JobFromModel(j))
	}
	return out
}

// ApplicationFromModel converts an application.
func ApplicationFromModel(a models.Application) ApplicationResponse {
	resp := ApplicationResponse{
		ID:           a.ID.String(),
		JobID:        a.JobID.String(),
		SubmittedAt:  a.SubmittedAt,
		CoverLetter:  a.CoverLetter,
		Motivation:   a.Motivation,
		PortfolioURL: a.PortfolioURL,
		LinkedInURL:  a.LinkedInURL,
		ResumeRef:    a.ResumeRef,
		Status:       string(a.Status),
	}
	if a.Job != nil {
		j := JobFromModel(*a.Job)
		resp.Job = &j
	}
	return resp
}

// ApplicationsFromModels converts a list of applications.
func ApplicationsFromModels(apps []models.Application) []ApplicationResponse {
	out := make([]ApplicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, ApplicationFromModel(a))
	}
	return out
}
