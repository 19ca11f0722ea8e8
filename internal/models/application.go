package models

import (
	"encoding/json"
	"time"
)

// ApplicationStatus is the server-authoritative state of an application.
type ApplicationStatus string

// ApplicationStatus constants define the recognized application states.
const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationInReview ApplicationStatus = "in_review"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

// ApplicationStatuses lists every recognized status.
var ApplicationStatuses = []ApplicationStatus{
	ApplicationPending, ApplicationInReview, ApplicationAccepted, ApplicationRejected,
}

// ParseApplicationStatus maps a server status string onto a known status.
// Unrecognized values are treated as pending; the second return value
// reports whether the input was recognized.
func ParseApplicationStatus(s string) (ApplicationStatus, bool) {
	switch normalizeToken(s) {
	case "pending", "en_attente", "submitted", "new":
		return ApplicationPending, true
	case "in_review", "inreview", "reviewing", "review", "en_cours", "in_consideration", "shortlisted", "interview":
		return ApplicationInReview, true
	case "accepted", "hired", "acceptee", "accepte", "offer":
		return ApplicationAccepted, true
	case "rejected", "refusee", "refuse", "declined":
		return ApplicationRejected, true
	}
	return ApplicationPending, false
}

// Valid reports whether s is one of the recognized statuses.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationInReview, ApplicationAccepted, ApplicationRejected:
		return true
	}
	return false
}

// UnmarshalJSON never fails on an unknown status string.
func (s *ApplicationStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = ApplicationPending
		return nil
	}
	*s, _ = ParseApplicationStatus(raw)
	return nil
}

// Application is a single candidate to job submission.
type Application struct {
	ID           ID                `json:"id"`
	JobID        ID                `json:"job_id"`
	Job          *JobPosting       `json:"job,omitempty"`
	SubmittedAt  time.Time         `json:"submitted_at"`
	CoverLetter  string            `json:"cover_letter,omitempty"`
	Motivation   string            `json:"motivation,omitempty"`
	PortfolioURL string            `json:"portfolio_url,omitempty"`
	LinkedInURL  string            `json:"linkedin_url,omitempty"`
	ResumeRef    string            `json:"resume_ref,omitempty"`
	Status       ApplicationStatus `json:"status"`
}

// Clone returns a deep copy.
func (a Application) Clone() Application {
	out := a
	if a.Job != nil {
		j := a.Job.Clone()
		out.Job = &j
	}
	return out
}

// ApplicationStats is a derived aggregate of an application list.
// Pending+InReview+Accepted+Rejected always equals Total.
type ApplicationStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	InReview int `json:"in_review"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// ComputeStats scans apps from scratch.
func ComputeStats(apps []Application) ApplicationStats {
	var st ApplicationStats
	for _, a := range apps {
		st.Total++
		switch a.Status {
		case ApplicationInReview:
			st.InReview++
		case ApplicationAccepted:
			st.Accepted++
		case ApplicationRejected:
			st.Rejected++
		default:
			st.Pending++
		}
	}
	return st
}
