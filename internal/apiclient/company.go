package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/blockedby/kandra/internal/models"
)

// OfferDraft is the payload of a new offer.
type OfferDraft struct {
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Location        string                 `json:"location,omitempty"`
	Category        string                 `json:"category,omitempty"`
	Kind            models.OfferKind       `json:"kind"`
	ExperienceLevel models.ExperienceLevel `json:"experience_level,omitempty"`
	SalaryMin       *float64               `json:"salary_min,omitempty"`
	SalaryMax       *float64               `json:"salary_max,omitempty"`
	SalaryText      string                 `json:"salary_text,omitempty"`
	Skills          []string               `json:"skills,omitempty"`
	Status          models.JobStatus       `json:"status,omitempty"`
}

// CreateOffer publishes a new offer for the signed-in company.
func (c *Client) CreateOffer(ctx context.Context, draft OfferDraft) (*models.JobPosting, error) {
	var job models.JobPosting
	if err := c.getOne(ctx, http.MethodPost, "/opportunites", draft, "job", &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateOfferStatus moves an offer between draft, published and expired.
func (c *Client) UpdateOfferStatus(ctx context.Context, id models.ID, status models.JobStatus) (*models.JobPosting, error) {
	body := map[string]string{"status": string(status)}

	var job models.JobPosting
	if err := c.getOne(ctx, http.MethodPut, "/opportunites/"+url.PathEscape(id.String())+"/status", body, "job", &job); err != nil {
		return nil, err
	}
	return &job, nil
}
