package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/blockedby/kandra/internal/models"
)

// SubmitApplication posts a multipart application form.
func (c *Client) SubmitApplication(ctx context.Context, form *Multipart) (*models.Application, error) {
	var app models.Application
	if err := c.getOne(ctx, http.MethodPost, "/applications", form, "application", &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// ListMyApplications fetches the signed-in candidate's application history.
func (c *Client) ListMyApplications(ctx context.Context) ([]models.Application, error) {
	return c.listApplications(ctx, "/applications/user")
}

// ListApplicants fetches the applications received for one offer.
func (c *Client) ListApplicants(ctx context.Context, jobID models.ID) ([]models.Application, error) {
	return c.listApplications(ctx, "/opportunites/"+url.PathEscape(jobID.String())+"/applications")
}

func (c *Client) listApplications(ctx context.Context, path string) ([]models.Application, error) {
	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	apps := []models.Application{}
	if err := unwrapList(raw, "applications", &apps); err != nil {
		return nil, c.fail(ctx, http.MethodGet, path, "", &Error{Kind: KindServer, Message: MsgServerError, Err: err})
	}
	return apps, nil
}

// GetApplication fetches one application with every field.
func (c *Client) GetApplication(ctx context.Context, id models.ID) (*models.Application, error) {
	var app models.Application
	if err := c.getOne(ctx, http.MethodGet, "/applications/"+url.PathEscape(id.String()), nil, "application", &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// UpdateApplicationStatus sets the status of an application.
func (c *Client) UpdateApplicationStatus(ctx context.Context, id models.ID, status models.ApplicationStatus) (*models.Application, error) {
	body := map[string]string{"status": string(status)}

	var app models.Application
	if err := c.getOne(ctx, http.MethodPut, "/applications/"+url.PathEscape(id.String())+"/status", body, "application", &app); err != nil {
		return nil, err
	}
	return &app, nil
}
