package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/blockedby/kandra/internal/models"
)

// JobPage is one page of job postings. HasTotal reports whether the server
// sent a total count; when false Total is meaningless and callers fall back
// to the full-page heuristic.
type JobPage struct {
	Jobs     []models.JobPosting
	Total    int
	HasTotal bool
}

// listEnvelope covers the list shapes the backend produces: a bare array,
// {data, pagination} or {jobs, total}.
type listEnvelope struct {
	Data       json.RawMessage `json:"data"`
	Jobs       json.RawMessage `json:"jobs"`
	Total      *int            `json:"total"`
	Pagination *struct {
		Total *int `json:"total"`
	} `json:"pagination"`
}

// ListJobs fetches job postings matching params. params should include
// offset and limit.
func (c *Client) ListJobs(ctx context.Context, params url.Values) (*JobPage, error) {
	return c.listJobs(ctx, "/opportunites", params)
}

// ListCompanyOffers fetches the offers owned by the signed-in company.
func (c *Client) ListCompanyOffers(ctx context.Context) (*JobPage, error) {
	return c.listJobs(ctx, "/company/opportunites", nil)
}

// ListBookmarks fetches the signed-in candidate's bookmarked postings.
func (c *Client) ListBookmarks(ctx context.Context) ([]models.JobPosting, error) {
	page, err := c.listJobs(ctx, "/candidatures/bookmark", nil)
	if err != nil {
		return nil, err
	}
	return page.Jobs, nil
}

func (c *Client) listJobs(ctx context.Context, path string, params url.Values) (*JobPage, error) {
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var raw json.RawMessage
	if err := c.Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}

	page, err := decodeJobPage(raw)
	if err != nil {
		return nil, c.fail(ctx, http.MethodGet, path, "", &Error{Kind: KindServer, Message: MsgServerError, Err: err})
	}
	return page, nil
}

func decodeJobPage(raw json.RawMessage) (*JobPage, error) {
	raw = bytes.TrimSpace(raw)
	page := &JobPage{}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return page, nil
	}

	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &page.Jobs); err != nil {
			return nil, fmt.Errorf("decode jobs: %w", err)
		}
		return page, nil
	}

	var env listEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode jobs envelope: %w", err)
	}

	items := env.Data
	if len(items) == 0 {
		items = env.Jobs
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &page.Jobs); err != nil {
			return nil, fmt.Errorf("decode jobs: %w", err)
		}
	}

	switch {
	case env.Pagination != nil && env.Pagination.Total != nil:
		page.Total, page.HasTotal = *env.Pagination.Total, true
	case env.Total != nil:
		page.Total, page.HasTotal = *env.Total, true
	}
	return page, nil
}

// GetJob fetches one posting.
func (c *Client) GetJob(ctx context.Context, id models.ID) (*models.JobPosting, error) {
	var job models.JobPosting
	if err := c.getOne(ctx, http.MethodGet, "/opportunites/"+url.PathEscape(id.String()), nil, "job", &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Bookmark adds id to the candidate's bookmarks.
func (c *Client) Bookmark(ctx context.Context, id models.ID) error {
	return c.Do(ctx, http.MethodPost, "/candidatures/bookmark", map[string]string{"jobId": id.String()}, nil)
}

// Unbookmark removes id from the candidate's bookmarks.
func (c *Client) Unbookmark(ctx context.Context, id models.ID) error {
	return c.Do(ctx, http.MethodDelete, "/candidatures/bookmark/"+url.PathEscape(id.String()), nil, nil)
}

// getOne decodes a single object that may be wrapped as {key: ...} or
// {data: ...}.
func (c *Client) getOne(ctx context.Context, method, path string, body interface{}, key string, out interface{}) error {
	var raw json.RawMessage
	if err := c.Do(ctx, method, path, body, &raw); err != nil {
		return err
	}
	if err := unwrap(raw, key, out); err != nil {
		return c.fail(ctx, method, path, "", &Error{Kind: KindServer, Message: MsgServerError, Err: err})
	}
	return nil
}

func unwrap(raw json.RawMessage, key string, out interface{}) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}

	for _, k := range []string{key, "data"} {
		inner, ok := fields[k]
		if !ok {
			continue
		}
		if t := bytes.TrimSpace(inner); len(t) > 0 && t[0] == '{' {
			if err := json.Unmarshal(inner, out); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			return nil
		}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// unwrapList decodes an array that may be bare or wrapped as {key: [...]}
// or {data: [...]}.
func unwrapList(raw json.RawMessage, key string, out interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		return json.Unmarshal(raw, out)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	for _, k := range []string{key, "data"} {
		if inner, ok := fields[k]; ok {
			if err := json.Unmarshal(inner, out); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			return nil
		}
	}
	return nil
}
