package api

import (
	"context"
	"net/http"
	"net/url"

	"studyplan/internal/models"
)

// ListSubjects returns every subject of the current user.
func (c *Client) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var items []subjectDTO
	if err := c.do(ctx, http.MethodGet, "/subjects", nil, nil, &items); err != nil {
		return nil, err
	}
	subjects := make([]models.Subject, 0, len(items))
	for _, item := range items {
		subjects = append(subjects, item.toModel())
	}
	return subjects, nil
}

// CreateSubject creates a subject and returns it as stored by the server.
func (c *Client) CreateSubject(ctx context.Context, name, description string) (models.Subject, error) {
	body := map[string]string{"name": name}
	if description != "" {
		body["description"] = description
	}
	var resp subjectDTO
	if err := c.do(ctx, http.MethodPost, "/subjects", nil, body, &resp); err != nil {
		return models.Subject{}, err
	}
	return resp.toModel(), nil
}

// DeleteSubject removes a subject.
func (c *Client) DeleteSubject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/subjects/"+url.PathEscape(id), nil, nil, nil)
}

// UpdateSubject renames a subject. An empty description is left unchanged.
func (c *Client) UpdateSubject(ctx context.Context, id, name, description string) (models.Subject, error) {
	body := map[string]string{"name": name}
	if description != "" {
		body["description"] = description
	}
	var resp subjectDTO
	if err := c.do(ctx, http.MethodPut, "/subjects/"+url.PathEscape(id), nil, body, &resp); err != nil {
		return models.Subject{}, err
	}
	return resp.toModel(), nil
}
