package client

import (
	"context"
	"net/http"
)

// Organization is a directory entry
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Organizations lists the caller's organizations, newest first
func (c *Client) Organizations(ctx context.Context) ([]Organization, error) {
	var resp envelope[[]Organization]
	if err := c.do(ctx, http.MethodGet, "/user/organizations", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
