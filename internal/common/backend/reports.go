package backend

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListReports(ctx context.Context, token string, kind ReportType, realmID string) ([]Report, error) {
	var out ReportList
	err := c.do(ctx, call{
		endpoint: string(kind) + ".list",
		method:   http.MethodGet,
		path:     "/" + string(kind) + "/list/" + url.PathEscape(realmID),
		token:    token,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return []Report{}, nil
	}
	return out, nil
}

func (c *Client) GenerateReport(ctx context.Context, token string, kind ReportType, req GenerateReportRequest) (*Report, error) {
	var out Report
	err := c.do(ctx, call{
		endpoint: string(kind) + ".generate",
		method:   http.MethodPost,
		path:     "/" + string(kind) + "/generate",
		token:    token,
		body:     req,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateAllReports generates one report per active franchise. Backends that
// answer with only a status message yield an empty list.
func (c *Client) GenerateAllReports(ctx context.Context, token string, kind ReportType, realmID string, req GenerateAllRequest) ([]Report, error) {
	var out ReportList
	err := c.do(ctx, call{
		endpoint: string(kind) + ".generate_all",
		method:   http.MethodPost,
		path:     "/" + string(kind) + "/generate-all/" + url.PathEscape(realmID),
		token:    token,
		body:     req,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return []Report{}, nil
	}
	return out, nil
}
