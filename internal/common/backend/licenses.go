package backend

import (
	"context"
	"net/http"
	"net/url"
)

// GetLicenses fetches the tenant's franchise mappings.
func (c *Client) GetLicenses(ctx context.Context, token, realmID string) (*LicenseList, error) {
	var out LicenseList
	err := c.do(ctx, call{
		endpoint: "licenses.list",
		method:   http.MethodGet,
		path:     "/licenses/company/" + url.PathEscape(realmID),
		token:    token,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	if out.Licenses == nil {
		out.Licenses = []License{}
	}
	return &out, nil
}

// SelectLicenses replaces the active franchise set. The response body is
// returned as-is for the caller's completion step.
func (c *Client) SelectLicenses(ctx context.Context, token, realmID string, franchiseNumbers []string) (map[string]interface{}, error) {
	if franchiseNumbers == nil {
		franchiseNumbers = []string{}
	}
	out := map[string]interface{}{}
	err := c.do(ctx, call{
		endpoint: "licenses.select",
		method:   http.MethodPost,
		path:     "/licenses/company/" + url.PathEscape(realmID) + "/select-licenses",
		token:    token,
		body:     map[string]interface{}{"franchise_numbers": franchiseNumbers},
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetLicenseActive toggles one franchise mapping.
func (c *Client) SetLicenseActive(ctx context.Context, token, realmID, franchiseNumber string, active bool) error {
	return c.do(ctx, call{
		endpoint: "licenses.mapping",
		method:   http.MethodPut,
		path:     "/licenses/company/" + url.PathEscape(realmID) + "/mapping/" + url.PathEscape(franchiseNumber),
		token:    token,
		body:     map[string]StringBool{"is_active": StringBool(active)},
	})
}
