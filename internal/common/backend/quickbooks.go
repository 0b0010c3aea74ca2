package backend

import (
	"context"
	"net/http"
	"net/url"
)

// IdempotencyHeader carries the key that lets the backend consume an
// authorization code at most once.
const IdempotencyHeader = "Idempotency-Key"

// StoreOAuth exchanges a QuickBooks authorization code for a portal session token.
func (c *Client) StoreOAuth(ctx context.Context, req OAuthExchangeRequest, idempotencyKey string) (*OAuthExchangeResponse, error) {
	var out OAuthExchangeResponse
	cl := call{
		endpoint: "quickbooks.store_oauth",
		method:   http.MethodPost,
		path:     "/quickbooks/store-qbo-oauth",
		body:     req,
		out:      &out,
	}
	if idempotencyKey != "" {
		cl.headers = map[string]string{IdempotencyHeader: idempotencyKey}
	}
	if err := c.do(ctx, cl); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetQBOUser(ctx context.Context, token, realmID string) (*QBOUser, error) {
	var out QBOUser
	err := c.do(ctx, call{
		endpoint: "quickbooks.user",
		method:   http.MethodGet,
		path:     "/quickbooks/qbo-user/" + url.PathEscape(realmID),
		token:    token,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCompanyInfo(ctx context.Context, token, realmID string) (*CompanyInfo, error) {
	var out CompanyInfo
	err := c.do(ctx, call{
		endpoint: "quickbooks.company_info",
		method:   http.MethodGet,
		path:     "/quickbooks/company-info/" + url.PathEscape(realmID),
		token:    token,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchCompanyInfo makes the backend pull company info from QuickBooks.
func (c *Client) FetchCompanyInfo(ctx context.Context, token, realmID string) (*CompanyInfo, error) {
	var out CompanyInfo
	err := c.do(ctx, call{
		endpoint: "quickbooks.fetch_company_info",
		method:   http.MethodPost,
		path:     "/quickbooks/fetch-company-info/" + url.PathEscape(realmID),
		token:    token,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
