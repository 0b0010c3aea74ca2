package backend

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) GetSubscription(ctx context.Context, token, realmID string) (*Subscription, error) {
	var out Subscription
	err := c.do(ctx, call{
		endpoint: "subscriptions.get",
		method:   http.MethodGet,
		path:     "/subscriptions/company/" + url.PathEscape(realmID),
		token:    token,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCheckoutSession asks the backend for a Stripe checkout URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, token string, req CheckoutRequest) (*RedirectURL, error) {
	var out RedirectURL
	err := c.do(ctx, call{
		endpoint: "stripe.checkout",
		method:   http.MethodPost,
		path:     "/stripe/create-checkout-session",
		token:    token,
		body:     req,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCustomerPortal asks the backend for a Stripe billing portal URL.
func (c *Client) CreateCustomerPortal(ctx context.Context, token string, req PortalRequest) (*RedirectURL, error) {
	var out RedirectURL
	err := c.do(ctx, call{
		endpoint: "stripe.portal",
		method:   http.MethodPost,
		path:     "/stripe/create-customer-portal",
		token:    token,
		body:     req,
		out:      &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
