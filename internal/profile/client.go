package profile

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/service"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// Client reads shipping addresses and contact emails from the profile
// service. It implements service.AddressProvider and
// producer.RecipientLookup.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		http: resty.New().SetBaseURL(baseURL).SetTimeout(5 * time.Second),
	}
}

type profileResponse struct {
	Email   string `json:"email"`
	Address *struct {
		District   string `json:"district"`
		City       string `json:"city"`
		Street     string `json:"street"`
		PostalCode string `json:"postal_code"`
	} `json:"address"`
}

func (c *Client) fetch(ctx context.Context, userID uuid.UUID) (*profileResponse, error) {
	var out profileResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(fmt.Sprintf("/users/%s/profile", userID))
	if err != nil {
		return nil, fmt.Errorf("profile service unreachable: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("profile service error (%d)", resp.StatusCode())
	}
	return &out, nil
}

func (c *Client) ShippingAddress(ctx context.Context, userID uuid.UUID) (*service.Address, error) {
	p, err := c.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Address == nil {
		return nil, nil
	}
	return &service.Address{
		District:   p.Address.District,
		City:       p.Address.City,
		Street:     p.Address.Street,
		PostalCode: p.Address.PostalCode,
	}, nil
}

func (c *Client) EmailFor(ctx context.Context, userID uuid.UUID) (string, error) {
	p, err := c.fetch(ctx, userID)
	if err != nil {
		return "", err
	}
	if p == nil || p.Email == "" {
		return "", fmt.Errorf("no email on file for user %s", userID)
	}
	return p.Email, nil
}
