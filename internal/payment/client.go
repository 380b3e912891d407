package payment

import (
	"context"
	"fmt"
	"time"

	"storefront/config"
	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/go-resty/resty/v2"
)

// Client talks to the hosted-payment provider. The order id travels as
// the provider's cart reference and comes back in webhook events.
type Client struct {
	http *resty.Client
	cfg  config.Payment
}

func NewClient(cfg config.Payment) *Client {
	return &Client{
		http: resty.New().SetTimeout(10 * time.Second),
		cfg:  cfg,
	}
}

type sessionRequest struct {
	Method  string         `json:"method"`
	Store   int            `json:"store"`
	AuthKey string         `json:"authkey"`
	Order   sessionOrder   `json:"order"`
	Return  sessionReturns `json:"return"`
}

type sessionOrder struct {
	CartID      string `json:"cartid"`
	Test        int    `json:"test"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

type sessionReturns struct {
	Authorised string `json:"authorised"`
	Declined   string `json:"declined"`
	Cancelled  string `json:"cancelled"`
}

type sessionResponse struct {
	Order struct {
		Ref string `json:"ref"`
		URL string `json:"url"`
	} `json:"order"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Client) CreateSession(ctx context.Context, o *models.Order) (*service.PaymentSession, error) {
	test := 0
	if c.cfg.TestMode {
		test = 1
	}

	req := sessionRequest{
		Method:  "create",
		Store:   c.cfg.StoreID,
		AuthKey: c.cfg.AuthKey,
		Order: sessionOrder{
			CartID:      o.ID.String(),
			Test:        test,
			Amount:      formatAmount(o.TotalCents),
			Currency:    "USD",
			Description: fmt.Sprintf("Order %s", o.ID),
		},
		Return: sessionReturns{
			Authorised: c.cfg.SuccessURL,
			Declined:   c.cfg.FailureURL,
			Cancelled:  c.cfg.CancelURL,
		},
	}

	var out sessionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetBody(req).
		SetResult(&out).
		Post(c.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("payment provider unreachable: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("payment provider error (%d): %s", resp.StatusCode(), resp.String())
	}
	if out.Error != nil {
		return nil, fmt.Errorf("payment provider rejected session: %s", out.Error.Message)
	}
	if out.Order.URL == "" || out.Order.Ref == "" {
		return nil, fmt.Errorf("payment provider returned empty session")
	}

	return &service.PaymentSession{Ref: out.Order.Ref, URL: out.Order.URL}, nil
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
