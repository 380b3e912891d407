package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Address is the shipping destination supplied by the profile service.
type Address struct {
	District   string
	City       string
	Street     string
	PostalCode string
}

// AddressProvider supplies the user's shipping address; nil means the
// user has none on file.
type AddressProvider interface {
	ShippingAddress(ctx context.Context, userID uuid.UUID) (*Address, error)
}

// ShippingPolicy maps a district to a shipping cost. It is injected into
// the orchestrator; business logic never reads the environment.
type ShippingPolicy interface {
	CostFor(district string) (int64, bool)
}

// DistrictTable is a ShippingPolicy backed by a fixed district table.
type DistrictTable map[string]int64

func (t DistrictTable) CostFor(district string) (int64, bool) {
	d := strings.ToLower(strings.TrimSpace(district))
	if d == "" {
		return 0, false
	}
	cost, ok := t[d]
	return cost, ok
}
