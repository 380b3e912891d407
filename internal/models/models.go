package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "ORDER_STATUS_PENDING_PAYMENT"
	OrderStatusPaid           OrderStatus = "ORDER_STATUS_PAID"
	OrderStatusCancelled      OrderStatus = "ORDER_STATUS_CANCELLED"
	OrderStatusShipped        OrderStatus = "ORDER_STATUS_SHIPPED"
	OrderStatusDelivered      OrderStatus = "ORDER_STATUS_DELIVERED"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PAYMENT_STATUS_PENDING"
	PaymentStatusApproved PaymentStatus = "PAYMENT_STATUS_APPROVED"
	PaymentStatusRejected PaymentStatus = "PAYMENT_STATUS_REJECTED"
)

// Variant is one sellable SKU of a product. Price lives here and is
// snapshotted into order items at checkout.
type Variant struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string    `gorm:"type:text;not null;uniqueIndex"`
	ProductName string    `gorm:"type:text;not null"`
	VariantName string    `gorm:"type:text;not null;default:''"`
	PriceCents  int64     `gorm:"not null"`
	IsActive    bool      `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Variant) TableName() string { return "variants" }

// Inventory is the per-SKU ledger row. Invariant after every committed
// transaction: 0 <= reserved <= stock.
type Inventory struct {
	VariantID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Stock     int32     `gorm:"not null;default:0"`
	Reserved  int32     `gorm:"not null;default:0"`

	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (Inventory) TableName() string { return "inventories" }

// DiscountCode is a promotional code. UsedCount only ever increases;
// cancelling an order does not give the usage slot back.
type DiscountCode struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string     `gorm:"type:text;not null;uniqueIndex"`
	Percentage       int32      `gorm:"not null"`
	MinSubtotalCents *int64     `gorm:""`
	MaxUses          *int32     `gorm:""`
	UsedCount        int32      `gorm:"not null;default:0"`
	IsActive         bool       `gorm:"not null;default:true"`
	StartsAt         *time.Time `gorm:""`
	ExpiresAt        *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (DiscountCode) TableName() string { return "discount_codes" }

// DiscountRedemption is an immutable audit row, one per order that
// applied the code. Created in the same transaction as the order.
type DiscountRedemption struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	DiscountCodeID uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (DiscountRedemption) TableName() string { return "discount_redemptions" }

type Order struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID     `gorm:"type:uuid;not null;index"`
	Status        OrderStatus   `gorm:"type:text;not null;default:'ORDER_STATUS_PENDING_PAYMENT';index"`
	PaymentStatus PaymentStatus `gorm:"type:text;not null;default:'PAYMENT_STATUS_PENDING'"`

	SubtotalCents     int64 `gorm:"not null;default:0"`
	ShippingCostCents int64 `gorm:"not null;default:0"`
	TotalCents        int64 `gorm:"not null;default:0"`

	// Discount snapshot at creation, not a live reference.
	DiscountCode        *string `gorm:"type:text"`
	DiscountPercentage  *int32  `gorm:""`
	DiscountAmountCents int64   `gorm:"not null;default:0"`

	ShippingDistrict string `gorm:"type:text;not null;default:''"`

	// External payment-session identifiers.
	PaymentRef *string `gorm:"type:text;index"`
	PaymentURL *string `gorm:"type:text"`

	// At-most-once email markers.
	PaidEmailSentAt      *time.Time `gorm:""`
	ShippedEmailSentAt   *time.Time `gorm:""`
	DeliveredEmailSentAt *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

// OrderItem is a denormalized snapshot of the variant at purchase time,
// decoupled from later catalog edits.
type OrderItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_order_items_order_variant"`
	VariantID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_order_variant"`
	SKU            string    `gorm:"type:text;not null"`
	ProductName    string    `gorm:"type:text;not null"`
	VariantName    string    `gorm:"type:text;not null;default:''"`
	UnitPriceCents int64     `gorm:"not null"`
	Quantity       int32     `gorm:"type:int;not null"`
	LineTotalCents int64     `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }

// Cart is transient pre-order state, one per user. Adding to the cart
// does not reserve stock.
type Cart struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_cart_items_cart_variant"`
	VariantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_cart_items_cart_variant"`
	Quantity  int32     `gorm:"type:int;not null"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (CartItem) TableName() string { return "cart_items" }
