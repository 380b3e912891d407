package migrate

import (
	"context"

	"storefront/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	CreateExtensions       bool // pgcrypto for gen_random_uuid()
	CreateChecks           bool // ledger and status integrity constraints
	CreateIndexes          bool // listing and sweeper indexes
	CreateUpdatedAtTrigger bool // updated_at maintenance trigger
}

func DefaultOptions() Options {
	return Options{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateUpdatedAtTrigger: true,
	}
}

// Run creates the full schema. Everything is idempotent so it can be
// re-run on deploy.
func Run(ctx context.Context, db *gorm.DB, log *zap.Logger, opt Options) error {
	log.Info("starting database migration")

	if opt.CreateExtensions {
		if err := db.WithContext(ctx).Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("failed to enable pgcrypto extension", zap.Error(err))
			return err
		}
	}

	log.Info("creating tables")
	if err := db.WithContext(ctx).AutoMigrate(
		&models.Variant{},
		&models.Inventory{},
		&models.DiscountCode{},
		&models.DiscountRedemption{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		log.Error("failed to create tables", zap.Error(err))
		return err
	}

	if opt.CreateUpdatedAtTrigger {
		if err := db.WithContext(ctx).Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated
BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_variants_updated ON variants;
CREATE TRIGGER trg_variants_updated
BEFORE UPDATE ON variants
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("failed to create updated_at triggers", zap.Error(err))
			return err
		}
	}

	if opt.CreateChecks {
		log.Info("creating CHECK constraints")

		// The reservation counter can never go negative or exceed owned
		// stock, regardless of application bugs.
		if err := db.WithContext(ctx).Exec(`
ALTER TABLE inventories
  DROP CONSTRAINT IF EXISTS chk_inventories_reserved_bounds;
ALTER TABLE inventories
  ADD CONSTRAINT chk_inventories_reserved_bounds
  CHECK (reserved >= 0 AND reserved <= stock AND stock >= 0);
`).Error; err != nil {
			log.Error("failed to create reservation bounds CHECK", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
ALTER TABLE discount_codes
  DROP CONSTRAINT IF EXISTS chk_discount_codes_usage_cap;
ALTER TABLE discount_codes
  ADD CONSTRAINT chk_discount_codes_usage_cap
  CHECK (used_count >= 0 AND (max_uses IS NULL OR used_count <= max_uses));
ALTER TABLE discount_codes
  DROP CONSTRAINT IF EXISTS chk_discount_codes_percentage;
ALTER TABLE discount_codes
  ADD CONSTRAINT chk_discount_codes_percentage
  CHECK (percentage BETWEEN 1 AND 100);
`).Error; err != nil {
			log.Error("failed to create discount CHECKs", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS chk_orders_status_allowed;
ALTER TABLE orders
  ADD CONSTRAINT chk_orders_status_allowed
  CHECK (status IN ('ORDER_STATUS_PENDING_PAYMENT','ORDER_STATUS_PAID','ORDER_STATUS_CANCELLED','ORDER_STATUS_SHIPPED','ORDER_STATUS_DELIVERED'));
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS chk_orders_payment_status_allowed;
ALTER TABLE orders
  ADD CONSTRAINT chk_orders_payment_status_allowed
  CHECK (payment_status IN ('PAYMENT_STATUS_PENDING','PAYMENT_STATUS_APPROVED','PAYMENT_STATUS_REJECTED'));
ALTER TABLE orders
  DROP CONSTRAINT IF EXISTS chk_orders_amounts_non_negative;
ALTER TABLE orders
  ADD CONSTRAINT chk_orders_amounts_non_negative
  CHECK (subtotal_cents >= 0 AND shipping_cost_cents >= 0 AND total_cents >= 0);
`).Error; err != nil {
			log.Error("failed to create order CHECKs", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS chk_order_items_quantity_gt_zero;
ALTER TABLE order_items
  ADD CONSTRAINT chk_order_items_quantity_gt_zero
  CHECK (quantity > 0);
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS chk_order_items_prices_non_negative;
ALTER TABLE order_items
  ADD CONSTRAINT chk_order_items_prices_non_negative
  CHECK (unit_price_cents >= 0 AND line_total_cents >= 0);
`).Error; err != nil {
			log.Error("failed to create order_items CHECKs", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
ALTER TABLE cart_items
  DROP CONSTRAINT IF EXISTS chk_cart_items_quantity_gt_zero;
ALTER TABLE cart_items
  ADD CONSTRAINT chk_cart_items_quantity_gt_zero
  CHECK (quantity > 0);
`).Error; err != nil {
			log.Error("failed to create cart_items CHECK", zap.Error(err))
			return err
		}
	}

	if opt.CreateIndexes {
		log.Info("creating indexes")

		if err := db.WithContext(ctx).Exec(`
CREATE INDEX IF NOT EXISTS ix_orders_user_created
ON orders (user_id, created_at DESC);
`).Error; err != nil {
			log.Error("failed to create ix_orders_user_created", zap.Error(err))
			return err
		}

		// Sweeper scan: stale pendingPayment orders by age.
		if err := db.WithContext(ctx).Exec(`
CREATE INDEX IF NOT EXISTS ix_orders_status_created
ON orders (status, created_at);
`).Error; err != nil {
			log.Error("failed to create ix_orders_status_created", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_order_items_order_variant
ON order_items (order_id, variant_id);
`).Error; err != nil {
			log.Error("failed to create ux_order_items_order_variant", zap.Error(err))
			return err
		}

		if err := db.WithContext(ctx).Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_cart_variant
ON cart_items (cart_id, variant_id);
`).Error; err != nil {
			log.Error("failed to create ux_cart_items_cart_variant", zap.Error(err))
			return err
		}
	}

	log.Info("database migration finished")
	return nil
}
