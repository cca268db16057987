// Package postgres stores the order log in Postgres through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/sundai-club/shop/internal/domain"
	"github.com/sundai-club/shop/internal/repositories"
)

const orderColumns = `id::text, stripe_checkout_session_id, printful_order_id, app_session_id,
	customer_name, customer_email, customer_phone, shipping_address, order_status, payment_status,
	currency, subtotal, shipping_cost, tax_amount, total_amount, items, printful_order_data,
	printful_cost_data, printful_retail_costs, printful_shipping_method_id, shipping_note, tax_note,
	cost_source, stripe_payment_intent_id, stripe_customer_id, metadata, error_message,
	created_at, updated_at`

// OrderLogRepository implements repositories.OrderLogRepository on the orders table.
type OrderLogRepository struct {
	pool *pgxpool.Pool
}

var _ repositories.OrderLogRepository = (*OrderLogRepository)(nil)

// Open connects a pool to databaseURL and verifies it answers.
func Open(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("postgres: database url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// NewOrderLogRepository wraps an open pool.
func NewOrderLogRepository(pool *pgxpool.Pool) (*OrderLogRepository, error) {
	if pool == nil {
		return nil, errors.New("postgres: pool is required")
	}
	return &OrderLogRepository{pool: pool}, nil
}

// Ping reports whether the database answers. Used by the readiness probe.
func (r *OrderLogRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Insert writes a new row and returns its generated id.
func (r *OrderLogRepository) Insert(ctx context.Context, record domain.OrderRecord) (string, error) {
	query := `INSERT INTO orders (stripe_checkout_session_id, printful_order_id, app_session_id,
		customer_name, customer_email, customer_phone, shipping_address, order_status, payment_status,
		currency, subtotal, shipping_cost, tax_amount, total_amount, items, printful_order_data,
		printful_cost_data, printful_retail_costs, printful_shipping_method_id, shipping_note, tax_note,
		cost_source, stripe_payment_intent_id, stripe_customer_id, metadata, error_message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
		RETURNING id::text`

	var id string
	err := r.pool.QueryRow(ctx, query, insertArgs(record)...).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}

// Update applies the non-nil fields of update to the row with id.
func (r *OrderLogRepository) Update(ctx context.Context, id string, update domain.OrderRecordUpdate) error {
	query, args, ok := buildUpdate(id, update)
	if !ok {
		return nil
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repositories.NewStoreError("orders.update", repositories.StoreErrorNotFound, nil)
	}
	return nil
}

// FindByStripeSession returns the newest row for a payment session.
func (r *OrderLogRepository) FindByStripeSession(ctx context.Context, sessionID string) (domain.OrderRecord, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE stripe_checkout_session_id = $1
		ORDER BY created_at DESC LIMIT 1`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OrderRecord{}, repositories.NewStoreError("orders.find", repositories.StoreErrorNotFound, nil)
	}
	if err != nil {
		return domain.OrderRecord{}, fmt.Errorf("query order by stripe session: %w", err)
	}
	return record, nil
}

// ListByEmail returns rows for the customer, newest first.
func (r *OrderLogRepository) ListByEmail(ctx context.Context, email string) ([]domain.OrderRecord, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE lower(customer_email) = lower($1) ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("query orders by email: %w", err)
	}
	defer rows.Close()

	records := []domain.OrderRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return records, nil
}

func insertArgs(record domain.OrderRecord) []any {
	return []any{
		record.StripeCheckoutSessionID,
		record.PrintfulOrderID,
		record.AppSessionID,
		record.CustomerName,
		record.CustomerEmail,
		record.CustomerPhone,
		nonNilMap(record.ShippingAddress),
		record.OrderStatus,
		record.PaymentStatus,
		record.Currency,
		record.Subtotal,
		record.ShippingCost,
		record.TaxAmount,
		record.TotalAmount,
		nonNilItems(record.Items),
		record.PrintfulOrderData,
		record.PrintfulCostData,
		record.PrintfulRetailCosts,
		record.PrintfulShippingMethodID,
		record.ShippingNote,
		record.TaxNote,
		record.CostSource,
		record.StripePaymentIntentID,
		record.StripeCustomerID,
		nonNilMap(record.Metadata),
		record.ErrorMessage,
	}
}

// buildUpdate renders an UPDATE for the set fields. ok is false when nothing changes.
func buildUpdate(id string, update domain.OrderRecordUpdate) (query string, args []any, ok bool) {
	id = strings.TrimSpace(id)
	if id == "" || update.IsEmpty() {
		return "", nil, false
	}

	var sets []string
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.PrintfulOrderID != nil {
		add("printful_order_id", *update.PrintfulOrderID)
	}
	if update.OrderStatus != nil {
		add("order_status", *update.OrderStatus)
	}
	if update.PaymentStatus != nil {
		add("payment_status", *update.PaymentStatus)
	}
	if update.StripePaymentIntentID != nil {
		add("stripe_payment_intent_id", *update.StripePaymentIntentID)
	}
	if update.StripeCustomerID != nil {
		add("stripe_customer_id", *update.StripeCustomerID)
	}
	if update.PrintfulOrderData != nil {
		add("printful_order_data", update.PrintfulOrderData)
	}
	if update.ErrorMessage != nil {
		add("error_message", *update.ErrorMessage)
	}
	sets = append(sets, "updated_at = now()")

	args = append(args, id)
	query = fmt.Sprintf("UPDATE orders SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return query, args, true
}

func scanRecord(row pgx.Row) (domain.OrderRecord, error) {
	var record domain.OrderRecord
	err := row.Scan(
		&record.ID,
		&record.StripeCheckoutSessionID,
		&record.PrintfulOrderID,
		&record.AppSessionID,
		&record.CustomerName,
		&record.CustomerEmail,
		&record.CustomerPhone,
		&record.ShippingAddress,
		&record.OrderStatus,
		&record.PaymentStatus,
		&record.Currency,
		&record.Subtotal,
		&record.ShippingCost,
		&record.TaxAmount,
		&record.TotalAmount,
		&record.Items,
		&record.PrintfulOrderData,
		&record.PrintfulCostData,
		&record.PrintfulRetailCosts,
		&record.PrintfulShippingMethodID,
		&record.ShippingNote,
		&record.TaxNote,
		&record.CostSource,
		&record.StripePaymentIntentID,
		&record.StripeCustomerID,
		&record.Metadata,
		&record.ErrorMessage,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilItems(items []map[string]any) []map[string]any {
	if items == nil {
		return []map[string]any{}
	}
	return items
}
