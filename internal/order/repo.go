package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Create(ctx context.Context, o *Order, items []Item) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByExternalID(ctx context.Context, externalID string) (*Order, error)
	ListByUser(ctx context.Context, userID int64, limit int) ([]Order, error)
	ListRecent(ctx context.Context, limit int) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	SetInvoiceRef(ctx context.Context, id int64, invoiceID, externalID string) error
	ListCreatedSince(ctx context.Context, since time.Time, statuses []Status) ([]Order, error)
	SumTotals(ctx context.Context, statuses []Status) (decimal.Decimal, error)
	CountByStatus(ctx context.Context, statuses []Status) (int64, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const orderColumns = `id, user_id, total_amount::text, status,
    COALESCE(shipping_address,''), COALESCE(payment_method,''),
    COALESCE(invoice_id,''), COALESCE(external_id,''), created_at`

// Create inserts the order and all its items in one transaction, so a
// concurrent reader never sees an order without its items. The generated
// id and created_at are written back into o.
func (r *PGRepo) Create(ctx context.Context, o *Order, items []Item) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("db.BeginTx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.QueryRow(ctx, `
    INSERT INTO orders (user_id, total_amount, status, shipping_address, payment_method)
    VALUES ($1,$2,$3,NULLIF($4,''),NULLIF($5,''))
    RETURNING id, created_at
  `, o.UserID, o.TotalAmount.String(), string(o.Status), o.ShippingAddress, o.PaymentMethod,
	).Scan(&o.ID, &o.CreatedAt); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range items {
		it := &items[i]
		it.OrderID = o.ID
		if err := tx.QueryRow(ctx, `
      INSERT INTO order_items (order_id, product_id, quantity, price)
      VALUES ($1,$2,$3,$4)
      RETURNING id
    `, it.OrderID, it.ProductID, it.Quantity, it.Price.String()).Scan(&it.ID); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	o.Items = items

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx.Commit: %w", err)
	}
	return nil
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanOrder: %w", err)
	}

	items, err := r.itemsFor(ctx, []int64{o.ID})
	if err != nil {
		return nil, fmt.Errorf("r.itemsFor: %w", err)
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *PGRepo) GetByExternalID(ctx context.Context, externalID string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE external_id=$1`, externalID)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanOrder: %w", err)
	}
	return o, nil
}

func (r *PGRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
    SELECT `+orderColumns+` FROM orders
    WHERE user_id=$1
    ORDER BY created_at DESC LIMIT $2
  `, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListRecent returns the newest orders across all customers with the owner
// name joined in, for the admin dashboard.
func (r *PGRepo) ListRecent(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, `
    SELECT o.id, o.user_id, o.total_amount::text, o.status,
           COALESCE(o.shipping_address,''), COALESCE(o.payment_method,''),
           COALESCE(o.invoice_id,''), COALESCE(o.external_id,''), o.created_at,
           u.name
    FROM orders o JOIN users u ON u.id = o.user_id
    ORDER BY o.created_at DESC LIMIT $1
  `, limit)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var (
			o     Order
			total string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &total, &o.Status, &o.ShippingAddress,
			&o.PaymentMethod, &o.InvoiceID, &o.ExternalID, &o.CreatedAt, &o.CustomerName); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("decimal.NewFromString[%s]: %w", total, err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	if err := r.attachItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus is a compare-and-swap: the write only lands if the row still
// holds the from status, so a racing admin and payment callback cannot
// silently overwrite each other.
func (r *PGRepo) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE orders SET status = $3 WHERE id = $1 AND status = $2
  `, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	if err := r.db.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("recheck status: %w", err)
	}
	return fmt.Errorf("status is %s, expected %s: %w", current, from, ErrConflict)
}

func (r *PGRepo) SetInvoiceRef(ctx context.Context, id int64, invoiceID, externalID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
    UPDATE orders SET invoice_id = $2, external_id = $3 WHERE id = $1
  `, id, invoiceID, externalID)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCreatedSince returns orders created at or after since whose status is
// in statuses, oldest first. Items are not loaded; the report aggregator
// only needs totals and timestamps.
func (r *PGRepo) ListCreatedSince(ctx context.Context, since time.Time, statuses []Status) ([]Order, error) {
	rows, err := r.db.Query(ctx, `
    SELECT `+orderColumns+` FROM orders
    WHERE created_at >= $1 AND status = ANY($2)
    ORDER BY created_at ASC
  `, since, statusStrings(statuses))
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	return collectOrders(rows)
}

func (r *PGRepo) SumTotals(ctx context.Context, statuses []Status) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var sum string
	if err := r.db.QueryRow(ctx, `
    SELECT COALESCE(SUM(total_amount),0)::text FROM orders WHERE status = ANY($1)
  `, statusStrings(statuses)).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("db.QueryRow: %w", err)
	}
	d, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("decimal.NewFromString[%s]: %w", sum, err)
	}
	return d, nil
}

func (r *PGRepo) CountByStatus(ctx context.Context, statuses []Status) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var n int64
	if err := r.db.QueryRow(ctx, `
    SELECT COUNT(*) FROM orders WHERE status = ANY($1)
  `, statusStrings(statuses)).Scan(&n); err != nil {
		return 0, fmt.Errorf("db.QueryRow: %w", err)
	}
	return n, nil
}

func (r *PGRepo) attachItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := lo.Map(orders, func(o Order, _ int) int64 { return o.ID })
	byOrder, err := r.itemsFor(ctx, ids)
	if err != nil {
		return fmt.Errorf("r.itemsFor: %w", err)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return nil
}

func (r *PGRepo) itemsFor(ctx context.Context, orderIDs []int64) (map[int64][]Item, error) {
	rows, err := r.db.Query(ctx, `
    SELECT id, order_id, product_id, quantity, price::text
    FROM order_items WHERE order_id = ANY($1)
    ORDER BY id
  `, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]Item)
	for rows.Next() {
		var (
			it    Item
			price string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("decimal.NewFromString[%s]: %w", price, err)
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o     Order
		total string
	)
	if err := row.Scan(&o.ID, &o.UserID, &total, &o.Status, &o.ShippingAddress,
		&o.PaymentMethod, &o.InvoiceID, &o.ExternalID, &o.CreatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("decimal.NewFromString[%s]: %w", total, err)
	}
	o.TotalAmount = d
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanOrder: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}
	return out, nil
}

func statusStrings(statuses []Status) []string {
	return lo.Map(statuses, func(s Status, _ int) string { return string(s) })
}
