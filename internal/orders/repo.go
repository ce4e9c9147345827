package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

// Insert writes the order and its items in one transaction. The coordinator
// has already reserved stock; nothing here touches products.
func (r *Repo) Insert(ctx context.Context, o Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, customer_id, status, total_cents, shipping_address, payment_method, paid)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, o.CustomerID, o.Status, o.TotalCents, o.ShippingAddress, o.PaymentMethod, o.Paid)
	if err != nil {
		return err
	}
	for _, it := range o.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, supplier_id, qty, price_cents)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, it.ProductID, it.SupplierID, it.Qty, it.PriceCents)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) GetStatus(ctx context.Context, orderID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

func (r *Repo) GetByID(ctx context.Context, orderID string) (Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, customer_id, status, total_cents, shipping_address, payment_method, paid, created_at, updated_at
		FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalCents, &o.ShippingAddress, &o.PaymentMethod, &o.Paid, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.Items, err = r.itemsFor(ctx, o.ID)
	return o, err
}

// itemsFor populates product and category names for display, mirroring the
// storefront's order listing.
func (r *Repo) itemsFor(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT i.product_id, i.supplier_id, i.qty, i.price_cents,
		       COALESCE(p.name, ''), COALESCE(c.name, '')
		FROM order_items i
		LEFT JOIN products p ON p.id = i.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE i.order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ProductID, &it.SupplierID, &it.Qty, &it.PriceCents, &it.ProductName, &it.CategoryName); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) ListAll(ctx context.Context) ([]Order, error) {
	return r.list(ctx, `SELECT id, customer_id, status, total_cents, shipping_address, payment_method, paid, created_at, updated_at
		FROM orders ORDER BY created_at DESC`)
}

func (r *Repo) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return r.list(ctx, `SELECT id, customer_id, status, total_cents, shipping_address, payment_method, paid, created_at, updated_at
		FROM orders WHERE customer_id=$1 ORDER BY created_at DESC`, customerID)
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Status, &o.TotalCents, &o.ShippingAddress, &o.PaymentMethod, &o.Paid, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.itemsFor(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateStatus applies one workflow transition as a compare-and-set on the
// status column.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, to Status, wf Workflow) (Status, error) {
	return applyTransition(ctx, to, wf,
		func(ctx context.Context) (Status, error) {
			return r.GetStatus(ctx, orderID)
		},
		func(ctx context.Context, from, to Status) (bool, error) {
			ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1 AND status=$3`,
				orderID, to, from)
			if err != nil {
				return false, err
			}
			return ct.RowsAffected() == 1, nil
		})
}

// applyTransition runs the read-check-CAS loop. A lost CAS means a concurrent
// writer moved the order, so the new state is re-read and re-checked against
// the workflow; only when the contention never resolves within the bound is
// ErrStatusConflict reported. An illegal move is always ErrInvalidTransition,
// never a conflict.
func applyTransition(ctx context.Context, to Status, wf Workflow,
	get func(context.Context) (Status, error),
	cas func(context.Context, Status, Status) (bool, error),
) (from Status, err error) {
	for attempt := 0; attempt < 3; attempt++ {
		from, err = get(ctx)
		if err != nil {
			return "", err
		}
		if err := wf.Check(from, to); err != nil {
			return from, err
		}
		applied, err := cas(ctx, from, to)
		if err != nil {
			return from, err
		}
		if applied {
			return from, nil
		}
	}
	return from, ErrStatusConflict
}
