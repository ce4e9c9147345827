package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store over the products table. The decrement is a single
// conditional UPDATE, so Postgres serializes concurrent checkouts on the row
// and the stock >= qty guard can never be bypassed.
type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) ReserveStock(ctx context.Context, productID string, qty int) (ReserveResult, error) {
	var res ReserveResult
	row := s.DB.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING price_cents, supplier_id`, productID, qty)
	err := row.Scan(&res.PriceCents, &res.SupplierID)
	if err == nil {
		res.Found, res.Applied = true, true
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ReserveResult{}, wrapConflict(err)
	}

	// guard failed: missing product or shortfall
	err = s.DB.QueryRow(ctx, `SELECT stock, price_cents, supplier_id FROM products WHERE id=$1`, productID).
		Scan(&res.Available, &res.PriceCents, &res.SupplierID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ReserveResult{}, nil
	}
	if err != nil {
		return ReserveResult{}, wrapConflict(err)
	}
	res.Found = true
	return res, nil
}

func (s *PGStore) ReleaseStock(ctx context.Context, productID string, qty int) error {
	_, err := s.DB.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`, productID, qty)
	return wrapConflict(err)
}

func wrapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.Code)
	}
	return err
}
