package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrMissingName     = errors.New("product name is required")
	ErrNegativePrice   = errors.New("price must be >= 0")
	ErrNegativeStock   = errors.New("stock must be >= 0")
	ErrMissingSupplier = errors.New("supplier id is required")
	ErrBadStatus       = errors.New("unknown product status")
)

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, name, description, price_cents, stock, images, category_id, supplier_id, origin, status, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &p.Images,
		&p.CategoryID, &p.SupplierID, &p.Origin, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *Repo) Create(ctx context.Context, in CreateProductInput) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, price_cents, stock, images, category_id, supplier_id, origin, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'pending')
		RETURNING `+productCols,
		id, in.Name, in.Description, in.PriceCents, in.Stock, in.Images, in.CategoryID, in.SupplierID, in.Origin)
	return scanProduct(row)
}

func (r *Repo) GetByID(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// List returns approved listings only unless all is set (admin view).
func (r *Repo) List(ctx context.Context, all bool) ([]Product, error) {
	q := `SELECT ` + productCols + ` FROM products WHERE status='approved' ORDER BY name`
	if all {
		q = `SELECT ` + productCols + ` FROM products ORDER BY name`
	}
	return r.collect(ctx, q)
}

func (r *Repo) ListByCategory(ctx context.Context, categoryID string) ([]Product, error) {
	return r.collect(ctx, `SELECT `+productCols+` FROM products WHERE category_id=$1 AND status='approved' ORDER BY name`, categoryID)
}

func (r *Repo) ListBySupplier(ctx context.Context, supplierID string) ([]Product, error) {
	return r.collect(ctx, `SELECT `+productCols+` FROM products WHERE supplier_id=$1 ORDER BY name`, supplierID)
}

func (r *Repo) SearchByName(ctx context.Context, keyword string) ([]Product, error) {
	return r.collect(ctx, `SELECT `+productCols+` FROM products WHERE name ILIKE '%'||$1||'%' AND status='approved' ORDER BY name`, keyword)
}

func (r *Repo) collect(ctx context.Context, q string, args ...any) ([]Product, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetStatus is the admin approve/reject action.
func (r *Repo) SetStatus(ctx context.Context, id string, status ProductStatus) (Product, error) {
	if !status.Valid() {
		return Product{}, ErrBadStatus
	}
	row := r.DB.QueryRow(ctx, `UPDATE products SET status=$2, updated_at=now() WHERE id=$1 RETURNING `+productCols, id, status)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

// AddStock is the supplier restock action. It shares the single-statement
// atomic discipline with the checkout decrement, so the two writers never
// race through a read-modify-write window.
func (r *Repo) AddStock(ctx context.Context, productID string, qty int) (Product, error) {
	if qty < 1 {
		return Product{}, ErrNegativeStock
	}
	row := r.DB.QueryRow(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1 RETURNING `+productCols, productID, qty)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
