package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const productCols = `id, name, description, price, stock, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type ProductInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

func (r *Repo) CreateProduct(ctx context.Context, name, description string, price decimal.Decimal, stock int) (Product, error) {
	p := Product{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
		CreatedAt:   time.Now().UTC(),
	}
	p.UpdatedAt = p.CreatedAt

	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(`+productCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx,
		`SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products ORDER BY name`)
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

func (r *Repo) UpdateProduct(ctx context.Context, id string, in ProductInput) (Product, error) {
	p, err := r.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	p.UpdatedAt = time.Now().UTC()

	_, err = r.DB.Exec(ctx, `
		UPDATE products SET name=$2, description=$3, price=$4, stock=$5, updated_at=$6
		WHERE id=$1`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
