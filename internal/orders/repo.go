package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, product_id, user_id, quantity, total_price, status, currency, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.ProductID, &o.UserID, &o.Quantity, &o.TotalPrice,
		&o.Status, &o.Currency, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// CreateOrder freezes the total at creation time: price is read from the
// products table inside the same statement batch, never from the request.
func (r *Repo) CreateOrder(ctx context.Context, productID string, qty int, userID, currency string) (Order, error) {
	if qty <= 0 {
		return Order{}, ErrInvalidQuantity
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	var price decimal.Decimal
	err := r.DB.QueryRow(ctx, `SELECT price FROM products WHERE id=$1`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrProductNotFound
	}
	if err != nil {
		return Order{}, err
	}

	o := Order{
		ID:         uuid.NewString(),
		ProductID:  productID,
		UserID:     userID,
		Quantity:   qty,
		TotalPrice: ComputeTotal(price, qty),
		Status:     StatusPending,
		Currency:   currency,
		CreatedAt:  time.Now().UTC(),
	}
	o.UpdatedAt = o.CreatedAt

	_, err = r.DB.Exec(ctx, `
		INSERT INTO orders(`+orderCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		o.ID, o.ProductID, o.UserID, o.Quantity, o.TotalPrice, o.Status, o.Currency, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// GetOrder scopes by user when userID is non-empty. A foreign order reads
// the same as a missing one.
func (r *Repo) GetOrder(ctx context.Context, id, userID string) (Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE id=$1`
	args := []any{id}
	if userID != "" {
		q += ` AND user_id=$2`
		args = append(args, userID)
	}
	o, err := scanOrder(r.DB.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (r *Repo) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders`
	var args []any
	if userID != "" {
		q += ` WHERE user_id=$1`
		args = append(args, userID)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type UpdateOrderInput struct {
	ProductID *string `json:"product_id"`
	Quantity  *int    `json:"quantity"`
	Currency  *string `json:"currency"`
}

// UpdateOrder recomputes the total whenever product or quantity changes.
// A total supplied by the client never reaches this repo.
func (r *Repo) UpdateOrder(ctx context.Context, id, userID string, in UpdateOrderInput) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `SELECT ` + orderCols + ` FROM orders WHERE id=$1`
	args := []any{id}
	if userID != "" {
		q += ` AND user_id=$2`
		args = append(args, userID)
	}
	o, err := scanOrder(tx.QueryRow(ctx, q+` FOR UPDATE`, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}

	if in.ProductID != nil {
		o.ProductID = *in.ProductID
	}
	if in.Quantity != nil {
		o.Quantity = *in.Quantity
	}
	if in.Currency != nil {
		o.Currency = *in.Currency
	}
	if o.Quantity <= 0 {
		return Order{}, ErrInvalidQuantity
	}

	var price decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT price FROM products WHERE id=$1`, o.ProductID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrProductNotFound
	}
	if err != nil {
		return Order{}, err
	}
	o.TotalPrice = ComputeTotal(price, o.Quantity)
	o.UpdatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		UPDATE orders SET product_id=$2, quantity=$3, total_price=$4, currency=$5, updated_at=$6
		WHERE id=$1`,
		o.ID, o.ProductID, o.Quantity, o.TotalPrice, o.Currency, o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// DeleteOrder cascades to the order's transactions via the schema FK.
func (r *Repo) DeleteOrder(ctx context.Context, id, userID string) error {
	q := `DELETE FROM orders WHERE id=$1`
	args := []any{id}
	if userID != "" {
		q += ` AND user_id=$2`
		args = append(args, userID)
	}
	ct, err := r.DB.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MarkPaid is idempotent: a second call on a paid order rewrites the same
// status and returns the same state.
func (r *Repo) MarkPaid(ctx context.Context, orderID string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE id=$1
		RETURNING `+orderCols, orderID, StatusPaid))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}
