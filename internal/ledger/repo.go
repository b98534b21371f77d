package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/adiwijaya/go-checkout-payments/internal/orders"
)

type Repo struct{ DB *pgxpool.Pool }

const txCols = `id, order_id, payment_id, amount, status, created_at`

func scanTx(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.OrderID, &t.PaymentID, &t.Amount, &t.Status, &t.CreatedAt)
	return t, err
}

// Open records a new payment attempt. The caller passes the order total as
// the amount; from here on the row is a snapshot.
func (r *Repo) Open(ctx context.Context, orderID, paymentID string, amount decimal.Decimal, status string) (Transaction, error) {
	t := Transaction{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		PaymentID: paymentID,
		Amount:    amount,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.DB.Exec(ctx, `
		INSERT INTO transactions(`+txCols+`)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.OrderID, t.PaymentID, t.Amount, t.Status, t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Transaction{}, ErrDuplicatePayment
		}
		return Transaction{}, err
	}
	return t, nil
}

func (r *Repo) FindByPaymentID(ctx context.Context, paymentID string) (Transaction, error) {
	t, err := scanTx(r.DB.QueryRow(ctx,
		`SELECT `+txCols+` FROM transactions WHERE payment_id=$1`, paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return t, err
}

// UpdateStatus mutates status only; amount and order linkage stay fixed.
func (r *Repo) UpdateStatus(ctx context.Context, paymentID, status string) (Transaction, error) {
	t, err := scanTx(r.DB.QueryRow(ctx, `
		UPDATE transactions SET status=$2
		WHERE payment_id=$1
		RETURNING `+txCols, paymentID, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return t, err
}

func (r *Repo) ListByOrder(ctx context.Context, orderID string) ([]Transaction, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+txCols+` FROM transactions WHERE order_id=$1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Capture flips the transaction to the provider's captured state and the
// linked order to PAID in one transaction. The FOR UPDATE lock on the
// transaction row serializes concurrent captures of the same payment id;
// the second caller re-applies the same terminal state.
func (r *Repo) Capture(ctx context.Context, paymentID, status string) (Transaction, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	t, err := scanTx(tx.QueryRow(ctx,
		`SELECT `+txCols+` FROM transactions WHERE payment_id=$1 FOR UPDATE`, paymentID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	if err != nil {
		return Transaction{}, err
	}

	t.Status = status
	if _, err := tx.Exec(ctx,
		`UPDATE transactions SET status=$2 WHERE payment_id=$1`, paymentID, status); err != nil {
		return Transaction{}, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, t.OrderID, orders.StatusPaid); err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return t, nil
}
