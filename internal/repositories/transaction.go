package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-transactions/internal/logger"
	"github.com/sbilibin2017/gw-transactions/internal/models"
)

// ChangesChannel is the Postgres NOTIFY channel fired on every transactions row change.
const ChangesChannel = "transactions_changed"

// Schema creates the transactions table and the trigger that announces changes.
const Schema = `
CREATE TABLE IF NOT EXISTS transactions (
	id             TEXT PRIMARY KEY,
	date           DATE NOT NULL,
	description    VARCHAR(100) NOT NULL,
	amount         NUMERIC(20,2) NOT NULL CHECK (amount > 0),
	category_name  VARCHAR(50) NOT NULL,
	category_icon  VARCHAR(50) NOT NULL DEFAULT '',
	category_color VARCHAR(50) NOT NULL DEFAULT '',
	created_at     TIMESTAMP NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS transactions_date_idx ON transactions (date DESC, created_at DESC);

CREATE OR REPLACE FUNCTION notify_transactions_changed() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('transactions_changed', COALESCE(NEW.id, OLD.id));
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS transactions_changed ON transactions;
CREATE TRIGGER transactions_changed
	AFTER INSERT OR UPDATE OR DELETE ON transactions
	FOR EACH ROW EXECUTE FUNCTION notify_transactions_changed();
`

const transactionColumns = `id, date, description, amount, category_name, category_icon, category_color`

// transactionRow is the database shape of a transaction.
type transactionRow struct {
	ID            string          `db:"id"`
	Date          models.Date     `db:"date"`
	Description   string          `db:"description"`
	Amount        decimal.Decimal `db:"amount"`
	CategoryName  string          `db:"category_name"`
	CategoryIcon  string          `db:"category_icon"`
	CategoryColor string          `db:"category_color"`
}

func (r transactionRow) toModel() models.Transaction {
	return models.Transaction{
		ID:          r.ID,
		Date:        r.Date,
		Description: r.Description,
		Amount:      r.Amount,
		Category: models.Category{
			Name:  r.CategoryName,
			Icon:  r.CategoryIcon,
			Color: r.CategoryColor,
		},
	}
}

// TransactionReadRepository handles transaction read operations
type TransactionReadRepository struct {
	db *sqlx.DB
}

func NewTransactionReadRepository(db *sqlx.DB) *TransactionReadRepository {
	return &TransactionReadRepository{db: db}
}

// List returns up to limit transactions starting at offset, newest first.
func (r *TransactionReadRepository) List(ctx context.Context, offset, limit int) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		ORDER BY date DESC, created_at DESC, id
		OFFSET $1 LIMIT $2
	`

	var rows []transactionRow
	err := r.db.SelectContext(ctx, &rows, query, offset, limit)

	// Log query, args, result, error
	logger.Log.Debugw(
		"query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{offset, limit},
		"result", len(rows),
		"error", err,
	)
	if err != nil {
		return nil, err
	}

	txs := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		txs = append(txs, row.toModel())
	}
	return txs, nil
}

// GetByID returns a single transaction or models.ErrNotFound.
func (r *TransactionReadRepository) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	var row transactionRow
	err := r.db.GetContext(ctx, &row, query, id)

	logger.Log.Debugw(
		"query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", []any{id},
		"error", err,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, models.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}
	return row.toModel(), nil
}

// TransactionWriteRepository handles transaction write operations
type TransactionWriteRepository struct {
	db       *sqlx.DB
	txGetter func(ctx context.Context) *sqlx.Tx
}

func NewTransactionWriteRepository(db *sqlx.DB, txGetter func(ctx context.Context) *sqlx.Tx) *TransactionWriteRepository {
	return &TransactionWriteRepository{db: db, txGetter: txGetter}
}

func (r *TransactionWriteRepository) executor(ctx context.Context) sqlx.ExtContext {
	var executor sqlx.ExtContext = r.db
	if r.txGetter != nil {
		if tx := r.txGetter(ctx); tx != nil {
			executor = tx
		}
	}
	return executor
}

// Create inserts t and returns the stored row.
func (r *TransactionWriteRepository) Create(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	query := `
		INSERT INTO transactions (` + transactionColumns + `, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + transactionColumns

	args := []any{t.ID, t.Date, t.Description, t.Amount, t.Category.Name, t.Category.Icon, t.Category.Color}

	var row transactionRow
	err := sqlx.GetContext(ctx, r.executor(ctx), &row, query, args...)

	logger.Log.Debugw(
		"query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", row.ID,
		"error", err,
	)
	if err != nil {
		return models.Transaction{}, err
	}
	return row.toModel(), nil
}

// Update changes only the fields present in patch. category replaces all category columns
// when non-nil.
func (r *TransactionWriteRepository) Update(ctx context.Context, id string, patch models.TransactionPatch, category *models.Category) (models.Transaction, error) {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Date != nil {
		set("date", *patch.Date)
	}
	if patch.Description != nil {
		set("description", strings.TrimSpace(*patch.Description))
	}
	if patch.Amount != nil {
		set("amount", *patch.Amount)
	}
	if category != nil {
		set("category_name", category.Name)
		set("category_icon", category.Icon)
		set("category_color", category.Color)
	}
	if len(sets) == 0 {
		return models.Transaction{}, models.NewValidationError("", "no fields to update")
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE transactions
		SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING %s`, strings.Join(sets, ", "), len(args), transactionColumns)

	var row transactionRow
	err := sqlx.GetContext(ctx, r.executor(ctx), &row, query, args...)

	logger.Log.Debugw(
		"query executed",
		"query", strings.Join(strings.Fields(query), " "),
		"args", args,
		"error", err,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, models.ErrNotFound
	}
	if err != nil {
		return models.Transaction{}, err
	}
	return row.toModel(), nil
}

// Delete removes the transaction with the given id.
func (r *TransactionWriteRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM transactions WHERE id = $1`

	res, err := r.executor(ctx).ExecContext(ctx, query, id)

	logger.Log.Debugw(
		"query executed",
		"query", query,
		"args", []any{id},
		"error", err,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
