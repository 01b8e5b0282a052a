package repositories

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sbilibin2017/gw-transactions/internal/models"
)

var rowColumns = []string{"id", "date", "description", "amount", "category_name", "category_icon", "category_color"}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func strPtr(s string) *string { return &s }

func TestTransactionReadRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionReadRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions ORDER BY date DESC")).
		WithArgs(20, 21).
		WillReturnRows(sqlmock.NewRows(rowColumns).
			AddRow("t1", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), "Coffee", "4.50", "Food & Dining", "utensils", "orange").
			AddRow("t2", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "Bus", "2", "Transportation", "car", "blue"))

	txs, err := repo.List(context.Background(), 20, 21)

	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "t1", txs[0].ID)
	assert.Equal(t, "2024-01-03", txs[0].Date.String())
	assert.Equal(t, "4.5", txs[0].Amount.String())
	assert.Equal(t, models.Category{Name: "Food & Dining", Icon: "utensils", Color: "orange"}, txs[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionReadRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionReadRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM transactions WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(rowColumns))

	_, err := repo.GetByID(context.Background(), "missing")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionWriteRepository_UpdatePresentFieldsOnly(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionWriteRepository(db, nil)

	amount := decimal.RequireFromString("12.5")
	cat := models.Category{Name: "Shopping", Icon: "shopping-bag", Color: "purple"}

	mock.ExpectQuery(regexp.QuoteMeta(
		"UPDATE transactions SET description = $1, amount = $2, category_name = $3, category_icon = $4, category_color = $5, updated_at = NOW() WHERE id = $6",
	)).
		WithArgs("Shoes", sqlmock.AnyArg(), "Shopping", "shopping-bag", "purple", "t1").
		WillReturnRows(sqlmock.NewRows(rowColumns).
			AddRow("t1", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), "Shoes", "12.50", "Shopping", "shopping-bag", "purple"))

	got, err := repo.Update(context.Background(), "t1", models.TransactionPatch{
		Description: strPtr("  Shoes "),
		Amount:      &amount,
	}, &cat)

	require.NoError(t, err)
	assert.Equal(t, "Shoes", got.Description)
	assert.True(t, amount.Equal(got.Amount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionWriteRepository_UpdateErrors(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionWriteRepository(db, nil)

	_, err := repo.Update(context.Background(), "t1", models.TransactionPatch{}, nil)
	assert.True(t, models.IsValidation(err))

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE transactions SET description = $1")).
		WithArgs("x", "missing").
		WillReturnRows(sqlmock.NewRows(rowColumns))

	_, err = repo.Update(context.Background(), "missing", models.TransactionPatch{Description: strPtr("x")}, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionWriteRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionWriteRepository(db, nil)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transactions WHERE id = $1")).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transactions WHERE id = $1")).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), "t1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "t1"), models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionWriteRepository_UsesRequestTx(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transactions")).
		WithArgs("t1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)

	repo := NewTransactionWriteRepository(db, func(ctx context.Context) *sqlx.Tx { return tx })
	require.NoError(t, repo.Delete(context.Background(), "t1"))
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Setup Postgres ---
func setupPostgres(t *testing.T) (*sqlx.DB, func()) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "secret", "POSTGRES_DB": "testdb", "POSTGRES_USER": "postgres"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:secret@%s:%s/testdb?sslmode=disable", host, port.Port())
	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)

	_, err = db.Exec(Schema)
	require.NoError(t, err)

	return db, func() {
		db.Close()
		container.Terminate(ctx)
	}
}

func TestTransactionRepositories_Postgres(t *testing.T) {
	db, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()

	writer := NewTransactionWriteRepository(db, nil)
	reader := NewTransactionReadRepository(db)
	food := models.Category{Name: "Food & Dining", Icon: "utensils", Color: "orange"}

	for i, day := range []int{1, 3, 2} {
		_, err := writer.Create(ctx, models.Transaction{
			ID:          fmt.Sprintf("t%d", i+1),
			Date:        models.NewDate(2024, time.January, day),
			Description: fmt.Sprintf("item %d", i+1),
			Amount:      decimal.NewFromInt(int64(10 * (i + 1))),
			Category:    food,
		})
		require.NoError(t, err)
	}

	page, err := reader.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "t2", page[0].ID)
	assert.Equal(t, "t3", page[1].ID)

	rest, err := reader.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "t1", rest[0].ID)

	amount := decimal.RequireFromString("99.99")
	updated, err := writer.Update(ctx, "t1", models.TransactionPatch{Amount: &amount}, nil)
	require.NoError(t, err)
	assert.True(t, amount.Equal(updated.Amount))
	assert.Equal(t, "item 1", updated.Description)

	got, err := reader.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, amount.Equal(got.Amount))

	require.NoError(t, writer.Delete(ctx, "t1"))
	assert.ErrorIs(t, writer.Delete(ctx, "t1"), models.ErrNotFound)
	_, err = reader.GetByID(ctx, "t1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
