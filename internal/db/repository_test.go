package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mauv0809/portfolio-tracker/internal/models"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return NewRepository(mock), mock
}

func TestRepository_AddUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("JohnDoe", "john.doe@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(1)))

	id, err := repo.AddUser(ctx, "JohnDoe", "john.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestRepository_AddUser_Duplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("JohnDoe", "john.doe@example.com").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	id, err := repo.AddUser(context.Background(), "JohnDoe", "john.doe@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Zero(t, id)
}

func TestRepository_AddAccount_UnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO accounts").
		WithArgs(int64(42), "Vanguard", "Brokerage").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "accounts_user_id_fkey"})

	_, err := repo.AddAccount(context.Background(), 42, "Vanguard", models.AccountBrokerage)
	assert.ErrorIs(t, err, ErrInvalidReference)
}

func TestRepository_AddAsset(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO assets").
		WithArgs(int64(3), "AAPL", "Apple Inc.", "Equities").
		WillReturnRows(pgxmock.NewRows([]string{"asset_id"}).AddRow(int64(9)))

	id, err := repo.AddAsset(context.Background(), 3, "AAPL", "Apple Inc.", models.ClassEquities)
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)
}

func TestRepository_AddTransaction(t *testing.T) {
	repo, mock := newMockRepo(t)
	date := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	tx := models.NewTransaction(9, models.TransactionBuy, date, decimal.NewFromInt(10), decimal.NewFromInt(150))

	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(int64(9), "buy", date, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"transaction_id"}).AddRow(int64(100)))

	id, err := repo.AddTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), id)
}

func TestRepository_GetUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT user_id, username, email FROM users").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "email"}).
			AddRow(int64(1), "JohnDoe", "john.doe@example.com"))

	u, err := repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.User{ID: 1, Username: "JohnDoe", Email: "john.doe@example.com"}, u)
}

func TestRepository_GetUser_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT user_id, username, email FROM users").
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "email"}))

	_, err := repo.GetUser(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_GetAccountsByUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM accounts").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "user_id", "account_name", "account_type"}).
			AddRow(int64(1), int64(1), "Vanguard", models.AccountBrokerage).
			AddRow(int64(2), int64(1), "Coinbase", models.AccountCryptoExchange))

	accounts, err := repo.GetAccountsByUser(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Vanguard", accounts[0].Name)
	assert.Equal(t, models.AccountCryptoExchange, accounts[1].Type)
}

func TestRepository_GetAssetsByAccount_Empty(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM assets").
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"asset_id", "account_id", "ticker_symbol", "asset_name", "asset_class"}))

	assets, err := repo.GetAssetsByAccount(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, assets)
	assert.Empty(t, assets)
}

func TestRepository_GetTransactionsByAsset(t *testing.T) {
	repo, mock := newMockRepo(t)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("ORDER BY transaction_date DESC").
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{
			"transaction_id", "asset_id", "transaction_type", "transaction_date",
			"quantity", "price_per_unit", "total_amount",
		}).
			AddRow(int64(2), int64(9), models.TransactionSell, newer,
				decimal.NewFromInt(4), decimal.NewFromInt(160), decimal.NewFromInt(640)).
			AddRow(int64(1), int64(9), models.TransactionBuy, older,
				decimal.NewFromInt(10), decimal.NewFromInt(150), decimal.NewFromInt(1500)))

	txs, err := repo.GetTransactionsByAsset(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TransactionSell, txs[0].Type)
	assert.True(t, txs[0].Date.After(txs[1].Date))
	assert.True(t, txs[1].TotalAmount.Equal(decimal.NewFromInt(1500)))
}

func TestRepository_UpdateUserEmail(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "updated",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectExec("UPDATE users SET email").
					WithArgs("new@example.com", int64(1)).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name: "missing user",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectExec("UPDATE users SET email").
					WithArgs("new@example.com", int64(1)).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr: ErrNotFound,
		},
		{
			name: "email taken",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectExec("UPDATE users SET email").
					WithArgs("new@example.com", int64(1)).
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
			},
			wantErr: ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setup(mock)

			err := repo.UpdateUserEmail(context.Background(), 1, "new@example.com")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRepository_DeleteAccount(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM transactions").WithArgs(int64(3)).WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectExec("DELETE FROM assets").WithArgs(int64(3)).WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("DELETE FROM accounts").WithArgs(int64(3)).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteAccount(context.Background(), 3))
}

func TestRepository_DeleteAccount_RollsBackOnFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM transactions").WithArgs(int64(3)).WillReturnResult(pgxmock.NewResult("DELETE", 5))
	mock.ExpectExec("DELETE FROM assets").WithArgs(int64(3)).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := repo.DeleteAccount(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deleting account assets")
}

func TestRepository_DeleteAccount_Missing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM transactions").WithArgs(int64(8)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM assets").WithArgs(int64(8)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM accounts").WithArgs(int64(8)).WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, repo.DeleteAccount(context.Background(), 8), ErrNotFound)
}

func TestRepository_GetUserByUsername(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM users WHERE username = \\$1").
		WithArgs("JohnDoe").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "email"}).
			AddRow(int64(7), "JohnDoe", "john.doe@example.com"))

	u, err := repo.GetUserByUsername(context.Background(), "JohnDoe")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
}

func TestRepository_EnsureUser(t *testing.T) {
	userCols := []string{"user_id", "username", "email"}

	t.Run("existing", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("FROM users WHERE user_id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(int64(1), "JohnDoe", "john.doe@example.com"))

		u, err := repo.EnsureUser(context.Background(), 1, "JohnDoe", "john.doe@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(1), u.ID)
	})

	t.Run("created", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("FROM users WHERE user_id = \\$1").
			WithArgs(int64(1)).
			WillReturnRows(pgxmock.NewRows(userCols))
		mock.ExpectQuery("FROM users WHERE username = \\$1").
			WithArgs("JohnDoe").
			WillReturnRows(pgxmock.NewRows(userCols))
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("JohnDoe", "john.doe@example.com").
			WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(1)))

		u, err := repo.EnsureUser(context.Background(), 1, "JohnDoe", "john.doe@example.com")
		require.NoError(t, err)
		assert.Equal(t, models.User{ID: 1, Username: "JohnDoe", Email: "john.doe@example.com"}, u)
	})

	t.Run("username already stored under another id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("FROM users WHERE user_id = \\$1").
			WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows(userCols))
		mock.ExpectQuery("FROM users WHERE username = \\$1").
			WithArgs("JohnDoe").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(int64(2), "JohnDoe", "john.doe@example.com"))

		u, err := repo.EnsureUser(context.Background(), 5, "JohnDoe", "john.doe@example.com")
		require.NoError(t, err)
		assert.Equal(t, models.User{ID: 2, Username: "JohnDoe", Email: "john.doe@example.com"}, u)
	})

	t.Run("insert conflict falls back to username", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("FROM users WHERE user_id = \\$1").
			WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows(userCols))
		mock.ExpectQuery("FROM users WHERE username = \\$1").
			WithArgs("JohnDoe").
			WillReturnRows(pgxmock.NewRows(userCols))
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("JohnDoe", "john.doe@example.com").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
		mock.ExpectQuery("FROM users WHERE username = \\$1").
			WithArgs("JohnDoe").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow(int64(3), "JohnDoe", "john.doe@example.com"))

		u, err := repo.EnsureUser(context.Background(), 5, "JohnDoe", "john.doe@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(3), u.ID)
	})

	t.Run("email taken by another user", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("FROM users WHERE user_id = \\$1").
			WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows(userCols))
		mock.ExpectQuery("FROM users WHERE username = \\$1").
			WithArgs("JohnDoe").
			WillReturnRows(pgxmock.NewRows(userCols))
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("JohnDoe", "john.doe@example.com").
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
		mock.ExpectQuery("FROM users WHERE username = \\$1").
			WithArgs("JohnDoe").
			WillReturnRows(pgxmock.NewRows(userCols))

		_, err := repo.EnsureUser(context.Background(), 5, "JohnDoe", "john.doe@example.com")
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("lookup fails", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery("FROM users WHERE user_id = \\$1").
			WithArgs(int64(1)).
			WillReturnError(errors.New("connection refused"))

		_, err := repo.EnsureUser(context.Background(), 1, "JohnDoe", "john.doe@example.com")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestRepository_ResolveUser_DoesNotCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM users WHERE user_id = \\$1").
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "email"}))
	mock.ExpectQuery("FROM users WHERE username = \\$1").
		WithArgs("JohnDoe").
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "email"}))

	_, err := repo.ResolveUser(context.Background(), 1, "JohnDoe")
	assert.ErrorIs(t, err, ErrNotFound)
}
