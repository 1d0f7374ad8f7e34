package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mauv0809/portfolio-tracker/internal/models"
)

// DBTX is the subset of *pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// Repository handles database operations for users, accounts, assets and transactions.
type Repository struct {
	db DBTX
}

// NewRepository creates a new repository.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// Ping checks that a connection can be acquired.
func (r *Repository) Ping(ctx context.Context) error {
	return wrap("pinging database", r.db.Ping(ctx))
}

// AddUser inserts a user and returns its id.
// A duplicate username or email yields ErrConflict.
func (r *Repository) AddUser(ctx context.Context, username, email string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		"INSERT INTO users (username, email) VALUES ($1, $2) RETURNING user_id",
		username, email,
	).Scan(&id)
	if err != nil {
		return 0, wrap("adding user", err)
	}
	return id, nil
}

// AddAccount inserts an account owned by userID.
func (r *Repository) AddAccount(ctx context.Context, userID int64, name string, typ models.AccountType) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		"INSERT INTO accounts (user_id, account_name, account_type) VALUES ($1, $2, $3) RETURNING account_id",
		userID, name, string(typ),
	).Scan(&id)
	if err != nil {
		return 0, wrap("adding account", err)
	}
	return id, nil
}

// AddAsset inserts an asset held in accountID.
func (r *Repository) AddAsset(ctx context.Context, accountID int64, ticker, name string, class models.AssetClass) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		"INSERT INTO assets (account_id, ticker_symbol, asset_name, asset_class) VALUES ($1, $2, $3, $4) RETURNING asset_id",
		accountID, ticker, name, string(class),
	).Scan(&id)
	if err != nil {
		return 0, wrap("adding asset", err)
	}
	return id, nil
}

// AddTransaction records tx as given. Quantity, price and total are not validated here.
func (r *Repository) AddTransaction(ctx context.Context, tx models.Transaction) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO transactions (asset_id, transaction_type, transaction_date, quantity, price_per_unit, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING transaction_id
	`, tx.AssetID, string(tx.Type), tx.Date, tx.Quantity, tx.PricePerUnit, tx.TotalAmount).Scan(&id)
	if err != nil {
		return 0, wrap("adding transaction", err)
	}
	return id, nil
}

// GetUser returns the user with the given id or ErrNotFound.
func (r *Repository) GetUser(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx,
		"SELECT user_id, username, email FROM users WHERE user_id = $1", id,
	).Scan(&u.ID, &u.Username, &u.Email)
	if err != nil {
		return models.User{}, wrap("getting user", err)
	}
	return u, nil
}

// GetUserByUsername returns the user with the given username or ErrNotFound.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := r.db.QueryRow(ctx,
		"SELECT user_id, username, email FROM users WHERE username = $1", username,
	).Scan(&u.ID, &u.Username, &u.Email)
	if err != nil {
		return models.User{}, wrap("getting user by username", err)
	}
	return u, nil
}

// GetAccountsByUser returns the accounts owned by userID.
func (r *Repository) GetAccountsByUser(ctx context.Context, userID int64) ([]models.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT account_id, user_id, account_name, account_type
		FROM accounts
		WHERE user_id = $1
		ORDER BY account_id
	`, userID)
	if err != nil {
		return nil, wrap("querying accounts", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Type); err != nil {
			return nil, wrap("scanning account", err)
		}
		accounts = append(accounts, a)
	}

	return accounts, wrap("reading accounts", rows.Err())
}

// GetAssetsByAccount returns the assets held in accountID.
func (r *Repository) GetAssetsByAccount(ctx context.Context, accountID int64) ([]models.Asset, error) {
	rows, err := r.db.Query(ctx, `
		SELECT asset_id, account_id, ticker_symbol, asset_name, asset_class
		FROM assets
		WHERE account_id = $1
		ORDER BY asset_id
	`, accountID)
	if err != nil {
		return nil, wrap("querying assets", err)
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		var a models.Asset
		if err := rows.Scan(&a.ID, &a.AccountID, &a.Ticker, &a.Name, &a.Class); err != nil {
			return nil, wrap("scanning asset", err)
		}
		assets = append(assets, a)
	}

	return assets, wrap("reading assets", rows.Err())
}

// GetTransactionsByAsset returns the asset's transactions, most recent date first.
func (r *Repository) GetTransactionsByAsset(ctx context.Context, assetID int64) ([]models.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT transaction_id, asset_id, transaction_type, transaction_date,
		       quantity, price_per_unit, total_amount
		FROM transactions
		WHERE asset_id = $1
		ORDER BY transaction_date DESC, transaction_id DESC
	`, assetID)
	if err != nil {
		return nil, wrap("querying transactions", err)
	}
	defer rows.Close()

	txs := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.AssetID, &t.Type, &t.Date, &t.Quantity, &t.PricePerUnit, &t.TotalAmount); err != nil {
			return nil, wrap("scanning transaction", err)
		}
		txs = append(txs, t)
	}

	return txs, wrap("reading transactions", rows.Err())
}

// UpdateUserEmail changes a user's email. ErrConflict if the email is taken,
// ErrNotFound if the user does not exist.
func (r *Repository) UpdateUserEmail(ctx context.Context, userID int64, email string) error {
	tag, err := r.db.Exec(ctx, "UPDATE users SET email = $1 WHERE user_id = $2", email, userID)
	if err != nil {
		return wrap("updating user email", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating user email: %w", ErrNotFound)
	}
	return nil
}

// DeleteAccount removes an account together with its assets and their
// transactions in a single database transaction. Nothing is deleted when any
// step fails or when the account does not exist.
func (r *Repository) DeleteAccount(ctx context.Context, accountID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return wrap("beginning account deletion", err)
	}

	if err := deleteAccountTree(ctx, tx, accountID); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrap("committing account deletion", err)
	}
	return nil
}

// deleteAccountTree runs the cascade in foreign-key order: transactions, assets, account.
func deleteAccountTree(ctx context.Context, tx pgx.Tx, accountID int64) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM transactions
		WHERE asset_id IN (SELECT asset_id FROM assets WHERE account_id = $1)
	`, accountID); err != nil {
		return wrap("deleting account transactions", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM assets WHERE account_id = $1", accountID); err != nil {
		return wrap("deleting account assets", err)
	}

	tag, err := tx.Exec(ctx, "DELETE FROM accounts WHERE account_id = $1", accountID)
	if err != nil {
		return wrap("deleting account", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting account %d: %w", accountID, ErrNotFound)
	}
	return nil
}

// ResolveUser returns the user with id. When no such row exists it falls back
// to the user named username, which covers a user created earlier under a
// different id than the one configured.
func (r *Repository) ResolveUser(ctx context.Context, id int64, username string) (models.User, error) {
	u, err := r.GetUser(ctx, id)
	if !errors.Is(err, ErrNotFound) {
		return u, err
	}
	return r.GetUserByUsername(ctx, username)
}

// EnsureUser returns the configured user, creating it from username and email
// when neither id nor username matches a row. The returned user may carry a
// different id than requested.
func (r *Repository) EnsureUser(ctx context.Context, id int64, username, email string) (models.User, error) {
	u, err := r.ResolveUser(ctx, id, username)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.User{}, err
	}

	newID, err := r.AddUser(ctx, username, email)
	if errors.Is(err, ErrConflict) {
		// Lost a race with another process creating the same user.
		if u, lookupErr := r.GetUserByUsername(ctx, username); lookupErr == nil {
			return u, nil
		}
	}
	if err != nil {
		return models.User{}, fmt.Errorf("bootstrapping user: %w", err)
	}
	return models.User{ID: newID, Username: username, Email: email}, nil
}
