package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/portfolio-tracker/internal/db"
	"github.com/mauv0809/portfolio-tracker/internal/models"
	"github.com/mauv0809/portfolio-tracker/internal/report"
	"github.com/mauv0809/portfolio-tracker/internal/views"
)

// loadFailed reports a failed read as a server error with a user-facing message.
func loadFailed(what string, err error) error {
	return echo.NewHTTPError(http.StatusInternalServerError,
		fmt.Sprintf("Could not load %s. Check the database connection and try again.", what)).SetInternal(err)
}

// writeFailure maps a failed write onto a flash message.
func writeFailure(action string, err error) string {
	switch {
	case errors.Is(err, db.ErrConflict):
		return fmt.Sprintf("Error %s: a record with the same value already exists.", action)
	case errors.Is(err, db.ErrInvalidReference):
		return fmt.Sprintf("Error %s: the selected parent record no longer exists.", action)
	case errors.Is(err, db.ErrNotFound):
		return fmt.Sprintf("Error %s: record not found.", action)
	default:
		return fmt.Sprintf("Error %s. Please try again.", action)
	}
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid id.")
	}
	return id, nil
}

// queryID returns the positive integer query parameter name, or 0.
func queryID(c echo.Context, name string) int64 {
	id, err := strconv.ParseInt(c.QueryParam(name), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

func accountQuery(accountID int64) url.Values {
	v := url.Values{}
	if accountID > 0 {
		v.Set("account_id", strconv.FormatInt(accountID, 10))
	}
	return v
}

// pickAccount returns the account with id, falling back to the first one.
func pickAccount(accounts []models.Account, id int64) *models.Account {
	for i := range accounts {
		if accounts[i].ID == id {
			return &accounts[i]
		}
	}
	if len(accounts) > 0 {
		return &accounts[0]
	}
	return nil
}

func pickAsset(assets []models.Asset, id int64) *models.Asset {
	for i := range assets {
		if assets[i].ID == id {
			return &assets[i]
		}
	}
	if len(assets) > 0 {
		return &assets[0]
	}
	return nil
}

// Dashboard handles GET /
func (h *Handler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.store.GetUser(ctx, h.userID)
	if err != nil {
		return loadFailed("your profile", err)
	}

	holdings, err := h.store.GetPortfolioSummary(ctx, h.userID)
	if err != nil {
		return loadFailed("your holdings", err)
	}

	return Render(c, http.StatusOK, views.Dashboard(
		h.meta(c, "Dashboard", views.PageDashboard),
		views.DashboardData{User: user, Holdings: holdings},
	))
}

// UpdateEmail handles POST /profile/email
func (h *Handler) UpdateEmail(c echo.Context) error {
	var form emailForm
	if err := c.Bind(&form); err != nil {
		return redirectWithFlash(c, "/", nil, views.FlashError, "Invalid form submission.")
	}
	form.normalize()
	if err := h.validate.Struct(form); err != nil {
		return redirectWithFlash(c, "/", nil, views.FlashError, describeValidation(err))
	}

	if err := h.store.UpdateUserEmail(c.Request().Context(), h.userID, form.Email); err != nil {
		h.logger.Warn("Updating email failed", "user_id", h.userID, "error", err)
		if errors.Is(err, db.ErrConflict) {
			return redirectWithFlash(c, "/", nil, views.FlashError, "Error updating user email: that email is already in use.")
		}
		return redirectWithFlash(c, "/", nil, views.FlashError, writeFailure("updating user email", err))
	}

	h.logger.Info("Email updated", "user_id", h.userID)
	return redirectWithFlash(c, "/", nil, views.FlashSuccess, "Email updated successfully!")
}

// Assets handles GET /assets
// Query params:
// - account_id: account to show (defaults to the first account)
func (h *Handler) Assets(c echo.Context) error {
	ctx := c.Request().Context()

	accounts, err := h.store.GetAccountsByUser(ctx, h.userID)
	if err != nil {
		return loadFailed("accounts", err)
	}

	data := views.AssetsData{Accounts: accounts, Selected: pickAccount(accounts, queryID(c, "account_id"))}
	if data.Selected != nil {
		data.Assets, err = h.store.GetAssetsByAccount(ctx, data.Selected.ID)
		if err != nil {
			return loadFailed("assets", err)
		}
	}

	return Render(c, http.StatusOK, views.Assets(h.meta(c, "Asset Management", views.PageAssets), data))
}

// AddAccount handles POST /accounts
func (h *Handler) AddAccount(c echo.Context) error {
	var form accountForm
	if err := c.Bind(&form); err != nil {
		return redirectWithFlash(c, "/assets", nil, views.FlashError, "Invalid form submission.")
	}
	form.normalize()
	if err := h.validate.Struct(form); err != nil {
		return redirectWithFlash(c, "/assets", nil, views.FlashError, describeValidation(err))
	}

	id, err := h.store.AddAccount(c.Request().Context(), h.userID, form.Name, models.AccountType(form.Type))
	if err != nil {
		h.logger.Warn("Adding account failed", "name", form.Name, "error", err)
		return redirectWithFlash(c, "/assets", nil, views.FlashError, writeFailure("adding account", err))
	}

	h.logger.Info("Account added", "account_id", id, "type", form.Type)
	return redirectWithFlash(c, "/assets", accountQuery(id), views.FlashSuccess,
		fmt.Sprintf("Account '%s' added successfully!", form.Name))
}

// AddAsset handles POST /accounts/:id/assets
func (h *Handler) AddAsset(c echo.Context) error {
	accountID, err := pathID(c)
	if err != nil {
		return err
	}

	var form assetForm
	if err := c.Bind(&form); err != nil {
		return redirectWithFlash(c, "/assets", accountQuery(accountID), views.FlashError, "Invalid form submission.")
	}
	form.normalize()
	if err := h.validate.Struct(form); err != nil {
		return redirectWithFlash(c, "/assets", accountQuery(accountID), views.FlashError, describeValidation(err))
	}

	id, err := h.store.AddAsset(c.Request().Context(), accountID, form.Ticker, form.Name, models.AssetClass(form.Class))
	if err != nil {
		h.logger.Warn("Adding asset failed", "account_id", accountID, "ticker", form.Ticker, "error", err)
		return redirectWithFlash(c, "/assets", accountQuery(accountID), views.FlashError, writeFailure("adding asset", err))
	}

	h.logger.Info("Asset added", "asset_id", id, "account_id", accountID, "ticker", form.Ticker)
	return redirectWithFlash(c, "/assets", accountQuery(accountID), views.FlashSuccess,
		fmt.Sprintf("Asset '%s' added to account!", form.Ticker))
}

// DeleteAccount handles POST /accounts/:id/delete
// The account's assets and transactions are removed with it.
func (h *Handler) DeleteAccount(c echo.Context) error {
	accountID, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.store.DeleteAccount(c.Request().Context(), accountID); err != nil {
		h.logger.Warn("Deleting account failed", "account_id", accountID, "error", err)
		return redirectWithFlash(c, "/assets", nil, views.FlashError, writeFailure("deleting account", err))
	}

	h.logger.Info("Account deleted", "account_id", accountID)
	return redirectWithFlash(c, "/assets", nil, views.FlashSuccess, "Account deleted.")
}

// Transactions handles GET /transactions
// Query params:
// - account_id: account to browse (defaults to the first account)
// - asset_id: asset whose history is shown (defaults to the account's first asset)
func (h *Handler) Transactions(c echo.Context) error {
	ctx := c.Request().Context()

	accounts, err := h.store.GetAccountsByUser(ctx, h.userID)
	if err != nil {
		return loadFailed("accounts", err)
	}

	data := views.TransactionsData{
		Accounts:        accounts,
		SelectedAccount: pickAccount(accounts, queryID(c, "account_id")),
		Today:           h.now(),
	}
	if data.SelectedAccount != nil {
		data.Assets, err = h.store.GetAssetsByAccount(ctx, data.SelectedAccount.ID)
		if err != nil {
			return loadFailed("assets", err)
		}
		data.SelectedAsset = pickAsset(data.Assets, queryID(c, "asset_id"))
	}
	if data.SelectedAsset != nil {
		data.Transactions, err = h.store.GetTransactionsByAsset(ctx, data.SelectedAsset.ID)
		if err != nil {
			return loadFailed("transactions", err)
		}
	}

	return Render(c, http.StatusOK, views.Transactions(h.meta(c, "Transactions", views.PageTransactions), data))
}

// AddTransaction handles POST /assets/:id/transactions
// The total amount is computed here as quantity × price.
func (h *Handler) AddTransaction(c echo.Context) error {
	assetID, err := pathID(c)
	if err != nil {
		return err
	}

	var form transactionForm
	if err := c.Bind(&form); err != nil {
		return redirectWithFlash(c, "/transactions", nil, views.FlashError, "Invalid form submission.")
	}

	back := url.Values{}
	if accountID, err := strconv.ParseInt(form.AccountID, 10, 64); err == nil && accountID > 0 {
		back = accountQuery(accountID)
	}
	back.Set("asset_id", strconv.FormatInt(assetID, 10))

	if err := h.validate.Struct(form); err != nil {
		return redirectWithFlash(c, "/transactions", back, views.FlashError, describeValidation(err))
	}
	tx, err := form.transaction(assetID)
	if err != nil {
		return redirectWithFlash(c, "/transactions", back, views.FlashError, "Invalid transaction: "+err.Error())
	}

	id, err := h.store.AddTransaction(c.Request().Context(), tx)
	if err != nil {
		h.logger.Warn("Adding transaction failed", "asset_id", assetID, "error", err)
		return redirectWithFlash(c, "/transactions", back, views.FlashError, writeFailure("adding transaction", err))
	}

	h.logger.Info("Transaction logged", "transaction_id", id, "asset_id", assetID, "type", tx.Type, "total", tx.TotalAmount.String())
	return redirectWithFlash(c, "/transactions", back, views.FlashSuccess,
		fmt.Sprintf("%s transaction logged.", tx.Type.Label()))
}

// Insights handles GET /insights
func (h *Handler) Insights(c echo.Context) error {
	ctx := c.Request().Context()

	metrics, err := h.store.GetPortfolioMetrics(ctx, h.userID)
	if err != nil {
		return loadFailed("portfolio metrics", err)
	}
	breakdown, err := h.store.GetAssetClassBreakdown(ctx, h.userID)
	if err != nil {
		return loadFailed("the asset class breakdown", err)
	}

	return Render(c, http.StatusOK, views.Insights(
		h.meta(c, "Business Insights", views.PageInsights),
		views.InsightsData{Metrics: metrics, Breakdown: breakdown},
	))
}

// Report handles GET /insights/report
func (h *Handler) Report(c echo.Context) error {
	r, err := report.Build(c.Request().Context(), h.store, h.userID, h.currency)
	if err != nil {
		return loadFailed("the portfolio report", err)
	}

	fragment, err := report.RenderHTML(r.Markdown())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Could not render the portfolio report.").SetInternal(err)
	}

	return Render(c, http.StatusOK, views.Report(h.meta(c, "Portfolio Report", views.PageInsights), fragment))
}
