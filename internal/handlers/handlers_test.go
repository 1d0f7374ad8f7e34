package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/portfolio-tracker/internal/db"
	"github.com/mauv0809/portfolio-tracker/internal/models"
	"github.com/mauv0809/portfolio-tracker/internal/views"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) GetUser(ctx context.Context, id int64) (models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockStore) UpdateUserEmail(ctx context.Context, userID int64, email string) error {
	return m.Called(ctx, userID, email).Error(0)
}

func (m *MockStore) AddAccount(ctx context.Context, userID int64, name string, typ models.AccountType) (int64, error) {
	args := m.Called(ctx, userID, name, typ)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetAccountsByUser(ctx context.Context, userID int64) ([]models.Account, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Account), args.Error(1)
}

func (m *MockStore) DeleteAccount(ctx context.Context, accountID int64) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *MockStore) AddAsset(ctx context.Context, accountID int64, ticker, name string, class models.AssetClass) (int64, error) {
	args := m.Called(ctx, accountID, ticker, name, class)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetAssetsByAccount(ctx context.Context, accountID int64) ([]models.Asset, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]models.Asset), args.Error(1)
}

func (m *MockStore) AddTransaction(ctx context.Context, tx models.Transaction) (int64, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) GetTransactionsByAsset(ctx context.Context, assetID int64) ([]models.Transaction, error) {
	args := m.Called(ctx, assetID)
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockStore) GetAssetClassBreakdown(ctx context.Context, userID int64) ([]models.AssetClassValue, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.AssetClassValue), args.Error(1)
}

func (m *MockStore) GetPortfolioSummary(ctx context.Context, userID int64) ([]models.Holding, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Holding), args.Error(1)
}

func (m *MockStore) GetPortfolioMetrics(ctx context.Context, userID int64) (models.PortfolioMetrics, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.PortfolioMetrics), args.Error(1)
}

var anyCtx = mock.Anything

func setupServer(t *testing.T) (*echo.Echo, *MockStore) {
	t.Helper()
	store := new(MockStore)
	t.Cleanup(func() { store.AssertExpectations(t) })

	h := New(store, 1, "USD", slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC) }

	e := echo.New()
	e.HTTPErrorHandler = h.ErrorHandler
	h.Register(e)
	return e, store
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postForm(e *echo.Echo, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// flashOf checks for a 303 and returns the redirect path, its query and the
// flash carried in the cookie.
func flashOf(t *testing.T, rec *httptest.ResponseRecorder) (path string, q url.Values, f views.Flash) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get(echo.HeaderLocation))
	require.NoError(t, err)
	assert.Empty(t, loc.Query().Get("flash"), "flash text must not travel in the URL")

	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie {
			decoded, ok := decodeFlash(c.Value)
			require.True(t, ok, "undecodable flash cookie %q", c.Value)
			return loc.Path, loc.Query(), decoded
		}
	}
	t.Fatalf("no %s cookie on redirect to %s", flashCookie, loc)
	return "", nil, views.Flash{}
}

func withFlash(req *http.Request, kind, message string) *http.Request {
	req.AddCookie(&http.Cookie{Name: flashCookie, Value: encodeFlash(views.Flash{Kind: kind, Message: message})})
	return req
}

func TestHealth(t *testing.T) {
	e, store := setupServer(t)
	store.On("Ping", anyCtx).Return(nil).Once()
	store.On("Ping", anyCtx).Return(errors.New("connection refused")).Once()

	rec := get(e, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = get(e, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDashboard(t *testing.T) {
	e, store := setupServer(t)
	store.On("GetUser", anyCtx, int64(1)).Return(models.User{ID: 1, Username: "JohnDoe", Email: "john.doe@example.com"}, nil)
	store.On("GetPortfolioSummary", anyCtx, int64(1)).Return([]models.Holding{
		{Ticker: "AAPL", Quantity: decimal.NewFromInt(6), CostBasis: decimal.NewFromInt(860)},
	}, nil)

	req := withFlash(httptest.NewRequest(http.MethodGet, "/", nil), views.FlashSuccess, "Email updated successfully!")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "$860.00")
	assert.Contains(t, body, "alert-success")
	assert.Contains(t, body, "Email updated successfully!")

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "flash cookie should be consumed")
}

func TestDashboard_IgnoresFlashInQuery(t *testing.T) {
	e, store := setupServer(t)
	store.On("GetUser", anyCtx, int64(1)).Return(models.User{ID: 1, Username: "JohnDoe"}, nil)
	store.On("GetPortfolioSummary", anyCtx, int64(1)).Return([]models.Holding{}, nil)

	rec := get(e, "/?flash=Your+account+is+locked&flash_kind=error")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Your account is locked")
	assert.NotContains(t, rec.Body.String(), "alert-error")
}

func TestDecodeFlash(t *testing.T) {
	f, ok := decodeFlash(encodeFlash(views.Flash{Kind: "bogus", Message: "  hello  "}))
	require.True(t, ok)
	assert.Equal(t, views.Flash{Kind: views.FlashInfo, Message: "hello"}, f)

	_, ok = decodeFlash("not base64 !")
	assert.False(t, ok)
	_, ok = decodeFlash(encodeFlash(views.Flash{Kind: views.FlashError, Message: " "}))
	assert.False(t, ok)
}

func TestDashboard_LoadFailureRendersErrorPage(t *testing.T) {
	e, store := setupServer(t)
	store.On("GetUser", anyCtx, int64(1)).Return(models.User{}, errors.New("dial tcp: connection refused"))

	rec := get(e, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Could not load your profile")
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}

func TestAssets_SelectsRequestedAccount(t *testing.T) {
	e, store := setupServer(t)
	store.On("GetAccountsByUser", anyCtx, int64(1)).Return([]models.Account{
		{ID: 1, UserID: 1, Name: "Vanguard", Type: models.AccountBrokerage},
		{ID: 2, UserID: 1, Name: "Coinbase", Type: models.AccountCryptoExchange},
	}, nil)
	store.On("GetAssetsByAccount", anyCtx, int64(2)).Return([]models.Asset{
		{ID: 5, AccountID: 2, Ticker: "BTC", Name: "Bitcoin", Class: models.ClassCrypto},
	}, nil)

	rec := get(e, "/assets?account_id=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<td>BTC</td>")
	assert.Contains(t, rec.Body.String(), `<option value="2" selected>`)
}

func TestAssets_NoAccounts(t *testing.T) {
	e, store := setupServer(t)
	store.On("GetAccountsByUser", anyCtx, int64(1)).Return([]models.Account{}, nil)

	rec := get(e, "/assets")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Add New Account")
	store.AssertNotCalled(t, "GetAssetsByAccount", anyCtx, mock.Anything)
}

func TestAddAccount(t *testing.T) {
	e, store := setupServer(t)
	store.On("AddAccount", anyCtx, int64(1), "Vanguard", models.AccountBrokerage).Return(int64(3), nil)

	rec := postForm(e, "/accounts", url.Values{"account_name": {" Vanguard "}, "account_type": {"Brokerage"}})
	path, q, f := flashOf(t, rec)
	assert.Equal(t, "/assets", path)
	assert.Equal(t, "3", q.Get("account_id"))
	assert.Equal(t, "success", f.Kind)
	assert.Equal(t, "Account 'Vanguard' added successfully!", f.Message)
}

func TestAddAccount_Validation(t *testing.T) {
	e, _ := setupServer(t)

	rec := postForm(e, "/accounts", url.Values{"account_name": {""}, "account_type": {"Savings"}})
	_, _, f := flashOf(t, rec)
	assert.Equal(t, "error", f.Kind)
	assert.Contains(t, f.Message, "Account Name is required")
	assert.Contains(t, f.Message, "Account Type has an invalid value")
}

func TestAddAsset(t *testing.T) {
	e, store := setupServer(t)
	store.On("AddAsset", anyCtx, int64(3), "AAPL", "Apple Inc.", models.ClassEquities).Return(int64(9), nil)

	rec := postForm(e, "/accounts/3/assets", url.Values{
		"ticker": {"aapl"}, "asset_name": {"Apple Inc."}, "asset_class": {"Equities"},
	})
	path, q, f := flashOf(t, rec)
	assert.Equal(t, "/assets", path)
	assert.Equal(t, "3", q.Get("account_id"))
	assert.Equal(t, "Asset 'AAPL' added to account!", f.Message)
}

func TestAddAsset_MissingAccount(t *testing.T) {
	e, store := setupServer(t)
	store.On("AddAsset", anyCtx, int64(99), "AAPL", "Apple Inc.", models.ClassEquities).
		Return(int64(0), fmt.Errorf("adding asset: %w", db.ErrInvalidReference))

	rec := postForm(e, "/accounts/99/assets", url.Values{
		"ticker": {"AAPL"}, "asset_name": {"Apple Inc."}, "asset_class": {"Equities"},
	})
	_, _, f := flashOf(t, rec)
	assert.Equal(t, "error", f.Kind)
	assert.Contains(t, f.Message, "no longer exists")
}

func TestAddAsset_BadID(t *testing.T) {
	e, _ := setupServer(t)

	rec := postForm(e, "/accounts/abc/assets", url.Values{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteAccount(t *testing.T) {
	e, store := setupServer(t)
	store.On("DeleteAccount", anyCtx, int64(3)).Return(nil).Once()
	store.On("DeleteAccount", anyCtx, int64(4)).Return(fmt.Errorf("deleting account 4: %w", db.ErrNotFound)).Once()

	_, _, f := flashOf(t, postForm(e, "/accounts/3/delete", nil))
	assert.Equal(t, "success", f.Kind)

	_, _, f = flashOf(t, postForm(e, "/accounts/4/delete", nil))
	assert.Equal(t, "error", f.Kind)
	assert.Contains(t, f.Message, "record not found")
}

func TestTransactions(t *testing.T) {
	e, store := setupServer(t)
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store.On("GetAccountsByUser", anyCtx, int64(1)).Return([]models.Account{{ID: 1, Name: "Vanguard"}}, nil)
	store.On("GetAssetsByAccount", anyCtx, int64(1)).Return([]models.Asset{
		{ID: 9, AccountID: 1, Ticker: "AAPL"},
		{ID: 10, AccountID: 1, Ticker: "MSFT"},
	}, nil)
	store.On("GetTransactionsByAsset", anyCtx, int64(10)).Return([]models.Transaction{
		models.NewTransaction(10, models.TransactionBuy, date, decimal.NewFromInt(2), decimal.NewFromInt(300)),
	}, nil)

	rec := get(e, "/transactions?account_id=1&asset_id=10")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "$600.00")
	assert.Contains(t, body, `value="2024-06-30"`)
	assert.Contains(t, body, `action="/assets/10/transactions"`)
}

func TestTransactions_NoAssets(t *testing.T) {
	e, store := setupServer(t)
	store.On("GetAccountsByUser", anyCtx, int64(1)).Return([]models.Account{{ID: 1, Name: "Vanguard"}}, nil)
	store.On("GetAssetsByAccount", anyCtx, int64(1)).Return([]models.Asset{}, nil)

	rec := get(e, "/transactions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please add an asset to the selected account first.")
}

func TestAddTransaction_ComputesTotal(t *testing.T) {
	e, store := setupServer(t)
	store.On("AddTransaction", anyCtx, mock.MatchedBy(func(tx models.Transaction) bool {
		return tx.AssetID == 9 &&
			tx.Type == models.TransactionSell &&
			tx.Date.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) &&
			tx.TotalAmount.Equal(decimal.NewFromInt(640))
	})).Return(int64(12), nil)

	rec := postForm(e, "/assets/9/transactions", url.Values{
		"account_id":       {"1"},
		"transaction_type": {"sell"},
		"transaction_date": {"2024-06-01"},
		"quantity":         {"4"},
		"price_per_unit":   {"160"},
	})
	path, q, f := flashOf(t, rec)
	assert.Equal(t, "/transactions", path)
	assert.Equal(t, "1", q.Get("account_id"))
	assert.Equal(t, "9", q.Get("asset_id"))
	assert.Equal(t, "Sell transaction logged.", f.Message)
}

func TestAddTransaction_RejectsBelowMinimum(t *testing.T) {
	e, _ := setupServer(t)

	rec := postForm(e, "/assets/9/transactions", url.Values{
		"transaction_type": {"buy"},
		"transaction_date": {"2024-06-01"},
		"quantity":         {"0"},
		"price_per_unit":   {"abc"},
	})
	_, _, f := flashOf(t, rec)
	assert.Equal(t, "error", f.Kind)
	assert.Contains(t, f.Message, "Quantity must be a number of at least 0.01")
	assert.Contains(t, f.Message, "Price per Unit must be a number of at least 0.01")
}

func TestUpdateEmail(t *testing.T) {
	e, store := setupServer(t)
	store.On("UpdateUserEmail", anyCtx, int64(1), "new@example.com").Return(nil).Once()
	store.On("UpdateUserEmail", anyCtx, int64(1), "taken@example.com").
		Return(fmt.Errorf("updating user email: %w", db.ErrConflict)).Once()

	_, _, f := flashOf(t, postForm(e, "/profile/email", url.Values{"email": {"new@example.com"}}))
	assert.Equal(t, "success", f.Kind)

	_, _, f = flashOf(t, postForm(e, "/profile/email", url.Values{"email": {"taken@example.com"}}))
	assert.Equal(t, "error", f.Kind)
	assert.Contains(t, f.Message, "already in use")

	_, _, f = flashOf(t, postForm(e, "/profile/email", url.Values{"email": {"not-an-email"}}))
	assert.Contains(t, f.Message, "Email must be a valid email address")
}

func TestInsights(t *testing.T) {
	e, store := setupServer(t)
	store.On("GetPortfolioMetrics", anyCtx, int64(1)).Return(models.PortfolioMetrics{
		NumAssets:        1,
		TotalInvestment:  decimal.NullDecimal{Decimal: decimal.NewFromInt(1500), Valid: true},
		AvgPurchasePrice: decimal.NullDecimal{Decimal: decimal.NewFromInt(150), Valid: true},
	}, nil)
	store.On("GetAssetClassBreakdown", anyCtx, int64(1)).Return([]models.AssetClassValue{
		{Class: models.ClassEquities, TotalValue: decimal.NewFromInt(1500)},
	}, nil)

	rec := get(e, "/insights")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "1 Tickers")
	assert.Contains(t, rec.Body.String(), "bar-chart")
}

func TestReport(t *testing.T) {
	e, store := setupServer(t)
	store.On("GetPortfolioMetrics", anyCtx, int64(1)).Return(models.PortfolioMetrics{}, nil)
	store.On("GetPortfolioSummary", anyCtx, int64(1)).Return([]models.Holding{
		{Ticker: "AAPL", Quantity: decimal.NewFromInt(6), CostBasis: decimal.NewFromInt(860)},
	}, nil)
	store.On("GetAssetClassBreakdown", anyCtx, int64(1)).Return([]models.AssetClassValue{}, nil)

	rec := get(e, "/insights/report")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Portfolio Report</h1>")
	assert.Contains(t, rec.Body.String(), "<td>AAPL</td>")
}

func TestAPISummary(t *testing.T) {
	e, store := setupServer(t)
	store.On("GetPortfolioSummary", anyCtx, int64(1)).Return([]models.Holding{
		{Ticker: "AAPL", Quantity: decimal.NewFromInt(6), CostBasis: decimal.NewFromInt(860)},
	}, nil)

	rec := get(e, "/api/insights/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body SummaryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Holdings, 1)
	assert.True(t, body.Holdings[0].Quantity.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, "860", body.TotalCostBasis)
}

func TestAPIBreakdown_ErrorIsJSON(t *testing.T) {
	e, store := setupServer(t)
	store.On("GetAssetClassBreakdown", anyCtx, int64(1)).Return([]models.AssetClassValue(nil), errors.New("timeout"))

	rec := get(e, "/api/insights/breakdown")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
	assert.Contains(t, rec.Body.String(), `"status":500`)
}

func TestAPIMetrics(t *testing.T) {
	e, store := setupServer(t)
	store.On("GetPortfolioMetrics", anyCtx, int64(1)).Return(models.PortfolioMetrics{}, nil)

	rec := get(e, "/api/insights/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"num_assets":0`)
	assert.Contains(t, rec.Body.String(), `"first_transaction":null`)
}

func TestUnknownRouteRendersErrorPage(t *testing.T) {
	e, _ := setupServer(t)

	rec := get(e, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong (404)")
}
