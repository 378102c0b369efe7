package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cryptofolio/api/internal/config"
	handler "github.com/cryptofolio/api/internal/handler/http"
	"github.com/cryptofolio/api/internal/models"
	"github.com/cryptofolio/api/internal/repository"
	"github.com/cryptofolio/api/internal/service"
	"github.com/cryptofolio/api/lib/errs"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

type stubPricing struct {
	prices map[string]decimal.Decimal
	calls  int
}

func (s *stubPricing) GetPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.calls++
	price, ok := s.prices[symbol]
	if !ok {
		return decimal.Zero, errs.ErrPriceUnavailable
	}
	return price, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *stubPricing) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Portfolio{}, &models.Asset{}, &models.Transaction{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	pricing := &stubPricing{prices: map[string]decimal.Decimal{
		"BTC": decimal.NewFromInt(100),
	}}

	usersService := service.NewUsersService(db, config.SecConfig{
		JWTSecret:      testJWTSecret,
		AccessTokenTTL: time.Minute,
	})
	tradeService := service.NewTradeService(db, pricing)
	portfoliosService := service.NewPortfoliosService(
		repository.NewPortfoliosRepository(db),
		repository.NewTransactionsRepository(db),
		pricing,
	)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	handler.NewHandler(usersService, tradeService, portfoliosService, log, testJWTSecret).RegisterRoutes(router)

	return router, pricing
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// registerAndLogin creates a fresh user and returns its access token.
func registerAndLogin(t *testing.T, router *gin.Engine) string {
	t.Helper()

	creds := gin.H{
		"username": "user_" + uuid.NewString()[:8],
		"password": "s3cret-pass",
	}

	if w := doJSON(t, router, http.MethodPost, "/auth/register", "", creds); w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201 on register, got %d: %s", w.Code, w.Body)
	}

	w := doJSON(t, router, http.MethodPost, "/auth/login", "", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on login, got %d: %s", w.Code, w.Body)
	}

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("Expected a non-empty access token")
	}
	if resp.TokenType != "bearer" {
		t.Errorf("Expected token type bearer, got %q", resp.TokenType)
	}

	return resp.AccessToken
}

func TestAuth(t *testing.T) {
	router, _ := setupRouter(t)

	t.Run("register_and_login", func(t *testing.T) {
		registerAndLogin(t, router)
	})

	t.Run("duplicate_username", func(t *testing.T) {
		creds := gin.H{"username": "dup_" + uuid.NewString()[:8], "password": "s3cret-pass"}

		if w := doJSON(t, router, http.MethodPost, "/auth/register", "", creds); w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d", w.Code)
		}
		if w := doJSON(t, router, http.MethodPost, "/auth/register", "", creds); w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for a taken username, got %d", w.Code)
		}
	})

	t.Run("wrong_password", func(t *testing.T) {
		username := "user_" + uuid.NewString()[:8]
		creds := gin.H{"username": username, "password": "s3cret-pass"}

		if w := doJSON(t, router, http.MethodPost, "/auth/register", "", creds); w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %d", w.Code)
		}

		w := doJSON(t, router, http.MethodPost, "/auth/login", "", gin.H{"username": username, "password": "wrong"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for a wrong password, got %d", w.Code)
		}
	})

	t.Run("missing_fields", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/auth/register", "", gin.H{"username": "lonely"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 for missing password, got %d", w.Code)
		}
	})
}

func TestAuthorization(t *testing.T) {
	router, _ := setupRouter(t)

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/portfolio/"},
		{http.MethodGet, "/portfolio/transactions"},
		{http.MethodPost, "/trade/add-money"},
		{http.MethodPost, "/trade/buy"},
	}

	t.Run("no_token", func(t *testing.T) {
		for _, route := range protected {
			w := doJSON(t, router, route.method, route.path, "", nil)
			if w.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401 for %s %s, got %d", route.method, route.path, w.Code)
			}
		}
	})

	t.Run("garbage_token", func(t *testing.T) {
		w := doJSON(t, router, http.MethodGet, "/portfolio/", "not-a-jwt", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401 for a malformed token, got %d", w.Code)
		}
	})
}

func TestTradeValidation(t *testing.T) {
	router, pricing := setupRouter(t)
	token := registerAndLogin(t, router)

	t.Run("unsupported_symbol", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/trade/buy", token, gin.H{"symbol": "FAKE", "quantity": "1"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body)
		}
		if pricing.calls != 0 {
			t.Errorf("Expected no price lookups for a rejected symbol, got %d", pricing.calls)
		}
	})

	t.Run("zero_quantity", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/trade/sell", token, gin.H{"symbol": "BTC", "quantity": "0"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body)
		}
		if pricing.calls != 0 {
			t.Errorf("Expected no price lookups for a rejected quantity, got %d", pricing.calls)
		}
	})

	t.Run("missing_symbol", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/trade/buy", token, gin.H{"quantity": "1"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body)
		}
	})
}

func TestTradeFlow(t *testing.T) {
	router, _ := setupRouter(t)
	token := registerAndLogin(t, router)

	if w := doJSON(t, router, http.MethodPost, "/trade/add-money", token, gin.H{"amount": "1000"}); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on add-money, got %d: %s", w.Code, w.Body)
	}

	// 2 BTC at the stubbed 100 USD
	if w := doJSON(t, router, http.MethodPost, "/trade/buy", token, gin.H{"symbol": "BTC", "quantity": "2"}); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on buy, got %d: %s", w.Code, w.Body)
	}

	w := doJSON(t, router, http.MethodGet, "/portfolio/", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on portfolio, got %d: %s", w.Code, w.Body)
	}

	var report struct {
		TotalAddedMoney decimal.Decimal `json:"total_added_money"`
		AvailableMoney  decimal.Decimal `json:"available_money"`
		TotalValue      decimal.Decimal `json:"total_value"`
		Assets          []struct {
			Symbol   string          `json:"symbol"`
			Quantity decimal.Decimal `json:"quantity"`
		} `json:"assets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}

	// a buy debits the deposit total and leaves the balance untouched
	if !report.TotalAddedMoney.Equal(decimal.NewFromInt(800)) {
		t.Errorf("Expected total added money 800, got %s", report.TotalAddedMoney)
	}
	if !report.AvailableMoney.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("Expected available money 1000, got %s", report.AvailableMoney)
	}
	if !report.TotalValue.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("Expected total value 1200, got %s", report.TotalValue)
	}
	if len(report.Assets) != 1 || report.Assets[0].Symbol != "BTC" {
		t.Fatalf("Expected a single BTC position, got %+v", report.Assets)
	}
	if !report.Assets[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected quantity 2, got %s", report.Assets[0].Quantity)
	}

	w = doJSON(t, router, http.MethodGet, "/portfolio/transactions", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on transactions, got %d: %s", w.Code, w.Body)
	}

	var transactions []struct {
		Symbol   string          `json:"symbol"`
		Quantity decimal.Decimal `json:"quantity"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &transactions); err != nil {
		t.Fatalf("failed to decode transactions: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(transactions))
	}
	if transactions[0].Symbol != "BTC" || !transactions[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Unexpected transaction: %+v", transactions[0])
	}

	if w := doJSON(t, router, http.MethodPost, "/trade/sell", token, gin.H{"symbol": "BTC", "quantity": "2"}); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on sell, got %d: %s", w.Code, w.Body)
	}

	if w := doJSON(t, router, http.MethodPost, "/trade/withdraw-money", token, gin.H{"amount": "1200"}); w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 on withdraw, got %d: %s", w.Code, w.Body)
	}
}

func TestTradeErrors(t *testing.T) {
	router, pricing := setupRouter(t)
	token := registerAndLogin(t, router)

	t.Run("insufficient_funds", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/trade/buy", token, gin.H{"symbol": "BTC", "quantity": "1"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body)
		}
	})

	t.Run("nothing_to_sell", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPost, "/trade/sell", token, gin.H{"symbol": "BTC", "quantity": "1"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body)
		}
	})

	t.Run("price_unavailable", func(t *testing.T) {
		if w := doJSON(t, router, http.MethodPost, "/trade/add-money", token, gin.H{"amount": "1000"}); w.Code != http.StatusOK {
			t.Fatalf("Expected status 200 on add-money, got %d", w.Code)
		}

		delete(pricing.prices, "BTC")
		w := doJSON(t, router, http.MethodPost, "/trade/buy", token, gin.H{"symbol": "BTC", "quantity": "1"})
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d: %s", w.Code, w.Body)
		}
	})
}
