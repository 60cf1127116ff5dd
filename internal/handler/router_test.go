package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hugobelem/depoc/internal/events"
	"github.com/hugobelem/depoc/internal/repository/memory"
	"github.com/hugobelem/depoc/internal/service"
	"github.com/hugobelem/depoc/pkg/middleware"
)

const business = "biz-1"

type apiClient struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()

	store := memory.New()
	logger := zap.NewNop()
	publisher := events.NopPublisher{}

	obligations := service.NewObligationService(store, service.NewMemoryIdempotencyCache(), publisher, logger)
	router := NewRouter(Services{
		Obligations: obligations,
		Ledger:      service.NewLedgerService(store, obligations, publisher, logger),
		Accounts:    service.NewAccountService(store, logger),
		Sweeper:     service.NewSweeper(store, service.NewLocalLocker(), time.Minute, logger),
	}, logger)

	return &apiClient{t: t, router: router}
}

func (a *apiClient) do(method, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	a.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.TenantHeader, business)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var result map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &result), rec.Body.String())
	}
	return rec.Code, result
}

func (a *apiClient) createAccount(name string) string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/v1/accounts", map[string]interface{}{"name": name, "kind": "bank"}, nil)
	require.Equal(a.t, http.StatusCreated, status, body)
	return body["id"].(string)
}

func (a *apiClient) createPayable(total interface{}) string {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/api/v1/obligations", map[string]interface{}{
		"counterparty_id": "supplier-1",
		"due_date":        "2025-10-10",
		"total_amount":    total,
		"direction":       "payable",
	}, nil)
	require.Equal(a.t, http.StatusCreated, status, body)
	return body["id"].(string)
}

func TestHealth(t *testing.T) {
	api := newAPI(t)

	status, body := api.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestTenantHeaderRequired(t *testing.T) {
	api := newAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/obligations", nil)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInstallmentsThenPatchTotal(t *testing.T) {
	api := newAPI(t)

	status, body := api.do(http.MethodPost, "/api/v1/obligations", map[string]interface{}{
		"counterparty_id":  "supplier-1",
		"due_date":         "2025-10-15",
		"total_amount":     1000,
		"direction":        "payable",
		"recurrence":       "installments",
		"installments":     5,
		"due_day_of_month": 1,
	}, nil)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "1000.00", body["outstanding_balance"])
	assert.Equal(t, "once", body["recurrence"])
	assert.Len(t, body["series"], 4)

	id := body["id"].(string)
	status, body = api.do(http.MethodPatch, "/api/v1/obligations/"+id, map[string]interface{}{"total_amount": 50}, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "50.00", body["outstanding_balance"])

	status, body = api.do(http.MethodGet, "/api/v1/obligations?status=pending", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["obligations"], 5)
}

func TestSettlementFlow(t *testing.T) {
	api := newAPI(t)
	account := api.createAccount("Checking")
	obligation := api.createPayable("100")

	status, body := api.do(http.MethodPost, "/api/v1/entries", map[string]interface{}{
		"account_id":    account,
		"type":          "debit",
		"amount":        "25",
		"obligation_id": obligation,
	}, nil)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "-25.00", body["amount"])

	status, body = api.do(http.MethodGet, "/api/v1/obligations/"+obligation, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "partially_paid", body["status"])
	assert.Equal(t, "25.00", body["amount_paid"])
	assert.Equal(t, "75.00", body["outstanding_balance"])

	status, body = api.do(http.MethodGet, "/api/v1/obligations/"+obligation+"/entries", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["entries"], 1)

	status, body = api.do(http.MethodDelete, "/api/v1/obligations/"+obligation, nil, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "associated financial transactions")
}

func TestMalformedAmountIsUnprocessable(t *testing.T) {
	api := newAPI(t)
	account := api.createAccount("Checking")

	status, body := api.do(http.MethodPost, "/api/v1/entries", map[string]interface{}{
		"account_id": account,
		"type":       "credit",
		"amount":     "12,50",
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "amount", body["field"])
}

func TestValidationErrorIsBadRequest(t *testing.T) {
	api := newAPI(t)

	status, body := api.do(http.MethodPost, "/api/v1/obligations", map[string]interface{}{
		"counterparty_id": "supplier-1",
		"due_date":        "2025-10-15",
		"total_amount":    "100",
		"direction":       "payable",
		"recurrence":      "weekly",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "weekday", body["field"])
}

func TestTransferFlow(t *testing.T) {
	api := newAPI(t)
	a := api.createAccount("A")
	b := api.createAccount("B")

	status, body := api.do(http.MethodPost, "/api/v1/transfers", map[string]interface{}{
		"from_account_id": a,
		"to_account_id":   b,
		"amount":          15,
	}, nil)
	require.Equal(t, http.StatusCreated, status, body)

	source := body["source"].(map[string]interface{})
	destination := body["destination"].(map[string]interface{})
	assert.Equal(t, destination["id"], source["linked_id"])
	assert.Equal(t, source["id"], destination["linked_id"])

	_, body = api.do(http.MethodGet, "/api/v1/accounts/"+a, nil, nil)
	assert.Equal(t, "-15.00", body["balance"])
	_, body = api.do(http.MethodGet, "/api/v1/accounts/"+b, nil, nil)
	assert.Equal(t, "15.00", body["balance"])

	status, body = api.do(http.MethodGet, "/api/v1/accounts/"+a+"/reconcile", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["is_balanced"])

	status, _ = api.do(http.MethodPost, "/api/v1/transfers", map[string]interface{}{
		"from_account_id": a,
		"to_account_id":   a,
		"amount":          15,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIdempotentCreate(t *testing.T) {
	api := newAPI(t)
	payload := map[string]interface{}{
		"counterparty_id": "customer-1",
		"due_date":        "2025-12-01",
		"total_amount":    "80.00",
		"direction":       "receivable",
	}
	headers := map[string]string{IdempotencyKeyHeader: "retry-1"}

	_, first := api.do(http.MethodPost, "/api/v1/obligations", payload, headers)
	_, second := api.do(http.MethodPost, "/api/v1/obligations", payload, headers)
	assert.Equal(t, first["id"], second["id"])

	_, body := api.do(http.MethodGet, "/api/v1/obligations", nil, nil)
	assert.Len(t, body["obligations"], 1)
}

func TestManualSweepAndNotFound(t *testing.T) {
	api := newAPI(t)
	api.createPayable("100")

	status, body := api.do(http.MethodPost, "/api/v1/sweeps/overdue", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["marked"])

	status, _ = api.do(http.MethodGet, "/api/v1/obligations/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
