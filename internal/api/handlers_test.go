package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chargenet/topup-service/internal/app"
	"github.com/chargenet/topup-service/internal/domain"
	"github.com/chargenet/topup-service/internal/fieldcrypt"
	"github.com/chargenet/topup-service/internal/store"
	"github.com/golang-jwt/jwt/v5"
)

const testAccessSecret = "handler-test-secret"

// stubRepository is a canned-response Repository for handler tests.
type stubRepository struct {
	account      *domain.DriverAccount
	accountErr   error
	creditResult *domain.TopupResult
	voidResult   *domain.VoidResult
	entries      []domain.TopupLogEntry
}

func (s *stubRepository) FindAccountByIdentifier(ctx context.Context, identifier, encryptedIdentifier string) (*domain.DriverAccount, error) {
	if s.accountErr != nil {
		return nil, s.accountErr
	}
	return s.account, nil
}

func (s *stubRepository) CreditTopup(ctx context.Context, identifier, encryptedIdentifier string, amount int64, paymentType string) (*domain.TopupResult, error) {
	return s.creditResult, nil
}

func (s *stubRepository) FindVoidableTopupsByUserID(ctx context.Context, userID int64, asOf time.Time) ([]domain.TopupLogEntry, error) {
	return s.entries, nil
}

func (s *stubRepository) VoidTopup(ctx context.Context, referenceNumber string) (*domain.VoidResult, error) {
	return s.voidResult, nil
}

func newTestServer(t *testing.T, repo store.Repository) *httptest.Server {
	t.Helper()
	codec, err := fieldcrypt.New("handler-test-key")
	if err != nil {
		t.Fatalf("fieldcrypt.New returned error: %v", err)
	}
	service := app.NewService(repo, codec, nil, 27)
	handlers := NewTopupHandlers(service)
	server := httptest.NewServer(TopupRoutes(handlers, testAccessSecret))
	t.Cleanup(server.Close)
	return server
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func operatorToken(t *testing.T) string {
	return signToken(t, jwt.MapClaims{
		"sub":  "operator-1",
		"role": RoleCPOOwner,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
}

func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) (int, json.RawMessage, string) {
	t.Helper()
	defer resp.Body.Close()
	var body struct {
		Status  int             `json:"status"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return body.Status, body.Data, body.Message
}

func TestAuthRejectsMissingToken(t *testing.T) {
	server := newTestServer(t, &stubRepository{})

	resp := doRequest(t, http.MethodGet, server.URL+"/topup/verify/RFID123", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	status, _, _ := decodeEnvelope(t, resp)
	if status != http.StatusUnauthorized {
		t.Fatalf("envelope status mismatch: %d", status)
	}
}

func TestAuthRejectsWrongRole(t *testing.T) {
	server := newTestServer(t, &stubRepository{})

	token := signToken(t, jwt.MapClaims{
		"sub":  "operator-1",
		"role": "DRIVER",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	resp := doRequest(t, http.MethodGet, server.URL+"/topup/verify/RFID123", token, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	server := newTestServer(t, &stubRepository{})

	token := signToken(t, jwt.MapClaims{
		"sub":  "operator-1",
		"role": RoleCPOOwner,
		"exp":  time.Now().Add(-time.Hour).Unix(),
	})
	resp := doRequest(t, http.MethodGet, server.URL+"/topup/verify/RFID123", token, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestVerifyTopupReturnsDecryptedAccount(t *testing.T) {
	codec, err := fieldcrypt.New("handler-test-key")
	if err != nil {
		t.Fatalf("fieldcrypt.New returned error: %v", err)
	}
	repo := &stubRepository{
		account: &domain.DriverAccount{
			ID:           5,
			Username:     "jdcruz",
			RFID:         "RFID123",
			Name:         codec.Encrypt("Juan Dela Cruz"),
			MobileNumber: codec.Encrypt("09171234567"),
		},
	}
	server := newTestServer(t, repo)

	resp := doRequest(t, http.MethodGet, server.URL+"/topup/verify/RFID123", operatorToken(t), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	_, data, message := decodeEnvelope(t, resp)
	if message != "Success" {
		t.Fatalf("expected Success message, got %q", message)
	}

	var account domain.DriverAccount
	if err := json.Unmarshal(data, &account); err != nil {
		t.Fatalf("failed to decode account: %v", err)
	}
	if account.Name != "Juan Dela Cruz" || account.Username != "jdcruz" {
		t.Fatalf("unexpected account payload: %+v", account)
	}
}

func TestVerifyTopupAccountNotFound(t *testing.T) {
	server := newTestServer(t, &stubRepository{accountErr: store.ErrAccountNotFound})

	resp := doRequest(t, http.MethodGet, server.URL+"/topup/verify/UNKNOWN", operatorToken(t), "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	_, data, message := decodeEnvelope(t, resp)
	if message != domain.StatusAccountNotFound {
		t.Fatalf("expected ACCOUNT_NOT_FOUND message, got %q", message)
	}
	if string(data) != "[]" {
		t.Fatalf("error envelope data must be an empty array, got %s", data)
	}
}

func TestTopupSuccessReturnsResult(t *testing.T) {
	repo := &stubRepository{
		creditResult: &domain.TopupResult{Status: domain.StatusSuccess, NewBalance: 177},
	}
	server := newTestServer(t, repo)

	resp := doRequest(t, http.MethodPost, server.URL+"/topup/RFID123", operatorToken(t),
		`{"amount": 50, "payment_type": "CARD"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	_, data, _ := decodeEnvelope(t, resp)

	var result domain.TopupResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if result.Status != domain.StatusSuccess || result.NewBalance != 177 {
		t.Fatalf("unexpected result payload: %+v", result)
	}
}

func TestTopupBusinessRejectionReturnsBareToken(t *testing.T) {
	repo := &stubRepository{
		creditResult: &domain.TopupResult{Status: domain.StatusAccountNotFound},
	}
	server := newTestServer(t, repo)

	resp := doRequest(t, http.MethodPost, server.URL+"/topup/UNKNOWN", operatorToken(t),
		`{"amount": 50, "payment_type": "CARD"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	_, data, _ := decodeEnvelope(t, resp)

	var token string
	if err := json.Unmarshal(data, &token); err != nil {
		t.Fatalf("expected bare token string in data, got %s", data)
	}
	if token != domain.StatusAccountNotFound {
		t.Fatalf("expected ACCOUNT_NOT_FOUND token, got %q", token)
	}
}

func TestTopupValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "amount below minimum", body: `{"amount": 26, "payment_type": "CARD"}`},
		{name: "unknown payment type", body: `{"amount": 50, "payment_type": "CASH"}`},
		{name: "malformed json", body: `{"amount": `},
	}

	server := newTestServer(t, &stubRepository{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, http.MethodPost, server.URL+"/topup/RFID123", operatorToken(t), tt.body)
			if resp.StatusCode != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", resp.StatusCode)
			}
			resp.Body.Close()
		})
	}
}

func TestGetTopupsRejectsMalformedDateTime(t *testing.T) {
	server := newTestServer(t, &stubRepository{})

	resp := doRequest(t, http.MethodGet, server.URL+"/topup/5", operatorToken(t),
		`{"current_datetime": "29-08-2026"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGetTopupsReturnsEntries(t *testing.T) {
	repo := &stubRepository{
		entries: []domain.TopupLogEntry{
			{ID: 3, UserID: 5, Amount: 50, ReferenceNumber: "ref-1"},
		},
	}
	server := newTestServer(t, repo)

	resp := doRequest(t, http.MethodGet, server.URL+"/topup/5", operatorToken(t),
		`{"current_datetime": "2026-08-29 10:00:00"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	_, data, _ := decodeEnvelope(t, resp)

	var entries []domain.TopupLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("failed to decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ReferenceNumber != "ref-1" {
		t.Fatalf("unexpected entries payload: %+v", entries)
	}
}

func TestVoidTopupResponses(t *testing.T) {
	t.Run("success returns result", func(t *testing.T) {
		repo := &stubRepository{
			voidResult: &domain.VoidResult{Status: domain.StatusSuccess, ReferenceNumber: "ref-1", CurrentBalance: 100},
		}
		server := newTestServer(t, repo)

		resp := doRequest(t, http.MethodPost, server.URL+"/topup/void/ref-1", operatorToken(t), "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		_, data, _ := decodeEnvelope(t, resp)

		var result domain.VoidResult
		if err := json.Unmarshal(data, &result); err != nil {
			t.Fatalf("failed to decode result: %v", err)
		}
		if result.Status != domain.StatusSuccess || result.CurrentBalance != 100 {
			t.Fatalf("unexpected result payload: %+v", result)
		}
	})

	t.Run("expired returns bare token", func(t *testing.T) {
		repo := &stubRepository{
			voidResult: &domain.VoidResult{Status: domain.StatusExpired},
		}
		server := newTestServer(t, repo)

		resp := doRequest(t, http.MethodPost, server.URL+"/topup/void/ref-1", operatorToken(t), "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		_, data, _ := decodeEnvelope(t, resp)

		var token string
		if err := json.Unmarshal(data, &token); err != nil {
			t.Fatalf("expected bare token string in data, got %s", data)
		}
		if token != domain.StatusExpired {
			t.Fatalf("expected EXPIRED token, got %q", token)
		}
	})
}
