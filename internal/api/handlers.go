/**
 * @description
 * This file contains the HTTP handlers for the merchant top-up API endpoints.
 * Handlers parse incoming requests, call the application service, and write
 * the response envelope. They act as the bridge between the web layer and the
 * business logic layer.
 *
 * Every response uses the same envelope shape: {"status": <http status>,
 * "data": <payload>, "message": <human text>}. Error envelopes carry an empty
 * array in data. Business status tokens such as ACCOUNT_NOT_FOUND or EXPIRED
 * returned by the top-up engine travel inside data with HTTP 200 since the
 * request itself was processed.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/chargenet/topup-service/internal/app"
	"github.com/chargenet/topup-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

// listDateTimeLayout is the wire format of the caller-supplied clock used to
// filter voidable top-ups.
const listDateTimeLayout = "2006-01-02 15:04:05"

// envelope is the common response wrapper for every endpoint.
type envelope struct {
	Status  int         `json:"status"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// TopupHandlers holds the application service that handlers will use.
type TopupHandlers struct {
	service *app.Service
}

// NewTopupHandlers creates a new instance of TopupHandlers.
func NewTopupHandlers(service *app.Service) *TopupHandlers {
	return &TopupHandlers{service: service}
}

// VerifyTopupHandler resolves a driver account by RFID card tag or mobile
// number so the merchant can confirm who they are about to credit.
func (h *TopupHandlers) VerifyTopupHandler(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	if identifier == "" {
		writeErrorEnvelope(w, http.StatusBadRequest, "Identifier is required")
		return
	}

	account, err := h.service.VerifyTopupByIdentifier(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, app.ErrAccountNotFound) {
			writeErrorEnvelope(w, http.StatusBadRequest, domain.StatusAccountNotFound)
			return
		}
		log.Printf("level=error component=api endpoint=verify_topup outcome=failed err=%v", err)
		writeErrorEnvelope(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeEnvelope(w, http.StatusOK, account, "Success")
}

// TopupHandler credits a driver account and records the ledger entry.
func (h *TopupHandlers) TopupHandler(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := GetOperatorID(r.Context())
	if !ok {
		writeErrorEnvelope(w, http.StatusInternalServerError, "Could not get operator ID from context")
		return
	}

	identifier := chi.URLParam(r, "identifier")
	if identifier == "" {
		writeErrorEnvelope(w, http.StatusUnprocessableEntity, "Identifier is required")
		return
	}

	var req domain.TopupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=topup outcome=reject reason=invalid_json err=%v", err)
		writeErrorEnvelope(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	result, err := h.service.Topup(r.Context(), operatorID, identifier, req.Amount, req.PaymentType)
	if err != nil {
		var rateErr *app.RateLimitError
		switch {
		case errors.As(err, &rateErr):
			w.Header().Set("Retry-After", strconv.Itoa(rateErr.RetryAfterSeconds))
			writeErrorEnvelope(w, http.StatusTooManyRequests, "Too many top-up requests")
		case errors.Is(err, app.ErrInvalidTopupAmount), errors.Is(err, app.ErrInvalidPaymentType):
			writeErrorEnvelope(w, http.StatusUnprocessableEntity, err.Error())
		default:
			log.Printf("level=error component=api endpoint=topup outcome=failed operator_id=%s err=%v", operatorID, err)
			writeErrorEnvelope(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	// Business rejections ride in data as the bare status token so merchant
	// terminals can branch on it without unwrapping a struct.
	if result.Status != domain.StatusSuccess {
		writeEnvelope(w, http.StatusOK, result.Status, "Success")
		return
	}

	writeEnvelope(w, http.StatusOK, result, "Success")
}

// GetTopupsHandler lists a driver's top-ups that are still inside the void
// window as of the terminal-supplied clock.
func (h *TopupHandlers) GetTopupsHandler(w http.ResponseWriter, r *http.Request) {
	userIDParam := chi.URLParam(r, "userID")
	userID, err := strconv.ParseInt(userIDParam, 10, 64)
	if err != nil {
		writeErrorEnvelope(w, http.StatusUnprocessableEntity, "Invalid user ID")
		return
	}

	var req domain.TopupListRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=list_topups outcome=reject reason=invalid_json err=%v", err)
		writeErrorEnvelope(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}

	asOf, err := time.Parse(listDateTimeLayout, req.CurrentDateTime)
	if err != nil {
		writeErrorEnvelope(w, http.StatusUnprocessableEntity, "Invalid current_datetime format, expected YYYY-MM-DD HH:MM:SS")
		return
	}

	entries, err := h.service.GetTopupsByUserID(r.Context(), userID, asOf)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_topups outcome=failed user_id=%d err=%v", userID, err)
		writeErrorEnvelope(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeEnvelope(w, http.StatusOK, entries, "Success")
}

// VoidTopupHandler reverses a top-up identified by its reference number.
func (h *TopupHandlers) VoidTopupHandler(w http.ResponseWriter, r *http.Request) {
	referenceNumber := chi.URLParam(r, "referenceNumber")
	if referenceNumber == "" {
		writeErrorEnvelope(w, http.StatusUnprocessableEntity, "Reference number is required")
		return
	}

	result, err := h.service.VoidTopupByReferenceNumber(r.Context(), referenceNumber)
	if err != nil {
		log.Printf("level=error component=api endpoint=void_topup outcome=failed reference_number=%s err=%v", referenceNumber, err)
		writeErrorEnvelope(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if result.Status != domain.StatusSuccess {
		writeEnvelope(w, http.StatusOK, result.Status, "Success")
		return
	}

	writeEnvelope(w, http.StatusOK, result, "Success")
}

// writeEnvelope is a helper for writing success envelopes.
func writeEnvelope(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Status: status, Data: data, Message: message}); err != nil {
		log.Printf("level=error component=api msg=\"failed to write response\" err=%v", err)
	}
}

// writeErrorEnvelope is a helper for writing error envelopes. The data field
// carries an empty array so clients always see the same envelope shape.
func writeErrorEnvelope(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, []interface{}{}, message)
}
