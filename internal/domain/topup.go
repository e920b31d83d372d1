/**
 * @description
 * This file defines the core domain models for the topup-service.
 * These structs represent the entities and data transfer objects (DTOs) used
 * throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit (centavos),
 *   which avoids floating-point inaccuracies with financial data.
 * - Ledger status tokens are plain strings carried as data, never Go errors:
 *   callers must treat any token other than StatusSuccess as an
 *   application-level failure distinct from a transport error.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Ledger status tokens returned by the credit and void operations.
const (
	StatusSuccess         = "SUCCESS"
	StatusAccountNotFound = "ACCOUNT_NOT_FOUND"
	StatusInvalidAmount   = "INVALID_AMOUNT"
	StatusTopupNotFound   = "TOPUP_NOT_FOUND"
	StatusAlreadyVoided   = "ALREADY_VOIDED"
	StatusExpired         = "EXPIRED"
)

// Payment types accepted for a merchant top-up. Settlement with the payment
// provider happens upstream; this service only records the resulting credit.
const (
	PaymentTypeCard  = "CARD"
	PaymentTypeMaya  = "MAYA"
	PaymentTypeGCash = "GCASH"
)

// TopupEntryType is the ledger entry type handled by this service. Other
// entry types exist in topup_logs but are owned by other flows.
const TopupEntryType = "TOPUP"

// AccountFieldClass classifies how an account attribute is stored at rest.
type AccountFieldClass int

const (
	// FieldPlain attributes are stored in plaintext and are searchable.
	FieldPlain AccountFieldClass = iota
	// FieldEncrypted attributes are encrypted at rest and must be decrypted
	// before leaving the service.
	FieldEncrypted
)

// AccountFieldSchema declares, per account attribute, whether the stored value
// is plaintext or ciphertext. The resolver consults this schema instead of a
// hardcoded exception list so a schema change cannot silently corrupt data.
var AccountFieldSchema = map[string]AccountFieldClass{
	"id":                   FieldPlain,
	"username":             FieldPlain,
	"rfid":                 FieldPlain,
	"name":                 FieldEncrypted,
	"address":              FieldEncrypted,
	"email_address":        FieldEncrypted,
	"mobile_number":        FieldEncrypted,
	"vehicle_plate_number": FieldEncrypted,
	"vehicle_model":        FieldEncrypted,
	"vehicle_brand":        FieldEncrypted,
}

// DriverAccount is the account view resolved for a top-up verification: the
// user joined with one driver and one vehicle record. As loaded from the
// store, FieldEncrypted attributes still hold ciphertext; the service decrypts
// them per AccountFieldSchema before the struct crosses the API boundary.
type DriverAccount struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Address            string `json:"address"`
	EmailAddress       string `json:"email_address"`
	MobileNumber       string `json:"mobile_number"`
	RFID               string `json:"rfid"`
	VehiclePlateNumber string `json:"vehicle_plate_number"`
	VehicleModel       string `json:"vehicle_model"`
	VehicleBrand       string `json:"vehicle_brand"`
	Username           string `json:"username"`
}

// TopupLogEntry is an immutable ledger record created by a successful credit.
// Once written, only VoidID ever changes, and only once: nil -> set.
type TopupLogEntry struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Amount          int64      `json:"amount"` // centavos
	Type            string     `json:"type"`
	PaymentType     string     `json:"payment_type"`
	ReferenceNumber string     `json:"reference_number"`
	VoidID          *uuid.UUID `json:"void_id,omitempty"`
	DateCreated     time.Time  `json:"date_created"`
	VoidableUntil   time.Time  `json:"voidable_until"`
}

// TopupRequest is the DTO for incoming top-up API requests.
type TopupRequest struct {
	Amount      int64  `json:"amount"` // centavos
	PaymentType string `json:"payment_type"`
}

// TopupListRequest carries the caller-supplied reference instant for the
// voidable-window listing. The caller's clock, not the server's, decides what
// is displayed as still voidable.
type TopupListRequest struct {
	CurrentDateTime string `json:"current_datetime"` // "YYYY-MM-DD HH:MM:SS"
}

// TopupResult is the outcome of a credit operation. NewBalance is only
// meaningful when Status is StatusSuccess. UserID and ReferenceNumber are
// internal (event publication and logging); the API payload exposes only the
// status token and the new balance.
type TopupResult struct {
	Status          string `json:"STATUS"`
	NewBalance      int64  `json:"new_balance"`
	UserID          int64  `json:"-"`
	ReferenceNumber string `json:"-"`
}

// VoidResult is the outcome of a void operation. ReferenceNumber and
// CurrentBalance are only meaningful when Status is StatusSuccess.
type VoidResult struct {
	Status          string `json:"STATUS"`
	ReferenceNumber string `json:"reference_number"`
	CurrentBalance  int64  `json:"current_balance"`
}

// IsValidPaymentType reports whether the given payment type is accepted for a
// merchant top-up.
func IsValidPaymentType(paymentType string) bool {
	switch paymentType {
	case PaymentTypeCard, PaymentTypeMaya, PaymentTypeGCash:
		return true
	}
	return false
}
