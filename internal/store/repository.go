/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access operations required by the topup-service. The interface decouples the
 * business logic from the PostgreSQL implementation and lets tests substitute
 * an in-memory double.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/chargenet/topup-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
//
// Identifier-based methods take both the raw identifier and its deterministic
// ciphertext: the RFID column is matched verbatim while the encrypted
// mobile-number column is matched against the ciphertext, in one query.
type Repository interface {
	// FindAccountByIdentifier resolves a driver account by RFID tag or mobile
	// number. Accounts without a driver and vehicle record are invisible to
	// this lookup. Encrypted fields are returned as stored (ciphertext).
	FindAccountByIdentifier(ctx context.Context, identifier, encryptedIdentifier string) (*domain.DriverAccount, error)

	// CreditTopup atomically credits the resolved account's balance and
	// appends a topup_logs row with a freshly generated reference number.
	// Business-rule failures are reported as a non-SUCCESS status token with
	// no mutation; only infrastructure failures surface as errors.
	CreditTopup(ctx context.Context, identifier, encryptedIdentifier string, amount int64, paymentType string) (*domain.TopupResult, error)

	// FindVoidableTopupsByUserID lists TOPUP entries for a user that are not
	// voided and whose grace window has not elapsed as of the caller-supplied
	// instant, newest first, each annotated with its voidable_until instant.
	FindVoidableTopupsByUserID(ctx context.Context, userID int64, asOf time.Time) ([]domain.TopupLogEntry, error)

	// VoidTopup atomically reverses the top-up identified by referenceNumber
	// if it is still within its grace window and not already voided. Failed
	// preconditions are reported as a non-SUCCESS status token with no
	// mutation.
	VoidTopup(ctx context.Context, referenceNumber string) (*domain.VoidResult, error)
}
