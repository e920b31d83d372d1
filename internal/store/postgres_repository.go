/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. The credit and void operations run as explicit transactions with
 * row locks, so concurrent top-ups and voids on the same account serialize at
 * the storage layer, never in process.
 *
 * @dependencies
 * - context, time, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/google/uuid: Reference number and void id generation.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chargenet/topup-service/internal/domain"
)

var (
	ErrAccountNotFound = errors.New("account not found")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db             *pgxpool.Pool
	minTopupAmount int64
	voidWindowMins int
}

// NewPostgresRepository creates a new instance of PostgresRepository. The
// minimum amount and the voidable window are ledger rules, so they live with
// the atomic operations rather than in the HTTP layer.
func NewPostgresRepository(db *pgxpool.Pool, minTopupAmount int64, voidWindowMinutes int) *PostgresRepository {
	if voidWindowMinutes <= 0 {
		voidWindowMinutes = 60
	}
	return &PostgresRepository{
		db:             db,
		minTopupAmount: minTopupAmount,
		voidWindowMins: voidWindowMinutes,
	}
}

const accountByIdentifierQuery = `
	SELECT
		users.id,
		users.name,
		users.address,
		users.email AS email_address,
		users.mobile_number,
		users.rfid_card_tag AS rfid,
		user_driver_vehicles.plate_number AS vehicle_plate_number,
		user_driver_vehicles.model AS vehicle_model,
		user_driver_vehicles.brand AS vehicle_brand,
		users.username
	FROM users
	INNER JOIN user_drivers ON users.id = user_drivers.user_id
	INNER JOIN user_driver_vehicles ON user_drivers.id = user_driver_vehicles.user_driver_id
	WHERE users.rfid_card_tag = $1 OR users.mobile_number = $2
	LIMIT 1
`

// FindAccountByIdentifier resolves a driver account by RFID tag (matched
// verbatim) or mobile number (matched against its deterministic ciphertext).
// Inner joins mean only accounts with a driver and vehicle record resolve.
func (r *PostgresRepository) FindAccountByIdentifier(ctx context.Context, identifier, encryptedIdentifier string) (*domain.DriverAccount, error) {
	var account domain.DriverAccount
	err := r.db.QueryRow(ctx, accountByIdentifierQuery, identifier, encryptedIdentifier).Scan(
		&account.ID,
		&account.Name,
		&account.Address,
		&account.EmailAddress,
		&account.MobileNumber,
		&account.RFID,
		&account.VehiclePlateNumber,
		&account.VehicleModel,
		&account.VehicleBrand,
		&account.Username,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// CreditTopup performs the atomic credit: resolve the account, lock its row,
// increment the balance, and append the ledger entry, all in one transaction.
// A partial credit without a log row, or vice versa, is never observable.
func (r *PostgresRepository) CreditTopup(ctx context.Context, identifier, encryptedIdentifier string, amount int64, paymentType string) (*domain.TopupResult, error) {
	if amount < r.minTopupAmount {
		return &domain.TopupResult{Status: domain.StatusInvalidAmount}, nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var userID int64
	err = tx.QueryRow(ctx,
		"SELECT id FROM users WHERE rfid_card_tag = $1 OR mobile_number = $2 LIMIT 1 FOR UPDATE",
		identifier, encryptedIdentifier,
	).Scan(&userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &domain.TopupResult{Status: domain.StatusAccountNotFound}, nil
		}
		return nil, err
	}

	var newBalance int64
	err = tx.QueryRow(ctx,
		"UPDATE users SET balance = balance + $1 WHERE id = $2 RETURNING balance",
		amount, userID,
	).Scan(&newBalance)
	if err != nil {
		return nil, err
	}

	referenceNumber := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO topup_logs (user_id, amount, type, payment_type, reference_number, date_created)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`, userID, amount, domain.TopupEntryType, paymentType, referenceNumber)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.TopupResult{
		Status:          domain.StatusSuccess,
		NewBalance:      newBalance,
		UserID:          userID,
		ReferenceNumber: referenceNumber,
	}, nil
}

// FindVoidableTopupsByUserID lists a user's still-voidable TOPUP entries as of
// the caller-supplied instant, newest first.
func (r *PostgresRepository) FindVoidableTopupsByUserID(ctx context.Context, userID int64, asOf time.Time) ([]domain.TopupLogEntry, error) {
	query := `
		SELECT
			id, user_id, amount, type, payment_type, reference_number, void_id, date_created,
			date_created + make_interval(mins => $3) AS voidable_until
		FROM topup_logs
		WHERE user_id = $1
		  AND type = $4
		  AND void_id IS NULL
		  AND $2 < date_created + make_interval(mins => $3)
		ORDER BY date_created DESC
	`
	rows, err := r.db.Query(ctx, query, userID, asOf, r.voidWindowMins, domain.TopupEntryType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.TopupLogEntry, 0)
	for rows.Next() {
		var entry domain.TopupLogEntry
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Amount,
			&entry.Type,
			&entry.PaymentType,
			&entry.ReferenceNumber,
			&entry.VoidID,
			&entry.DateCreated,
			&entry.VoidableUntil,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// VoidTopup atomically reverses a top-up. The ledger row is locked first, so
// two concurrent voids of the same reference number serialize: the second one
// observes void_id already set and reports ALREADY_VOIDED. Expiry is judged
// against the database clock, never a caller timestamp.
func (r *PostgresRepository) VoidTopup(ctx context.Context, referenceNumber string) (*domain.VoidResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		entryID   int64
		userID    int64
		amount    int64
		entryType string
		voidID    *uuid.UUID
		expired   bool
	)
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, amount, type, void_id,
		       NOW() >= date_created + make_interval(mins => $2) AS expired
		FROM topup_logs
		WHERE reference_number = $1
		FOR UPDATE
	`, referenceNumber, r.voidWindowMins).Scan(&entryID, &userID, &amount, &entryType, &voidID, &expired)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &domain.VoidResult{Status: domain.StatusTopupNotFound}, nil
		}
		return nil, err
	}

	if entryType != domain.TopupEntryType {
		return &domain.VoidResult{Status: domain.StatusTopupNotFound}, nil
	}
	if voidID != nil {
		return &domain.VoidResult{Status: domain.StatusAlreadyVoided}, nil
	}
	if expired {
		return &domain.VoidResult{Status: domain.StatusExpired}, nil
	}

	var currentBalance int64
	err = tx.QueryRow(ctx,
		"UPDATE users SET balance = balance - $1 WHERE id = $2 RETURNING balance",
		amount, userID,
	).Scan(&currentBalance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	newVoidID := uuid.New()
	if _, err := tx.Exec(ctx,
		"UPDATE topup_logs SET void_id = $1 WHERE id = $2",
		newVoidID, entryID,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &domain.VoidResult{
		Status:          domain.StatusSuccess,
		ReferenceNumber: referenceNumber,
		CurrentBalance:  currentBalance,
	}, nil
}
