/**
 * @description
 * This file contains the core business logic of the topup-service. The Service
 * orchestrates identifier encryption, account resolution, the atomic ledger
 * operations, and event publication, translating ledger status tokens into
 * results for the API layer.
 *
 * @notes
 * - Ledger business-rule failures travel as status tokens inside a successful
 *   result, never as Go errors; only validation and infrastructure problems
 *   surface as errors.
 * - The service never retries a failed credit, and reference-number generation
 *   is not idempotent across caller retries: a caller that retries a credit
 *   after a network failure may create two ledger entries. That behavior is
 *   inherited from the system this service replaces and is preserved.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chargenet/topup-service/internal/domain"
	"github.com/chargenet/topup-service/internal/fieldcrypt"
	"github.com/chargenet/topup-service/internal/store"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidTopupAmount = errors.New("top-up amount is below the configured minimum")
	ErrInvalidPaymentType = errors.New("payment type must be one of CARD, MAYA, GCASH")
	ErrRateLimited        = errors.New("top-up rate limit exceeded")
)

// RateLimitError carries the retry hint alongside ErrRateLimited.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string { return ErrRateLimited.Error() }

// Is lets errors.Is(err, ErrRateLimited) match a *RateLimitError.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// RateLimiter counts an operator's calls within a window and reports the
// total observed so far plus a retry hint. A nil limiter disables limiting.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope string, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Publisher is the minimal event-publication surface the service needs.
type Publisher interface {
	PublishTopupCompleted(ctx context.Context, event domain.TopupCompletedEvent) error
	PublishTopupVoided(ctx context.Context, event domain.TopupVoidedEvent) error
}

// Service provides the business logic for merchant top-ups.
type Service struct {
	repo           store.Repository
	codec          *fieldcrypt.Codec
	publisher      Publisher
	limiter        RateLimiter
	minTopupAmount int64
	topupRateLimit int
}

// NewService creates a new instance of the topup service.
func NewService(repo store.Repository, codec *fieldcrypt.Codec, publisher Publisher, minTopupAmount int64) *Service {
	return &Service{
		repo:           repo,
		codec:          codec,
		publisher:      publisher,
		minTopupAmount: minTopupAmount,
	}
}

// SetRateLimiter enables per-operator limiting of credit calls.
func (s *Service) SetRateLimiter(limiter RateLimiter, perMinute int) {
	s.limiter = limiter
	s.topupRateLimit = perMinute
}

// MinTopupAmount returns the configured minimum credit amount in centavos.
func (s *Service) MinTopupAmount() int64 {
	return s.minTopupAmount
}

// VerifyTopupByIdentifier resolves an account by RFID tag or mobile number and
// returns it with every encrypted field decrypted. Fields classed FieldPlain
// in the account schema bypass decryption; everything else passes through the
// codec before leaving the service, so raw ciphertext is never exposed.
func (s *Service) VerifyTopupByIdentifier(ctx context.Context, identifier string) (*domain.DriverAccount, error) {
	account, err := s.repo.FindAccountByIdentifier(ctx, identifier, s.codec.Encrypt(identifier))
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return s.decryptAccount(account)
}

// Topup validates the request, applies the operator rate limit, and delegates
// to the atomic credit operation. A non-SUCCESS status token is returned as
// data inside the result, exactly as the ledger reported it.
func (s *Service) Topup(ctx context.Context, operatorID, identifier string, amount int64, paymentType string) (*domain.TopupResult, error) {
	if amount < s.minTopupAmount {
		return nil, fmt.Errorf("%w: got %d, minimum %d", ErrInvalidTopupAmount, amount, s.minTopupAmount)
	}
	if !domain.IsValidPaymentType(paymentType) {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidPaymentType, paymentType)
	}

	if err := s.consumeTopupRateLimit(ctx, operatorID); err != nil {
		return nil, err
	}

	result, err := s.repo.CreditTopup(ctx, identifier, s.codec.Encrypt(identifier), amount, paymentType)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=app operation=topup status=%s amount=%d payment_type=%s", result.Status, amount, paymentType)

	if result.Status == domain.StatusSuccess {
		s.publishTopupCompleted(ctx, result, amount, paymentType)
	}
	return result, nil
}

// GetTopupsByUserID lists the user's top-up entries still voidable as of the
// caller-supplied instant.
func (s *Service) GetTopupsByUserID(ctx context.Context, userID int64, asOf time.Time) ([]domain.TopupLogEntry, error) {
	return s.repo.FindVoidableTopupsByUserID(ctx, userID, asOf)
}

// VoidTopupByReferenceNumber reverses a top-up while it is still inside its
// grace window. Retrying a failed void is safe; retrying a succeeded void is
// rejected by the ledger as ALREADY_VOIDED.
func (s *Service) VoidTopupByReferenceNumber(ctx context.Context, referenceNumber string) (*domain.VoidResult, error) {
	result, err := s.repo.VoidTopup(ctx, referenceNumber)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=app operation=void_topup status=%s reference_number=%s", result.Status, referenceNumber)

	if result.Status == domain.StatusSuccess && s.publisher != nil {
		event := domain.TopupVoidedEvent{
			ReferenceNumber: result.ReferenceNumber,
			CurrentBalance:  result.CurrentBalance,
			Timestamp:       time.Now().UTC(),
		}
		if err := s.publisher.PublishTopupVoided(ctx, event); err != nil {
			log.Printf("level=warn component=app operation=void_topup msg=\"event publish failed\" reference_number=%s err=%v", referenceNumber, err)
		}
	}
	return result, nil
}

func (s *Service) consumeTopupRateLimit(ctx context.Context, operatorID string) error {
	if s.limiter == nil || s.topupRateLimit <= 0 || operatorID == "" {
		return nil
	}

	count, retryAfter, err := s.limiter.ConsumeRateLimit(ctx, "merchant_topup", operatorID, s.topupRateLimit, time.Minute)
	if err != nil {
		// A broken limiter must not block money movement.
		log.Printf("level=warn component=app operation=topup msg=\"rate limiter unavailable; allowing request\" err=%v", err)
		return nil
	}
	if count > s.topupRateLimit {
		log.Printf("level=warn component=app operation=topup outcome=rate_limited operator_id=%s count=%d limit=%d", operatorID, count, s.topupRateLimit)
		return &RateLimitError{RetryAfterSeconds: retryAfter}
	}
	return nil
}

func (s *Service) publishTopupCompleted(ctx context.Context, result *domain.TopupResult, amount int64, paymentType string) {
	if s.publisher == nil {
		return
	}
	event := domain.TopupCompletedEvent{
		UserID:          result.UserID,
		ReferenceNumber: result.ReferenceNumber,
		Amount:          amount,
		PaymentType:     paymentType,
		NewBalance:      result.NewBalance,
		Timestamp:       time.Now().UTC(),
	}
	if err := s.publisher.PublishTopupCompleted(ctx, event); err != nil {
		log.Printf("level=warn component=app operation=topup msg=\"event publish failed\" err=%v", err)
	}
}

// decryptAccount returns a copy of the account with every FieldEncrypted
// attribute decrypted per domain.AccountFieldSchema. A field the schema does
// not know is treated as encrypted, so an unmapped column fails loudly
// instead of leaking ciphertext.
func (s *Service) decryptAccount(account *domain.DriverAccount) (*domain.DriverAccount, error) {
	out := *account

	fields := map[string]*string{
		"username":             &out.Username,
		"rfid":                 &out.RFID,
		"name":                 &out.Name,
		"address":              &out.Address,
		"email_address":        &out.EmailAddress,
		"mobile_number":        &out.MobileNumber,
		"vehicle_plate_number": &out.VehiclePlateNumber,
		"vehicle_model":        &out.VehicleModel,
		"vehicle_brand":        &out.VehicleBrand,
	}

	for name, value := range fields {
		if domain.AccountFieldSchema[name] == domain.FieldPlain {
			continue
		}
		// An empty column holds no ciphertext.
		if *value == "" {
			continue
		}
		plain, err := s.codec.Decrypt(*value)
		if err != nil {
			return nil, fmt.Errorf("decrypt account field %s: %w", name, err)
		}
		*value = plain
	}
	return &out, nil
}
