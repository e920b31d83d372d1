package domain

import "time"

// TopupCompletedEvent is published after a successful balance credit.
type TopupCompletedEvent struct {
	UserID          int64     `json:"user_id"`
	ReferenceNumber string    `json:"reference_number"`
	Amount          int64     `json:"amount"`
	PaymentType     string    `json:"payment_type"`
	NewBalance      int64     `json:"new_balance"`
	Timestamp       time.Time `json:"timestamp"`
}

// TopupVoidedEvent is published after a top-up is reversed within its grace
// window.
type TopupVoidedEvent struct {
	ReferenceNumber string    `json:"reference_number"`
	CurrentBalance  int64     `json:"current_balance"`
	Timestamp       time.Time `json:"timestamp"`
}
