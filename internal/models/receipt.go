package models

import "time"

const ReceiptStatusCompleted = "completed"

// Receipt is the immutable record of a completed checkout.
// Items are stored exactly as submitted, including unmatched labels.
type Receipt struct {
	ID            string     `json:"receipt_id"`
	Timestamp     time.Time  `json:"timestamp"`
	Items         []LineItem `json:"items"`
	CartTotals
	PaymentMethod string `json:"payment_method"`
	Status        string `json:"status"`
}
