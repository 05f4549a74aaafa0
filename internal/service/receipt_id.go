package service

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"
)

// ReceiptIDPattern matches identifiers produced by ReceiptIDGenerator.
var ReceiptIDPattern = regexp.MustCompile(`^RCP-\d+-\d{4}$`)

// ReceiptIDGenerator builds receipt identifiers of the form RCP-<unix seconds>-<1000..9999>.
//
// Two checkouts in the same second collide with probability 1/9000. Receipts
// are not persisted here, so the store that keeps them owns deduplication.
type ReceiptIDGenerator struct {
	now  func() time.Time
	intn func(n int) int
}

// NewReceiptIDGenerator creates a generator. Nil arguments use the wall clock and math/rand.
func NewReceiptIDGenerator(now func() time.Time, intn func(n int) int) *ReceiptIDGenerator {
	if now == nil {
		now = time.Now
	}
	if intn == nil {
		intn = rand.Intn
	}
	return &ReceiptIDGenerator{now: now, intn: intn}
}

// Next returns a new receipt ID.
func (g *ReceiptIDGenerator) Next() string {
	return fmt.Sprintf("RCP-%d-%d", g.now().Unix(), 1000+g.intn(9000))
}
