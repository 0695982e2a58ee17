package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SettlementStub simulates on-chain broadcast. It produces a deterministic
// synthetic transaction reference; no real settlement layer is involved.
type SettlementStub struct{}

// Broadcast returns a synthetic settlement reference for an order.
func (SettlementStub) Broadcast(orderID string, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", orderID, at.UnixNano())))
	return "0x" + hex.EncodeToString(sum[:])
}
