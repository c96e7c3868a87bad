package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fingerprint hashes the fields that make two create requests the same
// request. Currency is compared case-insensitively; amount is exact.
func Fingerprint(req CreatePaymentIntentRequest) string {
	canonical := fmt.Sprintf("amount=%d&currency=%s", req.Amount, strings.ToLower(strings.TrimSpace(req.Currency)))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
