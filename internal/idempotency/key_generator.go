package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateKey builds a deterministic key: the scope followed by a short
// digest of all parts, so keys stay readable in Redis and bounded in size.
func GenerateKey(scope string, parts ...interface{}) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}

	return scope + ":" + hex.EncodeToString(h.Sum(nil))[:32]
}
