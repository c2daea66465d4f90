package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashScope returns a filesystem-safe directory name for a browsing-session scope.
func HashScope(scope string) string {
	sum := sha256.Sum256([]byte(scope))
	return hex.EncodeToString(sum[:])
}
