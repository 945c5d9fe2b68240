package relation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash returns a deterministic digest identifying the pair (from, to) under
// the given type, independent of direction: Hash(a, b, t) == Hash(b, a, t).
// Observers use it as a stable identity for a bidirectional pair.
func Hash(fromID, toID int64, typ string) string {
	lo, hi := fromID, toID
	if lo > hi {
		lo, hi = hi, lo
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d:%s", lo, hi, typ)))
	return hex.EncodeToString(sum[:])
}
