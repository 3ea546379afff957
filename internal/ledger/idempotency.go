package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// DeriveIdempotencyKey is used only when the caller omits the
// Idempotency-Key header (spec §4.3). Callers are encouraged to supply
// their own so a client-side retry collapses to the same key across clock
// drift; this fallback intentionally folds in the timestamp and so does
// not provide that guarantee on its own.
func DeriveIdempotencyKey(senderID, receiverID, amount int64, ts time.Time) string {
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(senderID, 10)))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatInt(receiverID, 10)))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.FormatInt(amount, 10)))
	h.Write([]byte("|"))
	h.Write([]byte(ts.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(h.Sum(nil))
}
