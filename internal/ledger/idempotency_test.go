package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveIdempotencyKey_Deterministic(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a := DeriveIdempotencyKey(1, 2, 500, ts)
	b := DeriveIdempotencyKey(1, 2, 500, ts)
	assert.Equal(t, a, b)
}

func TestDeriveIdempotencyKey_VariesByInput(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := DeriveIdempotencyKey(1, 2, 500, ts)

	assert.NotEqual(t, base, DeriveIdempotencyKey(3, 2, 500, ts))
	assert.NotEqual(t, base, DeriveIdempotencyKey(1, 3, 500, ts))
	assert.NotEqual(t, base, DeriveIdempotencyKey(1, 2, 501, ts))
	assert.NotEqual(t, base, DeriveIdempotencyKey(1, 2, 500, ts.Add(time.Second)))
}
