package ledger

// Commission computes the sender's fee for a transfer: ceil(amount * 3 /
// 200), i.e. 1.5% rounded up to the nearest minor unit (spec §4.3). The
// ceiling is a system invariant — rounding down or to nearest would leak
// value out of the closed system over repeated sub-cent truncation (spec
// §8 P1, the 1,000-iteration micro-loss regression).
func Commission(amount int64) int64 {
	return (amount*3 + 199) / 200
}

// TotalDebited is what leaves the sender's balance: amount + commission.
func TotalDebited(amount int64) int64 {
	return amount + Commission(amount)
}
