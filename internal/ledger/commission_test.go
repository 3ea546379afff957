package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCommission_BoundaryCases exercises spec §8 P6's commission law at
// its rounding boundaries: ceil(amount*3/200).
func TestCommission_BoundaryCases(t *testing.T) {
	cases := []struct {
		amount     int64
		commission int64
	}{
		{amount: 1, commission: 1},       // ceil(3/200) = 1
		{amount: 66, commission: 1},      // ceil(198/200) = 1
		{amount: 67, commission: 2},      // ceil(201/200) = 2
		{amount: 100, commission: 2},     // ceil(300/200) = 2
		{amount: 200, commission: 3},     // exact multiple
		{amount: 6666, commission: 100},  // ceil(19998/200) = 100
		{amount: 6667, commission: 101},  // ceil(20001/200) = 101
		{amount: 1000, commission: 15},
	}

	for _, c := range cases {
		assert.Equal(t, c.commission, Commission(c.amount), "amount=%d", c.amount)
	}
}

func TestCommission_NeverRoundsDown(t *testing.T) {
	for amount := int64(1); amount < 500; amount++ {
		got := Commission(amount)
		exact := float64(amount) * 3 / 200
		assert.GreaterOrEqual(t, float64(got), exact, "amount=%d commission=%d must not round down", amount, got)
	}
}

func TestTotalDebited(t *testing.T) {
	assert.Equal(t, int64(1015), TotalDebited(1000))
	assert.Equal(t, int64(2), TotalDebited(1))
}
