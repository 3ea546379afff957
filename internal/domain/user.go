package domain

import (
	"fmt"
	"time"
)

// User is the identity and balance-holding entity. Balance is mutated only
// by the Transfer Engine, under lock, never by Identity or the API edge.
type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Balance        int64     `json:"balance"`
	InitialBalance int64     `json:"initial_balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BalanceDollars renders Balance (integer minor units) as a decimal string
// for the API edge's display-layer fields.
func (u User) BalanceDollars() string {
	whole, cents := u.Balance/100, u.Balance%100
	if cents < 0 {
		cents = -cents
	}
	return fmt.Sprintf("%d.%02d", whole, cents)
}
