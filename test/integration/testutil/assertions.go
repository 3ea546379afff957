//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertErrorCode checks that the response body contains the expected error code.
func AssertErrorCode(t *testing.T, resp *http.Response, expectedCode string) {
	t.Helper()
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	DecodeJSON(t, resp, &errResp)
	if errResp.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, errResp.Code, errResp.Message)
	}
}

// AssertBalance queries the users table and asserts the user's balance
// (spec §3: balances are stored as integer minor units).
func AssertBalance(t *testing.T, env *TestEnv, userID int64, balance int64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var bal int64
	err := env.Pool.QueryRow(ctx,
		"SELECT balance FROM users WHERE id = $1", userID).Scan(&bal)
	if err != nil {
		t.Fatalf("AssertBalance: query: %v", err)
	}
	if bal != balance {
		t.Errorf("balance: expected %d, got %d", balance, bal)
	}
}

// CountTransactionsFor returns the number of transactions where userID is
// either sender or receiver.
func CountTransactionsFor(t *testing.T, env *TestEnv, userID int64) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM transactions WHERE sender_id = $1 OR receiver_id = $1", userID).Scan(&count)
	if err != nil {
		t.Fatalf("CountTransactionsFor: %v", err)
	}
	return count
}

// CountOutboxEntries returns the number of outbox rows for a transaction.
func CountOutboxEntries(t *testing.T, env *TestEnv, transactionUUID string) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM transaction_outbox WHERE transaction_uuid = $1", transactionUUID).Scan(&count)
	if err != nil {
		t.Fatalf("CountOutboxEntries: %v", err)
	}
	return count
}

// OutboxStatus returns the status of the (single) outbox row for a
// transaction.
func OutboxStatus(t *testing.T, env *TestEnv, transactionUUID string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var status string
	err := env.Pool.QueryRow(ctx,
		"SELECT status FROM transaction_outbox WHERE transaction_uuid = $1", transactionUUID).Scan(&status)
	if err != nil {
		t.Fatalf("OutboxStatus: %v", err)
	}
	return status
}
