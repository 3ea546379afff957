//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RegisterUser creates a new user and returns the auth token and user ID.
func (env *TestEnv) RegisterUser(name, email, password string) (token string, userID int64) {
	env.t.Helper()
	resp := env.POST("/api/auth/register", map[string]string{
		"name":                   name,
		"email":                  email,
		"password":               password,
		"password_confirmation": password,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("RegisterUser: expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
		User  struct {
			ID int64 `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("RegisterUser: decode: %v", err)
	}
	return result.Token, result.User.ID
}

// LoginUser authenticates an existing user and returns the auth token.
func (env *TestEnv) LoginUser(email, password string) string {
	env.t.Helper()
	resp := env.POST("/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("LoginUser: expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("LoginUser: decode: %v", err)
	}
	return result.Token
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// PostIdempotent performs a POST with an explicit Idempotency-Key header.
func (env *TestEnv) PostIdempotent(path string, body interface{}, token, idempotencyKey string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("PostIdempotent %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("PostIdempotent %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("PostIdempotent %s: %v", path, err)
	}
	return resp
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("AuthGET %s: new request: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("AuthGET %s: %v", path, err)
	}
	return resp
}

// AuthPOST performs an authenticated POST request.
func (env *TestEnv) AuthPOST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	return env.POST(path, body, token)
}

// DirectCredit credits a user's balance directly via SQL (bypasses the
// Transfer Engine) for seeding test fixtures.
func (env *TestEnv) DirectCredit(userID int64, amount int64) {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx,
		"UPDATE users SET balance = balance + $2, initial_balance = initial_balance + $2, updated_at = now() WHERE id = $1",
		userID, amount)
	if err != nil {
		env.t.Fatalf("DirectCredit: %v", err)
	}
}

// IdempotencyKeyHeader builds an Idempotency-Key test header value from the
// label and the current time, so each call returns a fresh key.
func IdempotencyKeyHeader(label string) string {
	return fmt.Sprintf("test-idem-%s-%d", label, time.Now().UnixNano())
}
