//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/ledgerhub/p2pcore/test/integration/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_RegisterThenLogin(t *testing.T) {
	env := testutil.NewTestEnv(t)

	token, userID := env.RegisterUser("Ada Lovelace", "ada@example.com", "correct horse battery")
	require.NotEmpty(t, token)
	require.NotZero(t, userID)

	loginToken := env.LoginUser("ada@example.com", "correct horse battery")
	require.NotEmpty(t, loginToken)
}

func TestAuth_RegisterDuplicateEmailRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.RegisterUser("Ada", "dup@example.com", "correct horse battery")

	resp := env.POST("/api/auth/register", map[string]string{
		"name":                  "Ada Two",
		"email":                 "dup@example.com",
		"password":              "correct horse battery",
		"password_confirmation": "correct horse battery",
	}, "")
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusUnprocessableEntity)
	testutil.AssertErrorCode(t, resp, "EMAIL_IN_USE")
}

func TestAuth_LoginWrongPasswordRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.RegisterUser("Ada", "wrongpass@example.com", "correct horse battery")

	resp := env.POST("/api/auth/login", map[string]string{
		"email":    "wrongpass@example.com",
		"password": "not the right password",
	}, "")
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestAuth_CurrentUserRequiresToken(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.GET("/api/auth/user")
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusUnauthorized)
}

func TestAuth_CurrentUserReturnsProfile(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.RegisterUser("Grace Hopper", "grace@example.com", "correct horse battery")

	resp := env.AuthGET("/api/auth/user", token)
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusOK)

	var body struct {
		User struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"user"`
	}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, "grace@example.com", body.User.Email)
	assert.Equal(t, "Grace Hopper", body.User.Name)
}

func TestAuth_LogoutRevokesToken(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.RegisterUser("Logout User", "logout@example.com", "correct horse battery")

	logoutResp := env.AuthPOST("/api/auth/logout", nil, token)
	defer logoutResp.Body.Close()
	testutil.AssertStatus(t, logoutResp, http.StatusOK)

	resp := env.AuthGET("/api/auth/user", token)
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusUnauthorized)
}
