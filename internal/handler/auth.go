package handler

import (
	"net/http"

	"github.com/ledgerhub/p2pcore/internal/auth"
	"github.com/ledgerhub/p2pcore/internal/domain"
	"github.com/ledgerhub/p2pcore/internal/service"
)

// AuthHandler binds the Identity service to the register/login/logout/user
// endpoints (spec §6). It performs no password or token logic of its own.
type AuthHandler struct {
	identity *service.IdentityService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(identity *service.IdentityService) *AuthHandler {
	return &AuthHandler{identity: identity}
}

// userView is the wire shape for a User in auth responses (spec §6: id,
// name, email, balance, balance_dollars).
type userView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Balance int64  `json:"balance"`
	Dollars string `json:"balance_dollars"`
}

func toUserView(u *domain.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, Balance: u.Balance, Dollars: u.BalanceDollars()}
}

type registerRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidationFailed("invalid request body"))
		return
	}
	if req.Password != req.PasswordConfirmation {
		RespondError(w, domain.ErrValidationFailed("password confirmation does not match"))
		return
	}

	result, err := h.identity.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "registration successful",
		"user":    toUserView(result.User),
		"token":   result.Token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidationFailed("invalid request body"))
		return
	}

	result, err := h.identity.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "login successful",
		"user":    toUserView(result.User),
		"token":   result.Token,
	})
}

// Logout handles POST /api/auth/logout. It revokes only the bearer token
// presented on this request (spec §4.2).
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerFromRequest(r)
	if token == "" {
		RespondError(w, domain.ErrUnauthorized("missing Authorization header"))
		return
	}
	if err := h.identity.Logout(r.Context(), token); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// CurrentUser handles GET /api/auth/user.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		RespondError(w, domain.ErrUnauthorized("not authenticated"))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"user": toUserView(user)})
}
