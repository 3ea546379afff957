package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ledgerhub/p2pcore/internal/auth"
	"github.com/ledgerhub/p2pcore/internal/domain"
	"github.com/ledgerhub/p2pcore/internal/ledger"
	"github.com/ledgerhub/p2pcore/internal/repository"
)

// TransferHandler is the Transfer API edge (spec §4.6): it authenticates
// the caller, resolves the receiver, derives an idempotency key when the
// caller omits one, invokes the Transfer Engine, and shapes the response.
// It performs no money arithmetic of its own.
type TransferHandler struct {
	engine       *ledger.Engine
	users        repository.UserStore
	transactions repository.TransactionStore
	db           repository.DBTX
}

// NewTransferHandler creates a TransferHandler.
func NewTransferHandler(engine *ledger.Engine, users repository.UserStore, transactions repository.TransactionStore, db repository.DBTX) *TransferHandler {
	return &TransferHandler{engine: engine, users: users, transactions: transactions, db: db}
}

// GetBalance handles GET /api/balance.
func (h *TransferHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		RespondError(w, domain.ErrUnauthorized("not authenticated"))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"balance":         user.Balance,
		"balance_dollars": user.BalanceDollars(),
	})
}

type validateReceiverRequest struct {
	Email string `json:"email"`
}

// ValidateReceiver handles POST /api/transactions/validate-receiver. The
// UI calls this with debouncing; it must not leak user existence beyond
// "valid true/false + name/email if valid" (spec §4.6).
func (h *TransferHandler) ValidateReceiver(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	if caller == nil {
		RespondError(w, domain.ErrUnauthorized("not authenticated"))
		return
	}
	var req validateReceiverRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidationFailed("invalid request body"))
		return
	}

	if req.Email == caller.Email {
		RespondError(w, domain.ErrSelfTransferForbidden())
		return
	}

	receiver, err := h.users.FindByEmail(r.Context(), h.db, req.Email)
	if err != nil {
		RespondError(w, domain.ErrInternal("find receiver", err))
		return
	}
	if receiver == nil {
		RespondJSON(w, http.StatusNotFound, map[string]interface{}{
			"status": "error",
			"data":   map[string]interface{}{"valid": false, "message": "no user with that email"},
		})
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data": map[string]interface{}{
			"valid": true,
			"user":  map[string]interface{}{"name": receiver.Name, "email": receiver.Email},
		},
	})
}

type createTransferRequest struct {
	ReceiverEmail string `json:"receiver_email"`
	Amount        int64  `json:"amount"`
}

// CreateTransfer handles POST /api/transactions.
func (h *TransferHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	caller := auth.UserFromContext(r.Context())
	if caller == nil {
		RespondError(w, domain.ErrUnauthorized("not authenticated"))
		return
	}
	var req createTransferRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidationFailed("invalid request body"))
		return
	}

	receiver, err := h.users.FindByEmail(r.Context(), h.db, req.ReceiverEmail)
	if err != nil {
		RespondError(w, domain.ErrInternal("find receiver", err))
		return
	}
	if req.ReceiverEmail == caller.Email {
		RespondError(w, domain.ErrSelfTransferForbidden())
		return
	}
	if receiver == nil {
		RespondError(w, domain.ErrReceiverNotFound())
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey == "" {
		idemKey = ledger.DeriveIdempotencyKey(caller.ID, receiver.ID, req.Amount, time.Now())
	}

	tx, err := h.engine.Transfer(r.Context(), caller.ID, receiver.ID, req.Amount, idemKey, nil)
	if err != nil {
		RespondError(w, err)
		return
	}

	// Read current balances for the response (spec §6). This is a
	// separate, unlocked read by the API edge, not part of the Transfer
	// Engine's atomic unit — on an idempotent replay it reflects the
	// caller's balance at response time, which may have moved since the
	// original commit if other transfers landed in between.
	senderNow, err := h.users.FindByID(r.Context(), h.db, tx.SenderID)
	if err != nil || senderNow == nil {
		RespondError(w, domain.ErrInternal("reload sender", err))
		return
	}
	receiverNow, err := h.users.FindByID(r.Context(), h.db, tx.ReceiverID)
	if err != nil || receiverNow == nil {
		RespondError(w, domain.ErrInternal("reload receiver", err))
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"status":  "ok",
		"message": "transfer completed",
		"data": map[string]interface{}{
			"uuid":             tx.UUID,
			"amount":           tx.Amount,
			"commission":       tx.Commission,
			"total_debited":    tx.TotalDebited(),
			"sender_balance":   senderNow.Balance,
			"receiver_balance": receiverNow.Balance,
			"created_at":       tx.CreatedAt,
		},
	})
}

// ListTransactions handles GET /api/transactions.
func (h *TransferHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		RespondError(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	q := r.URL.Query()
	page := parseIntDefault(q.Get("page"), 1)
	perPage := parseIntDefault(q.Get("per_page"), 20)
	if perPage > 100 {
		perPage = 100
	}

	direction := domain.Direction(q.Get("direction"))
	switch direction {
	case domain.DirectionSent, domain.DirectionReceived:
	default:
		direction = domain.DirectionAny
	}

	txs, err := h.transactions.ListByUser(r.Context(), h.db, user.ID, direction, page, perPage)
	if err != nil {
		RespondError(w, domain.ErrInternal("list transactions", err))
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data":   txs,
		"page":   page,
		"per_page": perPage,
	})
}

// GetTransaction handles GET /api/transactions/{uuid}. 404 is used for
// both "does not exist" and "not visible to you", to avoid existence
// leaks (spec §7).
func (h *TransferHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		RespondError(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	idStr := chi.URLParam(r, "uuid")
	id, err := uuid.Parse(idStr)
	if err != nil {
		RespondError(w, domain.ErrTransactionNotVisible())
		return
	}

	tx, err := h.transactions.FindByUUID(r.Context(), h.db, id)
	if err != nil {
		RespondError(w, domain.ErrInternal("find transaction", err))
		return
	}
	if tx == nil || (tx.SenderID != user.ID && tx.ReceiverID != user.ID) {
		RespondError(w, domain.ErrTransactionNotVisible())
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "data": tx})
}

// GetStats handles GET /api/transactions/stats.
func (h *TransferHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		RespondError(w, domain.ErrUnauthorized("not authenticated"))
		return
	}

	stats, err := h.transactions.StatsFor(r.Context(), h.db, user.ID)
	if err != nil {
		RespondError(w, domain.ErrInternal("stats", err))
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"data": map[string]interface{}{
			"total_sent":          stats.SentTotalWithCommission,
			"total_received":      stats.ReceivedTotal,
			"total_commission":    stats.CommissionPaid,
			"total_transactions":  stats.SentCount + stats.ReceivedCount,
			"net_balance_change":  stats.NetBalanceChange(),
			"sent_count":          stats.SentCount,
			"received_count":      stats.ReceivedCount,
		},
	})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
