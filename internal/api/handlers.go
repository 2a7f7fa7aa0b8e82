package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/punchamoorthee/pointsops/internal/accounts"
	"github.com/punchamoorthee/pointsops/internal/activity"
	"github.com/punchamoorthee/pointsops/internal/admin"
	"github.com/punchamoorthee/pointsops/internal/cascade"
	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/ledger"
	"github.com/punchamoorthee/pointsops/internal/models"
	"github.com/punchamoorthee/pointsops/internal/polls"
	"github.com/punchamoorthee/pointsops/internal/store"
)

type Handler struct {
	accounts *accounts.Service
	ledger   *ledger.Ledger
	polls    *polls.Service
	admin    *admin.Workflow
	deleter  *cascade.Deleter
	activity *activity.Service
	log      *slog.Logger
}

// NewHandler wires every service over s.
func NewHandler(s store.Store, log *slog.Logger) *Handler {
	return &Handler{
		accounts: accounts.NewService(s),
		ledger:   ledger.New(s),
		polls:    polls.NewService(s),
		admin:    admin.NewWorkflow(s),
		deleter:  cascade.NewDeleter(s),
		activity: activity.NewService(s),
		log:      log,
	}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Accounts

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	acc, err := h.accounts.Register(r.Context(), accounts.Registration{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, acc)
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	acc, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, acc)
}

func (h *Handler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.accounts.List(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	acc, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, acc)
}

func (h *Handler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var upd domain.AccountUpdate
	if !h.decode(w, r, &upd) {
		return
	}
	acc, err := h.accounts.Update(r.Context(), id, upd)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, acc)
}

// Ledger

func (h *Handler) CreateTransferHandler(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if !h.decode(w, r, &req) {
		return
	}
	sender, err := domain.ParseID(req.SenderID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	receiver, err := domain.ParseID(req.ReceiverID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	tr, err := h.ledger.Transfer(r.Context(), sender, receiver, req.Amount)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, tr)
}

func (h *Handler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		h.respondWithError(w, r, domain.Invalid("userId query parameter is required"))
		return
	}
	id, err := domain.ParseID(raw)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	list, err := h.ledger.ListTransactionsFor(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) TransactionAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.ledger.ListAllTransactions(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// Polls

func (h *Handler) ListPollsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.polls.List(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	out := make([]models.PollResponse, len(list))
	for i, p := range list {
		out[i] = models.NewPollResponse(p)
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (h *Handler) CreatePollHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if !h.decode(w, r, &req) {
		return
	}
	var creator *domain.ID
	if req.CreatorID != "" {
		id, err := domain.ParseID(req.CreatorID)
		if err != nil {
			h.respondWithError(w, r, err)
			return
		}
		creator = &id
	}
	p, err := h.polls.CreatePoll(r.Context(), req.Title, req.Options, creator)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, models.NewPollResponse(p))
}

func (h *Handler) GetPollHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	p, err := h.polls.Get(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.NewPollResponse(p))
}

func (h *Handler) VoteHandler(w http.ResponseWriter, r *http.Request) {
	pollID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req models.VoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	userID, err := domain.ParseID(req.UserID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	p, err := h.polls.Vote(r.Context(), pollID, userID, req.Option)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.NewPollResponse(p))
}

func (h *Handler) TogglePollHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	p, err := h.polls.ToggleActive(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, models.NewPollResponse(p))
}

// Chat and analysis history

func (h *Handler) ListChatsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.activity.ListMessages(r.Context(), r.URL.Query().Get("roomId"))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) PostChatHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := domain.ParseID(req.UserID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	m, err := h.activity.PostMessage(r.Context(), user, req.RoomID, req.Message)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, m)
}

func (h *Handler) ListAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	var owner *domain.ID
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := domain.ParseID(raw)
		if err != nil {
			h.respondWithError(w, r, err)
			return
		}
		owner = &id
	}
	list, err := h.activity.ListAnalysis(r.Context(), owner)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) SaveAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	if !h.decode(w, r, &req) {
		return
	}
	user, err := domain.ParseID(req.UserID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	rec, err := h.activity.SaveAnalysis(r.Context(), domain.AnalysisRecord{
		UserID:     user,
		Text:       req.Text,
		Sentiment:  req.Sentiment,
		Confidence: req.Confidence,
		Score:      req.Score,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, rec)
}

func (h *Handler) ClearAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	var owner *domain.ID
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := domain.ParseID(raw)
		if err != nil {
			h.respondWithError(w, r, err)
			return
		}
		owner = &id
	}
	n, err := h.activity.ClearAnalysis(r.Context(), owner)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// Admin requests

func (h *Handler) ListAdminRequestsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.admin.List(r.Context())
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) UserAdminRequestsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	list, err := h.admin.ForUser(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateAdminRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AdminRequestCreate
	if !h.decode(w, r, &req) {
		return
	}
	user, err := domain.ParseID(req.UserID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	ar, err := h.admin.Create(r.Context(), user, req.Reason)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, ar)
}

func (h *Handler) ApproveAdminRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.admin.Approve)
}

func (h *Handler) RejectAdminRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.admin.Reject)
}

func (h *Handler) ReapplyAdminRequestHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ReapplyRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	h.transition(w, r, func(ctx context.Context, id domain.ID) (*domain.AdminRequest, error) {
		return h.admin.Reapply(ctx, id, req.Reason)
	})
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, domain.ID) (*domain.AdminRequest, error)) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	ar, err := fn(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ar)
}

// Admin actions

func (h *Handler) MakeAdminHandler(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, true)
}

func (h *Handler) RemoveAdminHandler(w http.ResponseWriter, r *http.Request) {
	h.setAdmin(w, r, false)
}

func (h *Handler) setAdmin(w http.ResponseWriter, r *http.Request, admin bool) {
	var req models.SetAdminRequest
	if !h.decode(w, r, &req) {
		return
	}
	id, err := domain.ParseID(req.UserID)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	acc, err := h.admin.SetAdmin(r.Context(), id, admin)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, acc)
}

func (h *Handler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	summary, err := h.deleter.DeleteUser(r.Context(), id)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (h *Handler) DeletePollHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.polls.Delete(r.Context(), id); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"deleted": id.String()})
}

// Helpers

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.respondWithError(w, r, domain.Invalid("malformed JSON body"))
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (domain.ID, bool) {
	id, err := domain.ParseID(mux.Vars(r)["id"])
	if err != nil {
		h.respondWithError(w, r, err)
		return domain.ID{}, false
	}
	return id, true
}

// statusFor maps a domain error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientBalance), errors.Is(err, domain.ErrInvalidOption):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPollClosed),
		errors.Is(err, domain.ErrDuplicateVote),
		errors.Is(err, domain.ErrDuplicateRequest),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *Handler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		if code == http.StatusInternalServerError {
			msg = "internal server error"
		} else {
			msg = "storage temporarily unavailable"
		}
	}
	respondWithJSON(w, code, models.ErrorResponse{Error: domain.Code(err), Message: msg})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
