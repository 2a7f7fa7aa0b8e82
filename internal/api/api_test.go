package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/models"
	"github.com/punchamoorthee/pointsops/internal/store"
	"github.com/punchamoorthee/pointsops/internal/store/memory"
	"github.com/punchamoorthee/pointsops/internal/store/storetest"
)

func newServer(t *testing.T) (http.Handler, store.Store) {
	t.Helper()
	s := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(NewHandler(s, log)), s
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("Status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if got := decodeBody[models.ErrorResponse](t, rec); got.Error != code {
		t.Errorf("Error code = %q, want %q", got.Error, code)
	}
}

func TestHealth(t *testing.T) {
	h, _ := newServer(t)
	rec := do(t, h, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", rec.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	h, _ := newServer(t)

	rec := do(t, h, "POST", "/api/v1/auth/register", models.RegisterRequest{
		Username: "hana", Email: "hana@example.com", Password: "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Register status = %d: %s", rec.Code, rec.Body.String())
	}
	acc := decodeBody[domain.Account](t, rec)
	if acc.Points != 0 {
		t.Errorf("New account has %d points, want 0", acc.Points)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("Response leaks the password hash")
	}

	rec = do(t, h, "POST", "/api/v1/auth/register", models.RegisterRequest{
		Username: "hana", Email: "other@example.com", Password: "secret1",
	})
	expectError(t, rec, http.StatusConflict, "conflict")

	rec = do(t, h, "POST", "/api/v1/auth/login", models.LoginRequest{Username: "hana", Password: "wrong!!"})
	expectError(t, rec, http.StatusUnauthorized, "unauthorized")

	rec = do(t, h, "POST", "/api/v1/auth/login", models.LoginRequest{Username: "hana", Password: "secret1"})
	if rec.Code != http.StatusOK {
		t.Errorf("Login status = %d", rec.Code)
	}
}

func TestTransferEndpoints(t *testing.T) {
	h, s := newServer(t)
	a := storetest.CreateAccount(t, s, "alice", 100)
	b := storetest.CreateAccount(t, s, "bob", 0)

	rec := do(t, h, "POST", "/api/v1/transactions", models.TransferRequest{
		SenderID: a.ID.String(), ReceiverID: strings.ToUpper(b.ID.String()), Amount: 40,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Transfer status = %d: %s", rec.Code, rec.Body.String())
	}
	tr := decodeBody[domain.Transaction](t, rec)
	if tr.ReceiverID != b.ID || tr.Amount != 40 {
		t.Errorf("Unexpected transaction: %+v", tr)
	}

	tests := []struct {
		name   string
		req    models.TransferRequest
		status int
		code   string
	}{
		{"overdraw", models.TransferRequest{SenderID: a.ID.String(), ReceiverID: b.ID.String(), Amount: 70}, http.StatusUnprocessableEntity, "insufficient_balance"},
		{"zero amount", models.TransferRequest{SenderID: a.ID.String(), ReceiverID: b.ID.String(), Amount: 0}, http.StatusBadRequest, "invalid_input"},
		{"malformed id", models.TransferRequest{SenderID: "nope", ReceiverID: b.ID.String(), Amount: 1}, http.StatusBadRequest, "invalid_input"},
		{"unknown receiver", models.TransferRequest{SenderID: a.ID.String(), ReceiverID: domain.NewID().String(), Amount: 1}, http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectError(t, do(t, h, "POST", "/api/v1/transactions", tt.req), tt.status, tt.code)
		})
	}

	rec = do(t, h, "GET", "/api/v1/transactions?userId="+b.ID.String(), nil)
	if list := decodeBody[[]domain.Transaction](t, rec); len(list) != 1 {
		t.Errorf("Expected 1 transaction for bob, got %d", len(list))
	}
	expectError(t, do(t, h, "GET", "/api/v1/transactions", nil), http.StatusBadRequest, "invalid_input")

	rec = do(t, h, "GET", "/api/v1/users/"+a.ID.String(), nil)
	if got := decodeBody[domain.Account](t, rec); got.Points != 60 {
		t.Errorf("alice has %d points, want 60", got.Points)
	}
}

func TestPollEndpoints(t *testing.T) {
	h, s := newServer(t)
	u := storetest.CreateAccount(t, s, "voter", 0)

	rec := do(t, h, "POST", "/api/v1/polls", models.CreatePollRequest{Title: "Colour", Options: []string{"red", "blue"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("CreatePoll status = %d: %s", rec.Code, rec.Body.String())
	}
	p := decodeBody[models.PollResponse](t, rec)
	votePath := "/api/v1/polls/" + p.ID.String() + "/vote"

	rec = do(t, h, "POST", votePath, models.VoteRequest{UserID: u.ID.String(), Option: "red"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Vote status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[models.PollResponse](t, rec); got.TotalVotes != 1 || got.Votes["red"] != 1 {
		t.Errorf("Unexpected tally: %+v", got.Votes)
	}

	expectError(t, do(t, h, "POST", votePath, models.VoteRequest{UserID: u.ID.String(), Option: "blue"}),
		http.StatusConflict, "duplicate_vote")
	expectError(t, do(t, h, "POST", votePath, models.VoteRequest{UserID: domain.NewID().String(), Option: "green"}),
		http.StatusUnprocessableEntity, "invalid_option")

	do(t, h, "POST", "/api/v1/polls/"+p.ID.String()+"/toggle", nil)
	expectError(t, do(t, h, "POST", votePath, models.VoteRequest{UserID: domain.NewID().String(), Option: "blue"}),
		http.StatusConflict, "poll_closed")

	rec = do(t, h, "DELETE", "/api/v1/admin/delete-poll/"+p.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("DeletePoll status = %d", rec.Code)
	}
	expectError(t, do(t, h, "GET", "/api/v1/polls/"+p.ID.String(), nil), http.StatusNotFound, "not_found")
}

func TestAdminRequestEndpoints(t *testing.T) {
	h, s := newServer(t)
	u := storetest.CreateAccount(t, s, "applicant", 0)

	rec := do(t, h, "POST", "/api/v1/admin-requests", models.AdminRequestCreate{UserID: u.ID.String(), Reason: "please"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create status = %d: %s", rec.Code, rec.Body.String())
	}
	r := decodeBody[domain.AdminRequest](t, rec)

	expectError(t, do(t, h, "POST", "/api/v1/admin-requests", models.AdminRequestCreate{UserID: u.ID.String(), Reason: "again"}),
		http.StatusConflict, "duplicate_request")

	rec = do(t, h, "POST", "/api/v1/admin-requests/"+r.ID.String()+"/reject", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Reject status = %d", rec.Code)
	}
	expectError(t, do(t, h, "POST", "/api/v1/admin-requests/"+r.ID.String()+"/approve", nil),
		http.StatusConflict, "invalid_transition")

	rec = do(t, h, "POST", "/api/v1/admin-requests/"+r.ID.String()+"/reapply", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Reapply status = %d: %s", rec.Code, rec.Body.String())
	}
	fresh := decodeBody[domain.AdminRequest](t, rec)

	do(t, h, "POST", "/api/v1/admin-requests/"+fresh.ID.String()+"/approve", nil)
	rec = do(t, h, "GET", "/api/v1/users/"+u.ID.String(), nil)
	if got := decodeBody[domain.Account](t, rec); !got.IsAdmin {
		t.Error("Approved applicant is not an admin")
	}

	rec = do(t, h, "GET", "/api/v1/admin-requests/user/"+u.ID.String(), nil)
	if list := decodeBody[[]domain.AdminRequest](t, rec); len(list) != 2 {
		t.Errorf("Expected 2 requests for user, got %d", len(list))
	}
}

func TestDeleteUserEndpoint(t *testing.T) {
	h, s := newServer(t)
	a := storetest.CreateAccount(t, s, "leaving", 50)
	b := storetest.CreateAccount(t, s, "staying", 0)
	do(t, h, "POST", "/api/v1/transactions", models.TransferRequest{SenderID: a.ID.String(), ReceiverID: b.ID.String(), Amount: 10})
	do(t, h, "POST", "/api/v1/chats", models.ChatRequest{RoomID: "general", UserID: a.ID.String(), Message: "bye"})

	rec := do(t, h, "DELETE", "/api/v1/admin/delete-user/"+a.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("DeleteUser status = %d: %s", rec.Code, rec.Body.String())
	}
	summary := decodeBody[domain.DeleteSummary](t, rec)
	if summary.Transactions != 1 || summary.ChatMessages != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}

	expectError(t, do(t, h, "GET", "/api/v1/users/"+a.ID.String(), nil), http.StatusNotFound, "not_found")
	expectError(t, do(t, h, "DELETE", "/api/v1/admin/delete-user/"+a.ID.String(), nil), http.StatusNotFound, "not_found")
	rec = do(t, h, "GET", "/api/v1/transactions?userId="+b.ID.String(), nil)
	if list := decodeBody[[]domain.Transaction](t, rec); len(list) != 0 {
		t.Errorf("Transactions with the deleted user survived: %d", len(list))
	}
}

func TestClearAnalysisEndpoint(t *testing.T) {
	h, s := newServer(t)
	u := storetest.CreateAccount(t, s, "analyst", 0)
	do(t, h, "POST", "/api/v1/analysis-history", models.AnalysisRequest{UserID: u.ID.String(), Text: "great", Sentiment: "positive", Confidence: 0.9})

	rec := do(t, h, "DELETE", "/api/v1/analysis-history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Clear status = %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[map[string]int](t, rec); got["deleted"] != 1 {
		t.Errorf("deleted = %d, want 1", got["deleted"])
	}
	rec = do(t, h, "GET", "/api/v1/analysis-history", nil)
	if list := decodeBody[[]domain.AnalysisRecord](t, rec); len(list) != 0 {
		t.Errorf("Expected empty history, got %d records", len(list))
	}
	expectError(t, do(t, h, "DELETE", "/api/v1/analysis-history?userId=bad", nil), http.StatusBadRequest, "invalid_input")
}

func TestMalformedRequests(t *testing.T) {
	h, _ := newServer(t)

	tests := []struct {
		name, method, path, body string
	}{
		{"bad id in path", "GET", "/api/v1/users/not-a-uuid", ""},
		{"unknown field", "POST", "/api/v1/auth/register", `{"username":"x","points":1000}`},
		{"truncated json", "POST", "/api/v1/polls", `{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			expectError(t, rec, http.StatusBadRequest, "invalid_input")
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{domain.ErrDuplicateVote, http.StatusConflict},
		{domain.Invalid("x"), http.StatusBadRequest},
		{domain.Unavailable(io.ErrUnexpectedEOF), http.StatusServiceUnavailable},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
