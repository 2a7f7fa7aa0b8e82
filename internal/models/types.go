// Package models holds the JSON request and response bodies of the HTTP API.
// Identifiers travel as canonical UUID strings.
package models

import "github.com/punchamoorthee/pointsops/internal/domain"

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TransferRequest is the payload of POST /transactions.
type TransferRequest struct {
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Amount     int64  `json:"amount"`
}

type CreatePollRequest struct {
	Title     string   `json:"title"`
	Options   []string `json:"options"`
	CreatorID string   `json:"creator_id,omitempty"`
}

type VoteRequest struct {
	UserID string `json:"user_id"`
	Option string `json:"option"`
}

type ChatRequest struct {
	RoomID  string `json:"room_id"`
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type AnalysisRequest struct {
	UserID     string  `json:"user_id"`
	Text       string  `json:"text"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Score      float64 `json:"score"`
}

type AdminRequestCreate struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

type ReapplyRequest struct {
	Reason string `json:"reason"`
}

type SetAdminRequest struct {
	UserID string `json:"user_id"`
}

// PollResponse adds the derived vote total to a poll.
type PollResponse struct {
	*domain.Poll
	TotalVotes int64 `json:"total_votes"`
}

func NewPollResponse(p *domain.Poll) PollResponse {
	return PollResponse{Poll: p, TotalVotes: p.TotalVotes()}
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
