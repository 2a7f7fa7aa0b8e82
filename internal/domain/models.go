package domain

import (
	"time"
)

// Account represents a registered user and their point balance.
type Account struct {
	ID           ID        `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Points       int64     `json:"points"`
	IsAdmin      bool      `json:"is_admin"`
	Avatar       string    `json:"avatar"`
	CreatedAt    time.Time `json:"created_at"`
}

// DefaultAvatar is assigned to every new account.
const DefaultAvatar = "/default-avatar.png"

// AccountUpdate names the profile fields a user may change. Nil fields are left alone.
type AccountUpdate struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u AccountUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.Avatar == nil
}

// Validate rejects updates that would blank out a required field.
func (u AccountUpdate) Validate() error {
	if u.Empty() {
		return Invalid("no fields to update")
	}
	if u.Username != nil && *u.Username == "" {
		return Invalid("username cannot be empty")
	}
	if u.Email != nil && !validEmail(*u.Email) {
		return Invalid("email is malformed")
	}
	return nil
}

// Apply copies the set fields onto a.
func (u AccountUpdate) Apply(a *Account) {
	if u.Username != nil {
		a.Username = *u.Username
	}
	if u.Email != nil {
		a.Email = *u.Email
	}
	if u.Avatar != nil {
		a.Avatar = *u.Avatar
	}
}

// Transaction is the immutable record of a completed point transfer.
type Transaction struct {
	ID         ID        `json:"id"`
	SenderID   ID        `json:"sender_id"`
	ReceiverID ID        `json:"receiver_id"`
	Amount     int64     `json:"amount"`
	Timestamp  time.Time `json:"timestamp"`
}

// Involves reports whether id is either endpoint of the transaction.
func (t Transaction) Involves(id ID) bool {
	return t.SenderID == id || t.ReceiverID == id
}

// Poll owns its tally and voter set. The sum of Votes always equals len(Voters).
type Poll struct {
	ID        ID               `json:"id"`
	Title     string           `json:"title"`
	Options   []string         `json:"options"`
	Votes     map[string]int64 `json:"votes"`
	Voters    []ID             `json:"voters"`
	Active    bool             `json:"active"`
	CreatorID *ID              `json:"creator_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// HasOption reports whether option is one of the poll's labels.
func (p *Poll) HasOption(option string) bool {
	for _, o := range p.Options {
		if o == option {
			return true
		}
	}
	return false
}

// HasVoted reports whether id is already in the voter set.
func (p *Poll) HasVoted(id ID) bool {
	for _, v := range p.Voters {
		if v == id {
			return true
		}
	}
	return false
}

// TotalVotes sums the tally.
func (p *Poll) TotalVotes() int64 {
	var n int64
	for _, c := range p.Votes {
		n += c
	}
	return n
}

// Clone returns a deep copy so callers never share the tally map or voter slice.
func (p *Poll) Clone() *Poll {
	c := *p
	c.Options = append([]string(nil), p.Options...)
	c.Voters = append([]ID(nil), p.Voters...)
	c.Votes = make(map[string]int64, len(p.Votes))
	for k, v := range p.Votes {
		c.Votes[k] = v
	}
	if p.CreatorID != nil {
		id := *p.CreatorID
		c.CreatorID = &id
	}
	return &c
}

// OwnedBy reports whether the poll was created by id.
func (p *Poll) OwnedBy(id ID) bool {
	return p.CreatorID != nil && *p.CreatorID == id
}

// RequestStatus is the state of an AdminRequest.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// AdminRequest is a user's application for administrative rights.
type AdminRequest struct {
	ID        ID            `json:"id"`
	UserID    ID            `json:"user_id"`
	Reason    string        `json:"reason"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ChatMessage is a message posted to a chat room.
type ChatMessage struct {
	ID        ID        `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    ID        `json:"user_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalysisRecord is one saved sentiment analysis result.
type AnalysisRecord struct {
	ID         ID        `json:"id"`
	UserID     ID        `json:"user_id"`
	Text       string    `json:"text"`
	Sentiment  string    `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Score      float64   `json:"score"`
	Timestamp  time.Time `json:"timestamp"`
}

// DeleteSummary counts what a cascading account deletion removed.
type DeleteSummary struct {
	UserID          ID  `json:"user_id"`
	Transactions    int `json:"transactions"`
	ChatMessages    int `json:"chat_messages"`
	Polls           int `json:"polls"`
	AdminRequests   int `json:"admin_requests"`
	AnalysisRecords int `json:"analysis_records"`
}
