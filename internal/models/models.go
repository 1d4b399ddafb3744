package models

import "time"

// User represents a user of the language-exchange directory
type User struct {
	ID               string    `json:"id"`
	FullName         string    `json:"full_name"`
	Bio              string    `json:"bio"`
	NativeLanguage   string    `json:"native_language"`
	LearningLanguage string    `json:"learning_language"`
	Location         string    `json:"location"`
	ProfilePic       string    `json:"profile_pic"`
	IsOnboarded      bool      `json:"is_onboarded"`
	Friends          []string  `json:"friends"`
	PushToken        *string   `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// HasFriend reports whether id is in the user's friends set
func (u *User) HasFriend(id string) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// Summary returns the display attributes of the user
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:               u.ID,
		FullName:         u.FullName,
		ProfilePic:       u.ProfilePic,
		NativeLanguage:   u.NativeLanguage,
		LearningLanguage: u.LearningLanguage,
	}
}

// UserSummary is the counterpart information attached to requests and events
type UserSummary struct {
	ID               string `json:"id"`
	FullName         string `json:"full_name"`
	ProfilePic       string `json:"profile_pic,omitempty"`
	NativeLanguage   string `json:"native_language,omitempty"`
	LearningLanguage string `json:"learning_language,omitempty"`
}

// Profile holds the fields set during onboarding
type Profile struct {
	FullName         string `json:"full_name"`
	Bio              string `json:"bio"`
	NativeLanguage   string `json:"native_language"`
	LearningLanguage string `json:"learning_language"`
	Location         string `json:"location"`
	ProfilePic       string `json:"profile_pic"`
}

// RequestStatus is the state of a friend request
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// IsTerminal reports whether no transition leaves s
func (s RequestStatus) IsTerminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// CanTransition reports whether s may move to next.
// Only pending requests move, and only to accepted or rejected.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	return s == StatusPending && next.IsTerminal()
}

// FriendRequest represents a directed friend request between two users
type FriendRequest struct {
	ID          string        `json:"id"`
	SenderID    string        `json:"sender_id"`
	RecipientID string        `json:"recipient_id"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// OtherParty returns the participant that is not userID
func (r *FriendRequest) OtherParty(userID string) string {
	if r.SenderID == userID {
		return r.RecipientID
	}
	return r.SenderID
}

// Involves reports whether userID is the sender or the recipient
func (r *FriendRequest) Involves(userID string) bool {
	return r.SenderID == userID || r.RecipientID == userID
}

// FriendRequestView is a friend request with the counterpart's display attributes resolved
type FriendRequestView struct {
	FriendRequest
	Sender    *UserSummary `json:"sender,omitempty"`
	Recipient *UserSummary `json:"recipient,omitempty"`
}
