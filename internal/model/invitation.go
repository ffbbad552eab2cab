package model

import "time"

// DefaultInvitationTTL is how long an invitation stays respondable.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// MaxInvitationMessage is the maximum length of an invitation message.
const MaxInvitationMessage = 200

// InvitationStatus is the lifecycle status of an invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// Valid reports whether s is a known invitation status.
func (s InvitationStatus) Valid() bool {
	switch s {
	case InvitationPending, InvitationAccepted, InvitationDeclined, InvitationExpired:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s InvitationStatus) Terminal() bool {
	return s == InvitationAccepted || s == InvitationDeclined || s == InvitationExpired
}

// Response is the invited user's answer to an invitation.
type Response string

const (
	ResponseAccept  Response = "accept"
	ResponseDecline Response = "decline"
)

// Valid reports whether r is accept or decline.
func (r Response) Valid() bool {
	return r == ResponseAccept || r == ResponseDecline
}

// Status returns the invitation status r leads to.
func (r Response) Status() InvitationStatus {
	if r == ResponseAccept {
		return InvitationAccepted
	}
	return InvitationDeclined
}

// Invitation asks a user to join a project with a role.
type Invitation struct {
	ID            string           `json:"id" bson:"_id"`
	ProjectID     string           `json:"project" bson:"project"`
	InvitedByID   string           `json:"invitedBy" bson:"invitedBy"`
	InvitedUserID string           `json:"invitedUser" bson:"invitedUser"`
	Role          Role             `json:"role" bson:"role"`
	Message       string           `json:"message,omitempty" bson:"message,omitempty"`
	Status        InvitationStatus `json:"status" bson:"status"`
	ExpiresAt     time.Time        `json:"expiresAt" bson:"expiresAt"`
	RespondedAt   *time.Time       `json:"respondedAt" bson:"respondedAt"`
	CreatedAt     time.Time        `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt" bson:"updatedAt"`
}

// IsExpired reports whether the invitation's expiry lies before now.
func (i *Invitation) IsExpired(now time.Time) bool {
	return i.ExpiresAt.Before(now)
}

// IsRespondable reports whether the invitation is pending and not expired.
func (i *Invitation) IsRespondable(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpired(now)
}
