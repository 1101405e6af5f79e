package activity

import "time"

// Kind names an authentication event shown on the dashboard.
type Kind string

const (
	KindLogin                Kind = "login"
	KindLogout               Kind = "logout"
	KindRegister             Kind = "register"
	KindProfileUpdate        Kind = "profile_update"
	KindPasswordChange       Kind = "password_change"
	KindPasswordResetRequest Kind = "password_reset_request"
)

// Event is one recorded authentication event. It never holds tokens or passwords.
type Event struct {
	ID     string    `json:"id" bson:"_id"`
	Kind   Kind      `json:"kind" bson:"kind"`
	UserID string    `json:"userId,omitempty" bson:"userId,omitempty"`
	Email  string    `json:"email" bson:"email"`
	Name   string    `json:"name,omitempty" bson:"name,omitempty"`
	Tenant string    `json:"tenant,omitempty" bson:"tenant,omitempty"`
	At     time.Time `json:"at" bson:"at"`
}

// Label is the human readable text for the dashboard table.
func (k Kind) Label() string {
	switch k {
	case KindLogin:
		return "Signed in"
	case KindLogout:
		return "Signed out"
	case KindRegister:
		return "Registered"
	case KindProfileUpdate:
		return "Updated profile"
	case KindPasswordChange:
		return "Changed password"
	case KindPasswordResetRequest:
		return "Requested password reset"
	}
	return string(k)
}
