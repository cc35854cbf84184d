package models

import (
	"time"

	"github.com/google/uuid"
)

// Kind is the principal type discriminator carried in every token
type Kind string

const (
	KindUser   Kind = "User"
	KindDoctor Kind = "Doctor"
	KindLab    Kind = "Lab"
)

func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindDoctor, KindLab:
		return true
	default:
		return false
	}
}

const (
	RoleUser         = "user"
	RoleMedicalOwner = "medicalOwner"
	RoleAdmin        = "admin"
	RoleDoctor       = "doctor"
	RoleLab          = "lab"
)

// Principal is the credential view shared by users, doctors and labs
type Principal struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`

	PasswordHash string `json:"-"`
	RefreshToken string `json:"-"` // empty when logged out
}

// Redacted returns a copy without credentials
func (p Principal) Redacted() Principal {
	p.PasswordHash = ""
	p.RefreshToken = ""
	return p
}

type User struct {
	Principal

	PhoneNumber            string `json:"phoneNumber"`
	Address                string `json:"address"`
	EmergencyContactNumber string `json:"emergencyContactNumber"`
}

func (u User) Redacted() User {
	u.Principal = u.Principal.Redacted()
	return u
}

type Doctor struct {
	Principal

	PhoneNumber    string `json:"phoneNumber"`
	Address        string `json:"address"`
	Specialization string `json:"specialization"`
}

func (d Doctor) Redacted() Doctor {
	d.Principal = d.Principal.Redacted()
	return d
}
