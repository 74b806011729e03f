package model

import (
	"crypto/subtle"
	"strings"
)

// Role is the access level of a user, stored by name.
type Role string

const (
	RoleRegular Role = "REGULAR_USER"
	RoleGuest   Role = "GUEST"
	RoleCashier Role = "CASHIER"
	RoleAdmin   Role = "ADMIN"
)

// ParseRole maps a stored role name to a Role. Unknown names become RoleRegular.
func ParseRole(s string) Role {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleGuest, RoleCashier, RoleAdmin:
		return r
	}
	return RoleRegular
}

// User is an account. Guests are built per booking flow and never stored.
// Credentials are opaque strings.
type User struct {
	ID         string
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Credential string
	Role       Role
}

func (u *User) IsGuest() bool { return u.Role == RoleGuest }

// IsStaff reports whether the user sells or manages tickets for others.
func (u *User) IsStaff() bool { return u.Role == RoleCashier || u.Role == RoleAdmin }

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) CheckCredential(c string) bool {
	return subtle.ConstantTimeCompare([]byte(u.Credential), []byte(c)) == 1
}

// NormalizeEmail is the directory key form of an email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
