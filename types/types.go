package types

import (
	"errors"
	"strings"
)

// Role is the closed set of console roles.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimSpace(s)) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", ErrUnknownRole
	}
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Profile is the reduced identity cached in the profile cookie.
type Profile struct {
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
}

// User is the identity returned by the backend at login.
type User struct {
	ID        string `json:"id,omitempty"`
	LastName  string `json:"lastName"`
	FirstName string `json:"firstName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// Profile drops everything the console does not need to keep client-side.
func (u User) Profile() (Profile, error) {
	role, err := ParseRole(u.Role)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		LastName:  u.LastName,
		FirstName: u.FirstName,
		Email:     u.Email,
		Role:      role,
	}, nil
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SessionCookies holds the raw cookie values of one request. Empty means absent.
type SessionCookies struct {
	Token   string
	Profile string
}
