package domain

import (
	"context"
	"time"
)

type Role struct {
	Slug   string `json:"slug"`
	Active bool   `json:"active"`
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	Roles        []Role    `json:"roles,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ActiveRoleSlugs returns the slugs of the user's active roles. Inactive
// roles never contribute to token scope.
func (u *User) ActiveRoleSlugs() []string {
	slugs := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		if r.Active {
			slugs = append(slugs, r.Slug)
		}
	}
	return slugs
}

// UserView is the principal view returned by login and refresh responses.
type UserView struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	RoleSlugs []string  `json:"role_slugs"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Phone:     u.Phone,
		RoleSlugs: u.ActiveRoleSlugs(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
}
