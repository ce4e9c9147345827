package users

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleSupplier || r == RoleAdmin
}

// User never serializes its password hash.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Role          Role      `json:"role"`
	GoogleAccount bool      `json:"is_google_account"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type UpdateInput struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	AvatarURL *string `json:"avatar_url"`
}
