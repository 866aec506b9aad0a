// README: User directory records as seen by the dispatch engine.
package user

import (
	"errors"

	"ridewave/internal/types"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleCaptain  Role = "captain"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleCaptain
}

type User struct {
	ID        types.ID `json:"id"`
	Phone     string   `json:"phone"`
	Role      Role     `json:"role"`
	PushToken string   `json:"firebasePushToken"`
}

var ErrNotFound = errors.New("user not found")
