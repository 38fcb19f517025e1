package model

// Role classifies an actor for authorization purposes.
type Role string

// Known roles. The identity itself is validated by an external session
// collaborator; this core only authorizes.
const (
	RoleAdministrator Role = "ADMINISTRATOR"
	RoleBuyer         Role = "BUYER"
	RoleSupplier      Role = "SUPPLIER"
)

// Valid reports whether r is a defined role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleBuyer, RoleSupplier:
		return true
	}
	return false
}

// Actor is the already-authenticated caller of an operation. Every mutating
// operation takes it explicitly; there is no ambient session state.
type Actor struct {
	ID         string `json:"id"`
	Role       Role   `json:"role"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}
