package domain

// Actor identifies who is performing an operation, as extracted from the
// request's JWT claims.
type Actor struct {
	UserID int64
	Email  string
	Role   string
}

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}
