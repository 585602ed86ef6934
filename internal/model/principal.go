package model

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Principal es el usuario autenticado que entrega el servicio de auth.
type Principal struct {
	ID   string
	Role string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// CanAccess: el dueño o un admin.
func (p Principal) CanAccess(ownerID string) bool {
	return p.IsAdmin() || (p.ID != "" && p.ID == ownerID)
}
