package entity

// Roles válidos para User.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
	RoleVendedor  = "vendedor"
)

// Estados de un usuario.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// User parte de un traslado: personal de bodega o vendedor con camioneta.
type User struct {
	ID     string
	Name   string
	Role   string // admin, bodeguero, vendedor
	Status string // active, inactive
}

// IsActive indica si el usuario puede operar (no desactivado).
func (u *User) IsActive() bool { return u.Status == UserStatusActive }

// IsSalesRep indica si el usuario maneja una camioneta.
func (u *User) IsSalesRep() bool { return u.Role == RoleVendedor }

// IsWarehouseStaff indica si el usuario opera la bodega.
func (u *User) IsWarehouseStaff() bool {
	return u.Role == RoleBodeguero || u.Role == RoleAdmin
}

// DisplayName nombre para mostrar; cae al ID si no hay nombre.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
