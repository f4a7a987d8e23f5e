package model

import "time"

// Role enumerates the actor types known to the platform.  Roles are
// stored as strings in the users table and inside JWT claims, but all
// capability decisions go through the methods below rather than ad hoc
// string comparisons scattered across handlers.
type Role string

const (
	RoleCustomer     Role = "customer"
	RolePartnerOwner Role = "partner_owner"
	RolePartnerStaff Role = "partner_staff"
	RoleAdmin        Role = "admin"
)

// ParseRole normalizes a raw role string into a Role.  Unknown values
// return false so callers can reject tokens with tampered claims.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCustomer, RolePartnerOwner, RolePartnerStaff, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

// CanBook reports whether the role may create bookings.  Partners can
// book classes for their own kids, so the set is wider than customers.
func (r Role) CanBook() bool {
	return r == RoleCustomer || r == RolePartnerOwner || r == RolePartnerStaff
}

// IsPartner reports whether the role belongs to a partner organisation.
func (r Role) IsPartner() bool {
	return r == RolePartnerOwner || r == RolePartnerStaff
}

// String returns the wire representation of the role.
func (r Role) String() string { return string(r) }

// User mirrors the `users` table.  Password hashes are bcrypt.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique, stored lower-cased.
//  Name         – display name shown on invoices and notifications.
//  Phone        – optional contact number.
//  PasswordHash – bcrypt hash of the password.
//  Role         – see Role above.
//  IsActive     – soft disable flag.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	Name         string    // users.name
	Phone        string    // users.phone
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Actor is the authenticated identity attached to a request after JWT
// validation.  It is everything the booking engine needs to authorise
// an operation.
type Actor struct {
	UserID uint64
	Role   Role
}
