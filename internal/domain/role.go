package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleCustomer     Role = "customer"
	RoleContentAdmin Role = "content_admin"
	RoleAdmin        Role = "admin"
	RoleSuperadmin   Role = "superadmin"
)

func (r Role) String() string { return string(r) }

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleContentAdmin, RoleAdmin, RoleSuperadmin:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// Capability is a bit set of what a role may do.
type Capability uint8

const (
	CapRead Capability = 1 << iota
	CapWriteOwn
	CapWriteAny
)

// Capabilities is the single place roles are turned into permissions.
func Capabilities(r Role) Capability {
	switch r {
	case RoleCustomer:
		return CapRead | CapWriteOwn
	case RoleContentAdmin, RoleAdmin, RoleSuperadmin:
		return CapRead | CapWriteOwn | CapWriteAny
	}
	return CapRead
}

// UserContext is the identity a request runs under. The zero value is an anonymous caller.
type UserContext struct {
	UserID   int64
	Username string
	Role     Role
}

func (u UserContext) Authenticated() bool { return u.UserID > 0 }

func (u UserContext) Can(c Capability) bool {
	if !u.Authenticated() {
		return c == CapRead
	}
	return Capabilities(u.Role)&c == c
}

func (u UserContext) IsAdmin() bool { return u.Can(CapWriteAny) }

// CanActOn reports whether the caller may mutate a resource owned by ownerID.
func (u UserContext) CanActOn(ownerID int64) bool {
	if u.IsAdmin() {
		return true
	}
	return u.Authenticated() && u.UserID == ownerID && u.Can(CapWriteOwn)
}

func (u UserContext) RequireAuthenticated() error {
	if !u.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

func (u UserContext) RequireAdmin() error {
	if err := u.RequireAuthenticated(); err != nil {
		return err
	}
	if !u.IsAdmin() {
		return fmt.Errorf("%w: role %s cannot perform this action", ErrPermissionDenied, u.Role)
	}
	return nil
}
