package session

import (
	"github.com/google/uuid"

	"github.com/roomezes/roomezes-backend/pkg/enums"
)

// Context is the authenticated identity handed explicitly to cart and checkout calls.
type Context struct {
	UserID   uuid.UUID
	Email    string
	Role     enums.UserRole
	VendorID *uuid.UUID
	AccessID string
}

// IsZero reports whether no user is signed in.
func (c Context) IsZero() bool {
	return c.UserID == uuid.Nil
}

// IsVendor reports whether the session can manage the given vendor's orders and menu.
func (c Context) IsVendor(vendorID uuid.UUID) bool {
	if c.Role == enums.UserRoleAdmin {
		return true
	}
	return c.Role == enums.UserRoleVendor && c.VendorID != nil && *c.VendorID == vendorID
}
