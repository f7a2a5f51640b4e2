package member

import (
	"strings"

	"github.com/fablab/backend/internal/domain/shared"
)

// Role represents the access level of a profile
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
)

// IsValid checks if the role is a known Role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// IsPrivileged returns true for roles that operate on behalf of other members
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// Profile is a lab member, manager or administrator
type Profile struct {
	shared.BaseAggregateRoot
	FirstName         string
	LastName          string
	Email             string
	PasswordHash      string
	Role              Role
	GatewayCustomerID string
}

// NewProfile creates a new member profile
func NewProfile(firstName, lastName, email string, role Role) (*Profile, error) {
	if strings.TrimSpace(firstName) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "First name cannot be empty")
	}
	if strings.TrimSpace(lastName) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Last name cannot be empty")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("INVALID_EMAIL", "A valid email is required")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role: "+role.String())
	}

	return &Profile{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FirstName:         strings.TrimSpace(firstName),
		LastName:          strings.TrimSpace(lastName),
		Email:             email,
		Role:              role,
	}, nil
}

// FullName returns the display name used on invoices
func (p *Profile) FullName() string {
	return p.FirstName + " " + p.LastName
}

// IsAdmin returns true if the profile has the admin role
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsManager returns true if the profile has the manager role
func (p *Profile) IsManager() bool {
	return p.Role == RoleManager
}

// AttachGatewayCustomer records the payment gateway customer id for this profile
func (p *Profile) AttachGatewayCustomer(customerID string) error {
	if customerID == "" {
		return shared.NewDomainError("INVALID_CUSTOMER_ID", "Gateway customer ID cannot be empty")
	}
	p.GatewayCustomerID = customerID
	return nil
}

// HasGatewayCustomer returns true once a gateway customer has been attached
func (p *Profile) HasGatewayCustomer() bool {
	return p.GatewayCustomerID != ""
}
