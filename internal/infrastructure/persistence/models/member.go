package models

import (
	"github.com/fablab/backend/internal/domain/member"
)

// ProfileModel is the persistence model for the Profile aggregate root.
type ProfileModel struct {
	AggregateModel
	FirstName         string      `gorm:"type:varchar(100);not null"`
	LastName          string      `gorm:"type:varchar(100);not null"`
	Email             string      `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash      string      `gorm:"type:varchar(255);not null"`
	Role              member.Role `gorm:"type:varchar(20);not null;default:'MEMBER'"`
	GatewayCustomerID string      `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (ProfileModel) TableName() string {
	return "profiles"
}

// ToDomain converts the persistence model to a domain Profile entity.
func (m *ProfileModel) ToDomain() *member.Profile {
	return &member.Profile{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		FirstName:         m.FirstName,
		LastName:          m.LastName,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Role:              m.Role,
		GatewayCustomerID: m.GatewayCustomerID,
	}
}

// FromDomain populates the persistence model from a domain Profile entity.
func (m *ProfileModel) FromDomain(p *member.Profile) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.FirstName = p.FirstName
	m.LastName = p.LastName
	m.Email = p.Email
	m.PasswordHash = p.PasswordHash
	m.Role = p.Role
	m.GatewayCustomerID = p.GatewayCustomerID
}

// ProfileModelFromDomain creates a new persistence model from a domain Profile entity.
func ProfileModelFromDomain(p *member.Profile) *ProfileModel {
	m := &ProfileModel{}
	m.FromDomain(p)
	return m
}
