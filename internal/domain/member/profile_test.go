package member

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfile(t *testing.T) {
	t.Run("creates a valid profile", func(t *testing.T) {
		p, err := NewProfile("Marie", "Durand", "Marie.Durand@example.com", RoleMember)
		require.NoError(t, err)
		assert.Equal(t, "Marie Durand", p.FullName())
		assert.Equal(t, "marie.durand@example.com", p.Email)
		assert.False(t, p.IsAdmin())
		assert.False(t, p.HasGatewayCustomer())
	})

	t.Run("rejects empty names", func(t *testing.T) {
		_, err := NewProfile("", "Durand", "m@example.com", RoleMember)
		assert.Error(t, err)
		_, err = NewProfile("Marie", "  ", "m@example.com", RoleMember)
		assert.Error(t, err)
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := NewProfile("Marie", "Durand", "not-an-email", RoleMember)
		assert.Error(t, err)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := NewProfile("Marie", "Durand", "m@example.com", Role("SUPERUSER"))
		assert.Error(t, err)
	})
}

func TestRolePrivileges(t *testing.T) {
	assert.True(t, RoleAdmin.IsPrivileged())
	assert.True(t, RoleManager.IsPrivileged())
	assert.False(t, RoleMember.IsPrivileged())
}

func TestAttachGatewayCustomer(t *testing.T) {
	p, err := NewProfile("Jean", "Dupont", "jean@example.com", RoleMember)
	require.NoError(t, err)

	assert.Error(t, p.AttachGatewayCustomer(""))
	require.NoError(t, p.AttachGatewayCustomer("cus_123"))
	assert.True(t, p.HasGatewayCustomer())
}
