package childbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

func TestRoleTableGrantRevoke(t *testing.T) {
	rt := NewRoleTable()
	principal := wire.Address{31: 0x11}

	assert.False(t, rt.Has(principal, CapPause))

	rt.Grant(principal, CapPause)
	assert.True(t, rt.Has(principal, CapPause))

	// Grants are per-capability; nothing is implied.
	assert.False(t, rt.Has(principal, CapUnpause))
	assert.False(t, rt.Has(principal, CapAdmin))

	rt.Grant(principal, CapTreasury)
	assert.ElementsMatch(t, []Capability{CapPause, CapTreasury}, rt.Capabilities(principal))

	rt.Revoke(principal, CapPause)
	assert.False(t, rt.Has(principal, CapPause))
	assert.True(t, rt.Has(principal, CapTreasury))

	// Revoking something never granted is a no-op.
	rt.Revoke(wire.Address{31: 0x12}, CapAdmin)
}

func TestRoleBundleValidate(t *testing.T) {
	bundle := testRoles()
	require.NoError(t, bundle.Validate())

	zeroed := []func(*RoleBundle){
		func(rb *RoleBundle) { rb.Admin = wire.ZeroAddress },
		func(rb *RoleBundle) { rb.Pauser = wire.ZeroAddress },
		func(rb *RoleBundle) { rb.Unpauser = wire.ZeroAddress },
		func(rb *RoleBundle) { rb.AdaptorManager = wire.ZeroAddress },
		func(rb *RoleBundle) { rb.TreasuryManager = wire.ZeroAddress },
	}
	for _, clear := range zeroed {
		rb := testRoles()
		clear(&rb)
		require.ErrorIs(t, rb.Validate(), common.ErrZeroAddress)
	}
}

func TestCapabilityNames(t *testing.T) {
	names := map[Capability]string{
		CapAdmin:         "admin",
		CapPause:         "pause",
		CapUnpause:       "unpause",
		CapManageAdaptor: "manage_adaptor",
		CapTreasury:      "treasury",
	}
	for c, want := range names {
		assert.Equal(t, want, c.String())
	}
	assert.Contains(t, Capability(99).String(), "unknown")
}
