package childbridge

import (
	"fmt"
	"sync"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

// Capability is a named administrative permission. Grants are explicit and
// flat: holding CapAdmin lets a principal edit the table, it does not imply
// any of the other capabilities.
type Capability uint8

const (
	// CapAdmin may grant and revoke capabilities.
	CapAdmin Capability = iota

	// CapPause may halt inbound processing and withdrawals.
	CapPause

	// CapUnpause may resume a paused controller.
	CapUnpause

	// CapManageAdaptor may rotate the adaptor reference.
	CapManageAdaptor

	// CapTreasury may fund the controller's native treasury.
	CapTreasury
)

func (c Capability) String() string {
	switch c {
	case CapAdmin:
		return "admin"
	case CapPause:
		return "pause"
	case CapUnpause:
		return "unpause"
	case CapManageAdaptor:
		return "manage_adaptor"
	case CapTreasury:
		return "treasury"
	default:
		return fmt.Sprintf("unknown capability: %d", uint8(c))
	}
}

// RoleTable maps principals to the capabilities they hold.
type RoleTable struct {
	mu     sync.RWMutex
	grants map[wire.Address]map[Capability]struct{}
}

func NewRoleTable() *RoleTable {
	return &RoleTable{grants: map[wire.Address]map[Capability]struct{}{}}
}

func (rt *RoleTable) Grant(principal wire.Address, c Capability) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	caps, ok := rt.grants[principal]
	if !ok {
		caps = map[Capability]struct{}{}
		rt.grants[principal] = caps
	}
	caps[c] = struct{}{}
}

func (rt *RoleTable) Revoke(principal wire.Address, c Capability) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	caps, ok := rt.grants[principal]
	if !ok {
		return
	}
	delete(caps, c)
	if len(caps) == 0 {
		delete(rt.grants, principal)
	}
}

func (rt *RoleTable) Has(principal wire.Address, c Capability) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	_, ok := rt.grants[principal][c]
	return ok
}

// Capabilities returns the capabilities a principal holds, for status
// introspection. Order is unspecified.
func (rt *RoleTable) Capabilities(principal wire.Address) []Capability {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	caps := make([]Capability, 0, len(rt.grants[principal]))
	for c := range rt.grants[principal] {
		caps = append(caps, c)
	}
	return caps
}

// RoleBundle names the initial holder of each capability. Initialization
// refuses zero principals so no capability starts unreachable.
type RoleBundle struct {
	Admin           wire.Address
	Pauser          wire.Address
	Unpauser        wire.Address
	AdaptorManager  wire.Address
	TreasuryManager wire.Address
}

func (rb *RoleBundle) Validate() error {
	for _, field := range []struct {
		name string
		addr wire.Address
	}{
		{"admin", rb.Admin},
		{"pauser", rb.Pauser},
		{"unpauser", rb.Unpauser},
		{"adaptor manager", rb.AdaptorManager},
		{"treasury manager", rb.TreasuryManager},
	} {
		if field.addr.IsZero() {
			return fmt.Errorf("%w: %s role", common.ErrZeroAddress, field.name)
		}
	}
	return nil
}

// seed builds the initial table from the bundle.
func (rb *RoleBundle) seed() *RoleTable {
	rt := NewRoleTable()
	rt.Grant(rb.Admin, CapAdmin)
	rt.Grant(rb.Pauser, CapPause)
	rt.Grant(rb.Unpauser, CapUnpause)
	rt.Grant(rb.AdaptorManager, CapManageAdaptor)
	rt.Grant(rb.TreasuryManager, CapTreasury)
	return rt
}
