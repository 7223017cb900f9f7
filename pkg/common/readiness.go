package common

import "github.com/causewayprotocol/causeway/pkg/readiness"

// Readiness components reported on /readyz. The node registers the ones its
// options actually configure; a registered component that never becomes
// ready keeps the whole node unready.
const (
	ReadinessDatabase        readiness.Component = "database"
	ReadinessRootController  readiness.Component = "rootController"
	ReadinessChildController readiness.Component = "childController"
	// Relayers are named for the side they deliver into.
	ReadinessRootRelayer  readiness.Component = "rootRelayer"
	ReadinessChildRelayer readiness.Component = "childRelayer"
)
