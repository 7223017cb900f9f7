package common

type Environment string

const (
	MainNet      Environment = "prod"
	UnsafeDevNet Environment = "dev"  // local devnet; keys are deterministic and many security controls are disabled
	TestNet      Environment = "test" // public testnet
	GoTest       Environment = "unit-test"
)
