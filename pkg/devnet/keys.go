package devnet

import (
	"crypto/ecdsa"
	"fmt"
	mathrand "math/rand"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

// InsecureDeterministicKeyByIndex generates a deterministic ecdsa.PrivateKey
// from a given index.
func InsecureDeterministicKeyByIndex(idx uint64) *ecdsa.PrivateKey {
	r := mathrand.New(mathrand.NewSource(int64(idx))) //#nosec G404 Devnet keys are not secret.
	key, err := ecdsa.GenerateKey(ethcrypto.S256(), r)
	if err != nil {
		panic(err)
	}

	return key
}

// InsecureDeterministicAddress returns the bridge address derived from the
// deterministic key at the given index.
func InsecureDeterministicAddress(idx uint64) wire.Address {
	key := InsecureDeterministicKeyByIndex(idx)
	addr, err := wire.BytesToAddress(ethcrypto.PubkeyToAddress(key.PublicKey).Bytes())
	if err != nil {
		panic(err)
	}
	return addr
}

// GenerateAndStoreOwnerKey writes the deterministic devnet owner key to disk.
func GenerateAndStoreOwnerKey(filename string) error {
	gk := InsecureDeterministicKeyByIndex(KeyIndexOwner)

	if err := common.WriteArmoredKey(gk, "auto-generated deterministic devnet key", filename, common.BridgeKeyArmoredBlock, true); err != nil {
		return fmt.Errorf("failed to store generated bridge key: %w", err)
	}

	return nil
}
