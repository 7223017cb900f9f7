package devnet

import (
	"fmt"
	"path"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/causewayprotocol/causeway/pkg/common"
)

func TestInsecureDeterministicKeyByIndex(t *testing.T) {
	for idx := uint64(0); idx < 4; idx++ {
		t.Run(fmt.Sprint(idx), func(t *testing.T) {
			a := InsecureDeterministicKeyByIndex(idx)
			b := InsecureDeterministicKeyByIndex(idx)
			assert.Equal(t, ethcrypto.FromECDSA(a), ethcrypto.FromECDSA(b))

			other := InsecureDeterministicKeyByIndex(idx + 1)
			assert.NotEqual(t, ethcrypto.FromECDSA(a), ethcrypto.FromECDSA(other))
		})
	}
}

func TestInsecureDeterministicAddress(t *testing.T) {
	addr := InsecureDeterministicAddress(3)

	assert.False(t, addr.IsZero())
	assert.Equal(t, InsecureDeterministicAddress(3), addr)

	// Derived from a 20 byte account, so the value is left-padded.
	assert.Equal(t, make([]byte, 12), addr.Bytes()[:12])

	key := InsecureDeterministicKeyByIndex(3)
	assert.Equal(t, ethcrypto.PubkeyToAddress(key.PublicKey).Bytes(), addr.Bytes()[12:])
}

func TestGenerateAndStoreOwnerKey(t *testing.T) {
	filename := path.Join(t.TempDir(), "bridge.key")

	require.NoError(t, GenerateAndStoreOwnerKey(filename))

	// Deterministic keys only load in unsafe-dev mode.
	_, err := common.LoadBridgeKey(filename, false)
	require.Error(t, err)

	key, err := common.LoadBridgeKey(filename, true)
	require.NoError(t, err)
	assert.Equal(t,
		ethcrypto.FromECDSA(InsecureDeterministicKeyByIndex(KeyIndexOwner)),
		ethcrypto.FromECDSA(key))

	// An existing key is never overwritten.
	require.Error(t, GenerateAndStoreOwnerKey(filename))
}
