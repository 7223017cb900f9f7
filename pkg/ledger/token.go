package ledger

import (
	"github.com/holiman/uint256"

	"github.com/causewayprotocol/causeway/pkg/wire"
)

// TokenMeta is the name/symbol/decimals triple a token contract is created
// with. Representations are initialized with the metadata carried by the
// MapToken message that materialized them.
type TokenMeta struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// token is the state of a single fungible token contract.
type token struct {
	meta        TokenMeta
	balances    map[wire.Address]*uint256.Int
	totalSupply *uint256.Int

	// owner is the only identity allowed to mint and burn. For bridge
	// representations this is the child controller; for plain tokens it is
	// the deployer. Zero means nobody mints.
	owner wire.Address

	// rootMapping is the origin token this contract represents, zero for
	// tokens that are not bridge representations.
	rootMapping wire.Address

	// wrappedNative tokens can be wrapped from and unwrapped into the
	// ledger's native currency by any holder.
	wrappedNative bool

	// taxBips skims a fraction of every transfer, in basis points. Zero for
	// well-behaved tokens; non-zero models fee-on-transfer assets.
	taxBips uint64
}

func (t *token) clone() *token {
	balances := make(map[wire.Address]*uint256.Int, len(t.balances))
	for account, balance := range t.balances {
		balances[account] = new(uint256.Int).Set(balance)
	}
	return &token{
		meta:          t.meta,
		balances:      balances,
		totalSupply:   new(uint256.Int).Set(t.totalSupply),
		owner:         t.owner,
		rootMapping:   t.rootMapping,
		wrappedNative: t.wrappedNative,
		taxBips:       t.taxBips,
	}
}

func (t *token) balanceOf(account wire.Address) *uint256.Int {
	if balance, ok := t.balances[account]; ok {
		return balance
	}
	return uint256.NewInt(0)
}

func (t *token) credit(account wire.Address, amount *uint256.Int) {
	balance, ok := t.balances[account]
	if !ok {
		balance = uint256.NewInt(0)
		t.balances[account] = balance
	}
	balance.Add(balance, amount)
}

func (t *token) debit(account wire.Address, amount *uint256.Int) error {
	balance := t.balanceOf(account)
	if balance.Lt(amount) {
		return ErrInsufficientFunds
	}
	balance.Sub(balance, amount)
	t.balances[account] = balance
	return nil
}
