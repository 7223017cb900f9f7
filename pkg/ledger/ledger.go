// Package ledger provides the in-memory asset ledger the bridge controllers
// execute against in devnet and tests: native currency balances, fungible
// token contracts with owner-restricted mint and burn, wrapped-native
// unwrapping, and snapshot/revert so a controller can make a multi-step
// operation all-or-nothing.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/wire"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrTokenExists       = errors.New("token already exists")
	ErrUnknownToken      = errors.New("unknown token")
	ErrNotTokenOwner     = errors.New("caller is not the token owner")
	ErrNotWrappedNative  = errors.New("not the wrapped native token")
)

const taxDivisor = 10_000

// Ledger models one side's execution environment. All methods are safe for
// concurrent use; each acquires the ledger mutex for its full duration.
type Ledger struct {
	logger *zap.Logger
	name   string

	mu        sync.Mutex
	native    map[wire.Address]*uint256.Int
	tokens    map[wire.Address]*token
	snapshots []snapshot
}

type snapshot struct {
	native map[wire.Address]*uint256.Int
	tokens map[wire.Address]*token
}

func New(logger *zap.Logger, name string) *Ledger {
	return &Ledger{
		logger: logger.With(zap.String("ledger", name)),
		name:   name,
		native: map[wire.Address]*uint256.Int{},
		tokens: map[wire.Address]*token{},
	}
}

func (l *Ledger) Name() string {
	return l.name
}

// CreditNative creates amount units of native currency in account's balance.
// Devnet genesis funding and wrapped-native unwrapping are the only sources
// of new native currency.
func (l *Ledger) CreditNative(account wire.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.creditNativeLocked(account, amount)
}

func (l *Ledger) creditNativeLocked(account wire.Address, amount *uint256.Int) {
	balance, ok := l.native[account]
	if !ok {
		balance = uint256.NewInt(0)
		l.native[account] = balance
	}
	balance.Add(balance, amount)
}

// NativeBalanceOf returns a copy of account's native currency balance.
func (l *Ledger) NativeBalanceOf(account wire.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if balance, ok := l.native[account]; ok {
		return new(uint256.Int).Set(balance)
	}
	return uint256.NewInt(0)
}

// TransferNative moves amount units of native currency between accounts.
func (l *Ledger) TransferNative(from, to wire.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferNativeLocked(from, to, amount)
}

func (l *Ledger) transferNativeLocked(from, to wire.Address, amount *uint256.Int) error {
	balance, ok := l.native[from]
	if !ok || balance.Lt(amount) {
		return fmt.Errorf("%w: native balance of %s is below %s", ErrInsufficientFunds, from, amount)
	}
	balance.Sub(balance, amount)
	l.creditNativeLocked(to, amount)
	return nil
}

// CreateToken materializes a token contract at addr. Bridge representations
// pass the controller as owner and the origin token as rootMapping; plain
// tokens pass their deployer and a zero rootMapping.
func (l *Ledger) CreateToken(addr wire.Address, meta TokenMeta, owner, rootMapping wire.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tokens[addr]; ok {
		return fmt.Errorf("%w: %s", ErrTokenExists, addr)
	}
	l.tokens[addr] = &token{
		meta:        meta,
		balances:    map[wire.Address]*uint256.Int{},
		totalSupply: uint256.NewInt(0),
		owner:       owner,
		rootMapping: rootMapping,
	}
	l.logger.Debug("token created",
		zap.Stringer("token", addr),
		zap.String("symbol", meta.Symbol),
		zap.Stringer("owner", owner),
	)
	return nil
}

// CreateWrappedNative materializes a wrapped-native token at addr. Any holder
// can wrap native currency into it and unwrap back out.
func (l *Ledger) CreateWrappedNative(addr wire.Address, meta TokenMeta) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tokens[addr]; ok {
		return fmt.Errorf("%w: %s", ErrTokenExists, addr)
	}
	l.tokens[addr] = &token{
		meta:          meta,
		balances:      map[wire.Address]*uint256.Int{},
		totalSupply:   uint256.NewInt(0),
		wrappedNative: true,
	}
	return nil
}

// HasCode reports whether a contract exists at addr.
func (l *Ledger) HasCode(addr wire.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.tokens[addr]
	return ok
}

// Meta returns the token's metadata.
func (l *Ledger) Meta(tokenAddr wire.Address) (TokenMeta, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return TokenMeta{}, fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}
	return t.meta, nil
}

// Owner returns the identity allowed to mint and burn the token. For bridge
// representations this is the controller that materialized them.
func (l *Ledger) Owner(tokenAddr wire.Address) (wire.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return wire.ZeroAddress, fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}
	return t.owner, nil
}

// RootMapping returns the origin token the contract represents, or the zero
// address for tokens that are not bridge representations.
func (l *Ledger) RootMapping(tokenAddr wire.Address) (wire.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return wire.ZeroAddress, fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}
	return t.rootMapping, nil
}

// BalanceOf returns a copy of account's balance of the token.
func (l *Ledger) BalanceOf(tokenAddr, account wire.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}
	return new(uint256.Int).Set(t.balanceOf(account)), nil
}

// TotalSupply returns a copy of the token's total supply.
func (l *Ledger) TotalSupply(tokenAddr wire.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}
	return new(uint256.Int).Set(t.totalSupply), nil
}

// Transfer moves amount of the token from one account to another. Tokens with
// a transfer tax deliver less than amount to the recipient; callers that
// require exact crediting must verify the recipient's balance delta.
func (l *Ledger) Transfer(tokenAddr, from, to wire.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}
	if err := t.debit(from, amount); err != nil {
		return fmt.Errorf("token %s: %w", tokenAddr, err)
	}

	credited := new(uint256.Int).Set(amount)
	if t.taxBips > 0 {
		tax := new(uint256.Int).Mul(amount, uint256.NewInt(t.taxBips))
		tax.Div(tax, uint256.NewInt(taxDivisor))
		credited.Sub(credited, tax)
		t.totalSupply.Sub(t.totalSupply, tax)
	}
	t.credit(to, credited)
	return nil
}

// Mint creates amount units of the token in to's balance. Only the token
// owner may mint.
func (l *Ledger) Mint(tokenAddr, minter, to wire.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}
	if t.owner.IsZero() || minter != t.owner {
		return fmt.Errorf("%w: %s may not mint %s", ErrNotTokenOwner, minter, tokenAddr)
	}
	t.credit(to, amount)
	t.totalSupply.Add(t.totalSupply, amount)
	l.logger.Debug("minted",
		zap.Stringer("token", tokenAddr),
		zap.Stringer("to", to),
		zap.Stringer("amount", amount),
	)
	return nil
}

// Burn destroys amount units of the token held by from. Only the token owner
// may burn.
func (l *Ledger) Burn(tokenAddr, burner, from wire.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}
	if t.owner.IsZero() || burner != t.owner {
		return fmt.Errorf("%w: %s may not burn %s", ErrNotTokenOwner, burner, tokenAddr)
	}
	if err := t.debit(from, amount); err != nil {
		return fmt.Errorf("token %s: %w", tokenAddr, err)
	}
	t.totalSupply.Sub(t.totalSupply, amount)
	l.logger.Debug("burned",
		zap.Stringer("token", tokenAddr),
		zap.Stringer("from", from),
		zap.Stringer("amount", amount),
	)
	return nil
}

// Wrap converts amount of account's native currency into the wrapped token.
func (l *Ledger) Wrap(tokenAddr, account wire.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}
	if !t.wrappedNative {
		return fmt.Errorf("%w: %s", ErrNotWrappedNative, tokenAddr)
	}
	balance, ok := l.native[account]
	if !ok || balance.Lt(amount) {
		return fmt.Errorf("%w: native balance of %s is below %s", ErrInsufficientFunds, account, amount)
	}
	balance.Sub(balance, amount)
	t.credit(account, amount)
	t.totalSupply.Add(t.totalSupply, amount)
	return nil
}

// Unwrap converts amount of account's wrapped tokens back into native
// currency, credited to the same account.
func (l *Ledger) Unwrap(tokenAddr, account wire.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}
	if !t.wrappedNative {
		return fmt.Errorf("%w: %s", ErrNotWrappedNative, tokenAddr)
	}
	if err := t.debit(account, amount); err != nil {
		return fmt.Errorf("token %s: %w", tokenAddr, err)
	}
	t.totalSupply.Sub(t.totalSupply, amount)
	l.creditNativeLocked(account, amount)
	return nil
}

// SetTransferTax makes the token skim the given fraction, in basis points, of
// every transfer. Used to model fee-on-transfer assets.
func (l *Ledger) SetTransferTax(tokenAddr wire.Address, taxBips uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tokens[tokenAddr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}
	t.taxBips = taxBips
	return nil
}

// Snapshot records the full ledger state and returns an identifier that can
// be passed to RevertTo or Release. Snapshots nest; reverting to an earlier
// snapshot discards later ones.
func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	native := make(map[wire.Address]*uint256.Int, len(l.native))
	for account, balance := range l.native {
		native[account] = new(uint256.Int).Set(balance)
	}
	tokens := make(map[wire.Address]*token, len(l.tokens))
	for addr, t := range l.tokens {
		tokens[addr] = t.clone()
	}

	l.snapshots = append(l.snapshots, snapshot{native: native, tokens: tokens})
	return len(l.snapshots) - 1
}

// RevertTo restores the state recorded by Snapshot and discards it along with
// any later snapshots. Passing an identifier that is no longer live is a
// programming error and panics.
func (l *Ledger) RevertTo(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id < 0 || id >= len(l.snapshots) {
		panic(fmt.Sprintf("ledger %s: snapshot id %d cannot be reverted", l.name, id))
	}
	s := l.snapshots[id]
	l.native = s.native
	l.tokens = s.tokens
	l.snapshots = l.snapshots[:id]
}

// Release discards the snapshot and any later ones without restoring state.
// Called on the success path of an operation that took a snapshot.
func (l *Ledger) Release(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id < 0 || id >= len(l.snapshots) {
		panic(fmt.Sprintf("ledger %s: snapshot id %d cannot be released", l.name, id))
	}
	l.snapshots = l.snapshots[:id]
}
