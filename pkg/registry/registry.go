// Package registry tracks which origin tokens have a representation on the
// local side and where that representation lives. Addressing is pure: both
// sides derive the representation address from the same (deployer, template,
// origin) triple, so the root can compute a child-side address without a
// round trip. Registration is the separate, effectful step that makes a
// predicted address real.
package registry

import (
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/causewayprotocol/causeway/pkg/common"
	"github.com/causewayprotocol/causeway/pkg/db"
	"github.com/causewayprotocol/causeway/pkg/ledger"
	"github.com/causewayprotocol/causeway/pkg/wire"
)

// Entry is one origin -> local mapping plus the metadata the representation
// was (or will be) initialized with.
type Entry struct {
	Origin wire.Address
	Local  wire.Address
	Meta   ledger.TokenMeta
}

type Registry struct {
	logger   *zap.Logger
	side     string
	deployer wire.Address
	template wire.Address

	mu      sync.RWMutex
	entries map[wire.Address]*Entry       // origin -> entry
	origins map[wire.Address]wire.Address // local -> origin

	store *db.Database // nil means in-memory only
}

// PredictLocalAddress derives the deterministic address of the local
// representation of originToken. The derivation commits to the deployer and
// the template identity, so controllers configured with the same pair agree
// on every address without communicating.
func PredictLocalAddress(deployer, template, originToken wire.Address) wire.Address {
	templateHash := crypto.Keccak256(template[:])
	h := crypto.Keccak256([]byte{0xff}, deployer[:], originToken[:], templateHash)
	addr, _ := wire.BytesToAddress(h)
	return addr
}

// New builds a registry for one side of the bridge. If store is non-nil,
// previously persisted mappings are replayed into memory and future
// registrations are written through.
func New(logger *zap.Logger, side string, deployer, template wire.Address, store *db.Database) (*Registry, error) {
	r := &Registry{
		logger:   logger.With(zap.String("registry", side)),
		side:     side,
		deployer: deployer,
		template: template,
		entries:  make(map[wire.Address]*Entry),
		origins:  make(map[wire.Address]wire.Address),
		store:    store,
	}

	if store != nil {
		records, err := store.GetMappings(side)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			e := &Entry{
				Origin: rec.Origin,
				Local:  rec.Local,
				Meta:   ledger.TokenMeta{Name: rec.Name, Symbol: rec.Symbol, Decimals: rec.Decimals},
			}
			r.entries[e.Origin] = e
			r.origins[e.Local] = e.Origin
		}
		if len(records) != 0 {
			r.logger.Info("loaded token mappings from database", zap.Int("count", len(records)))
		}
	}

	return r, nil
}

func (r *Registry) PredictLocalAddress(originToken wire.Address) wire.Address {
	return PredictLocalAddress(r.deployer, r.template, originToken)
}

// RegisterMapping records originToken -> PredictLocalAddress(originToken).
// At most once per origin; a second registration fails with ErrAlreadyMapped
// no matter who asks.
func (r *Registry) RegisterMapping(originToken wire.Address, meta ledger.TokenMeta) (wire.Address, error) {
	if originToken.IsZero() {
		return wire.ZeroAddress, common.ErrZeroAddress
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[originToken]; exists {
		return wire.ZeroAddress, common.ErrAlreadyMapped
	}

	local := PredictLocalAddress(r.deployer, r.template, originToken)

	if r.store != nil {
		rec := &db.MappingRecord{
			Origin:   originToken,
			Local:    local,
			Name:     meta.Name,
			Symbol:   meta.Symbol,
			Decimals: meta.Decimals,
		}
		if err := r.store.StoreMapping(r.side, rec); err != nil {
			return wire.ZeroAddress, err
		}
	}

	r.entries[originToken] = &Entry{Origin: originToken, Local: local, Meta: meta}
	r.origins[local] = originToken

	r.logger.Info("registered token mapping",
		zap.Stringer("origin", originToken),
		zap.Stringer("local", local),
		zap.String("symbol", meta.Symbol))

	return local, nil
}

// Unregister removes a mapping. This is a rollback hook for controllers
// unwinding a failed compound operation, not a protocol surface; mappings
// are otherwise permanent.
func (r *Registry) Unregister(originToken wire.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[originToken]
	if !exists {
		return
	}

	if r.store != nil {
		if err := r.store.DeleteMapping(r.side, originToken); err != nil {
			r.logger.Error("failed to delete persisted mapping",
				zap.Stringer("origin", originToken), zap.Error(err))
		}
	}

	delete(r.entries, originToken)
	delete(r.origins, entry.Local)
}

// Lookup returns the local representation address for originToken.
func (r *Registry) Lookup(originToken wire.Address) (wire.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[originToken]
	if !exists {
		return wire.ZeroAddress, false
	}
	return entry.Local, true
}

// LookupEntry returns a copy of the full entry for originToken.
func (r *Registry) LookupEntry(originToken wire.Address) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[originToken]
	if !exists {
		return Entry{}, false
	}
	return *entry, true
}

// OriginOf is the reverse lookup: given a local representation address,
// return the origin token it stands for.
func (r *Registry) OriginOf(local wire.Address) (wire.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	origin, exists := r.origins[local]
	return origin, exists
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}
