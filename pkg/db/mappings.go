package db

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/causewayprotocol/causeway/pkg/wire"
)

var storedMappingTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "causeway_db_total_mappings",
		Help: "Total number of token mappings added to database",
	})

// Prefix used to isolate token mapping data in the database. The side
// component keeps the root and child registries of a single-process devnet
// from trampling each other.
const mappingPrefix = "MAP:V1:"

var ErrMappingNotFound = errors.New("requested mapping not found in store")

// MappingRecord is the persisted form of a registry entry. The registry
// writes one through on every successful registration and replays the prefix
// on startup.
type MappingRecord struct {
	Origin   wire.Address
	Local    wire.Address
	Name     string
	Symbol   string
	Decimals uint8
}

func mappingKey(side string, origin wire.Address) []byte {
	return []byte(fmt.Sprintf("%v%v:%v", mappingPrefix, side, origin.String()))
}

func mappingPrefixBytes(side string) []byte {
	return []byte(fmt.Sprintf("%v%v:", mappingPrefix, side))
}

func (r *MappingRecord) Marshal() ([]byte, error) {
	if len(r.Name) > math.MaxUint16 {
		return nil, fmt.Errorf("name longer than %d bytes", math.MaxUint16)
	}
	if len(r.Symbol) > math.MaxUint16 {
		return nil, fmt.Errorf("symbol longer than %d bytes", math.MaxUint16)
	}

	buf := new(bytes.Buffer)
	buf.Write(r.Origin[:])
	buf.Write(r.Local[:])
	wire.MustWrite(buf, binary.BigEndian, uint16(len(r.Name))) // #nosec G115 -- checked above
	buf.Write([]byte(r.Name))
	wire.MustWrite(buf, binary.BigEndian, uint16(len(r.Symbol))) // #nosec G115 -- checked above
	buf.Write([]byte(r.Symbol))
	wire.MustWrite(buf, binary.BigEndian, r.Decimals)
	return buf.Bytes(), nil
}

func UnmarshalMappingRecord(data []byte) (*MappingRecord, error) {
	r := &MappingRecord{}

	reader := bytes.NewReader(data)

	origin := wire.Address{}
	if n, err := reader.Read(origin[:]); err != nil || n != 32 {
		return nil, fmt.Errorf("failed to read origin address [%d]: %w", n, err)
	}
	r.Origin = origin

	local := wire.Address{}
	if n, err := reader.Read(local[:]); err != nil || n != 32 {
		return nil, fmt.Errorf("failed to read local address [%d]: %w", n, err)
	}
	r.Local = local

	nameLen := uint16(0)
	if err := binary.Read(reader, binary.BigEndian, &nameLen); err != nil {
		return nil, fmt.Errorf("failed to read name length: %w", err)
	}
	name := make([]byte, nameLen)
	if n, err := reader.Read(name); err != nil || n != int(nameLen) {
		return nil, fmt.Errorf("failed to read name [%d]: %w", n, err)
	}
	r.Name = string(name)

	symbolLen := uint16(0)
	if err := binary.Read(reader, binary.BigEndian, &symbolLen); err != nil {
		return nil, fmt.Errorf("failed to read symbol length: %w", err)
	}
	symbol := make([]byte, symbolLen)
	if n, err := reader.Read(symbol); err != nil || n != int(symbolLen) {
		return nil, fmt.Errorf("failed to read symbol [%d]: %w", n, err)
	}
	r.Symbol = string(symbol)

	if err := binary.Read(reader, binary.BigEndian, &r.Decimals); err != nil {
		return nil, fmt.Errorf("failed to read decimals: %w", err)
	}

	return r, nil
}

func (d *Database) StoreMapping(side string, r *MappingRecord) error {
	b, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	key := mappingKey(side, r.Origin)
	if err := d.update(key, b); err != nil {
		return &DBError{Op: OpUpdate, Key: key, Err: err}
	}

	storedMappingTotal.Inc()

	return nil
}

func (d *Database) GetMapping(side string, origin wire.Address) (*MappingRecord, error) {
	var b []byte
	if err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(mappingKey(side, origin))
		if err != nil {
			return err
		}
		if val, err := item.ValueCopy(nil); err != nil {
			return err
		} else {
			b = val
		}
		return nil
	}); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrMappingNotFound
		}
		return nil, err
	}
	return UnmarshalMappingRecord(b)
}

func (d *Database) DeleteMapping(side string, origin wire.Address) error {
	return d.deleteEntry(mappingKey(side, origin))
}

// GetMappings returns every stored mapping for the given side. Called by the
// registry on startup to rebuild its in-memory tables.
func (d *Database) GetMappings(side string) ([]*MappingRecord, error) {
	records := make([]*MappingRecord, 0)
	if err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := mappingPrefixBytes(side)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			err := item.Value(func(val []byte) error {
				r, err := UnmarshalMappingRecord(val)
				if err != nil {
					return fmt.Errorf("failed to unmarshal mapping for %s: %v", string(key), err)
				}

				records = append(records, r)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return records, nil
}
