package db

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/causewayprotocol/causeway/pkg/wire"
)

// Prefixes used to isolate relayer bookkeeping in the database. Delivery
// marks record message digests that have already been handed to a handler so
// redeliveries of the same message can be suppressed across restarts. Audit
// records preserve rejected inbound messages for operator inspection.
const (
	deliveryPrefix = "DLV:V1:"
	auditPrefix    = "AUD:V1:"
)

func deliveryKey(side string, digest [32]byte) []byte {
	return []byte(fmt.Sprintf("%v%v:%x", deliveryPrefix, side, digest))
}

func auditKey(side string, at time.Time, digest [32]byte) []byte {
	return []byte(fmt.Sprintf("%v%v:%020d:%x", auditPrefix, side, at.UnixNano(), digest))
}

func auditPrefixBytes(side string) []byte {
	return []byte(fmt.Sprintf("%v%v:", auditPrefix, side))
}

// MarkDelivered records that the message with the given digest has been
// delivered on the given side.
func (d *Database) MarkDelivered(side string, digest [32]byte, at time.Time) error {
	buf := new(bytes.Buffer)
	wire.MustWrite(buf, binary.BigEndian, uint32(at.Unix())) // #nosec G115 -- timestamps fit in uint32 until 2106

	key := deliveryKey(side, digest)
	if err := d.update(key, buf.Bytes()); err != nil {
		return &DBError{Op: OpUpdate, Key: key, Err: err}
	}
	return nil
}

func (d *Database) IsDelivered(side string, digest [32]byte) (bool, error) {
	err := d.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(deliveryKey(side, digest))
		return err
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// RejectionRecord is the persisted form of a message the handler refused.
// The payload is kept verbatim so the failure can be replayed or decoded
// offline.
type RejectionRecord struct {
	Timestamp time.Time
	Digest    [32]byte
	Reason    string
	Payload   []byte
}

func (r *RejectionRecord) Marshal() ([]byte, error) {
	if len(r.Reason) > math.MaxUint16 {
		return nil, fmt.Errorf("reason longer than %d bytes", math.MaxUint16)
	}

	buf := new(bytes.Buffer)
	wire.MustWrite(buf, binary.BigEndian, uint32(r.Timestamp.Unix())) // #nosec G115 -- timestamps fit in uint32 until 2106
	buf.Write(r.Digest[:])
	wire.MustWrite(buf, binary.BigEndian, uint16(len(r.Reason))) // #nosec G115 -- checked above
	buf.Write([]byte(r.Reason))
	buf.Write(r.Payload)
	return buf.Bytes(), nil
}

func UnmarshalRejectionRecord(data []byte) (*RejectionRecord, error) {
	r := &RejectionRecord{}

	reader := bytes.NewReader(data)

	unixSeconds := uint32(0)
	if err := binary.Read(reader, binary.BigEndian, &unixSeconds); err != nil {
		return nil, fmt.Errorf("failed to read timestamp: %w", err)
	}
	r.Timestamp = time.Unix(int64(unixSeconds), 0)

	digest := [32]byte{}
	if n, err := reader.Read(digest[:]); err != nil || n != 32 {
		return nil, fmt.Errorf("failed to read digest [%d]: %w", n, err)
	}
	r.Digest = digest

	reasonLen := uint16(0)
	if err := binary.Read(reader, binary.BigEndian, &reasonLen); err != nil {
		return nil, fmt.Errorf("failed to read reason length: %w", err)
	}
	reason := make([]byte, reasonLen)
	if n, err := reader.Read(reason); err != nil || n != int(reasonLen) {
		return nil, fmt.Errorf("failed to read reason [%d]: %w", n, err)
	}
	r.Reason = string(reason)

	payload := make([]byte, reader.Len())
	if reader.Len() > 0 {
		if _, err := reader.Read(payload); err != nil {
			return nil, fmt.Errorf("failed to read payload: %w", err)
		}
	}
	r.Payload = payload

	return r, nil
}

func (d *Database) StoreRejection(side string, r *RejectionRecord) error {
	b, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal rejection: %w", err)
	}

	key := auditKey(side, r.Timestamp, r.Digest)
	if err := d.update(key, b); err != nil {
		return &DBError{Op: OpUpdate, Key: key, Err: err}
	}
	return nil
}

// GetRejections returns the audit trail for the given side in timestamp
// order. The keys embed a zero-padded nanosecond timestamp, so badger's
// lexicographic iteration already yields them oldest first.
func (d *Database) GetRejections(side string) ([]*RejectionRecord, error) {
	records := make([]*RejectionRecord, 0)
	if err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 10
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := auditPrefixBytes(side)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			err := item.Value(func(val []byte) error {
				r, err := UnmarshalRejectionRecord(val)
				if err != nil {
					return fmt.Errorf("failed to unmarshal rejection for %s: %v", string(key), err)
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
