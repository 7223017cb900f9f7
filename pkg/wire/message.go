package wire

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/holiman/uint256"
)

// Action identifies one of the three bridge message kinds. It occupies the
// first 32 bytes of every payload and is the ASCII action name left padded
// with zeroes; the two controllers must agree on these constants bit for bit.
type Action [32]byte

// ActionWidth is the length of the action tag every payload starts with.
const ActionWidth = 32

// transferLength is the exact length of Deposit and Withdraw payloads:
// the action tag followed by origin token, sender, receiver, and amount.
const transferLength = ActionWidth + 4*32

// ActionMapToken is the hex representation of "MapToken" left padded with zeroes.
var ActionMapToken = Action{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x4d, 0x61, 0x70, 0x54, 0x6f, 0x6b, 0x65, 0x6e,
}

// ActionDeposit is the hex representation of "Deposit" left padded with zeroes.
var ActionDeposit = Action{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x44, 0x65, 0x70, 0x6f, 0x73, 0x69, 0x74,
}

// ActionWithdraw is the hex representation of "Withdraw" left padded with zeroes.
var ActionWithdraw = Action{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x57, 0x69, 0x74, 0x68, 0x64, 0x72, 0x61, 0x77,
}

func (a Action) String() string {
	switch a {
	case ActionMapToken:
		return "MapToken"
	case ActionDeposit:
		return "Deposit"
	case ActionWithdraw:
		return "Withdraw"
	default:
		return hex.EncodeToString(a[:])
	}
}

// ErrMalformedMessage is returned for payloads that cannot be decoded: too
// short to carry an action tag, truncated fields, or trailing bytes.
var ErrMalformedMessage = errors.New("malformed message")

type (
	// MapToken announces a new origin token to the counterpart side, carrying
	// the metadata its local representation is initialized with.
	MapToken struct {
		OriginToken Address
		Name        string
		Symbol      string
		Decimals    uint8
	}

	// Deposit moves custodied value from the root side to the child side,
	// where it is minted (or paid out natively) to Receiver.
	Deposit struct {
		OriginToken Address
		Sender      Address
		Receiver    Address
		Amount      *uint256.Int
	}

	// Withdraw moves burned value from the child side back to the root side,
	// where custody of the origin asset is released to Receiver.
	Withdraw struct {
		OriginToken Address
		Sender      Address
		Receiver    Address
		Amount      *uint256.Int
	}
)

// Message is a decoded bridge payload.
type Message interface {
	Action() Action
	Serialize() ([]byte, error)
}

func (m *MapToken) Action() Action { return ActionMapToken }
func (d *Deposit) Action() Action  { return ActionDeposit }
func (w *Withdraw) Action() Action { return ActionWithdraw }

func (m *MapToken) Serialize() ([]byte, error) {
	if len(m.Name) > math.MaxUint16 {
		return nil, fmt.Errorf("token name too long: %d bytes", len(m.Name))
	}
	if len(m.Symbol) > math.MaxUint16 {
		return nil, fmt.Errorf("token symbol too long: %d bytes", len(m.Symbol))
	}

	buf := new(bytes.Buffer)
	buf.Write(ActionMapToken[:])
	buf.Write(m.OriginToken[:])
	MustWrite(buf, binary.BigEndian, uint16(len(m.Name))) // #nosec G115 -- checked above
	buf.WriteString(m.Name)
	MustWrite(buf, binary.BigEndian, uint16(len(m.Symbol))) // #nosec G115 -- checked above
	buf.WriteString(m.Symbol)
	buf.WriteByte(m.Decimals)

	return buf.Bytes(), nil
}

func (d *Deposit) Serialize() ([]byte, error) {
	return serializeTransfer(ActionDeposit, d.OriginToken, d.Sender, d.Receiver, d.Amount)
}

func (w *Withdraw) Serialize() ([]byte, error) {
	return serializeTransfer(ActionWithdraw, w.OriginToken, w.Sender, w.Receiver, w.Amount)
}

func serializeTransfer(action Action, originToken, sender, receiver Address, amount *uint256.Int) ([]byte, error) {
	if amount == nil {
		return nil, errors.New("amount must not be nil")
	}

	buf := new(bytes.Buffer)
	buf.Write(action[:])
	buf.Write(originToken[:])
	buf.Write(sender[:])
	buf.Write(receiver[:])
	amountBytes := amount.Bytes32()
	buf.Write(amountBytes[:])

	return buf.Bytes(), nil
}

// ReadAction returns the leading action tag of a payload. Payloads must be
// strictly longer than the tag itself; a bare tag carries no fields and is
// rejected the same way as a short one.
func ReadAction(bz []byte) (Action, error) {
	var action Action
	if len(bz) <= ActionWidth {
		return action, fmt.Errorf("%w: payload of %d bytes is too short", ErrMalformedMessage, len(bz))
	}
	copy(action[:], bz[0:ActionWidth])
	return action, nil
}

// Parse decodes a payload into one of the three message kinds, dispatching on
// the leading action tag. Payloads with an unknown tag are malformed from the
// codec's point of view; receivers that want to distinguish unknown actions
// dispatch on ReadAction themselves.
func Parse(bz []byte) (Message, error) {
	action, err := ReadAction(bz)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionMapToken:
		return DecodeMapToken(bz)
	case ActionDeposit:
		return DecodeDeposit(bz)
	case ActionWithdraw:
		return DecodeWithdraw(bz)
	default:
		return nil, fmt.Errorf("%w: unknown action tag %s", ErrMalformedMessage, hex.EncodeToString(action[:]))
	}
}

// DecodeMapToken deserializes a MapToken payload.
// Expected format: tag (32 bytes) + origin token (32 bytes) + name length
// (2 bytes) + name + symbol length (2 bytes) + symbol + decimals (1 byte).
func DecodeMapToken(bz []byte) (*MapToken, error) {
	const minSize = ActionWidth + 32 + 2
	if len(bz) < minSize {
		return nil, fmt.Errorf("%w: map token payload too short: expected at least %d bytes, got %d", ErrMalformedMessage, minSize, len(bz))
	}
	if !bytes.Equal(bz[0:ActionWidth], ActionMapToken[:]) {
		return nil, fmt.Errorf("%w: not a map token payload", ErrMalformedMessage)
	}

	m := &MapToken{}
	offset := ActionWidth

	copy(m.OriginToken[:], bz[offset:offset+32])
	offset += 32

	nameLen := int(binary.BigEndian.Uint16(bz[offset : offset+2]))
	offset += 2
	if offset+nameLen > len(bz) {
		return nil, fmt.Errorf("%w: truncated while reading token name", ErrMalformedMessage)
	}
	m.Name = string(bz[offset : offset+nameLen])
	offset += nameLen

	if offset+2 > len(bz) {
		return nil, fmt.Errorf("%w: truncated while reading symbol length", ErrMalformedMessage)
	}
	symbolLen := int(binary.BigEndian.Uint16(bz[offset : offset+2]))
	offset += 2
	if offset+symbolLen > len(bz) {
		return nil, fmt.Errorf("%w: truncated while reading token symbol", ErrMalformedMessage)
	}
	m.Symbol = string(bz[offset : offset+symbolLen])
	offset += symbolLen

	if offset+1 > len(bz) {
		return nil, fmt.Errorf("%w: truncated while reading decimals", ErrMalformedMessage)
	}
	m.Decimals = bz[offset]
	offset += 1

	if offset != len(bz) {
		return nil, fmt.Errorf("%w: map token payload has %d trailing bytes", ErrMalformedMessage, len(bz)-offset)
	}

	return m, nil
}

// DecodeDeposit deserializes a Deposit payload.
// Expected format: tag (32 bytes) + origin token (32 bytes) + sender
// (32 bytes) + receiver (32 bytes) + amount (32 bytes, big-endian).
func DecodeDeposit(bz []byte) (*Deposit, error) {
	if err := checkTransferPayload(bz, ActionDeposit); err != nil {
		return nil, err
	}

	d := &Deposit{Amount: new(uint256.Int)}
	readTransfer(bz, &d.OriginToken, &d.Sender, &d.Receiver, d.Amount)
	return d, nil
}

// DecodeWithdraw deserializes a Withdraw payload. The format matches Deposit
// except for the leading tag.
func DecodeWithdraw(bz []byte) (*Withdraw, error) {
	if err := checkTransferPayload(bz, ActionWithdraw); err != nil {
		return nil, err
	}

	w := &Withdraw{Amount: new(uint256.Int)}
	readTransfer(bz, &w.OriginToken, &w.Sender, &w.Receiver, w.Amount)
	return w, nil
}

func checkTransferPayload(bz []byte, action Action) error {
	if len(bz) != transferLength {
		return fmt.Errorf("%w: transfer payload must be exactly %d bytes, got %d", ErrMalformedMessage, transferLength, len(bz))
	}
	if !bytes.Equal(bz[0:ActionWidth], action[:]) {
		return fmt.Errorf("%w: unexpected action tag", ErrMalformedMessage)
	}
	return nil
}

func readTransfer(bz []byte, originToken, sender, receiver *Address, amount *uint256.Int) {
	offset := ActionWidth
	copy(originToken[:], bz[offset:offset+32])
	offset += 32
	copy(sender[:], bz[offset:offset+32])
	offset += 32
	copy(receiver[:], bz[offset:offset+32])
	offset += 32
	amount.SetBytes(bz[offset : offset+32])
}

// MustWrite calls binary.Write and panics if it fails. Writes into a
// bytes.Buffer cannot fail for the fixed-size types used here.
func MustWrite(w io.Writer, order binary.ByteOrder, data interface{}) {
	if err := binary.Write(w, order, data); err != nil {
		panic(fmt.Errorf("failed to write binary data: %v", data).Error())
	}
}
