// Package adaptor carries bridge messages between the two controllers. The
// controllers only ever see the two small interfaces below; everything else
// in this package is the in-process transport that implements them with the
// delivery properties of a real cross-network channel: at-least-once,
// unordered, unbounded latency.
package adaptor

import (
	"context"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/causewayprotocol/causeway/pkg/wire"
)

// MessageSender is the outbound surface a controller sends through. The
// attached fee is consumed by the transport when the message is accepted.
type MessageSender interface {
	SendMessage(ctx context.Context, payload []byte, originalCaller wire.Address, fee *uint256.Int) error
}

// MessageHandler is the inbound surface a controller exposes. caller is the
// identity invoking the handler (must be the controller's registered
// adaptor), source is the verified identity of the bridge that emitted the
// payload on the other side.
type MessageHandler interface {
	OnMessageReceive(caller, source wire.Address, payload []byte) error
}

// Envelope is one queued message in flight between the controllers.
type Envelope struct {
	// ID is assigned at enqueue time and shared by every redelivery of the
	// same send, including deliberately injected duplicates.
	ID      string
	Source  wire.Address
	Caller  wire.Address
	Payload []byte
	Fee     *uint256.Int
	Attempt int
}

// Digest identifies a send for duplicate suppression. It commits to the
// envelope ID as well as the payload, so two separate sends with identical
// payloads stay distinct while redeliveries of one send collide.
func (e *Envelope) Digest() [32]byte {
	return [32]byte(crypto.Keccak256Hash([]byte(e.ID), e.Payload))
}
