/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credential is the holder-side session API for the credential
// exchange protocol: negotiating an offer, requesting issuance, tracking
// protocol state and persisting/restoring exchange sessions. A session wraps
// an opaque engine handle; abandoned sessions are reclaimed by the runtime.
package credential

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/credentio/credexchange-go/pkg/bridge"
	"github.com/credentio/credexchange-go/pkg/client/connection"
	"github.com/credentio/credexchange-go/pkg/engine"
)

var logger = log.New("credexchange/credential") // nolint:gochecknoglobals

// State is the protocol state of a credential exchange.
type State = engine.State

// protocol states.
const (
	StateNone          = engine.StateNone
	StateOfferReceived = engine.StateOfferReceived
	StateOfferSent     = engine.StateOfferSent
	StateAccepted      = engine.StateAccepted
	StateRejected      = engine.StateRejected
	StateFailure       = engine.StateFailure
)

// PaymentInfo carries the optional payment terms attached to an offer.
type PaymentInfo = engine.PaymentInfo

// Credential is one credential exchange session. The zero value is an
// uninitialized session: it holds no engine handle, reports StateNone and
// rejects every operation that requires engine access.
type Credential struct {
	handle   uint32
	sourceID string
	state    State
}

// Create constructs a session from a serialized offer bound to a connection.
// The resulting session is in the offer-received state.
func Create(sourceID, offer string, conn *connection.Connection) (*Credential, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("%w: source id", engine.ErrOptionsValidation)
	}

	if offer == "" {
		return nil, fmt.Errorf("%w: offer", engine.ErrOptionsValidation)
	}

	if conn == nil {
		return nil, fmt.Errorf("%w: connection", engine.ErrOptionsValidation)
	}

	payload, err := bridge.Invoke(func(token uint32, cb engine.Callback) engine.Code {
		return engine.CreateCredential(token, sourceID, offer, conn.Handle(), cb)
	})
	if err != nil {
		return nil, fmt.Errorf("create credential: %w", err)
	}

	return fromHandlePayload(payload, sourceID, StateOfferReceived)
}

// CreateWithMsgID constructs a session by fetching the offer transcript
// identified by msgID from the connection.
func CreateWithMsgID(sourceID string, conn *connection.Connection, msgID string) (*Credential, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("%w: source id", engine.ErrOptionsValidation)
	}

	if msgID == "" {
		return nil, fmt.Errorf("%w: message id", engine.ErrOptionsValidation)
	}

	payload, err := bridge.Invoke(func(token uint32, cb engine.Callback) engine.Code {
		return engine.CreateCredentialWithMsgID(token, sourceID, conn.Handle(), msgID, cb)
	})
	if err != nil {
		return nil, fmt.Errorf("create credential with msg id: %w", err)
	}

	return fromHandlePayload(payload, sourceID, StateOfferReceived)
}

// GetOffers lists all pending credential offers visible on the connection.
// An empty sequence is a valid result.
func GetOffers(conn *connection.Connection) ([]json.RawMessage, error) {
	payload, err := bridge.Invoke(func(token uint32, cb engine.Callback) engine.Code {
		return engine.ListOffers(token, conn.Handle(), cb)
	})
	if err != nil {
		return nil, fmt.Errorf("get offers: %w", err)
	}

	var offers []json.RawMessage
	if err := json.Unmarshal(payload, &offers); err != nil {
		return nil, fmt.Errorf("%w: offers payload: %s", engine.ErrMalformedPayload, err)
	}

	return offers, nil
}

// Deserialize restores a session from a snapshot produced by Serialize. The
// restored session is handle-fresh but identical in observable state.
func Deserialize(snapshot []byte) (*Credential, error) {
	payload, err := bridge.Invoke(func(token uint32, cb engine.Callback) engine.Code {
		return engine.DeserializeCredential(token, string(snapshot), cb)
	})
	if err != nil {
		return nil, fmt.Errorf("deserialize credential: %w", err)
	}

	h, err := engine.ParseHandlePayload(payload)
	if err != nil {
		return nil, err
	}

	sourceID, err := engine.CredentialSourceID(h)
	if err != nil {
		return nil, err
	}

	state, err := engine.CredentialState(h)
	if err != nil {
		return nil, err
	}

	return newCredential(h, sourceID, state), nil
}

// SendRequest submits the issuance request referencing the original offer,
// with the given payment terms, advancing the session to the offer-sent state.
func (c *Credential) SendRequest(conn *connection.Connection, paymentTerms uint64) error {
	_, err := bridge.Invoke(func(token uint32, cb engine.Callback) engine.Code {
		return engine.SendRequest(token, c.handle, conn.Handle(), paymentTerms, cb)
	})
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	c.state = StateOfferSent

	return nil
}

// UpdateState refreshes the cached protocol state by letting the engine
// process pending inbound messages on the associated connection. It never
// fails: on an uninitialized session it is a no-op, and an engine refresh
// failure leaves the cached state unchanged.
func (c *Credential) UpdateState() error {
	if c.handle == 0 {
		return nil
	}

	payload, err := bridge.Invoke(func(token uint32, cb engine.Callback) engine.Code {
		return engine.RefreshState(token, c.handle, cb)
	})
	if err != nil {
		logger.Warnf("state refresh for %q failed, keeping cached state: %s", c.sourceID, err)

		return nil
	}

	state, err := engine.ParseStatePayload(payload)
	if err != nil {
		logger.Warnf("state refresh for %q returned bad payload, keeping cached state: %s", c.sourceID, err)

		return nil
	}

	c.state = state

	return nil
}

// State returns the cached protocol state. It is refreshed on demand by
// UpdateState, not continuously synchronized.
func (c *Credential) State() State {
	return c.state
}

// SourceID returns the caller-chosen source identifier of the session.
func (c *Credential) SourceID() string {
	return c.sourceID
}

// PaymentInfo returns the payment terms attached to the underlying offer,
// or nil when the offer carries none.
func (c *Credential) PaymentInfo() (*PaymentInfo, error) {
	payload, err := bridge.Invoke(func(token uint32, cb engine.Callback) engine.Code {
		return engine.GetPaymentInfo(token, c.handle, cb)
	})
	if err != nil {
		return nil, fmt.Errorf("get payment info: %w", err)
	}

	var info *PaymentInfo
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, fmt.Errorf("%w: payment info payload: %s", engine.ErrMalformedPayload, err)
	}

	return info, nil
}

// Serialize returns the canonical snapshot of the session. Serializing the
// same session twice yields byte-identical output.
func (c *Credential) Serialize() ([]byte, error) {
	payload, err := bridge.Invoke(func(token uint32, cb engine.Callback) engine.Code {
		return engine.SerializeCredential(token, c.handle, cb)
	})
	if err != nil {
		return nil, fmt.Errorf("serialize credential: %w", err)
	}

	return payload, nil
}

// Release frees the engine resource behind the session immediately. Releasing
// a session that never held a handle reports an unknown error; releasing
// twice reports an invalid handle.
func (c *Credential) Release() error {
	if err := engine.ReleaseCredential(c.handle); err != nil {
		return err
	}

	runtime.SetFinalizer(c, nil)

	return nil
}

func fromHandlePayload(payload []byte, sourceID string, state State) (*Credential, error) {
	h, err := engine.ParseHandlePayload(payload)
	if err != nil {
		return nil, err
	}

	return newCredential(h, sourceID, state), nil
}

func newCredential(h uint32, sourceID string, state State) *Credential {
	c := &Credential{handle: h, sourceID: sourceID, state: state}

	// abandoned sessions still get their engine resource reclaimed
	runtime.SetFinalizer(c, (*Credential).reclaim)

	return c
}

func (c *Credential) reclaim() {
	engine.ReclaimCredential(c.handle)
}
