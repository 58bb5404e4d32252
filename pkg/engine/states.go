/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

// State is the externally observable protocol state of a credential exchange.
type State int

// protocol states. StateOfferReceived is the holder's "request received" phase;
// StateOfferSent means the request for issuance has been transmitted. Both are
// named from the issuer's perspective, matching the exchange protocol.
const (
	StateNone State = iota
	StateOfferReceived
	StateOfferSent
	StateAccepted
	StateRejected
	StateFailure
)

const (
	stateNameNone          = "none"
	stateNameOfferReceived = "offer-received"
	stateNameOfferSent     = "offer-sent"
	stateNameAccepted      = "accepted"
	stateNameRejected      = "rejected"
	stateNameFailure       = "failure"
)

func (s State) String() string {
	switch s {
	case StateOfferReceived:
		return stateNameOfferReceived
	case StateOfferSent:
		return stateNameOfferSent
	case StateAccepted:
		return stateNameAccepted
	case StateRejected:
		return stateNameRejected
	case StateFailure:
		return stateNameFailure
	default:
		return stateNameNone
	}
}

// the protocol's state.
type state interface {
	// Name of this state.
	Name() string
	// Code is the numeric form persisted in snapshots.
	Code() State
	// Whether this state allows transitioning into the next state.
	CanTransitionTo(next state) bool
}

// none state: uninitialized or unqueried.
type none struct{}

func (s *none) Name() string { return stateNameNone }

func (s *none) Code() State { return StateNone }

func (s *none) CanTransitionTo(next state) bool {
	return next.Name() == stateNameOfferReceived
}

// offerReceived state: offer accepted, issuance not yet requested.
type offerReceived struct{}

func (s *offerReceived) Name() string { return stateNameOfferReceived }

func (s *offerReceived) Code() State { return StateOfferReceived }

func (s *offerReceived) CanTransitionTo(next state) bool {
	return next.Name() == stateNameOfferSent
}

// offerSent state: request for issuance transmitted, awaiting the outcome.
type offerSent struct{}

func (s *offerSent) Name() string { return stateNameOfferSent }

func (s *offerSent) Code() State { return StateOfferSent }

func (s *offerSent) CanTransitionTo(next state) bool {
	switch next.Name() {
	case stateNameAccepted, stateNameRejected, stateNameFailure:
		return true
	}

	return false
}

// accepted state: credential issued.
type accepted struct{}

func (s *accepted) Name() string { return stateNameAccepted }

func (s *accepted) Code() State { return StateAccepted }

func (s *accepted) CanTransitionTo(_ state) bool { return false }

// rejected state: issuer reported a problem or declined issuance.
type rejected struct{}

func (s *rejected) Name() string { return stateNameRejected }

func (s *rejected) Code() State { return StateRejected }

func (s *rejected) CanTransitionTo(_ state) bool { return false }

// failure state: an inbound protocol message could not be processed.
type failure struct{}

func (s *failure) Name() string { return stateNameFailure }

func (s *failure) Code() State { return StateFailure }

func (s *failure) CanTransitionTo(_ state) bool { return false }

// stateFromCode returns the state by its numeric form.
func stateFromCode(c State) state {
	switch c {
	case StateOfferReceived:
		return &offerReceived{}
	case StateOfferSent:
		return &offerSent{}
	case StateAccepted:
		return &accepted{}
	case StateRejected:
		return &rejected{}
	case StateFailure:
		return &failure{}
	default:
		return &none{}
	}
}
