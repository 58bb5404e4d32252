/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import "encoding/json"

// CreateArgs model
//
// This is used for creating a credential exchange session from an offer.
type CreateArgs struct {
	// SourceID is the caller-chosen identifier correlating the session with caller-side bookkeeping.
	SourceID string `json:"source_id"`
	// Offer is the serialized offer payload.
	Offer string `json:"offer"`
	// ConnectionID identifies the registered connection the exchange is bound to.
	ConnectionID string `json:"connection_id"`
}

// CreateWithMsgIDArgs model
//
// This is used for creating a session from an offer fetched by message ID.
type CreateWithMsgIDArgs struct {
	SourceID     string `json:"source_id"`
	ConnectionID string `json:"connection_id"`
	MsgID        string `json:"msg_id"`
}

// SessionResponse model
//
// Represents a session and its cached protocol state.
type SessionResponse struct {
	SourceID string `json:"source_id"`
	State    int    `json:"state"`
}

// OffersArgs model
//
// This is used for listing pending offers on a connection.
type OffersArgs struct {
	ConnectionID string `json:"connection_id"`
}

// OffersResponse model
//
// Represents the pending offer payloads visible on a connection.
type OffersResponse struct {
	Offers []json.RawMessage `json:"offers"`
}

// SendRequestArgs model
//
// This is used for submitting the issuance request for a session.
type SendRequestArgs struct {
	SourceID     string `json:"source_id"`
	ConnectionID string `json:"connection_id"`
	PaymentTerms uint64 `json:"payment_terms"`
}

// SessionArgs model
//
// This is used by the operations addressing a session by its source ID.
type SessionArgs struct {
	SourceID string `json:"source_id"`
}

// PaymentInfoResponse model
//
// Represents the payment terms attached to the underlying offer, if any.
type PaymentInfoResponse struct {
	PaymentInfo json.RawMessage `json:"payment_info"`
}

// SerializeResponse model
//
// Represents the canonical snapshot of a session.
type SerializeResponse struct {
	Snapshot json.RawMessage `json:"snapshot"`
}

// DeserializeArgs model
//
// This is used for restoring a session from a snapshot.
type DeserializeArgs struct {
	Snapshot json.RawMessage `json:"snapshot"`
}

// RecordsResponse model
//
// Represents the persisted exchange records.
type RecordsResponse struct {
	Records []json.RawMessage `json:"records"`
}
