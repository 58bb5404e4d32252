/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"github.com/credentio/credexchange-go/pkg/controller/command/credential"
)

// createCredentialRequest model
//
// This is used for operation to create a session from an offer.
//
// swagger:parameters createCredential
type createCredentialRequest struct { // nolint: unused,deadcode
	// in: body
	Body credential.CreateArgs
}

// sessionResponse model
//
// Represents a session and its cached protocol state.
//
// swagger:response sessionResponse
type sessionResponse struct { // nolint: unused,deadcode
	// in: body
	Body credential.SessionResponse
}

// offersResponse model
//
// Represents the pending offer payloads visible on a connection.
//
// swagger:response offersResponse
type offersResponse struct { // nolint: unused,deadcode
	// in: body
	Body credential.OffersResponse
}

// serializeResponse model
//
// Represents the canonical snapshot of a session.
//
// swagger:response serializeResponse
type serializeResponse struct { // nolint: unused,deadcode
	// in: body
	Body credential.SerializeResponse
}

// paymentInfoResponse model
//
// Represents the payment terms attached to the underlying offer.
//
// swagger:response paymentInfoResponse
type paymentInfoResponse struct { // nolint: unused,deadcode
	// in: body
	Body credential.PaymentInfoResponse
}

// recordsResponse model
//
// Represents the persisted exchange records.
//
// swagger:response recordsResponse
type recordsResponse struct { // nolint: unused,deadcode
	// in: body
	Body credential.RecordsResponse
}
