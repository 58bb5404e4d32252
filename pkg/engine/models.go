/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

const (
	// Spec defines the credential exchange message family.
	Spec = "https://didcomm.org/issue-credential/1.0/"
	// OfferCredentialMsgType defines the offer-credential message type.
	OfferCredentialMsgType = Spec + "offer-credential"
	// RequestCredentialMsgType defines the request-credential message type.
	RequestCredentialMsgType = Spec + "request-credential"
	// IssueCredentialMsgType defines the issue-credential message type.
	IssueCredentialMsgType = Spec + "issue-credential"
	// ProblemReportMsgType defines the problem-report message type.
	ProblemReportMsgType = Spec + "problem-report"
)

// Offer is the decoded form of an offer-credential payload. The raw bytes are
// kept alongside it on the record; the decoded form is for field access only.
type Offer struct {
	Type       string            `json:"@type" mapstructure:"@type"`
	ID         string            `json:"@id" mapstructure:"@id"`
	CredDefID  string            `json:"cred_def_id" mapstructure:"cred_def_id"`
	Attributes map[string]string `json:"credential_attrs" mapstructure:"credential_attrs"`
	Payment    *PaymentInfo      `json:"payment,omitempty" mapstructure:"payment"`
}

// PaymentInfo carries the optional payment terms attached to an offer.
type PaymentInfo struct {
	Price   uint64 `json:"price" mapstructure:"price"`
	Address string `json:"address,omitempty" mapstructure:"address"`
	Method  string `json:"method,omitempty" mapstructure:"method"`
}

// message is the envelope shape shared by inbound protocol messages.
type message struct {
	Type     string `json:"@type"`
	ID       string `json:"@id"`
	Thread   thread `json:"~thread"`
	Comment  string `json:"comment,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

type thread struct {
	ID string `json:"thid"`
}

// parseOffer decodes raw offer bytes. Anything that is not a JSON object is a
// malformed payload; unknown fields are ignored for forward compatibility.
func parseOffer(raw []byte) (*Offer, error) {
	var fields map[string]interface{}

	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: offer is not valid structured data: %s", ErrMalformedPayload, err)
	}

	offer := &Offer{}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           offer,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("build offer decoder: %w", err)
	}

	if err := dec.Decode(fields); err != nil {
		return nil, fmt.Errorf("%w: decode offer: %s", ErrMalformedPayload, err)
	}

	return offer, nil
}
