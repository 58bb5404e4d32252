/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is the version written into every snapshot. Readers accept
// any version; versions only ever add optional fields.
const SnapshotVersion = "1.0"

// snapshot is the canonical serialized form of a credential exchange. Field
// order is fixed by the struct, offer and request bytes are carried verbatim,
// so marshaling is deterministic and round-trip stable.
type snapshot struct {
	Version string       `json:"version"`
	Data    snapshotData `json:"data"`
}

type snapshotData struct {
	SourceID string          `json:"source_id"`
	ThreadID string          `json:"thread_id"`
	State    State           `json:"state"`
	Offer    json.RawMessage `json:"credential_offer"`
	Request  json.RawMessage `json:"credential_request,omitempty"`
}

func marshalSnapshot(rec *credentialRecord) ([]byte, error) {
	return json.Marshal(&snapshot{
		Version: SnapshotVersion,
		Data: snapshotData{
			SourceID: rec.SourceID,
			ThreadID: rec.ThreadID,
			State:    rec.State,
			Offer:    rec.OfferRaw,
			Request:  rec.Request,
		},
	})
}

func unmarshalSnapshot(raw []byte) (*credentialRecord, error) {
	var snap snapshot

	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: snapshot: %s", ErrMalformedPayload, err)
	}

	if snap.Version == "" {
		return nil, fmt.Errorf("%w: snapshot version missing", ErrMalformedPayload)
	}

	data := snap.Data

	if data.SourceID == "" {
		return nil, fmt.Errorf("%w: snapshot source id missing", ErrMalformedPayload)
	}

	if data.ThreadID == "" || len(data.Offer) == 0 {
		return nil, fmt.Errorf("%w: snapshot protocol state missing", ErrMalformedPayload)
	}

	offer, err := parseOffer(data.Offer)
	if err != nil {
		return nil, err
	}

	return &credentialRecord{
		SourceID: data.SourceID,
		ThreadID: data.ThreadID,
		State:    data.State,
		OfferRaw: data.Offer,
		Request:  data.Request,
		offer:    offer,
	}, nil
}
