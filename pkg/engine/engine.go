/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package engine implements the credential exchange engine: a process-wide
// handle table over exchange records, the protocol state machine, and the
// callback-based command surface the client layer is built on. Callers never
// touch records directly; every operation is addressed by handle and, unless
// it is a plain accessor, completes asynchronously through a callback carrying
// the caller's correlation token.
package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/bluele/gcache"
	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	spi "github.com/hyperledger/aries-framework-go/spi/storage"
)

const (
	storeName     = "credexchange"
	recordKeyFmt  = "credential_%s"
	recordTagName = "credential"

	workerCount      = 4
	paymentCacheSize = 64
)

// nolint:gochecknoglobals
var (
	logger = log.New("credexchange/engine")

	storeOnce sync.Once
	storeErr  error
	store     spi.Store
	provider  spi.Provider

	jobsOnce sync.Once
	jobs     chan *job

	payCache = gcache.New(paymentCacheSize).LRU().Build()
)

// Callback carries the completion of an accepted command back to the caller.
// It is invoked exactly once per accepted command with the caller's token, a
// status code and, for producing operations, a payload.
type Callback func(token uint32, code Code, payload []byte)

// credentialRecord is the engine-resident state of one credential exchange.
// The exported fields are the durable part; handles and decoded payloads are
// process-local.
type credentialRecord struct {
	SourceID string          `json:"source_id"`
	ThreadID string          `json:"thread_id"`
	State    State           `json:"state"`
	OfferRaw json.RawMessage `json:"credential_offer"`
	Request  json.RawMessage `json:"credential_request,omitempty"`

	offer      *Offer
	connHandle uint32
}

type job struct {
	token uint32
	cb    Callback
	run   func() ([]byte, error)
}

// Initialize sets the storage provider backing the engine's record store.
// If Initialize succeeds, any further call is a no-op. When no provider is
// supplied before the first command, an in-memory provider is used.
func Initialize(p spi.Provider) error {
	var initErr error

	storeOnce.Do(func() {
		if p == nil {
			p = mem.NewProvider()
		}

		s, err := p.OpenStore(storeName)
		if err != nil {
			initErr = fmt.Errorf("open store: %w", err)
			storeErr = initErr

			return
		}

		err = p.SetStoreConfig(storeName, spi.StoreConfiguration{TagNames: []string{recordTagName}})
		if err != nil {
			initErr = fmt.Errorf("set store config: %w", err)
			storeErr = initErr

			return
		}

		provider = p
		store = s
	})

	return initErr
}

func getStore() (spi.Store, error) {
	if err := Initialize(nil); err != nil {
		return nil, err
	}

	if storeErr != nil {
		return nil, storeErr
	}

	return store, nil
}

func startWorkers() {
	jobs = make(chan *job)

	for i := 0; i < workerCount; i++ {
		go func() {
			for j := range jobs {
				payload, err := j.run()
				if err != nil {
					logger.Debugf("command %d failed: %s", j.token, err)
				}

				j.cb(j.token, CodeOf(err), payload)
			}
		}()
	}
}

// dispatch accepts a command for out-of-band execution. A non-zero return
// means the command was rejected synchronously and no callback will fire.
func dispatch(token uint32, cb Callback, run func() ([]byte, error)) Code {
	if cb == nil {
		return CodeOptionsValidation
	}

	jobsOnce.Do(startWorkers)

	jobs <- &job{token: token, cb: cb, run: run}

	return CodeSuccess
}

// CreateCredential constructs an exchange record from a serialized offer bound
// to a connection and completes with the new credential handle.
func CreateCredential(token uint32, sourceID, offer string, connHandle uint32, cb Callback) Code {
	if sourceID == "" || offer == "" {
		return CodeOptionsValidation
	}

	return dispatch(token, cb, func() ([]byte, error) {
		return newRecord(sourceID, []byte(offer), connHandle)
	})
}

// CreateCredentialWithMsgID fetches the offer transcript identified by msgID
// from the connection and constructs an exchange record from it.
func CreateCredentialWithMsgID(token uint32, sourceID string, connHandle uint32, msgID string, cb Callback) Code {
	if sourceID == "" || msgID == "" {
		return CodeOptionsValidation
	}

	return dispatch(token, cb, func() ([]byte, error) {
		t, err := connectionTransport(connHandle)
		if err != nil {
			return nil, err
		}

		raw, err := t.Message(msgID)
		if err != nil {
			return nil, fmt.Errorf("fetch message %s: %w", msgID, err)
		}

		return newRecord(sourceID, raw, connHandle)
	})
}

func newRecord(sourceID string, offerRaw []byte, connHandle uint32) ([]byte, error) {
	if _, err := connectionTransport(connHandle); err != nil {
		return nil, err
	}

	offer, err := parseOffer(offerRaw)
	if err != nil {
		return nil, err
	}

	next := &offerReceived{}
	if cur := (&none{}); !cur.CanTransitionTo(next) {
		return nil, fmt.Errorf("invalid state transition: %s -> %s", cur.Name(), next.Name())
	}

	thid := offer.ID
	if thid == "" {
		thid = uuid.New().String()
	}

	rec := &credentialRecord{
		SourceID:   sourceID,
		ThreadID:   thid,
		State:      next.Code(),
		OfferRaw:   append(json.RawMessage{}, offerRaw...),
		offer:      offer,
		connHandle: connHandle,
	}

	h := table.allocate(KindCredential, rec)

	persist(rec)

	return handlePayload(h), nil
}

// ListOffers completes with a JSON array of all pending offer payloads visible
// on the connection. An empty array is a valid result.
func ListOffers(token uint32, connHandle uint32, cb Callback) Code {
	return dispatch(token, cb, func() ([]byte, error) {
		t, err := connectionTransport(connHandle)
		if err != nil {
			return nil, err
		}

		raw, err := t.Offers()
		if err != nil {
			return nil, fmt.Errorf("list offers: %w", err)
		}

		offers := make([]json.RawMessage, 0, len(raw))
		for _, o := range raw {
			offers = append(offers, o)
		}

		return json.Marshal(offers)
	})
}

// SendRequest submits the issuance request referencing the original offer and
// the optional payment terms, advancing the exchange to the offer-sent state.
func SendRequest(token uint32, credHandle, connHandle uint32, paymentTerms uint64, cb Callback) Code {
	return dispatch(token, cb, func() ([]byte, error) {
		rec, err := credentialRecordByHandle(credHandle)
		if err != nil {
			return nil, err
		}

		t, err := connectionTransport(connHandle)
		if err != nil {
			return nil, err
		}

		cur, next := stateFromCode(rec.State), &offerSent{}
		if !cur.CanTransitionTo(next) {
			return nil, fmt.Errorf("%w: invalid state transition: %s -> %s", ErrUnknown, cur.Name(), next.Name())
		}

		req, err := json.Marshal(&requestMessage{
			Type:         RequestCredentialMsgType,
			ID:           uuid.New().String(),
			Thread:       thread{ID: rec.ThreadID},
			CredDefID:    rec.offer.CredDefID,
			PaymentTerms: paymentTerms,
		})
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}

		if err := t.Send(req); err != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}

		rec.Request = req
		rec.State = next.Code()
		rec.connHandle = connHandle

		persist(rec)

		return nil, nil
	})
}

// requestMessage is the outbound request-credential payload.
type requestMessage struct {
	Type         string `json:"@type"`
	ID           string `json:"@id"`
	Thread       thread `json:"~thread"`
	CredDefID    string `json:"cred_def_id,omitempty"`
	PaymentTerms uint64 `json:"price"`
}

// RefreshState drains pending inbound protocol messages for the exchange
// thread and completes with the resulting state.
func RefreshState(token uint32, credHandle uint32, cb Callback) Code {
	return dispatch(token, cb, func() ([]byte, error) {
		rec, err := credentialRecordByHandle(credHandle)
		if err != nil {
			return nil, err
		}

		if rec.State != StateOfferSent {
			return statePayload(rec.State), nil
		}

		t, err := connectionTransport(rec.connHandle)
		if err != nil {
			// nothing to poll without a live connection, keep the cached state
			return statePayload(rec.State), nil
		}

		msgs, err := t.Updates(rec.ThreadID)
		if err != nil {
			return nil, fmt.Errorf("drain updates: %w", err)
		}

		for _, raw := range msgs {
			next := nextState(raw)

			if cur := stateFromCode(rec.State); cur.CanTransitionTo(next) {
				rec.State = next.Code()
				persist(rec)
			}

			if rec.State != StateOfferSent {
				break
			}
		}

		return statePayload(rec.State), nil
	})
}

// nextState maps an inbound protocol message to the state it drives the
// exchange into. Unparseable messages abandon the exchange.
func nextState(raw []byte) state {
	var msg message

	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Warnf("malformed inbound message: %s", err)

		return &failure{}
	}

	switch msg.Type {
	case IssueCredentialMsgType:
		return &accepted{}
	case ProblemReportMsgType:
		return &rejected{}
	default:
		logger.Debugf("ignoring inbound message type %q", msg.Type)

		return &offerSent{}
	}
}

// GetPaymentInfo completes with the payment terms attached to the underlying
// offer, or JSON null when the offer carries none. Lookups are cached.
func GetPaymentInfo(token uint32, credHandle uint32, cb Callback) Code {
	return dispatch(token, cb, func() ([]byte, error) {
		if cached, err := payCache.Get(credHandle); err == nil {
			return cached.([]byte), nil
		}

		rec, err := credentialRecordByHandle(credHandle)
		if err != nil {
			return nil, err
		}

		payload, err := json.Marshal(rec.offer.Payment)
		if err != nil {
			return nil, fmt.Errorf("marshal payment info: %w", err)
		}

		if err := payCache.Set(credHandle, payload); err != nil {
			logger.Debugf("cache payment info: %s", err)
		}

		return payload, nil
	})
}

// SerializeCredential completes with the canonical snapshot of the exchange.
func SerializeCredential(token uint32, credHandle uint32, cb Callback) Code {
	return dispatch(token, cb, func() ([]byte, error) {
		rec, err := credentialRecordByHandle(credHandle)
		if err != nil {
			return nil, err
		}

		return marshalSnapshot(rec)
	})
}

// DeserializeCredential restores an exchange record from a snapshot and
// completes with its freshly allocated handle.
func DeserializeCredential(token uint32, snapshot string, cb Callback) Code {
	return dispatch(token, cb, func() ([]byte, error) {
		rec, err := unmarshalSnapshot([]byte(snapshot))
		if err != nil {
			return nil, err
		}

		h := table.allocate(KindCredential, rec)

		persist(rec)

		return handlePayload(h), nil
	})
}

// ReleaseCredential frees the credential identified by h. Releasing handle 0
// reports an unknown error; releasing an already freed handle reports an
// invalid handle.
func ReleaseCredential(h uint32) error {
	payCache.Remove(h)

	return table.release(h, KindCredential)
}

// ReclaimCredential frees h on behalf of the runtime reclamation hook. Unlike
// ReleaseCredential it tolerates handles already freed explicitly.
func ReclaimCredential(h uint32) {
	payCache.Remove(h)

	if err := table.release(h, KindCredential); err != nil {
		logger.Debugf("reclaim credential %d: %s", h, err)
	}
}

// CredentialState returns the current state of the exchange. Plain accessor,
// completes synchronously.
func CredentialState(h uint32) (State, error) {
	rec, err := credentialRecordByHandle(h)
	if err != nil {
		return StateNone, err
	}

	return rec.State, nil
}

// CredentialSourceID returns the caller-chosen source identifier of the
// exchange. Plain accessor, completes synchronously.
func CredentialSourceID(h uint32) (string, error) {
	rec, err := credentialRecordByHandle(h)
	if err != nil {
		return "", err
	}

	return rec.SourceID, nil
}

// IsValidHandle reports whether h addresses a live record of any kind.
func IsValidHandle(h uint32) bool {
	return table.isValid(h)
}

// Records returns the persisted exchange records.
func Records() ([]json.RawMessage, error) {
	s, err := getStore()
	if err != nil {
		return nil, err
	}

	it, err := s.Query(recordTagName)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	defer func() {
		if err := it.Close(); err != nil {
			logger.Errorf("close record iterator: %s", err)
		}
	}()

	records := make([]json.RawMessage, 0)

	more, err := it.Next()
	if err != nil {
		return nil, fmt.Errorf("next record: %w", err)
	}

	for more {
		value, errValue := it.Value()
		if errValue != nil {
			return nil, fmt.Errorf("record value: %w", errValue)
		}

		records = append(records, value)

		more, err = it.Next()
		if err != nil {
			return nil, fmt.Errorf("next record: %w", err)
		}
	}

	return records, nil
}

func credentialRecordByHandle(h uint32) (*credentialRecord, error) {
	v, err := table.lookup(h, KindCredential)
	if err != nil {
		return nil, err
	}

	return v.(*credentialRecord), nil
}

// persist writes the record through the storage provider. The table remains
// authoritative; storage failures are logged, not surfaced.
func persist(rec *credentialRecord) {
	s, err := getStore()
	if err != nil {
		logger.Warnf("record store unavailable: %s", err)

		return
	}

	src, err := json.Marshal(rec)
	if err != nil {
		logger.Warnf("marshal record %s: %s", rec.ThreadID, err)

		return
	}

	if err := s.Put(fmt.Sprintf(recordKeyFmt, rec.ThreadID), src, spi.Tag{Name: recordTagName}); err != nil {
		logger.Warnf("persist record %s: %s", rec.ThreadID, err)
	}
}

func handlePayload(h uint32) []byte {
	return []byte(strconv.FormatUint(uint64(h), 10))
}

func statePayload(s State) []byte {
	return []byte(strconv.Itoa(int(s)))
}

// ParseHandlePayload decodes a completion payload produced by the constructing
// operations back into a handle.
func ParseHandlePayload(payload []byte) (uint32, error) {
	h, err := strconv.ParseUint(string(payload), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: handle payload %q", ErrMalformedPayload, payload)
	}

	return uint32(h), nil
}

// ParseStatePayload decodes a completion payload produced by RefreshState.
func ParseStatePayload(payload []byte) (State, error) {
	s, err := strconv.Atoi(string(payload))
	if err != nil {
		return StateNone, fmt.Errorf("%w: state payload %q", ErrMalformedPayload, payload)
	}

	return State(s), nil
}
