/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credential exposes the credential exchange session API as
// controller commands.
package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"

	clientcredential "github.com/credentio/credexchange-go/pkg/client/credential"
	"github.com/credentio/credexchange-go/pkg/client/connection"
	"github.com/credentio/credexchange-go/pkg/controller/command"
	"github.com/credentio/credexchange-go/pkg/controller/internal/cmdutil"
	"github.com/credentio/credexchange-go/pkg/engine"
)

var logger = log.New("credexchange/controller/credential") // nolint:gochecknoglobals

const (
	// InvalidRequestErrorCode is typically a code for validation errors
	// for invalid credential controller requests.
	InvalidRequestErrorCode = command.Code(iota + command.Credential)
	// CreateErrorCode is for failures in the create command.
	CreateErrorCode
	// CreateWithMsgIDErrorCode is for failures in the create-with-msg-id command.
	CreateWithMsgIDErrorCode
	// OffersErrorCode is for failures in the offers command.
	OffersErrorCode
	// SendRequestErrorCode is for failures in the send request command.
	SendRequestErrorCode
	// PaymentInfoErrorCode is for failures in the payment info command.
	PaymentInfoErrorCode
	// SerializeErrorCode is for failures in the serialize command.
	SerializeErrorCode
	// DeserializeErrorCode is for failures in the deserialize command.
	DeserializeErrorCode
	// ReleaseErrorCode is for failures in the release command.
	ReleaseErrorCode
	// RecordsErrorCode is for failures in the records command.
	RecordsErrorCode
)

// constants for credential exchange commands.
const (
	// command name.
	CommandName = "credential"

	Create          = "Create"
	CreateWithMsgID = "CreateWithMsgID"
	Offers          = "Offers"
	SendRequest     = "SendRequest"
	UpdateState     = "UpdateState"
	GetState        = "GetState"
	PaymentInfo     = "PaymentInfo"
	Serialize       = "Serialize"
	Deserialize     = "Deserialize"
	Release         = "Release"
	Records         = "Records"
)

const (
	// error messages.
	errEmptySourceID     = "empty source ID"
	errEmptyConnectionID = "empty connection ID"
	errEmptyOffer        = "empty offer"
	errEmptyMsgID        = "empty msg ID"
	errEmptySnapshot     = "empty snapshot"
	errNoSession         = "no session for source ID"
)

// ConnectionResolver resolves registered connections by ID.
type ConnectionResolver interface {
	Lookup(id string) (*connection.Connection, error)
}

// Command exposes the credential exchange session operations. Sessions are
// addressed by their source ID.
type Command struct {
	mu       sync.RWMutex
	sessions map[string]*clientcredential.Credential
	conns    ConnectionResolver
}

// New returns new credential exchange controller command instance.
func New(conns ConnectionResolver) (*Command, error) {
	if conns == nil {
		return nil, errors.New("connection resolver is required")
	}

	return &Command{
		sessions: map[string]*clientcredential.Credential{},
		conns:    conns,
	}, nil
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, Create, c.Create),
		cmdutil.NewCommandHandler(CommandName, CreateWithMsgID, c.CreateWithMsgID),
		cmdutil.NewCommandHandler(CommandName, Offers, c.Offers),
		cmdutil.NewCommandHandler(CommandName, SendRequest, c.SendRequest),
		cmdutil.NewCommandHandler(CommandName, UpdateState, c.UpdateState),
		cmdutil.NewCommandHandler(CommandName, GetState, c.GetState),
		cmdutil.NewCommandHandler(CommandName, PaymentInfo, c.PaymentInfo),
		cmdutil.NewCommandHandler(CommandName, Serialize, c.Serialize),
		cmdutil.NewCommandHandler(CommandName, Deserialize, c.Deserialize),
		cmdutil.NewCommandHandler(CommandName, Release, c.Release),
		cmdutil.NewCommandHandler(CommandName, Records, c.Records),
	}
}

// Create creates a session from an offer bound to a registered connection.
func (c *Command) Create(rw io.Writer, req io.Reader) command.Error {
	var args CreateArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("request decode: %w", err))
	}

	if args.SourceID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptySourceID))
	}

	if args.Offer == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyOffer))
	}

	if args.ConnectionID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnectionID))
	}

	conn, err := c.conns.Lookup(args.ConnectionID)
	if err != nil {
		return command.NewExecuteError(CreateErrorCode, err)
	}

	cred, err := clientcredential.Create(args.SourceID, args.Offer, conn)
	if err != nil {
		return command.NewExecuteError(CreateErrorCode, err)
	}

	c.putSession(cred)

	command.WriteNillableResponse(rw, &SessionResponse{
		SourceID: cred.SourceID(),
		State:    int(cred.State()),
	}, logger)

	return nil
}

// CreateWithMsgID creates a session from an offer fetched by message ID.
func (c *Command) CreateWithMsgID(rw io.Writer, req io.Reader) command.Error {
	var args CreateWithMsgIDArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("request decode: %w", err))
	}

	if args.SourceID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptySourceID))
	}

	if args.MsgID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyMsgID))
	}

	if args.ConnectionID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnectionID))
	}

	conn, err := c.conns.Lookup(args.ConnectionID)
	if err != nil {
		return command.NewExecuteError(CreateWithMsgIDErrorCode, err)
	}

	cred, err := clientcredential.CreateWithMsgID(args.SourceID, conn, args.MsgID)
	if err != nil {
		return command.NewExecuteError(CreateWithMsgIDErrorCode, err)
	}

	c.putSession(cred)

	command.WriteNillableResponse(rw, &SessionResponse{
		SourceID: cred.SourceID(),
		State:    int(cred.State()),
	}, logger)

	return nil
}

// Offers lists pending credential offers on a registered connection.
func (c *Command) Offers(rw io.Writer, req io.Reader) command.Error {
	var args OffersArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("request decode: %w", err))
	}

	if args.ConnectionID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnectionID))
	}

	conn, err := c.conns.Lookup(args.ConnectionID)
	if err != nil {
		return command.NewExecuteError(OffersErrorCode, err)
	}

	offers, err := clientcredential.GetOffers(conn)
	if err != nil {
		return command.NewExecuteError(OffersErrorCode, err)
	}

	command.WriteNillableResponse(rw, &OffersResponse{Offers: offers}, logger)

	return nil
}

// SendRequest submits the issuance request for a session.
func (c *Command) SendRequest(rw io.Writer, req io.Reader) command.Error {
	var args SendRequestArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("request decode: %w", err))
	}

	if args.ConnectionID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnectionID))
	}

	cred, cmdErr := c.session(args.SourceID)
	if cmdErr != nil {
		return cmdErr
	}

	conn, err := c.conns.Lookup(args.ConnectionID)
	if err != nil {
		return command.NewExecuteError(SendRequestErrorCode, err)
	}

	if err := cred.SendRequest(conn, args.PaymentTerms); err != nil {
		return command.NewExecuteError(SendRequestErrorCode, err)
	}

	command.WriteNillableResponse(rw, &SessionResponse{
		SourceID: cred.SourceID(),
		State:    int(cred.State()),
	}, logger)

	return nil
}

// UpdateState refreshes the cached protocol state of a session.
func (c *Command) UpdateState(rw io.Writer, req io.Reader) command.Error {
	cred, cmdErr := c.sessionFromRequest(req)
	if cmdErr != nil {
		return cmdErr
	}

	// never fails, degrades to the cached state
	_ = cred.UpdateState()

	command.WriteNillableResponse(rw, &SessionResponse{
		SourceID: cred.SourceID(),
		State:    int(cred.State()),
	}, logger)

	return nil
}

// GetState returns the cached protocol state of a session.
func (c *Command) GetState(rw io.Writer, req io.Reader) command.Error {
	cred, cmdErr := c.sessionFromRequest(req)
	if cmdErr != nil {
		return cmdErr
	}

	command.WriteNillableResponse(rw, &SessionResponse{
		SourceID: cred.SourceID(),
		State:    int(cred.State()),
	}, logger)

	return nil
}

// PaymentInfo returns the payment terms attached to the session's offer.
func (c *Command) PaymentInfo(rw io.Writer, req io.Reader) command.Error {
	cred, cmdErr := c.sessionFromRequest(req)
	if cmdErr != nil {
		return cmdErr
	}

	info, err := cred.PaymentInfo()
	if err != nil {
		return command.NewExecuteError(PaymentInfoErrorCode, err)
	}

	payload, err := json.Marshal(info)
	if err != nil {
		return command.NewExecuteError(PaymentInfoErrorCode, err)
	}

	command.WriteNillableResponse(rw, &PaymentInfoResponse{PaymentInfo: payload}, logger)

	return nil
}

// Serialize returns the canonical snapshot of a session.
func (c *Command) Serialize(rw io.Writer, req io.Reader) command.Error {
	cred, cmdErr := c.sessionFromRequest(req)
	if cmdErr != nil {
		return cmdErr
	}

	snapshot, err := cred.Serialize()
	if err != nil {
		return command.NewExecuteError(SerializeErrorCode, err)
	}

	command.WriteNillableResponse(rw, &SerializeResponse{Snapshot: snapshot}, logger)

	return nil
}

// Deserialize restores a session from a snapshot.
func (c *Command) Deserialize(rw io.Writer, req io.Reader) command.Error {
	var args DeserializeArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("request decode: %w", err))
	}

	if len(args.Snapshot) == 0 {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptySnapshot))
	}

	cred, err := clientcredential.Deserialize(args.Snapshot)
	if err != nil {
		return command.NewExecuteError(DeserializeErrorCode, err)
	}

	c.putSession(cred)

	command.WriteNillableResponse(rw, &SessionResponse{
		SourceID: cred.SourceID(),
		State:    int(cred.State()),
	}, logger)

	return nil
}

// Release frees the engine resource behind a session.
func (c *Command) Release(rw io.Writer, req io.Reader) command.Error {
	cred, cmdErr := c.sessionFromRequest(req)
	if cmdErr != nil {
		return cmdErr
	}

	if err := cred.Release(); err != nil {
		return command.NewExecuteError(ReleaseErrorCode, err)
	}

	c.mu.Lock()
	delete(c.sessions, cred.SourceID())
	c.mu.Unlock()

	command.WriteNillableResponse(rw, nil, logger)

	return nil
}

// Records returns the persisted exchange records.
func (c *Command) Records(rw io.Writer, _ io.Reader) command.Error {
	records, err := engine.Records()
	if err != nil {
		return command.NewExecuteError(RecordsErrorCode, err)
	}

	command.WriteNillableResponse(rw, &RecordsResponse{Records: records}, logger)

	return nil
}

func (c *Command) putSession(cred *clientcredential.Credential) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions[cred.SourceID()] = cred
}

func (c *Command) session(sourceID string) (*clientcredential.Credential, command.Error) {
	if sourceID == "" {
		return nil, command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptySourceID))
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	cred, ok := c.sessions[sourceID]
	if !ok {
		return nil, command.NewValidationError(InvalidRequestErrorCode,
			fmt.Errorf("%s %q", errNoSession, sourceID))
	}

	return cred, nil
}

func (c *Command) sessionFromRequest(req io.Reader) (*clientcredential.Credential, command.Error) {
	var args SessionArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		return nil, command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("request decode: %w", err))
	}

	return c.session(args.SourceID)
}
