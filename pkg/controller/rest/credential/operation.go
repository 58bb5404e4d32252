/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package credential exposes the credential exchange session commands as REST
// API endpoints.
package credential

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/credentio/credexchange-go/pkg/controller/command"
	"github.com/credentio/credexchange-go/pkg/controller/command/credential"
	"github.com/credentio/credexchange-go/pkg/controller/internal/cmdutil"
	"github.com/credentio/credexchange-go/pkg/controller/rest"
)

var logger = log.New("credexchange/rest/credential") // nolint:gochecknoglobals

// constants for credential exchange endpoints.
const (
	OperationID         = "/credentials"
	CreatePath          = OperationID + "/create-with-offer"
	CreateWithMsgIDPath = OperationID + "/create-with-msg-id"
	OffersPath          = OperationID + "/offers"
	DeserializePath     = OperationID + "/deserialize"
	RecordsPath         = OperationID + "/records"
	SendRequestPath     = OperationID + "/{id}/send-request"
	UpdateStatePath     = OperationID + "/{id}/update-state"
	GetStatePath        = OperationID + "/{id}/state"
	PaymentInfoPath     = OperationID + "/{id}/payment-info"
	SerializePath       = OperationID + "/{id}/serialize"
	ReleasePath         = OperationID + "/{id}/release"
)

// Operation is the REST controller for credential exchange sessions.
type Operation struct {
	command  *credential.Command
	handlers []rest.Handler
}

// New returns new credential exchange rest client protocol instance.
func New(conns credential.ConnectionResolver) (*Operation, error) {
	cmd, err := credential.New(conns)
	if err != nil {
		return nil, err
	}

	op := &Operation{command: cmd}

	op.registerHandler()

	return op, nil
}

// GetRESTHandlers get all controller API handlers available for this service.
func (c *Operation) GetRESTHandlers() []rest.Handler {
	return c.handlers
}

// registerHandler register handlers to be exposed from this service as REST API endpoints.
func (c *Operation) registerHandler() {
	c.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(CreatePath, http.MethodPost, c.Create),
		cmdutil.NewHTTPHandler(CreateWithMsgIDPath, http.MethodPost, c.CreateWithMsgID),
		cmdutil.NewHTTPHandler(OffersPath, http.MethodGet, c.Offers),
		cmdutil.NewHTTPHandler(DeserializePath, http.MethodPost, c.Deserialize),
		cmdutil.NewHTTPHandler(RecordsPath, http.MethodGet, c.Records),
		cmdutil.NewHTTPHandler(SendRequestPath, http.MethodPost, c.SendRequest),
		cmdutil.NewHTTPHandler(UpdateStatePath, http.MethodPost, c.UpdateState),
		cmdutil.NewHTTPHandler(GetStatePath, http.MethodGet, c.GetState),
		cmdutil.NewHTTPHandler(PaymentInfoPath, http.MethodGet, c.PaymentInfo),
		cmdutil.NewHTTPHandler(SerializePath, http.MethodGet, c.Serialize),
		cmdutil.NewHTTPHandler(ReleasePath, http.MethodPost, c.Release),
	}
}

// Create swagger:route POST /credentials/create-with-offer credentials createCredential
//
// Creates a session from an offer bound to a registered connection.
//
// Responses:
//    default: genericError
//        200: sessionResponse
func (c *Operation) Create(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Create, rw, req.Body)
}

// CreateWithMsgID swagger:route POST /credentials/create-with-msg-id credentials createCredentialWithMsgID
//
// Creates a session from an offer fetched by message ID.
//
// Responses:
//    default: genericError
//        200: sessionResponse
func (c *Operation) CreateWithMsgID(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateWithMsgID, rw, req.Body)
}

// Offers swagger:route GET /credentials/offers credentials listOffers
//
// Lists pending credential offers on a registered connection.
//
// Responses:
//    default: genericError
//        200: offersResponse
func (c *Operation) Offers(rw http.ResponseWriter, req *http.Request) {
	id := req.URL.Query().Get("connection_id")

	request := fmt.Sprintf(`{"connection_id":%q}`, id)

	rest.Execute(c.command.Offers, rw, bytes.NewBufferString(request))
}

// Deserialize swagger:route POST /credentials/deserialize credentials deserializeCredential
//
// Restores a session from a snapshot.
//
// Responses:
//    default: genericError
//        200: sessionResponse
func (c *Operation) Deserialize(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Deserialize, rw, req.Body)
}

// Records swagger:route GET /credentials/records credentials listRecords
//
// Returns the persisted exchange records.
//
// Responses:
//    default: genericError
//        200: recordsResponse
func (c *Operation) Records(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.Records, rw, req.Body)
}

// SendRequest swagger:route POST /credentials/{id}/send-request credentials sendRequest
//
// Submits the issuance request for a session.
//
// Responses:
//    default: genericError
//        200: sessionResponse
func (c *Operation) SendRequest(rw http.ResponseWriter, req *http.Request) {
	id, found := getIDFromRequest(rw, req)
	if !found {
		return
	}

	rest.Execute(c.command.SendRequest, rw, withSourceID(id, req.Body))
}

// UpdateState swagger:route POST /credentials/{id}/update-state credentials updateState
//
// Refreshes the cached protocol state of a session.
//
// Responses:
//    default: genericError
//        200: sessionResponse
func (c *Operation) UpdateState(rw http.ResponseWriter, req *http.Request) {
	executeByID(c.command.UpdateState, rw, req)
}

// GetState swagger:route GET /credentials/{id}/state credentials getState
//
// Returns the cached protocol state of a session.
//
// Responses:
//    default: genericError
//        200: sessionResponse
func (c *Operation) GetState(rw http.ResponseWriter, req *http.Request) {
	executeByID(c.command.GetState, rw, req)
}

// PaymentInfo swagger:route GET /credentials/{id}/payment-info credentials paymentInfo
//
// Returns the payment terms attached to the session's offer.
//
// Responses:
//    default: genericError
//        200: paymentInfoResponse
func (c *Operation) PaymentInfo(rw http.ResponseWriter, req *http.Request) {
	executeByID(c.command.PaymentInfo, rw, req)
}

// Serialize swagger:route GET /credentials/{id}/serialize credentials serializeCredential
//
// Returns the canonical snapshot of a session.
//
// Responses:
//    default: genericError
//        200: serializeResponse
func (c *Operation) Serialize(rw http.ResponseWriter, req *http.Request) {
	executeByID(c.command.Serialize, rw, req)
}

// Release swagger:route POST /credentials/{id}/release credentials releaseCredential
//
// Frees the engine resource behind a session.
//
// Responses:
//    default: genericError
//        200: emptyResponse
func (c *Operation) Release(rw http.ResponseWriter, req *http.Request) {
	executeByID(c.command.Release, rw, req)
}

func executeByID(exec command.Exec, rw http.ResponseWriter, req *http.Request) {
	id, found := getIDFromRequest(rw, req)
	if !found {
		return
	}

	request := fmt.Sprintf(`{"source_id":%q}`, id)

	rest.Execute(exec, rw, bytes.NewBufferString(request))
}

// withSourceID merges the session ID from the request path into the JSON body.
func withSourceID(id string, body io.Reader) io.Reader {
	args := map[string]interface{}{}

	if body != nil {
		if err := json.NewDecoder(body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
			logger.Debugf("ignoring unparseable request body: %s", err)
		}
	}

	args["source_id"] = id

	merged, err := json.Marshal(args)
	if err != nil {
		logger.Errorf("merge request body: %s", err)

		return bytes.NewBufferString(fmt.Sprintf(`{"source_id":%q}`, id))
	}

	return bytes.NewBuffer(merged)
}

// getIDFromRequest returns the session ID from the request path.
func getIDFromRequest(rw http.ResponseWriter, req *http.Request) (string, bool) {
	id := mux.Vars(req)["id"]
	if id == "" {
		rest.SendHTTPStatusError(rw, http.StatusBadRequest, credential.InvalidRequestErrorCode,
			fmt.Errorf("empty session ID"))

		return "", false
	}

	return id, true
}
