/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/credentio/credexchange-go/pkg/controller/command"
)

var logger = log.New("credexchange/controller/rest") // nolint:gochecknoglobals

// genericErrorBody is the error response written for failed commands.
type genericErrorBody struct {
	Code    command.Code `json:"code"`
	Message string       `json:"message"`
}

// Execute runs the given command and writes its response or error to rw.
func Execute(exec command.Exec, rw http.ResponseWriter, req io.Reader) {
	rw.Header().Set("Content-Type", "application/json")

	if err := exec(rw, req); err != nil {
		SendError(rw, err)
	}
}

// SendError writes the command error with the HTTP status it maps to:
// validation errors are the caller's fault, everything else is internal.
func SendError(rw http.ResponseWriter, err command.Error) {
	status := http.StatusInternalServerError
	if err.Type() == command.ValidationError {
		status = http.StatusBadRequest
	}

	SendHTTPStatusError(rw, status, err.Code(), err)
}

// SendHTTPStatusError sends an error response with the given HTTP status code.
func SendHTTPStatusError(rw http.ResponseWriter, status int, code command.Code, err error) {
	rw.WriteHeader(status)

	body, marshalErr := json.Marshal(genericErrorBody{Code: code, Message: err.Error()})
	if marshalErr != nil {
		logger.Errorf("Unable to marshal error response, %s", marshalErr)

		return
	}

	if _, writeErr := rw.Write(body); writeErr != nil {
		logger.Errorf("Unable to send error response, %s", writeErr)
	}
}
