/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import "fmt"

// Transport delivers protocol messages for a single connection. The engine
// consumes it as an opaque collaborator: the wire beneath it (HTTP, mobile
// agency, in-process loopback) is not this layer's concern.
type Transport interface {
	// Send transmits an outbound protocol message.
	Send(msg []byte) error
	// Message fetches the transcript of a single message by its identifier.
	Message(id string) ([]byte, error)
	// Offers returns all pending credential offers visible on the connection.
	Offers() ([][]byte, error)
	// Updates drains pending inbound protocol messages for the given thread.
	Updates(thid string) ([][]byte, error)
}

// RegisterConnection adds a connection backed by the given transport to the
// handle table and returns its handle.
func RegisterConnection(t Transport) (uint32, error) {
	if t == nil {
		return 0, fmt.Errorf("%w: transport", ErrOptionsValidation)
	}

	return table.allocate(KindConnection, t), nil
}

// ReleaseConnection frees the connection identified by h.
func ReleaseConnection(h uint32) error {
	return table.release(h, KindConnection)
}

func connectionTransport(h uint32) (Transport, error) {
	v, err := table.lookup(h, KindConnection)
	if err != nil {
		return nil, fmt.Errorf("%w: connection %d", ErrInvalidConnectionHandle, h)
	}

	return v.(Transport), nil
}
