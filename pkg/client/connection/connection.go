/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package connection exposes the transport identity a credential exchange is
// bound to. The connection itself is an opaque reference: the engine consumes
// only its handle and the transport behind it.
package connection

import (
	"fmt"
	"sync"

	"github.com/credentio/credexchange-go/pkg/engine"
)

// Connection identifies one transport to the engine. The zero value is a
// not-yet-connected placeholder: it carries no handle, and dereferencing it
// produces an invalid connection handle error.
type Connection struct {
	handle uint32
}

// New registers the given transport with the engine and returns the connection
// wrapping its handle.
func New(t engine.Transport) (*Connection, error) {
	h, err := engine.RegisterConnection(t)
	if err != nil {
		return nil, fmt.Errorf("register connection: %w", err)
	}

	return &Connection{handle: h}, nil
}

// Handle returns the engine handle of the connection, 0 for a placeholder.
func (c *Connection) Handle() uint32 {
	if c == nil {
		return 0
	}

	return c.handle
}

// Release frees the engine resource behind the connection.
func (c *Connection) Release() error {
	return engine.ReleaseConnection(c.Handle())
}

// Registrar keeps named connections for surfaces that address them by ID,
// such as the controller layer.
type Registrar struct {
	mu    sync.RWMutex
	conns map[string]*Connection
}

// NewRegistrar returns an empty connection registrar.
func NewRegistrar() *Registrar {
	return &Registrar{conns: map[string]*Connection{}}
}

// Register adds a connection under the given ID, replacing any previous one.
func (r *Registrar) Register(id string, conn *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[id] = conn
}

// Lookup returns the connection registered under the given ID.
func (r *Registrar) Lookup(id string) (*Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[id]
	if !ok {
		return nil, fmt.Errorf("no connection for ID %q", id)
	}

	return conn, nil
}
