/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package transport provides a mock connection transport.
package transport

import (
	"fmt"
	"sync"
)

// MockTransport is an in-memory engine.Transport for tests. Inbound messages
// are queued per thread; everything sent is captured.
type MockTransport struct {
	mu       sync.Mutex
	messages map[string][]byte
	offers   [][]byte
	updates  map[string][][]byte
	sent     [][]byte

	ErrSend    error
	ErrMessage error
	ErrOffers  error
	ErrUpdates error
}

// NewMockTransport returns an empty mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		messages: map[string][]byte{},
		updates:  map[string][][]byte{},
	}
}

// Send captures an outbound message.
func (m *MockTransport) Send(msg []byte) error {
	if m.ErrSend != nil {
		return m.ErrSend
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, msg)

	return nil
}

// Message returns the transcript stored under the given ID.
func (m *MockTransport) Message(id string) ([]byte, error) {
	if m.ErrMessage != nil {
		return nil, m.ErrMessage
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msg, ok := m.messages[id]
	if !ok {
		return nil, fmt.Errorf("no message with id %q", id)
	}

	return msg, nil
}

// Offers returns the queued offers.
func (m *MockTransport) Offers() ([][]byte, error) {
	if m.ErrOffers != nil {
		return nil, m.ErrOffers
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return append([][]byte{}, m.offers...), nil
}

// Updates drains the inbound messages queued for the given thread.
func (m *MockTransport) Updates(thid string) ([][]byte, error) {
	if m.ErrUpdates != nil {
		return nil, m.ErrUpdates
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := m.updates[thid]
	delete(m.updates, thid)

	return msgs, nil
}

// AddMessage stores a transcript under the given ID.
func (m *MockTransport) AddMessage(id string, msg []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages[id] = msg
}

// AddOffer queues a pending offer.
func (m *MockTransport) AddOffer(offer []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.offers = append(m.offers, offer)
}

// AddUpdate queues an inbound message for the given thread.
func (m *MockTransport) AddUpdate(thid string, msg []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.updates[thid] = append(m.updates[thid], msg)
}

// Sent returns everything captured by Send.
func (m *MockTransport) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([][]byte{}, m.sent...)
}
