/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"fmt"
	"sync"
)

// Kind discriminates the record types held in the handle table.
type Kind int

// record kinds.
const (
	KindConnection Kind = iota + 1
	KindCredential
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindCredential:
		return "credential"
	default:
		return "unknown"
	}
}

// registry is the process-wide table mapping handles to live records.
// A handle is a non-zero uint32, allocated from a monotonic counter and
// never reused within a process. The registry holds the records themselves;
// callers address them only by handle.
type registry struct {
	mu      sync.RWMutex
	next    uint32
	entries map[uint32]*entry
}

type entry struct {
	kind  Kind
	value interface{}
}

var table = &registry{entries: map[uint32]*entry{}} // nolint:gochecknoglobals

func (r *registry) allocate(kind Kind, value interface{}) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	h := r.next
	r.entries[h] = &entry{kind: kind, value: value}

	return h
}

func (r *registry) lookup(h uint32, kind Kind) (interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[h]
	if !ok || e.kind != kind {
		return nil, fmt.Errorf("%w: no %s for handle %d", ErrInvalidHandle, kind, h)
	}

	return e.value, nil
}

// release removes the entry for h. A zero handle was never set and is reported
// as an unknown error; a non-zero handle that is absent was already freed and
// is reported as an invalid handle. The asymmetry is part of the contract.
func (r *registry) release(h uint32, kind Kind) error {
	if h == 0 {
		return fmt.Errorf("%w: handle was never set", ErrUnknown)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[h]
	if !ok || e.kind != kind {
		return fmt.Errorf("%w: no %s for handle %d", ErrInvalidHandle, kind, h)
	}

	delete(r.entries, h)

	return nil
}

func (r *registry) isValid(h uint32) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[h]

	return ok
}
