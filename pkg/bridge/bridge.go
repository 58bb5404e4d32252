/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bridge correlates engine completion callbacks back to waiting
// callers. Every invocation gets a freshly minted token and a completion sink;
// the engine resolves the invocation by calling back with the same token.
package bridge

import (
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/credentio/credexchange-go/pkg/engine"
)

var logger = log.New("credexchange/bridge") // nolint:gochecknoglobals

type completion struct {
	code    engine.Code
	payload []byte
}

// nolint:gochecknoglobals
var (
	mu        sync.Mutex
	nextToken uint32
	pending   = map[uint32]chan completion{}
)

// Invoke issues an engine command and parks the calling goroutine until the
// engine completes it. A non-zero synchronous return from start short-circuits
// immediately: the sink is dropped and no callback is awaited. Each accepted
// command resolves exactly once. Invoke does not coordinate concurrent calls
// against the same handle; callers serialize those themselves.
func Invoke(start func(token uint32, cb engine.Callback) engine.Code) ([]byte, error) {
	token, sink := register()

	if code := start(token, complete); code != engine.CodeSuccess {
		unregister(token)

		return nil, code.Err()
	}

	done := <-sink

	if done.code != engine.CodeSuccess {
		return nil, done.code.Err()
	}

	return done.payload, nil
}

func register() (uint32, chan completion) {
	mu.Lock()
	defer mu.Unlock()

	nextToken++
	token := nextToken
	sink := make(chan completion, 1)
	pending[token] = sink

	return token, sink
}

func unregister(token uint32) {
	mu.Lock()
	defer mu.Unlock()

	delete(pending, token)
}

// complete resolves the invocation waiting on token. The sink is removed
// before delivery, so a duplicate completion cannot resolve anything twice.
func complete(token uint32, code engine.Code, payload []byte) {
	mu.Lock()
	sink, ok := pending[token]
	delete(pending, token)
	mu.Unlock()

	if !ok {
		logger.Warnf("dropping completion for unknown token %d", token)

		return
	}

	sink <- completion{code: code, payload: payload}
}
