/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bridge

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/credentio/credexchange-go/pkg/engine"
)

func TestInvoke(t *testing.T) {
	t.Run("async success", func(t *testing.T) {
		payload, err := Invoke(func(token uint32, cb engine.Callback) engine.Code {
			go cb(token, engine.CodeSuccess, []byte("result"))

			return engine.CodeSuccess
		})
		require.NoError(t, err)
		require.Equal(t, []byte("result"), payload)
	})

	t.Run("async failure", func(t *testing.T) {
		payload, err := Invoke(func(token uint32, cb engine.Callback) engine.Code {
			go cb(token, engine.CodeMalformedPayload, nil)

			return engine.CodeSuccess
		})
		require.ErrorIs(t, err, engine.ErrMalformedPayload)
		require.Nil(t, payload)
	})

	t.Run("synchronous rejection short-circuits", func(t *testing.T) {
		payload, err := Invoke(func(token uint32, cb engine.Callback) engine.Code {
			return engine.CodeOptionsValidation
		})
		require.ErrorIs(t, err, engine.ErrOptionsValidation)
		require.Nil(t, payload)
	})

	t.Run("tokens are distinct per invocation", func(t *testing.T) {
		seen := make(chan uint32, 2)

		for i := 0; i < 2; i++ {
			_, err := Invoke(func(token uint32, cb engine.Callback) engine.Code {
				seen <- token

				go cb(token, engine.CodeSuccess, nil)

				return engine.CodeSuccess
			})
			require.NoError(t, err)
		}

		require.NotEqual(t, <-seen, <-seen)
	})

	t.Run("duplicate completion is dropped", func(t *testing.T) {
		payload, err := Invoke(func(token uint32, cb engine.Callback) engine.Code {
			go func() {
				cb(token, engine.CodeSuccess, []byte("first"))
				cb(token, engine.CodeUnknown, []byte("second"))
			}()

			return engine.CodeSuccess
		})
		require.NoError(t, err)
		require.Equal(t, []byte("first"), payload)
	})

	t.Run("concurrent invocations resolve to their own callers", func(t *testing.T) {
		const n = 16

		var wg sync.WaitGroup

		for i := 0; i < n; i++ {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()

				want := []byte(fmt.Sprintf("payload-%d", i))

				payload, err := Invoke(func(token uint32, cb engine.Callback) engine.Code {
					go cb(token, engine.CodeSuccess, want)

					return engine.CodeSuccess
				})
				require.NoError(t, err)
				require.Equal(t, want, payload)
			}(i)
		}

		wg.Wait()
	})
}
