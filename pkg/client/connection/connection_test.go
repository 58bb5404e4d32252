/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package connection

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/credentio/credexchange-go/pkg/engine"
	"github.com/credentio/credexchange-go/pkg/mock/transport"
)

func TestNew(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		conn, err := New(transport.NewMockTransport())
		require.NoError(t, err)
		require.NotZero(t, conn.Handle())
	})

	t.Run("missing transport", func(t *testing.T) {
		_, err := New(nil)
		require.ErrorIs(t, err, engine.ErrOptionsValidation)
	})
}

func TestHandle(t *testing.T) {
	t.Run("placeholder carries no handle", func(t *testing.T) {
		var conn Connection

		require.Zero(t, conn.Handle())
	})

	t.Run("nil receiver carries no handle", func(t *testing.T) {
		var conn *Connection

		require.Zero(t, conn.Handle())
	})
}

func TestRelease(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		conn, err := New(transport.NewMockTransport())
		require.NoError(t, err)

		require.NoError(t, conn.Release())
		require.ErrorIs(t, conn.Release(), engine.ErrInvalidHandle)
	})

	t.Run("placeholder", func(t *testing.T) {
		var conn Connection

		require.ErrorIs(t, conn.Release(), engine.ErrUnknown)
	})
}

func TestRegistrar(t *testing.T) {
	r := NewRegistrar()

	conn, err := New(transport.NewMockTransport())
	require.NoError(t, err)

	r.Register("conn-1", conn)

	got, err := r.Lookup("conn-1")
	require.NoError(t, err)
	require.Equal(t, conn, got)

	_, err = r.Lookup("conn-2")
	require.EqualError(t, err, `no connection for ID "conn-2"`)
}
