/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credential

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/credentio/credexchange-go/pkg/client/connection"
	"github.com/credentio/credexchange-go/pkg/controller/command"
	"github.com/credentio/credexchange-go/pkg/engine"
	"github.com/credentio/credexchange-go/pkg/mock/transport"
)

func testOfferJSON(thid string) string {
	return fmt.Sprintf(`{"@type":%q,"@id":%q,"cred_def_id":"cred-def-1",`+
		`"payment":{"price":2,"address":"pay:sov:addr"}}`,
		engine.OfferCredentialMsgType, thid)
}

type testSetup struct {
	cmd  *Command
	mt   *transport.MockTransport
	conn *connection.Connection
}

func newTestSetup(t *testing.T) *testSetup {
	t.Helper()

	mt := transport.NewMockTransport()

	conn, err := connection.New(mt)
	require.NoError(t, err)

	reg := connection.NewRegistrar()
	reg.Register("conn-1", conn)

	cmd, err := New(reg)
	require.NoError(t, err)

	return &testSetup{cmd: cmd, mt: mt, conn: conn}
}

func (s *testSetup) create(t *testing.T, sourceID, thid string) {
	t.Helper()

	var b bytes.Buffer

	cmdErr := s.cmd.Create(&b, bytes.NewBufferString(fmt.Sprintf(
		`{"source_id":%q,"offer":%q,"connection_id":"conn-1"}`, sourceID, testOfferJSON(thid))))
	require.Nil(t, cmdErr)
}

func sessionArgs(sourceID string) *bytes.Buffer {
	return bytes.NewBufferString(fmt.Sprintf(`{"source_id":%q}`, sourceID))
}

func TestNew(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		cmd, err := New(connection.NewRegistrar())
		require.NoError(t, err)
		require.NotNil(t, cmd)

		handlers := cmd.GetHandlers()
		require.Len(t, handlers, 11)
	})

	t.Run("missing resolver", func(t *testing.T) {
		_, err := New(nil)
		require.EqualError(t, err, "connection resolver is required")
	})
}

func TestCreate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestSetup(t)

		var b bytes.Buffer

		cmdErr := s.cmd.Create(&b, bytes.NewBufferString(fmt.Sprintf(
			`{"source_id":"s1","offer":%q,"connection_id":"conn-1"}`, testOfferJSON("th-cmd-1"))))
		require.Nil(t, cmdErr)

		var resp SessionResponse
		require.NoError(t, json.Unmarshal(b.Bytes(), &resp))
		require.Equal(t, "s1", resp.SourceID)
		require.Equal(t, 1, resp.State)
	})

	t.Run("invalid request", func(t *testing.T) {
		s := newTestSetup(t)

		requests := []string{
			"not json",
			`{"offer":"o","connection_id":"conn-1"}`,
			`{"source_id":"s1","connection_id":"conn-1"}`,
			`{"source_id":"s1","offer":"o"}`,
		}

		for _, req := range requests {
			var b bytes.Buffer

			cmdErr := s.cmd.Create(&b, bytes.NewBufferString(req))
			require.NotNil(t, cmdErr, "request: %s", req)
			require.Equal(t, command.ValidationError, cmdErr.Type())
			require.Equal(t, InvalidRequestErrorCode, cmdErr.Code())
		}
	})

	t.Run("unregistered connection", func(t *testing.T) {
		s := newTestSetup(t)

		var b bytes.Buffer

		cmdErr := s.cmd.Create(&b, bytes.NewBufferString(fmt.Sprintf(
			`{"source_id":"s1","offer":%q,"connection_id":"conn-9"}`, testOfferJSON("th-cmd-2"))))
		require.NotNil(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Equal(t, CreateErrorCode, cmdErr.Code())
	})

	t.Run("malformed offer", func(t *testing.T) {
		s := newTestSetup(t)

		var b bytes.Buffer

		cmdErr := s.cmd.Create(&b, bytes.NewBufferString(
			`{"source_id":"s1","offer":"garbage","connection_id":"conn-1"}`))
		require.NotNil(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Equal(t, CreateErrorCode, cmdErr.Code())
	})
}

func TestCreateWithMsgID(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestSetup(t)
		s.mt.AddMessage("msg-1", []byte(testOfferJSON("th-cmd-3")))

		var b bytes.Buffer

		cmdErr := s.cmd.CreateWithMsgID(&b, bytes.NewBufferString(
			`{"source_id":"s1","connection_id":"conn-1","msg_id":"msg-1"}`))
		require.Nil(t, cmdErr)

		var resp SessionResponse
		require.NoError(t, json.Unmarshal(b.Bytes(), &resp))
		require.Equal(t, "s1", resp.SourceID)
	})

	t.Run("invalid request", func(t *testing.T) {
		s := newTestSetup(t)

		var b bytes.Buffer

		cmdErr := s.cmd.CreateWithMsgID(&b, bytes.NewBufferString(
			`{"source_id":"s1","connection_id":"conn-1"}`))
		require.NotNil(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
	})

	t.Run("unknown message id", func(t *testing.T) {
		s := newTestSetup(t)

		var b bytes.Buffer

		cmdErr := s.cmd.CreateWithMsgID(&b, bytes.NewBufferString(
			`{"source_id":"s1","connection_id":"conn-1","msg_id":"no-such-msg"}`))
		require.NotNil(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Equal(t, CreateWithMsgIDErrorCode, cmdErr.Code())
	})
}

func TestOffers(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestSetup(t)
		s.mt.AddOffer([]byte(testOfferJSON("th-cmd-4")))

		var b bytes.Buffer

		cmdErr := s.cmd.Offers(&b, bytes.NewBufferString(`{"connection_id":"conn-1"}`))
		require.Nil(t, cmdErr)

		var resp OffersResponse
		require.NoError(t, json.Unmarshal(b.Bytes(), &resp))
		require.Len(t, resp.Offers, 1)
	})

	t.Run("empty connection id", func(t *testing.T) {
		s := newTestSetup(t)

		var b bytes.Buffer

		cmdErr := s.cmd.Offers(&b, bytes.NewBufferString(`{}`))
		require.NotNil(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
	})
}

func TestSendRequest(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestSetup(t)
		s.create(t, "s1", "th-cmd-5")

		var b bytes.Buffer

		cmdErr := s.cmd.SendRequest(&b, bytes.NewBufferString(
			`{"source_id":"s1","connection_id":"conn-1","payment_terms":2}`))
		require.Nil(t, cmdErr)

		var resp SessionResponse
		require.NoError(t, json.Unmarshal(b.Bytes(), &resp))
		require.Equal(t, 2, resp.State)
		require.Len(t, s.mt.Sent(), 1)
	})

	t.Run("unknown session", func(t *testing.T) {
		s := newTestSetup(t)

		var b bytes.Buffer

		cmdErr := s.cmd.SendRequest(&b, bytes.NewBufferString(
			`{"source_id":"s9","connection_id":"conn-1"}`))
		require.NotNil(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
		require.Contains(t, cmdErr.Error(), errNoSession)
	})

	t.Run("send failure", func(t *testing.T) {
		s := newTestSetup(t)
		s.create(t, "s1", "th-cmd-6")

		s.mt.ErrSend = fmt.Errorf("transport down")

		var b bytes.Buffer

		cmdErr := s.cmd.SendRequest(&b, bytes.NewBufferString(
			`{"source_id":"s1","connection_id":"conn-1"}`))
		require.NotNil(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Equal(t, SendRequestErrorCode, cmdErr.Code())
	})
}

func TestUpdateStateAndGetState(t *testing.T) {
	s := newTestSetup(t)
	s.create(t, "s1", "th-cmd-7")

	var b bytes.Buffer

	cmdErr := s.cmd.SendRequest(&b, bytes.NewBufferString(
		`{"source_id":"s1","connection_id":"conn-1"}`))
	require.Nil(t, cmdErr)

	s.mt.AddUpdate("th-cmd-7", []byte(fmt.Sprintf(
		`{"@type":%q,"@id":"issue-1","~thread":{"thid":"th-cmd-7"}}`, engine.IssueCredentialMsgType)))

	b.Reset()
	require.Nil(t, s.cmd.UpdateState(&b, sessionArgs("s1")))

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(b.Bytes(), &resp))
	require.Equal(t, 3, resp.State)

	b.Reset()
	require.Nil(t, s.cmd.GetState(&b, sessionArgs("s1")))

	resp = SessionResponse{}
	require.NoError(t, json.Unmarshal(b.Bytes(), &resp))
	require.Equal(t, 3, resp.State)

	cmdErr = s.cmd.GetState(&b, sessionArgs("s9"))
	require.NotNil(t, cmdErr)
	require.Equal(t, command.ValidationError, cmdErr.Type())
}

func TestPaymentInfo(t *testing.T) {
	s := newTestSetup(t)
	s.create(t, "s1", "th-cmd-8")

	var b bytes.Buffer

	require.Nil(t, s.cmd.PaymentInfo(&b, sessionArgs("s1")))

	var resp PaymentInfoResponse
	require.NoError(t, json.Unmarshal(b.Bytes(), &resp))

	var info engine.PaymentInfo
	require.NoError(t, json.Unmarshal(resp.PaymentInfo, &info))
	require.Equal(t, uint64(2), info.Price)
}

func TestSerializeDeserializeRelease(t *testing.T) {
	s := newTestSetup(t)
	s.create(t, "s1", "th-cmd-9")

	var b bytes.Buffer

	require.Nil(t, s.cmd.Serialize(&b, sessionArgs("s1")))

	var ser SerializeResponse
	require.NoError(t, json.Unmarshal(b.Bytes(), &ser))
	require.NotEmpty(t, ser.Snapshot)

	b.Reset()
	require.Nil(t, s.cmd.Release(&b, sessionArgs("s1")))

	cmdErr := s.cmd.Serialize(&b, sessionArgs("s1"))
	require.NotNil(t, cmdErr)
	require.Equal(t, command.ValidationError, cmdErr.Type())
	require.Contains(t, cmdErr.Error(), errNoSession)

	b.Reset()

	cmdErr = s.cmd.Deserialize(&b, bytes.NewBufferString(fmt.Sprintf(
		`{"snapshot":%s}`, ser.Snapshot)))
	require.Nil(t, cmdErr)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(b.Bytes(), &resp))
	require.Equal(t, "s1", resp.SourceID)
	require.Equal(t, 1, resp.State)

	t.Run("empty snapshot", func(t *testing.T) {
		var b bytes.Buffer

		cmdErr := s.cmd.Deserialize(&b, bytes.NewBufferString(`{}`))
		require.NotNil(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())
	})

	t.Run("malformed snapshot", func(t *testing.T) {
		var b bytes.Buffer

		cmdErr := s.cmd.Deserialize(&b, bytes.NewBufferString(
			`{"snapshot":{"version":"1.0","data":{"source_id":"invalid serialized credential"}}}`))
		require.NotNil(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Equal(t, DeserializeErrorCode, cmdErr.Code())
	})
}

func TestRecords(t *testing.T) {
	s := newTestSetup(t)
	s.create(t, "s1", "th-cmd-10")

	var b bytes.Buffer

	require.Nil(t, s.cmd.Records(&b, nil))

	var resp RecordsResponse
	require.NoError(t, json.Unmarshal(b.Bytes(), &resp))
	require.NotEmpty(t, resp.Records)
}
