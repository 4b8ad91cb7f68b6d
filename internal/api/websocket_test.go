package api

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalog-viewer/backend/internal/session"
)

func dialLog(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/logs/" + id + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg WSMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

func offerMessage(t *testing.T, id, text string, compress bool) WSMessage {
	t.Helper()
	data := []byte(text)
	payload := UpdateOfferPayload{}
	if compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write(data)
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		data = buf.Bytes()
		payload.Encoding = "gzip"
	}
	payload.Data = base64.StdEncoding.EncodeToString(data)
	return WSMessage{Type: MsgTypeUpdateOffer, ID: id, Payload: mustJSON(payload)}
}

func TestWebSocket_UpdateNotifications(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.e)
	defer srv.Close()

	sum := ts.openRaw(t, "log.csv", "a\n1")
	ws := dialLog(t, srv, sum.Session.ID)

	connected := readMessage(t, ws)
	assert.Equal(t, MsgTypeConnected, connected.Type)
	assert.Equal(t, sum.Session.ID, connected.ID)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypePing, ID: "p1"}))
	pong := readMessage(t, ws)
	assert.Equal(t, MsgTypePong, pong.Type)
	assert.Equal(t, "p1", pong.ID)

	require.NoError(t, ws.WriteJSON(offerMessage(t, "o1", "a\n1\n2", true)))

	// the offer result and the broadcast update may arrive in either order
	got := map[string]WSMessage{}
	for i := 0; i < 2; i++ {
		msg := readMessage(t, ws)
		got[msg.Type] = msg
	}
	require.Contains(t, got, MsgTypeUpdateResult)
	require.Contains(t, got, MsgTypeUpdate)

	var offer session.Offer
	require.NoError(t, json.Unmarshal(got[MsgTypeUpdateResult].Payload, &offer))
	assert.True(t, offer.Available)
	assert.Equal(t, 1, offer.UpdateID)

	var ev session.Event
	require.NoError(t, json.Unmarshal(got[MsgTypeUpdate].Payload, &ev))
	assert.Equal(t, session.EventUpdate, ev.Type)
	assert.Equal(t, 1, ev.UpdateID)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeUpdateApply, ID: "a1"}))
	applied := readMessage(t, ws)
	assert.Equal(t, MsgTypeApplied, applied.Type)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeUpdateApply, ID: "a2"}))
	noChanges := readMessage(t, ws)
	assert.Equal(t, MsgTypeError, noChanges.Type)
	assert.Contains(t, string(noChanges.Payload), NoChangesMessage)
}

func TestWebSocket_UpdateOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.e)
	defer srv.Close()

	sum := ts.openRaw(t, "log.csv", "a\n1")
	ws := dialLog(t, srv, sum.Session.ID)
	readMessage(t, ws)

	rec := ts.do(http.MethodPost, "/api/logs/"+sum.Session.ID+"/update", []byte("a\n1\n2"), "text/plain")
	require.Equal(t, http.StatusOK, rec.Code)

	msg := readMessage(t, ws)
	assert.Equal(t, MsgTypeUpdate, msg.Type)
}

func TestWebSocket_BadMessages(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.e)
	defer srv.Close()

	sum := ts.openRaw(t, "log.csv", "a\n1")
	ws := dialLog(t, srv, sum.Session.ID)
	readMessage(t, ws)

	require.NoError(t, ws.WriteJSON(WSMessage{Type: "bogus"}))
	msg := readMessage(t, ws)
	assert.Equal(t, MsgTypeError, msg.Type)
	assert.Contains(t, string(msg.Payload), "INVALID_TYPE")

	require.NoError(t, ws.WriteJSON(WSMessage{Type: MsgTypeUpdateOffer, Payload: json.RawMessage(`{"data":"!!"}`)}))
	msg = readMessage(t, ws)
	assert.Equal(t, MsgTypeError, msg.Type)
	assert.Contains(t, string(msg.Payload), "INVALID_PAYLOAD")
}

func TestWebSocket_ClosedLog(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.e)
	defer srv.Close()

	sum := ts.openRaw(t, "log.csv", "a\n1")
	ws := dialLog(t, srv, sum.Session.ID)
	readMessage(t, ws)

	require.NoError(t, ts.manager.CloseSession(sum.Session.ID))

	msg := readMessage(t, ws)
	assert.Equal(t, MsgTypeClosed, msg.Type)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestWebSocket_UnknownLog(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/logs/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
