package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalog-viewer/backend/internal/models"
	"github.com/datalog-viewer/backend/internal/session"
	"github.com/datalog-viewer/backend/internal/testutil"
)

func TestUpdateWorkflow(t *testing.T) {
	ts := newTestServer(t)
	raw := testutil.BuildContainer(testPayload, testutil.ContainerOptions{Free: 40})
	sum := ts.openRaw(t, "MY_DATA.HTM", raw)
	base := "/api/logs/" + sum.Session.ID

	offer := func(text string) session.Offer {
		t.Helper()
		rec := ts.do(http.MethodPost, base+"/update", []byte(text), "text/plain")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var o session.Offer
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
		return o
	}

	assert.False(t, offer(raw).Available)

	grown := testutil.BuildContainer(testPayload+"2,22\n", testutil.ContainerOptions{Free: 35})
	o := offer(grown)
	assert.True(t, o.Available)
	assert.Equal(t, 1, o.UpdateID)

	// offering the same text again is not a second update
	assert.False(t, offer(grown).Available)

	rec := ts.do(http.MethodPost, base+"/update/apply", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sess models.LogSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, 3, sess.RowCount)
	assert.False(t, sess.UpdateAvailable)

	rec = ts.do(http.MethodPost, base+"/update/apply", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	apiErr := decodeAPIError(t, rec)
	assert.Equal(t, "NO_CHANGES", apiErr.Code)
	assert.Equal(t, NoChangesMessage, apiErr.Message)
}

func TestUpdate_UnknownLog(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/logs/missing/update", []byte("a"), "text/plain")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/logs/missing/update/apply", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdate_UndecodableOffer(t *testing.T) {
	ts := newTestServer(t)
	sum := ts.openRaw(t, "log.csv", "a\n1")

	broken := testutil.BuildContainer("a\n1\n2\n", testutil.ContainerOptions{Truncated: true})
	rec := ts.do(http.MethodPost, "/api/logs/"+sum.Session.ID+"/update", []byte(broken), "text/plain")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":false`)
}
