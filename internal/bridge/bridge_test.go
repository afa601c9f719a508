package bridge_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pharrisenterprises/replaycore/internal/bridge"
	"github.com/pharrisenterprises/replaycore/internal/config"
	"github.com/pharrisenterprises/replaycore/internal/locator"
	"github.com/pharrisenterprises/replaycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTP_Ping(t *testing.T) {
	d := bridge.New(nil, config.Default())
	router := bridge.NewRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ready":true`)
}

func TestHTTP_ExecuteStep_NoPageAttached(t *testing.T) {
	d := bridge.New(nil, config.Default())
	router := bridge.NewRouter(d)

	body, _ := json.Marshal(bridge.ExecuteStepRequest{
		Step: locator.Step{ID: "s1", Event: locator.EventClick, Bundle: &locator.Bundle{Tag: "button", ID: "go"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/replay/step", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "HostDisconnected")
}

func TestHTTP_ExecuteStep_WithLivePage(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<button id="go">Go</button>`)

	cfg := config.Default()
	cfg.Behavior.WaitForAnimations = false
	d := bridge.New(page, cfg)
	router := bridge.NewRouter(d)

	body, _ := json.Marshal(bridge.ExecuteStepRequest{
		Step: locator.Step{ID: "s1", Event: locator.EventClick, Bundle: &locator.Bundle{Tag: "button", Xpath: `//*[@id="go"]`, ID: "go"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/replay/step", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"passed"`)
}

func TestDispatcher_ExecuteReplay(t *testing.T) {
	page := testutil.NewPage(t)
	testutil.LoadHTML(t, page, `<input id="email" />`)

	cfg := config.Default()
	d := bridge.New(page, cfg)

	summary, err := d.ExecuteReplay(context.Background(), bridge.ExecuteReplayRequest{
		Steps: []locator.Step{
			{ID: "s1", Event: locator.EventInput, Label: "Email",
				Bundle: &locator.Bundle{Tag: "input", Xpath: `//*[@id="email"]`, ID: "email"}},
		},
		CSVValues: []map[string]string{{"Email": "a@b.c"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRows)
	assert.Equal(t, "completed", summary.State)
}

func TestDispatcher_GetState(t *testing.T) {
	d := bridge.New(nil, config.Default())
	state := d.GetState(context.Background())
	assert.False(t, state.Initialised)
	assert.Equal(t, "idle", state.Mode)
}
