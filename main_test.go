package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railops/dispatch/internal/config"
	"github.com/railops/dispatch/internal/optimizer"
	"github.com/railops/dispatch/repository"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Port:                "0",
		AllowedOrigins:      []string{"http://localhost:5173"},
		RequestTimeout:      5 * time.Second,
		DatabaseDriver:      "sqlite",
		SQLitePath:          filepath.Join(t.TempDir(), "dispatch.db"),
		SeedData:            true,
		ImplementationDelay: 10 * time.Millisecond,
	}

	db, err := repository.NewSQLiteStore(cfg.SQLitePath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.EnsureSchema(ctx))
	_, err = db.Seed(ctx, repository.DemoNetwork(time.Now()))
	require.NoError(t, err)

	// draws of 0.5 always succeed and never trigger side effects
	a := newApp(cfg, db, optimizer.New(optimizer.WithRandom(func() float64 { return 0.5 })))
	t.Cleanup(a.events.Close)
	t.Cleanup(a.optimization.Close)

	srv := httptest.NewServer(newRouter(cfg, a))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, srv *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_SuggestionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp := get(t, srv, "/api/optimization?status=pending")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, 2, list.Total)

	resp = post(t, srv, "/api/optimization/implement", `{"suggestionId":"opt1","userId":"controller"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var implemented struct {
		Data struct {
			UpdatedTrain struct {
				Delay int `json:"delay"`
			} `json:"updatedTrain"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&implemented))
	assert.Equal(t, 6, implemented.Data.UpdatedTrain.Delay, "FR205: 15 - floor(15*0.6)")

	resp = post(t, srv, "/api/optimization/implement", `{"suggestionId":"opt1","userId":"controller"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	require.Eventually(t, func() bool {
		r, err := http.Get(srv.URL + "/api/optimization?status=implemented")
		if err != nil {
			return false
		}
		defer r.Body.Close()
		var l struct {
			Total int `json:"total"`
		}
		return json.NewDecoder(r.Body).Decode(&l) == nil && l.Total == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp = post(t, srv, "/api/optimization", `{"action":"reject","suggestionId":"opt2","userId":"controller"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, srv, "/api/optimization", `{"action":"promote","suggestionId":"opt2"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_AnalyzeAndSimulate(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv, "/api/optimization/analyze", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var analysis struct {
		Context struct {
			TotalTrains   int `json:"totalTrains"`
			ActiveAlerts  int `json:"activeAlerts"`
			DelayedTrains int `json:"delayedTrains"`
		} `json:"context"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&analysis))
	assert.Equal(t, 3, analysis.Context.TotalTrains)
	assert.Equal(t, 2, analysis.Context.ActiveAlerts)
	assert.Equal(t, 2, analysis.Context.DelayedTrains)

	resp = post(t, srv, "/api/optimization/analyze", `{"trainId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = post(t, srv, "/api/simulation", `{"name":"Snow","parameters":{"stationClosures":["st1"],"weatherConditions":"snow"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var run struct {
		Data struct {
			ID      string `json:"id"`
			Results struct {
				TotalDelay     int   `json:"totalDelay"`
				AffectedTrains int   `json:"affectedTrains"`
				EstimatedCost  int64 `json:"estimatedCost"`
			} `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	// EX101 sits at Central Station and PS303 is bound for it: 2 x 20min x 1.5
	assert.Equal(t, 60, run.Data.Results.TotalDelay)
	assert.Equal(t, 2, run.Data.Results.AffectedTrains)
	assert.Equal(t, int64(9000), run.Data.Results.EstimatedCost)

	resp = get(t, srv, "/api/simulation/"+run.Data.ID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, srv, "/api/simulation/compare", `{"scenarios":[{"id":"a"}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, srv, "/api/simulation/compare", `{"scenarios":[
		{"name":"held","parameters":{"trainDelays":[{"trainId":"tr3","additionalDelay":10}]}},
		{"name":"snow","parameters":{"weatherConditions":"snow"}}
	]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "scenarios without ids are compared")
}

func TestRouter_FleetAndHealth(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/healthz", "/api/trains", "/api/stations", "/api/alerts?active=true", "/api/kpis"} {
		resp := get(t, srv, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/trains", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouter_AlertsDriveRouteSuggestions(t *testing.T) {
	srv := newTestServer(t)

	routeReroutes := func() int {
		resp := post(t, srv, "/api/optimization/analyze", `{"trainId":"tr1"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var analysis struct {
			Data struct {
				Suggestions []struct {
					ID string `json:"id"`
				} `json:"suggestions"`
			} `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&analysis))
		n := 0
		for _, sg := range analysis.Data.Suggestions {
			if strings.HasPrefix(sg.ID, "opt_route_tr1_") {
				n++
			}
		}
		return n
	}

	resp := do(t, http.MethodPut, srv.URL+"/api/trains/tr1", `{"delay":14}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, routeReroutes())

	resp = post(t, srv, "/api/alerts", `{"type":"weather","severity":"high","title":"Fog","affectedTrains":["tr1"]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, 1, routeReroutes())

	resp = post(t, srv, "/api/alerts/"+created.Data.ID+"/resolve", `{"resolvedBy":"controller"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, routeReroutes())

	resp = get(t, srv, "/api/trains/tr1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var details struct {
		Data struct {
			Delay          int `json:"delay"`
			CurrentStation struct {
				ID string `json:"id"`
			} `json:"currentStation"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&details))
	assert.Equal(t, 14, details.Data.Delay)
	assert.Equal(t, "st1", details.Data.CurrentStation.ID)

	resp = do(t, http.MethodPut, srv.URL+"/api/trains/ghost", `{"delay":1}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = post(t, srv, "/api/alerts/ghost/resolve", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
