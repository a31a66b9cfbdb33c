package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/richard-senior/matchpredict/pkg/footballdata"
	"github.com/richard-senior/matchpredict/pkg/predictor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	opts := predictor.DefaultOptions()
	opts.Forest.Trees = 20
	svc, err := predictor.NewService([]footballdata.MatchRecord{
		{HomeTeam: "Arsenal", AwayTeam: "Chelsea", Result: footballdata.Home},
	}, opts)
	require.NoError(t, err)
	return NewAPIHandler(svc).SetupRoutes()
}

func do(t *testing.T, h http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTeamsAndModel(t *testing.T) {
	h := testHandler(t)

	rec := do(t, h, "GET", "/api/teams", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var teams map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &teams))
	assert.Equal(t, []string{"Arsenal", "Chelsea"}, teams["teams"])

	rec = do(t, h, "GET", "/api/model", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "resubstitution", report["evaluation"])
	assert.Equal(t, "holdout", report["requestedEvaluation"])
	assert.EqualValues(t, 1, report["accuracy"])
}

func TestPredictJSON(t *testing.T) {
	h := testHandler(t)

	rec := do(t, h, "POST", "/api/predict", "application/json", `{"home":"Arsenal","away":"Chelsea"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "HomeWin", resp["outcome"])
	assert.Equal(t, "Arsenal", resp["team"])
	assert.Equal(t, "Predicted Winner: Arsenal (Home Win)", resp["message"])

	cases := map[string]struct {
		body   string
		status int
		msg    string
	}{
		"same team":    {`{"home":"Arsenal","away":"Arsenal"}`, http.StatusBadRequest, "Home and Away teams must be different!"},
		"missing":      {`{"home":"Arsenal"}`, http.StatusBadRequest, "Please select both teams!"},
		"unknown":      {`{"home":"Arsenal","away":"Unknown FC"}`, http.StatusNotFound, "Unknown team: Unknown FC"},
		"invalid json": {`{"home":`, http.StatusBadRequest, "Invalid JSON"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, "POST", "/api/predict", "application/json", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			var e errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
			assert.Equal(t, tc.msg, e.Error)
		})
	}
}

func TestFormPage(t *testing.T) {
	h := testHandler(t)

	rec := do(t, h, "GET", "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<option value="Arsenal">Arsenal</option>`)
	assert.Contains(t, body, "100.00%")
	assert.Contains(t, body, "Too few matches")

	form := url.Values{"home": {"Arsenal"}, "away": {"Chelsea"}}
	rec = do(t, h, "POST", "/predict", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Predicted Winner: Arsenal (Home Win)")
	assert.Contains(t, rec.Body.String(), `<option value="Chelsea" selected>`)

	form = url.Values{"home": {"Arsenal"}, "away": {"Arsenal"}}
	rec = do(t, h, "POST", "/predict", "application/x-www-form-urlencoded", form.Encode())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Home and Away teams must be different!")
}

func TestStatsShowsRequestedFixture(t *testing.T) {
	h := testHandler(t)

	rec := do(t, h, "GET", "/stats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Arsenal v Chelsea")

	do(t, h, "POST", "/api/predict", "application/json", `{"home":"Arsenal","away":"Chelsea"}`)
	rec = do(t, h, "GET", "/stats", "", "")
	assert.NotContains(t, rec.Body.String(), "Arsenal v Chelsea", "predictions by other clients are not shown")

	rec = do(t, h, "GET", "/stats?home=Arsenal&away=Chelsea", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Arsenal v Chelsea")

	rec = do(t, h, "GET", "/stats?home=Arsenal&away=Unknown+FC", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unknown team: Unknown FC")

	rec = do(t, h, "GET", "/stats?home=Arsenal", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFormLinksChartsToFixture(t *testing.T) {
	h := testHandler(t)

	rec := do(t, h, "GET", "/", "", "")
	assert.Contains(t, rec.Body.String(), `<a href="/stats">Charts</a>`)

	form := url.Values{"home": {"Arsenal"}, "away": {"Chelsea"}}
	rec = do(t, h, "POST", "/predict", "application/x-www-form-urlencoded", form.Encode())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<a href="/stats?away=Chelsea&amp;home=Arsenal">Charts</a>`)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(t, testHandler(t), "GET", "/api/predict", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	opts := predictor.DefaultOptions()
	opts.Forest.Trees = 5
	svc, err := predictor.NewService([]footballdata.MatchRecord{
		{HomeTeam: "Arsenal", AwayTeam: "Chelsea", Result: footballdata.Home},
	}, opts)
	require.NoError(t, err)

	srv := NewHTTPServer("127.0.0.1:0", svc, time.Second, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
