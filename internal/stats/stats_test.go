package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// expvar registration is process-global, so a single StatsUpdater is shared
// across the tests in this package.
var testUpdater *StatsUpdater

func testStatsUpdater(t *testing.T) *StatsUpdater {
	t.Helper()
	if testUpdater == nil {
		mux := http.NewServeMux()
		testUpdater = NewStatsUpdater(mux)

		handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
		assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
		assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")
	}
	return testUpdater
}

func TestNewStatsUpdater(t *testing.T) {
	su := testStatsUpdater(t)
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	assert.NotNil(t, su.vars.Get("Uptime"), "expected uptime metric to be registered")
}

func TestStatsUpdaterIncrDecr(t *testing.T) {
	su := testStatsUpdater(t)
	su.RegisterMetric(NumMessagesRelayed)
	su.Run()

	su.Incr(NumMessagesRelayed)
	su.Incr(NumMessagesRelayed)
	su.Decr(NumMessagesRelayed)

	assert.Eventually(t, func() bool {
		return su.vars.Get(NumMessagesRelayed).(*expvar.Int).Value() == 1
	}, time.Second, 5*time.Millisecond, "expected metric to settle at 1")
}

func TestStatsUpdaterHandler(t *testing.T) {
	su := testStatsUpdater(t)
	su.RegisterMetric(NumActiveRooms)

	rec := httptest.NewRecorder()
	su.expvarHandler(rec, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var payload map[string]any
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&payload))
	assert.Contains(t, payload, NumActiveRooms, "expected registered metric in output")
	assert.Contains(t, payload, "Uptime", "expected uptime in output")
}
