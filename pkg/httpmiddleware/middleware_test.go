package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrap_Order(t *testing.T) {
	var calls []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls = append(calls, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Wrap(okHandler(), mark("outer"), mark("inner"))
	serve(h, fromAddr("10.0.0.1:1"))

	assert.Equal(t, []string{"outer", "inner"}, calls)
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	lg := zap.New(core)
	h := Wrap(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		RequestID(),
		InjectLogger(lg),
		Recovery(lg),
	)

	w := serve(h, fromAddr("10.0.0.1:1"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Internal server error", body["message"])

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Handler panic", entry.Message)
	assert.NotEmpty(t, entry.ContextMap()["request_id"])
}

func TestRecovery_OutermostStillLogs(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	lg := zap.New(core)
	h := Wrap(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		Recovery(lg),
		RequestID(),
		InjectLogger(zap.NewNop()),
	)

	req := fromAddr("10.0.0.1:1")
	req.Header.Set(RequestIDHeader, "till-9")
	w := serve(h, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, logs.Len(), "panic reaches the base logger")
	entry := logs.All()[0]
	assert.Equal(t, "Handler panic", entry.Message)
	assert.Equal(t, "boom", entry.ContextMap()["panic"])
	assert.Equal(t, "till-9", entry.ContextMap()["request_id"])
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := fromAddr("10.0.0.1:1")
	req.Header.Set(RequestIDHeader, "till-7")
	w := serve(h, req)
	assert.Equal(t, "till-7", seen)
	assert.Equal(t, "till-7", w.Header().Get(RequestIDHeader))

	req = fromAddr("10.0.0.1:1")
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	w = serve(h, req)
	assert.Len(t, seen, 36, "oversized ids are replaced by a UUID")
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowOrigins: []string{"https://pos.example"}, MaxAge: 600})(okHandler())

	pre := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	pre.Header.Set("Origin", "https://POS.example")
	pre.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	pre.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := serve(h, pre)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://pos.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))

	other := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	other.Header.Set("Origin", "https://evil.example")
	w = serve(h, other)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	anyOrigin := CORS(CORSConfig{})(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	req.Header.Set("Origin", "https://kiosk.example")
	w = serve(anyOrigin, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMakeRouteFinder(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/menu/{id}", func(http.ResponseWriter, *http.Request) {}).
		Methods(http.MethodGet).Name("getMenuItem")
	find := MakeRouteFinder(r)

	route, ok := find(httptest.NewRequest(http.MethodGet, "/api/menu/abc", nil))
	require.True(t, ok)
	assert.Equal(t, "getMenuItem", route.Name)
	assert.Equal(t, "/api/menu/{id}", route.Template)

	_, ok = find(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.False(t, ok)
}

func TestLogRequests(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := mux.NewRouter()
	r.HandleFunc("/api/orders", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}).Name("createOrder")
	r.HandleFunc("/api/fail", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}).Name("fail")
	find := MakeRouteFinder(r)

	h := Wrap(r, InjectLogger(zap.New(core)), LogRequests(find))

	serve(h, httptest.NewRequest(http.MethodPost, "/api/orders", nil))
	serve(h, httptest.NewRequest(http.MethodGet, "/api/fail", nil))

	require.Equal(t, 2, logs.Len())
	ok := logs.All()[0].ContextMap()
	assert.Equal(t, "createOrder", ok["operation"])
	assert.EqualValues(t, http.StatusCreated, ok["status"])
	assert.Equal(t, zap.WarnLevel, logs.All()[1].Level)
}

func TestInjectLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := InjectLogger(zap.New(core))(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		zctx.From(r.Context()).Info("hello")
	}))
	serve(h, fromAddr("10.0.0.1:1"))

	require.Equal(t, 1, logs.Len())
	assert.NotContains(t, logs.All()[0].ContextMap(), "request_id", "no RequestID in chain")
}

type noopTelemetry struct{}

func (noopTelemetry) TextMapPropagator() propagation.TextMapPropagator {
	return propagation.TraceContext{}
}
func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

func TestInstrument_PassesThrough(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/orders/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	}).Name("getOrder")
	find := MakeRouteFinder(r)

	h := Wrap(r, Instrument("backoffice-api", find, noopTelemetry{}), Labeler(find))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/api/orders/o1", nil))
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = serve(h, httptest.NewRequest(http.MethodGet, "/unrouted", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
