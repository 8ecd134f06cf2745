package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerRecordsRouteAndStatus(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	r := chi.NewRouter()
	r.Use(InjectLoggerMiddleware(zap.New(core)))
	r.Use(RequestLoggerMiddleware)
	r.Get("/pages/{slug}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("handler")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pages/about", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	handler := logs.FilterMessage("handler").All()
	require.Len(t, handler, 1)
	require.Equal(t, "/pages/about", handler[0].ContextMap()["path"])

	done := logs.FilterMessage("request completed").All()
	require.Len(t, done, 1)
	require.Equal(t, zapcore.WarnLevel, done[0].Level)
	fields := done[0].ContextMap()
	require.Equal(t, "/pages/{slug}", fields["route"])
	require.EqualValues(t, http.StatusNotFound, fields["status"])
	require.EqualValues(t, len("missing"), fields["bytes"])
}

func TestRecoveryMiddlewareAnswers500(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	h := InjectLoggerMiddleware(zap.New(core))(RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestFromContextDefaultsToNoop(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NotNil(t, FromContext(req.Context()))
	require.NotNil(t, FromContext(nil)) //nolint:staticcheck
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("nonsense", false)
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	debug, err := NewLogger("debug", true)
	require.NoError(t, err)
	require.True(t, debug.Core().Enabled(zapcore.DebugLevel))
}

func TestSanitizeStripsControlCharacters(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/ab", SanitizeRoute("/a\nb"))
	require.Equal(t, "/", SanitizeRoute(""))
	require.Equal(t, "GET", SanitizeMethod("GET\x00"))
}

func TestTraceMiddlewareContinuesCloudTrace(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	r := chi.NewRouter()
	r.Use(TraceMiddleware("hanko-field"))
	r.Use(InjectLoggerMiddleware(zap.New(core)))
	r.Use(RequestLoggerMiddleware)
	var seen TraceInfo
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		seen, _ = Trace(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, "105445aa7843bc8bf206b12000100000", seen.TraceID)
	require.Equal(t, "0000000000000001", seen.SpanID)
	require.True(t, seen.Sampled)
	require.Equal(t, "105445aa7843bc8bf206b12000100000/1;o=1", rec.Header().Get(CloudTraceHeader))

	done := logs.FilterMessage("request completed").All()
	require.Len(t, done, 1)
	fields := done[0].ContextMap()
	require.Equal(t, "105445aa7843bc8bf206b12000100000", fields["trace_id"])
	require.Equal(t, "projects/hanko-field/traces/105445aa7843bc8bf206b12000100000", fields["logging.googleapis.com/trace"])
}

func TestParseCloudTraceContextRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, header := range []string{"", "abc/1", "105445aa7843bc8bf206b12000100000", "105445aa7843bc8bf206b12000100000/x;o=1", "105445aa7843bc8bf206b12000100000/0"} {
		_, ok := parseCloudTraceContext(header)
		require.False(t, ok, header)
	}
}
