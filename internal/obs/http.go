package obs

import (
	"net/http"
	"strings"
	"time"
)

// Correlation headers sent by the suite's API client and read back by the
// fake server, so both sides log the same run, scenario and fixture key.
const (
	HeaderRequestID  = "X-Request-Id"
	HeaderRunID      = "X-Run-Id"
	HeaderScenarioID = "X-Scenario-Id"
	HeaderFixtureKey = "X-Fixture-Key"
)

// SetCorrelationHeaders copies the non-empty fields of corr onto h. A request
// id is generated when corr has none.
func SetCorrelationHeaders(h http.Header, corr Correlation) {
	for name, v := range map[string]string{
		HeaderRunID:      corr.RunID,
		HeaderScenarioID: corr.ScenarioID,
		HeaderFixtureKey: corr.FixtureKey,
	} {
		if v != "" {
			h.Set(name, v)
		}
	}
	if corr.RequestID == "" {
		corr.RequestID = NewRequestID()
	}
	h.Set(HeaderRequestID, corr.RequestID)
}

// CorrelationFromHeaders is the inverse of SetCorrelationHeaders.
func CorrelationFromHeaders(h http.Header) Correlation {
	get := func(name string) string { return strings.TrimSpace(h.Get(name)) }
	return Correlation{
		RunID:      get(HeaderRunID),
		ScenarioID: get(HeaderScenarioID),
		FixtureKey: get(HeaderFixtureKey),
		RequestID:  get(HeaderRequestID),
	}
}

// RequestContextMiddleware puts the caller's correlation fields into the
// request context and echoes the request id.
func RequestContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := CorrelationFromHeaders(r.Header)
		if corr.RequestID == "" {
			corr.RequestID = NewRequestID()
		}
		w.Header().Set(HeaderRequestID, corr.RequestID)
		next.ServeHTTP(w, r.WithContext(WithCorrelation(r.Context(), corr)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += int64(n)
	return n, err
}

// AccessLogMiddleware logs one http_access event per request at debug level.
func AccessLogMiddleware(pkg string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		From(r.Context()).With("pkg", pkg).Debug("http_access",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"dur_ms", float64(time.Since(start).Microseconds())/1000.0,
			"resp_bytes", rec.bytes,
		)
	})
}
