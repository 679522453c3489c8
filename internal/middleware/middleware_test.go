package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/esgdash/internal/auth"
	"github.com/rpattn/esgdash/internal/domain"
)

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "abc-123", seen)
}

func TestLoggingRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	handler := RequestID(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/employees", nil))

	out := buf.String()
	require.Contains(t, out, `"status":418`)
	require.Contains(t, out, `"path":"/api/employees"`)
	require.Contains(t, out, `"request_id":"`)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Metrics)
	router.HandleFunc("/api/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/things/42", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/things/43", nil))

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	var series int
	var samples uint64
	for _, family := range families {
		if family.GetName() != "esgdash_http_request_duration_seconds" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "route" && label.GetValue() == "/api/things/{id}" {
					series++
					samples += metric.GetHistogram().GetSampleCount()
				}
			}
		}
	}
	require.Equal(t, 1, series)
	require.GreaterOrEqual(t, samples, uint64(2))
}

func TestSessionScopesRequests(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	token, _, err := tokens.Issue(1, "ada@acme.test", "Acme")
	require.NoError(t, err)

	var company string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		company, _ = auth.CompanyFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Session(tokens, true)(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Acme", company)

	rec = httptest.NewRecorder()
	Session(tokens, true)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/employees", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	company = ""
	rec = httptest.NewRecorder()
	Session(tokens, false)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/employees", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, company)

	req = httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	Session(tokens, false)(next).ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"error":"invalid session token"}`, rec.Body.String())
}

type emptyLookups struct{}

func (emptyLookups) List(context.Context, domain.LookupKind) ([]domain.Lookup, error) {
	return nil, nil
}

func (emptyLookups) GetByIDs(context.Context, domain.LookupKind, []int64) (map[int64]domain.Lookup, error) {
	return map[int64]domain.Lookup{}, nil
}

func TestDataLoaderMiddlewareAttachesLoader(t *testing.T) {
	var attached bool
	handler := DataLoaderMiddleware(emptyLookups{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attached = LookupLoaderFromContext(r.Context()) != nil
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, attached)
	require.Nil(t, LookupLoaderFromContext(context.Background()))
}
