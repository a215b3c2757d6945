package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/music-catalog/internal/config"
	apierrors "github.com/pribylovaa/music-catalog/internal/errors"
	"github.com/pribylovaa/music-catalog/internal/metrics"
	"github.com/pribylovaa/music-catalog/internal/models"
	"github.com/pribylovaa/music-catalog/internal/pkg/log"
	"github.com/pribylovaa/music-catalog/internal/pkg/reqid"
	"github.com/pribylovaa/music-catalog/internal/service"
	"github.com/pribylovaa/music-catalog/internal/token"
)

// capHandler — тестовый slog.Handler, который:
//   - аккумулирует базовые attrs, приходящие через Logger.With(...);
//   - собирает attrs из каждой записи в map[string]any;
//   - не создаёт реальных I/O.
type capHandler struct {
	base    []slog.Attr
	lastMsg string
	attrs   map[string]any
	count   int
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+8)

	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}

	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	h.count++
	h.lastMsg = r.Message
	h.attrs = out

	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) > 0 {
		h.base = append(h.base, attrs...)
	}

	return h
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func makeReq(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = (&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 12345}).String()
	return req
}

func decodeAPIError(t *testing.T, rr *httptest.ResponseRecorder) apierrors.APIError {
	t.Helper()

	var body apierrors.APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "middleware-test-secret",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "music-catalog",
	}
}

func newTokens(t *testing.T, opts ...token.Option) *token.Manager {
	t.Helper()

	m, err := token.New(testAuthCfg(), opts...)
	require.NoError(t, err)
	return m
}

// chain применяет мидлвары в порядке перечисления: первый — внешний.
func chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	var seenCtxID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtxID = reqid.From(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	chain(h, RequestID()).ServeHTTP(rr, makeReq("/rid"))

	respID := rr.Header().Get("X-Request-Id")
	require.Len(t, respID, 32) // 16 байт → 32 hex-символа
	require.Equal(t, respID, seenCtxID)
}

func TestRequestID_UseExisting(t *testing.T) {
	const given = "abc123-existing-id"
	var seenCtxID string

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenCtxID = reqid.From(r.Context())
	})

	rr := httptest.NewRecorder()
	req := makeReq("/rid2")
	req.Header.Set("X-Request-Id", given)
	chain(h, RequestID()).ServeHTTP(rr, req)

	require.Equal(t, given, rr.Header().Get("X-Request-Id"))
	require.Equal(t, given, seenCtxID)
}

func TestTimeout_SetsDeadline_WhenAbsent(t *testing.T) {
	var hasDeadline bool
	var left time.Duration

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dl, ok := r.Context().Deadline()
		hasDeadline = ok
		if ok {
			left = time.Until(dl)
		}
	})

	chain(h, Timeout(50*time.Millisecond)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout"))

	require.True(t, hasDeadline)
	require.Greater(t, left, time.Duration(0))
}

func TestTimeout_DoesNotOverrideExistingDeadline(t *testing.T) {
	var childDL time.Time

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		childDL, _ = r.Context().Deadline()
	})

	parent, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	chain(h, Timeout(time.Second)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout2").WithContext(parent))

	parentDL, _ := parent.Deadline()
	require.WithinDuration(t, parentDL, childDL, time.Millisecond)
}

func TestTimeout_ZeroIsNoop(t *testing.T) {
	var hasDeadline bool

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})

	chain(h, Timeout(0)).ServeHTTP(httptest.NewRecorder(), makeReq("/timeout3"))
	require.False(t, hasDeadline)
}

func TestTimeout_WritesGatewayTimeoutWhenHandlerSilent(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	rr := httptest.NewRecorder()
	chain(h, RequestID(), Timeout(20*time.Millisecond)).ServeHTTP(rr, makeReq("/slow"))

	require.Equal(t, http.StatusGatewayTimeout, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	body := decodeAPIError(t, rr)
	require.Equal(t, "TIMEOUT", body.Code)
	require.Equal(t, rr.Header().Get("X-Request-Id"), body.RequestID)
}

func TestTimeout_KeepsHandlerResponse(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"written_before_deadline", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			<-r.Context().Done()
		}},
		{"written_after_deadline", func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			w.WriteHeader(http.StatusTeapot)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			chain(tt.h, Timeout(20*time.Millisecond)).ServeHTTP(rr, makeReq("/slow"))

			require.Equal(t, http.StatusTeapot, rr.Code)
			require.Empty(t, rr.Body.String())
		})
	}
}

func TestTimeout_FastHandlerUntouched(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rr := httptest.NewRecorder()
	chain(h, Timeout(time.Second)).ServeHTTP(rr, makeReq("/fast"))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Empty(t, rr.Body.String())
}

func TestRecover_ConvertsPanicTo500(t *testing.T) {
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rr := httptest.NewRecorder()
	req := makeReq("/panic")
	req.Header.Set("X-Request-Id", "rid-panic")
	chain(panicHandler, RequestID(), Recover()).ServeHTTP(rr, req)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	body := decodeAPIError(t, rr)
	require.Equal(t, "INTERNAL_ERROR", body.Code)
	require.Equal(t, "rid-panic", body.RequestID)
	require.NotContains(t, rr.Body.String(), "boom")
}

func TestLogging_WritesRecord_WithStatusDurBytesAndRequestID(t *testing.T) {
	h := &capHandler{}
	logger := slog.New(h)

	const rid = "rid-456"
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Не вызываем WriteHeader — статус должен стать 200 после Write.
		_, _ = w.Write([]byte("0123456789"))
	})

	// RequestID до Logging, чтобы id попал в attrs лога.
	handler := chain(final, RequestID(), Logging(logger))

	rr := httptest.NewRecorder()
	req := makeReq("/log")
	req.Header.Set("X-Request-Id", rid)
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, h.count)
	require.Equal(t, "http", h.lastMsg)

	require.Equal(t, http.MethodGet, h.attrs["method"])
	require.Equal(t, "/log", h.attrs["path"])
	require.EqualValues(t, http.StatusOK, h.attrs["status"])
	require.EqualValues(t, 10, h.attrs["bytes"])
	require.Equal(t, rid, h.attrs["request_id"])

	_, hasDur := h.attrs["dur"]
	require.True(t, hasDur)
}

func TestStatusWriter_CountsBytes_AndDefaultStatus200(t *testing.T) {
	sw := newStatusWriter(httptest.NewRecorder())

	require.Equal(t, http.StatusOK, sw.Status())

	_, _ = sw.Write([]byte("abcd"))

	require.Equal(t, http.StatusOK, sw.status)
	require.Equal(t, 4, sw.count)
	require.Same(t, sw, newStatusWriter(sw))
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer abc", "abc"},
		{"  Bearer   abc  ", "abc"},
		{"", ""},
		{"Bearer", ""},
		{"Bearer ", ""},
		{"Basic dXNlcjpwYXNz", ""},
		{"abc.def.ghi", ""},
		{"Bearer a b", ""},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, bearerToken(tt.header), "header %q", tt.header)
	}
}

func TestAuthorize_CookieFirst(t *testing.T) {
	t.Parallel()

	tm := newTokens(t)
	fromCookie, _, err := tm.Issue("cookie-user", token.RoleAccess)
	require.NoError(t, err)
	fromHeader, _, err := tm.Issue("header-user", token.RoleAccess)
	require.NoError(t, err)

	req := makeReq("/me")
	req.AddCookie(&http.Cookie{Name: models.AccessTokenCookie, Value: fromCookie})
	req.Header.Set("Authorization", "Bearer "+fromHeader)

	id, err := Authorize(req, tm)
	require.NoError(t, err)
	require.Equal(t, "cookie-user", id.SubjectID)
}

func TestAuthorize_InvalidCookieDoesNotFallBackToHeader(t *testing.T) {
	t.Parallel()

	tm := newTokens(t)
	fromHeader, _, err := tm.Issue("header-user", token.RoleAccess)
	require.NoError(t, err)

	req := makeReq("/me")
	req.AddCookie(&http.Cookie{Name: models.AccessTokenCookie, Value: "garbage"})
	req.Header.Set("Authorization", "Bearer "+fromHeader)

	_, err = Authorize(req, tm)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestAuthorize_BearerFallback(t *testing.T) {
	t.Parallel()

	tm := newTokens(t)
	access, _, err := tm.Issue("u-1", token.RoleAccess)
	require.NoError(t, err)

	req := makeReq("/me")
	req.Header.Set("Authorization", "Bearer "+access)

	id, err := Authorize(req, tm)
	require.NoError(t, err)
	require.Equal(t, "u-1", id.SubjectID)
}

func TestAuthorize_Absent(t *testing.T) {
	t.Parallel()

	tm := newTokens(t)

	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Bearer", "Token abc"} {
		req := makeReq("/me")
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		req.AddCookie(&http.Cookie{Name: models.AccessTokenCookie, Value: ""})

		_, err := Authorize(req, tm)
		require.ErrorIs(t, err, service.ErrUnauthorized, "header %q", header)
	}
}

func TestAuthorize_RefreshTokenRejected(t *testing.T) {
	t.Parallel()

	tm := newTokens(t)
	refresh, _, err := tm.Issue("u-1", token.RoleRefresh)
	require.NoError(t, err)

	req := makeReq("/me")
	req.Header.Set("Authorization", "Bearer "+refresh)

	_, err = Authorize(req, tm)
	require.ErrorIs(t, err, token.ErrRoleMismatch)
}

func TestAuthorize_Expired(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-2 * time.Hour)
	old := newTokens(t, token.WithClock(func() time.Time { return past }))
	access, _, err := old.Issue("u-1", token.RoleAccess)
	require.NoError(t, err)

	req := makeReq("/me")
	req.AddCookie(&http.Cookie{Name: models.AccessTokenCookie, Value: access})

	_, err = Authorize(req, newTokens(t))
	require.ErrorIs(t, err, token.ErrExpired)
}

func TestRequireAuth_StatusCodes(t *testing.T) {
	tm := newTokens(t)
	access, _, err := tm.Issue("u-42", token.RoleAccess)
	require.NoError(t, err)
	refresh, _, err := tm.Issue("u-42", token.RoleRefresh)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	var called int
	protected := chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		id, ok := IdentityFrom(r.Context())
		require.True(t, ok)
		require.Equal(t, "u-42", id.SubjectID)
		w.WriteHeader(http.StatusNoContent)
	}), RequireAuth(tm, m))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		code   string
	}{
		{"absent", func(*http.Request) {}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"malformed_header", func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage", func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") }, http.StatusForbidden, "INVALID_TOKEN"},
		{"refresh_as_access", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: models.AccessTokenCookie, Value: refresh})
		}, http.StatusForbidden, "INVALID_TOKEN"},
		{"cookie_ok", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: models.AccessTokenCookie, Value: access})
		}, http.StatusNoContent, ""},
		{"bearer_ok", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+access) }, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := makeReq("/me")
			tt.setup(req)

			rr := httptest.NewRecorder()
			protected.ServeHTTP(rr, req)

			require.Equal(t, tt.status, rr.Code)
			if tt.code != "" {
				require.Equal(t, tt.code, decodeAPIError(t, rr).Code)
			}
		})
	}

	require.Equal(t, 2, called)

	n, err := testutil.GatherAndCount(reg, "music_catalog_auth_events_total")
	require.NoError(t, err)
	require.Equal(t, 3, n) // ok, rejected, forbidden
}

func TestRequireAuth_EnrichesLogger(t *testing.T) {
	h := &capHandler{}
	tm := newTokens(t)
	access, _, err := tm.Issue("u-log", token.RoleAccess)
	require.NoError(t, err)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.From(r.Context()).Info("inside")
	})

	req := makeReq("/me")
	req.Header.Set("Authorization", "Bearer "+access)
	req = req.WithContext(log.Into(req.Context(), slog.New(h)))

	chain(final, RequireAuth(tm, nil)).ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, "inside", h.lastMsg)
	require.Equal(t, "u-log", h.attrs["user_id"])
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	r.ServeHTTP(httptest.NewRecorder(), makeReq("/users/123"))
	r.ServeHTTP(httptest.NewRecorder(), makeReq("/users/456"))

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() != "music_catalog_http_request_duration_seconds" {
			continue
		}
		require.Len(t, f.GetMetric(), 1)

		labels := map[string]string{}
		for _, lp := range f.GetMetric()[0].GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		require.Equal(t, "/users/{id}", labels["route"])
		require.Equal(t, "202", labels["status"])
		require.EqualValues(t, 2, f.GetMetric()[0].GetHistogram().GetSampleCount())
		found = true
	}
	require.True(t, found)
}
