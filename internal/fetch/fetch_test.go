package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name string `json:"name"`
}

// newTestClient records every spacing delay instead of sleeping.
func newTestClient(p Policy) (*Client, *[]time.Duration) {
	var delays []time.Duration
	c := New(WithPolicy(p))
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return c, &delays
}

func flakyServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if n <= failures {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(payload{Name: "Frieren"})
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestGetJSON_FirstAttempt(t *testing.T) {
	srv, hits := flakyServer(t, 0, 0)
	c, delays := newTestClient(DefaultPolicy)

	got, err := GetJSON[payload](context.Background(), c, srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "Frieren", got.Name)
	assert.EqualValues(t, 1, hits.Load())
	assert.Empty(t, *delays)
}

func TestGetJSON_RetriesUntilSuccess(t *testing.T) {
	srv, hits := flakyServer(t, 5, http.StatusInternalServerError)
	c, delays := newTestClient(DefaultPolicy)

	got, err := GetJSON[payload](context.Background(), c, srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "Frieren", got.Name)
	assert.EqualValues(t, 6, hits.Load())
	assert.Len(t, *delays, 5)
}

func TestGetJSON_ExhaustsBudget(t *testing.T) {
	srv, hits := flakyServer(t, 1000, http.StatusTooManyRequests)
	c, delays := newTestClient(DefaultPolicy)

	_, err := GetJSON[payload](context.Background(), c, srv.URL, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServiceUnavailable))
	assert.Equal(t, "API error. Please retry again soon.", err.Error())
	assert.EqualValues(t, 20, hits.Load())

	require.Len(t, *delays, 19)
	for _, d := range *delays {
		assert.Equal(t, 100*time.Millisecond, d)
	}

	var ue *UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, 20, ue.Attempts)
	assert.Equal(t, KindStatus, KindOf(err))
	assert.Equal(t, http.StatusTooManyRequests, StatusOf(err))
}

func TestGetJSON_NotFoundIsTerminal(t *testing.T) {
	srv, hits := flakyServer(t, 1000, http.StatusNotFound)
	c, _ := newTestClient(DefaultPolicy)

	_, err := GetJSON[payload](context.Background(), c, srv.URL, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrServiceUnavailable))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.EqualValues(t, 1, hits.Load())
}

func TestGetJSON_DecodeFailuresAreRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"name":`))
	}))
	defer srv.Close()
	c, _ := newTestClient(Policy{Attempts: 3, Spacing: time.Millisecond})

	_, err := GetJSON[payload](context.Background(), c, srv.URL, nil)
	require.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, KindDecode, KindOf(err))
	assert.EqualValues(t, 3, hits.Load())
}

func TestGetJSON_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c, _ := newTestClient(Policy{Attempts: 2})

	_, err := GetJSON[payload](context.Background(), c, url, nil)
	require.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestGetJSON_ContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := New(WithPolicy(DefaultPolicy))

	_, err := GetJSON[payload](ctx, c, srv.URL, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, hits.Load())
}

func TestSleepCtx_RealSpacing(t *testing.T) {
	start := time.Now()
	require.NoError(t, sleepCtx(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}

func TestPostJSON_SendsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var in payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		w.Header().Set("X-Echo", in.Name)
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()
	c, _ := newTestClient(DefaultPolicy)

	h := http.Header{}
	h.Set("Authorization", "Bearer tok")
	resp, err := Do[payload](context.Background(), c, Request{
		Method: http.MethodPost, URL: srv.URL, Header: h, Body: payload{Name: "Himmel"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Himmel", resp.Value.Name)
	assert.Equal(t, "Himmel", resp.Header.Get("X-Echo"))
}

func TestUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(payload{})
	}))
	defer srv.Close()

	c := New(WithUserAgent("aninfo/test"))
	_, err := Once[payload](context.Background(), c, Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "aninfo/test", ua.Load())
}

func TestOnce_DoesNotRetry(t *testing.T) {
	srv, hits := flakyServer(t, 1000, http.StatusUnauthorized)
	c, _ := newTestClient(DefaultPolicy)

	_, err := OncePostJSON[payload](context.Background(), c, srv.URL, payload{Name: "x"}, nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrServiceUnavailable))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.EqualValues(t, 1, hits.Load())
}

func TestOnce_EmptyBodyIsZeroValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	c, _ := newTestClient(DefaultPolicy)

	resp, err := Once[payload](context.Background(), c, Request{URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, payload{}, resp.Value)
}

func TestStatusErrorKeepsBody(t *testing.T) {
	long := strings.Repeat("x", 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()
	c, _ := newTestClient(DefaultPolicy)

	_, err := Once[payload](context.Background(), c, Request{URL: srv.URL})
	var fe *Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, long, string(fe.Body))
}

func TestBeforeAttempt_RunsPerAttempt(t *testing.T) {
	srv, hits := flakyServer(t, 2, http.StatusInternalServerError)
	c, _ := newTestClient(DefaultPolicy)
	var calls atomic.Int32
	c.BeforeAttempt = func(context.Context) error {
		calls.Add(1)
		return nil
	}

	_, err := GetJSON[payload](context.Background(), c, srv.URL, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, hits.Load())
	assert.EqualValues(t, 3, calls.Load())
}

func TestBeforeAttempt_ErrorAborts(t *testing.T) {
	srv, hits := flakyServer(t, 1000, http.StatusInternalServerError)
	c, _ := newTestClient(DefaultPolicy)
	var calls atomic.Int32
	stop := errors.New("stop")
	c.BeforeAttempt = func(context.Context) error {
		if calls.Add(1) > 2 {
			return stop
		}
		return nil
	}

	_, err := GetJSON[payload](context.Background(), c, srv.URL, nil)
	require.ErrorIs(t, err, stop)
	assert.EqualValues(t, 2, hits.Load())
}

func TestWith_LeavesOriginalUntouched(t *testing.T) {
	base := New(WithUserAgent("base"))
	cp := base.With(WithUserAgent("copy"), WithBeforeAttempt(func(context.Context) error { return nil }))

	assert.Equal(t, "base", base.UserAgent)
	assert.Nil(t, base.BeforeAttempt)
	assert.Equal(t, "copy", cp.UserAgent)
	assert.NotNil(t, cp.BeforeAttempt)
}

func TestNew_NormalisesPolicy(t *testing.T) {
	c := New(WithPolicy(Policy{Attempts: 0, Spacing: -time.Second}))
	assert.Equal(t, 1, c.Policy.Attempts)
	assert.Equal(t, time.Duration(0), c.Policy.Spacing)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "unknown", KindOf(errors.New("plain")).String())
}
