package fixgen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/EnockMagara/dependafix-sub000/api/schemas"
	"github.com/EnockMagara/dependafix-sub000/internal/config"
)

func testClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := NewClient(config.FixgenConfig{
		Endpoint:          endpoint,
		APIKey:            "test-key",
		Timeout:           5 * time.Second,
		MaxRetryElapsed:   2 * time.Second,
		RequestsPerSecond: 100,
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresEndpoint(t *testing.T) {
	_, err := NewClient(config.FixgenConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestGenerateFix_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/fix", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req schemas.GenerationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, schemas.CategoryDeprecatedMethod, req.Category)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"replacement_code":"fixed();","confidence":0.9}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	resp, err := c.GenerateFix(context.Background(), schemas.GenerationRequest{
		Category: schemas.CategoryDeprecatedMethod,
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "fixed();", resp.ReplacementCode)
	assert.InDelta(t, 0.9, resp.Confidence, 0.001)
}

func TestGenerateGroupFix_UsesGroupPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/fix-group", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"files":[{"file":"A.java","target_line":1,"replacement_code":"x"}]}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	resp, err := c.GenerateGroupFix(context.Background(), schemas.GenerationRequest{
		Files: []string{"A.java", "B.java"},
	})
	require.NoError(t, err)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "A.java", resp.Files[0].File)
}

func TestGenerateFix_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"replacement_code":"ok"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	resp, err := c.GenerateFix(context.Background(), schemas.GenerationRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestGenerateFix_PermanentErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.GenerateFix(context.Background(), schemas.GenerationRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateFix_MalformedResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.GenerateFix(context.Background(), schemas.GenerationRequest{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "malformed payloads are permanent failures")
}

func TestDisabled_AlwaysFails(t *testing.T) {
	d := NewDisabled()

	_, err := d.GenerateFix(context.Background(), schemas.GenerationRequest{})
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = d.GenerateGroupFix(context.Background(), schemas.GenerationRequest{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestLookup(t *testing.T) {
	sub, ok := Lookup(schemas.CategoryDeprecatedMethod, "Object o = clazz.newInstance();")
	require.True(t, ok)
	assert.Equal(t, "Object o = clazz.getDeclaredConstructor().newInstance();",
		ApplySubstitution(sub, "Object o = clazz.newInstance();"))
	assert.LessOrEqual(t, sub.Confidence, FallbackConfidenceCap)

	sub, ok = Lookup(schemas.CategoryRemovedClass, "import javax.servlet.http.HttpServletRequest;")
	require.True(t, ok)
	assert.Equal(t, "import jakarta.servlet.http.HttpServletRequest;",
		ApplySubstitution(sub, "import javax.servlet.http.HttpServletRequest;"))

	_, ok = Lookup(schemas.CategoryMultiFileChange, "anything")
	assert.False(t, ok)

	_, ok = Lookup(schemas.CategoryDeprecatedMethod, "no table entry matches this line")
	assert.False(t, ok)
}
