package forwarder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferux/attendancebridge/internal/config"
	"github.com/ferux/attendancebridge/internal/fcontext"
	"github.com/ferux/attendancebridge/internal/model"
	fcctime "github.com/ferux/attendancebridge/internal/time"
)

func upstreamConfig(url string) config.Upstream {
	return config.Upstream{URL: url, Timeout: fcctime.Duration(time.Second)}
}

func testRecord() model.AttendanceRecord {
	return model.AttendanceRecord{
		EmployeeCode:       "202501201",
		VerifyMode:         model.VerifyModeFingerprint,
		Timestamp:          "2025-02-11 10:30:00",
		DeviceSerialNumber: "10.0.0.5",
	}
}

func TestForward(t *testing.T) {
	var (
		gotBody   map[string]interface{}
		gotHeader http.Header
		calls     int32
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotHeader = r.Header.Clone()

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/attendances/from-biometric-device", r.URL.Path)

		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &gotBody))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"stored"}`))
	}))
	defer srv.Close()

	cfg := upstreamConfig(srv.URL + "/api/v1/attendances/from-biometric-device")
	cfg.Token = "Bearer secret"

	c, err := New(cfg)
	require.NoError(t, err)

	ctx := fcontext.WithSessionID(context.Background(), "sid-1")
	ctx = fcontext.WithRemoteAddr(ctx, "10.0.0.5:40112")
	res := c.Forward(ctx, testRecord())

	require.NoError(t, res.Err)
	assert.True(t, res.OK())
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	assert.Equal(t, map[string]interface{}{
		"deviceSerialNumber": "10.0.0.5",
		"employeeCode":       "202501201",
		"verifyMode":         "Fingerprint",
		"timestamp":          "2025-02-11 10:30:00",
	}, gotBody)

	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "Bearer secret", gotHeader.Get("Authorization"))
	assert.Equal(t, "sid-1", gotHeader.Get("X-Request-ID"))
	assert.Equal(t, "10.0.0.5", gotHeader.Get("X-Forwarded-For"))
}

func TestDeviceHost(t *testing.T) {
	assert.Equal(t, "10.0.0.5", deviceHost("10.0.0.5:40112"))
	assert.Equal(t, "::1", deviceHost("[::1]:5002"))
	assert.Equal(t, "10.0.0.5", deviceHost("10.0.0.5"))
	assert.Equal(t, "", deviceHost(""))
}

func TestForwardWithSigner(t *testing.T) {
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()

	signer := SignerFunc(func(_ context.Context, rec model.AttendanceRecord) (string, error) {
		return "token:" + rec.EmployeeCode + rec.Timestamp, nil
	})

	c, err := New(upstreamConfig(srv.URL), WithSigner(signer))
	require.NoError(t, err)

	res := c.Forward(context.Background(), testRecord())
	require.NoError(t, res.Err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "token:2025012012025-02-11 10:30:00", gotBody["validationToken"])
}

func TestForwardSignerFailure(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	signer := SignerFunc(func(context.Context, model.AttendanceRecord) (string, error) {
		return "", errors.New("no key")
	})

	c, err := New(upstreamConfig(srv.URL), WithSigner(signer))
	require.NoError(t, err)

	res := c.Forward(context.Background(), testRecord())
	assert.ErrorIs(t, res.Err, model.ErrMarshal)
	assert.False(t, res.OK())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestForwardWrongStatus(t *testing.T) {
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"employee not found"}`))
	}))
	defer srv.Close()

	c, err := New(upstreamConfig(srv.URL))
	require.NoError(t, err)

	res := c.Forward(context.Background(), testRecord())
	require.ErrorIs(t, res.Err, model.ErrWrongStatusCode)
	assert.Contains(t, res.Err.Error(), "employee not found")
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no retries")
}

func TestForwardTimeout(t *testing.T) {
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	cfg := config.Upstream{URL: srv.URL, Timeout: fcctime.Duration(50 * time.Millisecond)}

	c, err := New(cfg)
	require.NoError(t, err)

	start := time.Now()
	res := c.Forward(context.Background(), testRecord())

	assert.ErrorIs(t, res.Err, model.ErrTransport)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestForwardUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(upstreamConfig(url))
	require.NoError(t, err)

	res := c.Forward(context.Background(), testRecord())
	assert.ErrorIs(t, res.Err, model.ErrTransport)
	assert.Equal(t, 0, res.StatusCode)
}

func TestNewValidates(t *testing.T) {
	_, err := New(config.Upstream{Timeout: fcctime.Duration(time.Second)})
	assert.ErrorIs(t, err, model.ErrMissingParameter)

	_, err = New(config.Upstream{URL: "ftp://cloud", Timeout: fcctime.Duration(time.Second)})
	assert.ErrorIs(t, err, model.ErrInvalidParameter)

	_, err = New(config.Upstream{URL: "http://cloud"})
	assert.ErrorIs(t, err, model.ErrInvalidParameter)

	c, err := New(upstreamConfig("http://cloud"), WithHTTPClient(&http.Client{}))
	require.NoError(t, err)
	assert.Equal(t, time.Second, c.client.Timeout)
}

func TestResponseMessage(t *testing.T) {
	assert.Equal(t, "ok", responseMessage([]byte(`{"message":"ok","id":1}`)))
	assert.Equal(t, "", responseMessage([]byte(`created`)))
	assert.Equal(t, "", responseMessage(nil))
	assert.Equal(t, "", responseMessage([]byte(`{"id":1}`)))
}
