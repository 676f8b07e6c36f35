package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"

	"github.com/ferux/attendancebridge/internal/config"
	"github.com/ferux/attendancebridge/internal/model"
	"github.com/ferux/attendancebridge/internal/registry"
	"github.com/ferux/attendancebridge/internal/relay"
	"github.com/ferux/attendancebridge/internal/templates"
	fcctime "github.com/ferux/attendancebridge/internal/time"
)

type staticStats relay.Stats

func (s staticStats) Stats() relay.Stats { return relay.Stats(s) }

func strptr(s string) *string { return &s }

func BenchmarkGetInfo(b *testing.B) {
	b.ReportAllocs()
	request := httptest.NewRequest(http.MethodGet, "/api/v1/info", nil)
	api := &HTTP{}
	handler := api.handleInfo(model.ApplicationInfo{})

	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		handler(rec, request)
		if rec.Code != http.StatusOK {
			b.Fail()
		}
	}
}

func TestGetInfo(t *testing.T) {
	is := is.New(t)
	now := time.Now()

	appInfo := model.ApplicationInfo{
		Branch:      "master",
		Revision:    "revision",
		Environment: "production",
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/info", nil)
	w := httptest.NewRecorder()
	api := &HTTP{
		bootTime:     now,
		requestCount: 10,
		stats:        staticStats{Accepted: 4, Active: 1, Handshakes: 2, Forwarded: 1, Malformed: 3},
	}

	api.handleInfo(appInfo)(w, r)
	exp := templates.MarshalData{
		Revision:    "revision",
		Branch:      "master",
		Environment: "production",
		BootTime:    now.String(),
		// because when marshaling we cut everything after the point
		Uptime:       float64(int(time.Since(now).Seconds())),
		RequestCount: 10,
		Accepted:     4,
		Active:       1,
		Handshakes:   2,
		Forwarded:    1,
		Malformed:    3,
	}

	is.Equal(w.Code, http.StatusOK)
	is.Equal(w.Header().Get(contentType), contentJSON)

	var got templates.MarshalData
	err := json.Unmarshal(w.Body.Bytes(), &got)
	is.NoErr(err)

	is.Equal(exp, got)
}

func TestRoutes(t *testing.T) {
	is := is.New(t)

	reg := registry.New(zerolog.Nop())
	reg.Seen("10.0.0.5", model.HandshakeMessage{DeviceSerialNumber: strptr("ABC123")})

	api := NewHTTP(
		config.HTTP{Listen: "127.0.0.1:0", Timeout: fcctime.Duration(time.Second)},
		staticStats{Accepted: 1},
		reg,
		zerolog.Nop(),
		nil,
		model.ApplicationInfo{Revision: "r1"},
	)

	srv := httptest.NewServer(api.srv.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/devices")
	is.NoErr(err)
	defer resp.Body.Close()

	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(resp.Header.Get(requestIDHeader) != "") // request id is generated

	var devices []registry.Device
	is.NoErr(json.NewDecoder(resp.Body).Decode(&devices))
	is.Equal(len(devices), 1)
	is.Equal(devices[0].SerialNumber, "ABC123")
	is.Equal(devices[0].Host, "10.0.0.5")

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/info", nil)
	req.Header.Set(requestIDHeader, "rid-1")
	infoResp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer infoResp.Body.Close()

	is.Equal(infoResp.Header.Get(requestIDHeader), "rid-1")

	var info templates.MarshalData
	is.NoErr(json.NewDecoder(infoResp.Body).Decode(&info))
	is.Equal(info.Revision, "r1")
	is.Equal(info.Accepted, int64(1))
	is.Equal(info.RequestCount, 2)
}

func TestNotFound(t *testing.T) {
	is := is.New(t)

	api := NewHTTP(config.HTTP{}, nil, nil, zerolog.Nop(), nil, model.ApplicationInfo{})

	w := httptest.NewRecorder()
	api.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	is.Equal(w.Code, http.StatusNotFound)

	var got model.ServiceError
	is.NoErr(json.Unmarshal(w.Body.Bytes(), &got))
	is.Equal(got.Message, "not found")
}

func TestDevicesWithoutRegistry(t *testing.T) {
	is := is.New(t)

	api := NewHTTP(config.HTTP{}, nil, nil, zerolog.Nop(), nil, model.ApplicationInfo{})

	w := httptest.NewRecorder()
	api.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/devices", nil))

	is.Equal(w.Code, http.StatusOK)
	is.Equal(w.Body.String(), "[]\n")
}
