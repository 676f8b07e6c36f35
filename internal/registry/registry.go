package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferux/attendancebridge/internal/model"
)

// Device is a terminal that completed at least one handshake.
type Device struct {
	Host         string `json:"host"`
	SerialNumber string `json:"serial_number,omitempty"`
	Options      string `json:"options,omitempty"`
	Language     string `json:"language,omitempty"`
	PushVersion  string `json:"push_version,omitempty"`
	Handshakes   int64  `json:"handshakes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	SeenAt    time.Time `json:"seen_at"`
}

type Store interface {
	Seen(host string, hs model.HandshakeMessage)
	Serial(host string) (string, bool)
	Subscribe(fn NotifyDeviceChanged)
	Devices() []Device
}

// NotifyDeviceChanged is called when a new device shows up or a known one
// announces a different serial.
type NotifyDeviceChanged func(d Device)

type store struct {
	devices map[string]*Device
	mu      sync.RWMutex
	subs    []NotifyDeviceChanged
	logger  zerolog.Logger

	now func() time.Time
}

func New(logger zerolog.Logger) Store {
	return &store{
		devices: make(map[string]*Device),
		logger:  logger.With().Str("pkg", "registry").Logger(),
		now:     time.Now,
	}
}

func (s *store) Subscribe(fn NotifyDeviceChanged) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subs = append(s.subs, fn)
}

func (s *store) notify(subs []NotifyDeviceChanged, d Device) {
	for _, fn := range subs {
		fn(d)
	}
}

// Seen records handshake from host.
func (s *store) Seen(host string, hs model.HandshakeMessage) {
	now := s.now()

	s.mu.Lock()
	device, ok := s.devices[host]
	changed := !ok
	if !ok {
		device = &Device{
			Host:      host,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.devices[host] = device
	}

	device.SeenAt = now
	device.Handshakes++

	if hs.DeviceSerialNumber != nil && *hs.DeviceSerialNumber != device.SerialNumber {
		if ok {
			s.logger.Warn().
				Str("host", host).
				Str("old", device.SerialNumber).
				Str("new", *hs.DeviceSerialNumber).
				Msg("device serial changed")
		}

		device.SerialNumber = *hs.DeviceSerialNumber
		device.UpdatedAt = now
		changed = true
	}

	if hs.Options != nil {
		device.Options = *hs.Options
	}

	if hs.Language != nil {
		device.Language = *hs.Language
	}

	if hs.PushVersion != nil {
		device.PushVersion = *hs.PushVersion
	}

	snapshot := *device
	subs := s.subs
	s.mu.Unlock()

	if changed {
		s.notify(subs, snapshot)
	}
}

// Serial returns serial declared by host. Devices which never sent SN are
// reported as unknown.
func (s *store) Serial(host string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	device, ok := s.devices[host]
	if !ok || device.SerialNumber == "" {
		return "", false
	}

	return device.SerialNumber, true
}

// Devices gets all known devices ordered by host.
func (s *store) Devices() []Device {
	s.mu.RLock()
	devices := make([]Device, 0, len(s.devices))
	for _, device := range s.devices {
		devices = append(devices, *device)
	}
	s.mu.RUnlock()

	sort.Slice(devices, func(i, j int) bool { return devices[i].Host < devices[j].Host })

	return devices
}
