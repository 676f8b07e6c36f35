package model

// VerifyMode is the way an employee proved identity on the terminal.
type VerifyMode uint8

const (
	VerifyModeUnknown VerifyMode = iota
	VerifyModePassword
	VerifyModeFingerprint
	VerifyModeCard
	VerifyModeFace
)

var verifyModeByCode = map[string]VerifyMode{
	"0": VerifyModePassword,
	"1": VerifyModeFingerprint,
	"2": VerifyModeCard,
	"3": VerifyModeFace,
}

// VerifyModeFromCode maps VERIFYMODE code sent by the device. Codes out of
// the known set give VerifyModeUnknown.
func VerifyModeFromCode(code string) VerifyMode {
	mode, ok := verifyModeByCode[code]
	if !ok {
		return VerifyModeUnknown
	}

	return mode
}

func (m VerifyMode) String() string {
	switch m {
	case VerifyModePassword:
		return "Password"
	case VerifyModeFingerprint:
		return "Fingerprint"
	case VerifyModeCard:
		return "Card"
	case VerifyModeFace:
		return "Face"
	default:
		return "Unknown"
	}
}

// MarshalText encodes mode as its label.
func (m VerifyMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// SerialSource tells where AttendanceRecord.DeviceSerialNumber came from.
type SerialSource uint8

const (
	// SerialSourceRemoteAddr means the serial is the host of the connection.
	SerialSourceRemoteAddr SerialSource = iota
	// SerialSourceDeclared means the device announced the serial in a handshake.
	SerialSourceDeclared
)

func (s SerialSource) String() string {
	switch s {
	case SerialSourceDeclared:
		return "declared"
	default:
		return "remote_addr"
	}
}

// HandshakeMessage is parsed from the query of a device GET request. Absent
// keys stay nil.
type HandshakeMessage struct {
	DeviceSerialNumber *string
	Options            *string
	Language           *string
	PushVersion        *string
}

// AttendanceRecord is a single punch read from an attendance telegram.
type AttendanceRecord struct {
	EmployeeCode       string
	VerifyMode         VerifyMode
	Timestamp          string
	DeviceSerialNumber string
	SerialSource       SerialSource
}

// ForwardResult is an outcome of sending record upstream.
type ForwardResult struct {
	StatusCode int
	Err        error
}

// OK reports whether upstream accepted the record.
func (r ForwardResult) OK() bool {
	return r.Err == nil
}

// ApplicationInfo describes running build.
type ApplicationInfo struct {
	Revision    string
	Branch      string
	Environment string
}
