package time

import (
	"encoding/json"
	"errors"
	"time"
)

// Duration is a time.Duration which reads both "10s" strings and
// nanosecond numbers from JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	err := json.Unmarshal(data, &v)
	if err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
	case string:
		dt, err := time.ParseDuration(value)
		if err != nil {
			return err
		}

		*d = Duration(dt)
	default:
		return errors.New("invalid duration")
	}

	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Std converts to time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
