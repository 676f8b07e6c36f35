package time

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMarshalJSON(t *testing.T) {
	testStruct := struct {
		D Duration `json:"d"`
	}{D: Duration(time.Second)}

	data, err := json.Marshal(&testStruct)
	if err != nil {
		t.Fatal(err)
	}

	if string(data) != `{"d":"1s"}` {
		t.Fatalf("exp 1s got %s", data)
	}
}

func TestUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		exp     Duration
		wantErr bool
	}{
		{name: "string", input: `{"d":"1s"}`, exp: Duration(time.Second)},
		{name: "compound", input: `{"d":"1m30s"}`, exp: Duration(90 * time.Second)},
		{name: "nanoseconds", input: `{"d":5000000000}`, exp: Duration(5 * time.Second)},
		{name: "garbage", input: `{"d":"soon"}`, wantErr: true},
		{name: "bool", input: `{"d":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testStruct := struct {
				D Duration `json:"d"`
			}{}

			err := json.Unmarshal([]byte(tt.input), &testStruct)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}

				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if testStruct.D != tt.exp {
				t.Fatalf("exp %d got %d", tt.exp, testStruct.D)
			}
		})
	}
}

func TestStd(t *testing.T) {
	d := Duration(time.Second)
	if d.Std() != time.Second {
		t.Fatal("exp same type")
	}
}

func TestString(t *testing.T) {
	d := Duration(time.Second)
	if d.String() != "1s" {
		t.Fatal("exp 1s")
	}
}
