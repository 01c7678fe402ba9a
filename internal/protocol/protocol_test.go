package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEncode_Authenticate(t *testing.T) {
	env := Authenticate("secret-token")

	data, err := Encode(env)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if parsed["type"] != TypeAuthenticate {
		t.Errorf("type = %v, want %s", parsed["type"], TypeAuthenticate)
	}
	if parsed["token"] != "secret-token" {
		t.Errorf("token = %v, want secret-token", parsed["token"])
	}
	if _, ok := parsed["channel"]; ok {
		t.Error("channel should be omitted for authenticate")
	}
	if _, ok := parsed["sessionId"]; ok {
		t.Error("sessionId should be omitted when unset")
	}
}

func TestEncode_Subscribe(t *testing.T) {
	data, err := Encode(Subscribe("global"))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	want := `{"type":"subscribe","channel":"global"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestMessage_ContentMarshaled(t *testing.T) {
	env, err := Message("updates", map[string]string{"text": "hello"})
	if err != nil {
		t.Fatalf("Message failed: %v", err)
	}

	if env.Type != TypeMessage {
		t.Errorf("Type = %s, want %s", env.Type, TypeMessage)
	}
	if env.Channel != "updates" {
		t.Errorf("Channel = %s, want updates", env.Channel)
	}
	if !strings.Contains(string(env.Content), `"text":"hello"`) {
		t.Errorf("Content = %s, want text field", env.Content)
	}
}

func TestStamp(t *testing.T) {
	env := Subscribe("global").Stamp("session-1")

	if env.SessionID != "session-1" {
		t.Errorf("SessionID = %s, want session-1", env.SessionID)
	}
	if env.Timestamp == 0 {
		t.Error("Timestamp should be set")
	}
	if now := time.Now().UnixMilli(); env.Timestamp > now || env.Timestamp < now-5000 {
		t.Errorf("Timestamp %d not near now %d", env.Timestamp, now)
	}
}

func TestStamp_CallerOverrides(t *testing.T) {
	env := Envelope{Type: TypeMessage, SessionID: "explicit", Timestamp: 42}
	stamped := env.Stamp("default")

	if stamped.SessionID != "explicit" {
		t.Errorf("SessionID = %s, want explicit", stamped.SessionID)
	}
	if stamped.Timestamp != 42 {
		t.Errorf("Timestamp = %d, want 42", stamped.Timestamp)
	}
}

func TestDecode(t *testing.T) {
	data := `{"type":"broadcast","channel":"updates","content":{"id":7},"sessionId":"abc","timestamp":1705328200123}`

	env, err := Decode([]byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if env.Type != "broadcast" {
		t.Errorf("Type = %s, want broadcast", env.Type)
	}
	if env.Channel != "updates" {
		t.Errorf("Channel = %s, want updates", env.Channel)
	}
	if env.SessionID != "abc" {
		t.Errorf("SessionID = %s, want abc", env.SessionID)
	}
	if env.Timestamp != 1705328200123 {
		t.Errorf("Timestamp = %d, want 1705328200123", env.Timestamp)
	}

	var content struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(env.Content, &content); err != nil {
		t.Fatalf("unmarshal content failed: %v", err)
	}
	if content.ID != 7 {
		t.Errorf("content id = %d, want 7", content.ID)
	}
}

func TestDecode_MissingType(t *testing.T) {
	env, err := Decode([]byte(`{"channel":"updates"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if env.Type != "" {
		t.Errorf("Type = %q, want empty", env.Type)
	}
}

func TestDecode_Malformed(t *testing.T) {
	cases := []string{
		"",
		"not json at all",
		`{"type": unterminated`,
		`[1,2,3]`,
	}

	for _, tc := range cases {
		if _, err := Decode([]byte(tc)); err == nil {
			t.Errorf("Decode(%q) should fail", tc)
		}
	}
}
