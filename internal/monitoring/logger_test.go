package monitoring

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) { got = format })
	Logf("header trace %d", 1)
	if got != "header trace %d" {
		t.Errorf("custom logger not called, got %q", got)
	}

	got = ""
	SetLogger(nil)
	Logf("muted")
	if got != "" {
		t.Errorf("nil logger should mute, got %q", got)
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf must never be nil")
	}
}
