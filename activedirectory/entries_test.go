package activedirectory

import (
	"testing"
	"time"
)

func TestParseFiletime(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  *time.Time
	}{
		{"empty", "", nil},
		{"zero", "0", nil},
		{"never sentinel", "9223372036854775807", nil},
		{"garbage", "not-a-number", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseFiletime(tt.value); got != nil {
				t.Errorf("parseFiletime(%q) = %v, want nil", tt.value, got)
			}
		})
	}

	// 116444736000000000 ticks is exactly the unix epoch.
	got := parseFiletime("116444736000000000")
	if got == nil || !got.Equal(time.Unix(0, 0).UTC()) {
		t.Errorf("epoch filetime = %v, want 1970-01-01T00:00:00Z", got)
	}
}

func TestParseGeneralizedTime(t *testing.T) {
	got := parseGeneralizedTime("20240215093000.0Z")
	want := time.Date(2024, 2, 15, 9, 30, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Errorf("parseGeneralizedTime = %v, want %v", got, want)
	}
	if parseGeneralizedTime("") != nil {
		t.Error("empty value must decode to nil")
	}
	if parseGeneralizedTime("yesterday") != nil {
		t.Error("malformed value must decode to nil")
	}
}

func TestFirstDNComponentValue(t *testing.T) {
	tests := []struct {
		dn   string
		want string
	}{
		{"", ""},
		{"CN=Maria Silva,OU=Staff,DC=corp,DC=test", "Maria Silva"},
		{"OU=Financeiro,DC=corp,DC=test", "Financeiro"},
		{"CN=Comma\\, Inc,OU=Vendors,DC=corp,DC=test", "Comma, Inc"},
	}
	for _, tt := range tests {
		if got := FirstDNComponentValue(tt.dn); got != tt.want {
			t.Errorf("FirstDNComponentValue(%q) = %q, want %q", tt.dn, got, tt.want)
		}
	}
}

func TestEncodePassword(t *testing.T) {
	got := encodePassword("ab")
	// UTF-16LE of `"ab"`.
	want := string([]byte{'"', 0, 'a', 0, 'b', 0, '"', 0})
	if got != want {
		t.Errorf("encodePassword = %q, want %q", got, want)
	}
}
