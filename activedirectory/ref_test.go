package activedirectory

import (
	"testing"

	"github.com/google/uuid"
)

func TestGuidFromBytes(t *testing.T) {
	// On-wire layout stores the first three fields little-endian.
	raw := []byte{
		0x04, 0x03, 0x02, 0x01,
		0x06, 0x05,
		0x08, 0x07,
		0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	}

	guid, err := guidFromBytes(raw)
	if err != nil {
		t.Fatalf("guidFromBytes: %v", err)
	}
	if got, want := guid.String(), "01020304-0506-0708-090a-0b0c0d0e0f10"; got != want {
		t.Errorf("guid = %s, want %s", got, want)
	}
}

func TestGuidFromBytesRejectsBadLength(t *testing.T) {
	if _, err := guidFromBytes([]byte{0x01, 0x02}); err == nil {
		t.Error("expected an error for a 2-byte GUID")
	}
	if _, err := guidFromBytes(nil); err == nil {
		t.Error("expected an error for a nil GUID")
	}
}

func TestGuidDN(t *testing.T) {
	ref := ObjectRef{ObjectGUID: uuid.MustParse("01020304-0506-0708-090a-0b0c0d0e0f10")}
	if got, want := ref.GUIDDN(), "<GUID=01020304-0506-0708-090a-0b0c0d0e0f10>"; got != want {
		t.Errorf("GUIDDN() = %s, want %s", got, want)
	}
}
