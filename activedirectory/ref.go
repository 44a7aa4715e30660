package activedirectory

import (
	"fmt"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

// ObjectRef addresses a directory object by its permanent objectGUID. The DN
// is advisory only: a move or rename invalidates it, the GUID never changes.
// Operations that run after a step that may have moved or renamed the object
// must address it through GUIDDN, never through LastKnownDN.
type ObjectRef struct {
	ObjectGUID  uuid.UUID
	LastKnownDN string
}

// GUIDDN returns the GUID-based DN form understood by Active Directory as a
// search base and modify target regardless of where the object currently sits.
func (r ObjectRef) GUIDDN() string {
	return fmt.Sprintf("<GUID=%s>", r.ObjectGUID)
}

func (r ObjectRef) String() string {
	if r.LastKnownDN != "" {
		return fmt.Sprintf("%s (%s)", r.LastKnownDN, r.ObjectGUID)
	}
	return r.ObjectGUID.String()
}

// guidFromBytes converts the on-wire objectGUID (Active Directory stores the
// first three fields little-endian) into an RFC4122 uuid.
func guidFromBytes(adGuid []byte) (uuid.UUID, error) {
	if len(adGuid) != 16 {
		return uuid.Nil, fmt.Errorf("invalid GUID: expected 16 bytes, got %d", len(adGuid))
	}

	rfcBytes := make([]byte, 16)
	copy(rfcBytes, adGuid)

	rfcBytes[0], rfcBytes[1], rfcBytes[2], rfcBytes[3] = rfcBytes[3], rfcBytes[2], rfcBytes[1], rfcBytes[0]
	rfcBytes[4], rfcBytes[5] = rfcBytes[5], rfcBytes[4]
	rfcBytes[6], rfcBytes[7] = rfcBytes[7], rfcBytes[6]

	return uuid.FromBytes(rfcBytes)
}

// refFromEntry builds an ObjectRef from a search result carrying objectGUID.
func refFromEntry(entry *ldap.Entry) (ObjectRef, error) {
	raw := entry.GetRawAttributeValue("objectGUID")
	if len(raw) == 0 {
		return ObjectRef{}, fmt.Errorf("entry %s has no objectGUID", entry.DN)
	}
	guid, err := guidFromBytes(raw)
	if err != nil {
		return ObjectRef{}, fmt.Errorf("entry %s: %w", entry.DN, err)
	}
	return ObjectRef{ObjectGUID: guid, LastKnownDN: entry.DN}, nil
}
