package activedirectory

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// userAccountControl bits we care about.
const (
	UACAccountDisabled    = 0x0002
	UACNormalAccount      = 0x0200
	UACDontExpirePassword = 0x10000

	generalizedTimeLayout = "20060102150405.0Z"
)

var userAttributes = []string{
	"objectGUID", "sAMAccountName", "displayName", "mail", "title",
	"department", "employeeType", "manager", "memberOf", "description",
	"whenCreated", "userAccountControl", "lastLogonTimestamp", "pwdLastSet",
	"badPwdCount", "adminCount",
}

var computerAttributes = []string{
	"objectGUID", "sAMAccountName", "cn", "operatingSystem",
	"operatingSystemVersion", "whenCreated", "lastLogonTimestamp",
}

var disabledAttributes = []string{
	"objectGUID", "sAMAccountName", "displayName", "description",
	"department", "whenChanged",
}

var memberAttributes = []string{
	"objectGUID", "objectClass", "sAMAccountName", "cn", "member",
}

// UserEntry is the fixed projection of a user object used by the sync and
// workflow layers.
type UserEntry struct {
	Ref             ObjectRef
	AccountName     string
	DisplayName     string
	Mail            string
	Title           string
	Department      string
	Seniority       string
	ManagerDN       string
	MemberOf        []string
	Description     string
	WhenCreated     *time.Time
	AccountControl  int
	Enabled         bool
	PwdNeverExpires bool
	LastLogon       *time.Time
	PwdLastSet      *time.Time
	BadPwdCount     int
	IsAdmin         bool
}

type ComputerEntry struct {
	Ref         ObjectRef
	Hostname    string
	OSName      string
	OSVersion   string
	WhenCreated *time.Time
	LastLogon   *time.Time
}

type DisabledEntry struct {
	Ref         ObjectRef
	AccountName string
	DisplayName string
	Description string
	Department  string
	WhenChanged *time.Time
}

type GroupEntry struct {
	Ref     ObjectRef
	Name    string
	Members []string
}

// MemberEntry is the minimal projection the crawler needs to decide whether
// to recurse into a member or index it.
type MemberEntry struct {
	Ref         ObjectRef
	AccountName string
	Name        string
	IsGroup     bool
	IsPerson    bool
	Members     []string
}

func userFromEntry(entry *ldap.Entry) (UserEntry, error) {
	ref, err := refFromEntry(entry)
	if err != nil {
		return UserEntry{}, err
	}

	uac := parseInt(entry.GetAttributeValue("userAccountControl"))

	return UserEntry{
		Ref:             ref,
		AccountName:     entry.GetAttributeValue("sAMAccountName"),
		DisplayName:     entry.GetAttributeValue("displayName"),
		Mail:            entry.GetAttributeValue("mail"),
		Title:           entry.GetAttributeValue("title"),
		Department:      entry.GetAttributeValue("department"),
		Seniority:       entry.GetAttributeValue("employeeType"),
		ManagerDN:       entry.GetAttributeValue("manager"),
		MemberOf:        entry.GetAttributeValues("memberOf"),
		Description:     entry.GetAttributeValue("description"),
		WhenCreated:     parseGeneralizedTime(entry.GetAttributeValue("whenCreated")),
		AccountControl:  uac,
		Enabled:         uac&UACAccountDisabled == 0,
		PwdNeverExpires: uac&UACDontExpirePassword != 0,
		LastLogon:       parseFiletime(entry.GetAttributeValue("lastLogonTimestamp")),
		PwdLastSet:      parseFiletime(entry.GetAttributeValue("pwdLastSet")),
		BadPwdCount:     parseInt(entry.GetAttributeValue("badPwdCount")),
		IsAdmin:         parseInt(entry.GetAttributeValue("adminCount")) > 0,
	}, nil
}

func computerFromEntry(entry *ldap.Entry) (ComputerEntry, error) {
	ref, err := refFromEntry(entry)
	if err != nil {
		return ComputerEntry{}, err
	}

	hostname := strings.TrimSuffix(entry.GetAttributeValue("sAMAccountName"), "$")
	if hostname == "" {
		hostname = entry.GetAttributeValue("cn")
	}

	return ComputerEntry{
		Ref:         ref,
		Hostname:    hostname,
		OSName:      entry.GetAttributeValue("operatingSystem"),
		OSVersion:   entry.GetAttributeValue("operatingSystemVersion"),
		WhenCreated: parseGeneralizedTime(entry.GetAttributeValue("whenCreated")),
		LastLogon:   parseFiletime(entry.GetAttributeValue("lastLogonTimestamp")),
	}, nil
}

func disabledFromEntry(entry *ldap.Entry) (DisabledEntry, error) {
	ref, err := refFromEntry(entry)
	if err != nil {
		return DisabledEntry{}, err
	}

	return DisabledEntry{
		Ref:         ref,
		AccountName: entry.GetAttributeValue("sAMAccountName"),
		DisplayName: entry.GetAttributeValue("displayName"),
		Description: entry.GetAttributeValue("description"),
		Department:  entry.GetAttributeValue("department"),
		WhenChanged: parseGeneralizedTime(entry.GetAttributeValue("whenChanged")),
	}, nil
}

func groupFromEntry(entry *ldap.Entry) (GroupEntry, error) {
	ref, err := refFromEntry(entry)
	if err != nil {
		return GroupEntry{}, err
	}

	return GroupEntry{
		Ref:     ref,
		Name:    entry.GetAttributeValue("cn"),
		Members: entry.GetAttributeValues("member"),
	}, nil
}

func memberFromEntry(entry *ldap.Entry) (MemberEntry, error) {
	ref, err := refFromEntry(entry)
	if err != nil {
		return MemberEntry{}, err
	}

	member := MemberEntry{
		Ref:         ref,
		AccountName: entry.GetAttributeValue("sAMAccountName"),
		Name:        entry.GetAttributeValue("cn"),
		Members:     entry.GetAttributeValues("member"),
	}
	for _, class := range entry.GetAttributeValues("objectClass") {
		switch class {
		case "group":
			member.IsGroup = true
		case "person", "user":
			member.IsPerson = true
		case "computer":
			// computers carry the user class chain, keep them out of the index
			member.IsPerson = false
		}
	}
	return member, nil
}

// parseFiletime decodes an AD FILETIME integer (100ns ticks since 1601).
// Zero and the "never" sentinel both decode to nil.
func parseFiletime(value string) *time.Time {
	const (
		filetimeEpochOffset = 116444736000000000
		filetimeNever       = int64(9223372036854775807)
	)

	if value == "" || value == "0" {
		return nil
	}
	ftVal, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ftVal == 0 || ftVal == filetimeNever {
		return nil
	}

	t := time.Unix(0, (ftVal-filetimeEpochOffset)*100).UTC()
	return &t
}

func parseGeneralizedTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(generalizedTimeLayout, value)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func parseInt(value string) int {
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

// FirstDNComponentValue extracts the leading RDN value from a DN, e.g. the CN
// of a manager reference. Falls back to the raw string when it does not parse.
func FirstDNComponentValue(dn string) string {
	if dn == "" {
		return ""
	}
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) == 0 || len(parsed.RDNs[0].Attributes) == 0 {
		return dn
	}
	return parsed.RDNs[0].Attributes[0].Value
}
