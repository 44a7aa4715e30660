package database

import "time"

// UserRecord is the mirrored projection of an enabled directory user,
// refreshed by the user sync pass and keyed on Username.
type UserRecord struct {
	Username        string
	DisplayName     string
	Email           string
	StartDate       *time.Time
	IsEnabled       bool
	LastLogon       *time.Time
	Team            string
	JobTitle        string
	Department      string
	Seniority       string
	Manager         string
	PwdLastSet      *time.Time
	BadPwdCount     int
	IsAdmin         bool
	PwdNeverExpires bool
	RiskScore       int
	RiskFactors     []string
}

// ComputerRecord mirrors a computer object, keyed on Hostname. IsActive is
// recomputed on every sync pass, never at query time.
type ComputerRecord struct {
	Hostname  string
	OSName    string
	OSVersion string
	CreatedAt *time.Time
	LastLogon *time.Time
	IsActive  bool
}

// DisabledUserRecord mirrors an account in the disabled container. The
// description conventionally encodes the disable date.
type DisabledUserRecord struct {
	Username    string
	DisplayName string
	Description string
	Department  string
	WhenChanged *time.Time
}
