package collector

import (
	"fmt"
	"time"
)

// Factor weights and thresholds of the risk model.
const (
	riskNeverExpires  = 40
	riskStalePassword = 30
	riskGhostAccount  = 25
	riskAdminAccount  = 15
	riskBadPasswords  = 10
	riskNoManager     = 5

	stalePasswordDays = 180
	ghostAccountDays  = 90

	riskCap = 100
)

// RiskInputs are the per-user facts the scorer looks at.
type RiskInputs struct {
	PwdNeverExpires bool
	PwdLastSet      *time.Time
	Enabled         bool
	LastLogon       *time.Time
	IsAdmin         bool
	BadPwdCount     int
	HasManager      bool
	Now             time.Time
}

// Score evaluates all six factors in fixed order and returns the capped sum
// plus the factor strings in evaluation order. Every factor is checked even
// after the score saturates, so a saturated user still gets the full list.
func Score(in RiskInputs) (int, []string) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	score := 0
	var factors []string

	if in.PwdNeverExpires {
		score += riskNeverExpires
		factors = append(factors, "password never expires")
	}

	if !in.PwdNeverExpires && in.PwdLastSet != nil {
		if days := daysSince(now, *in.PwdLastSet); days > stalePasswordDays {
			score += riskStalePassword
			factors = append(factors, fmt.Sprintf("password unchanged for %d days", days))
		}
	}

	if in.Enabled && in.LastLogon != nil {
		if days := daysSince(now, *in.LastLogon); days > ghostAccountDays {
			score += riskGhostAccount
			factors = append(factors, fmt.Sprintf("ghost account: no logon for %d days", days))
		}
	}

	if in.IsAdmin {
		score += riskAdminAccount
		factors = append(factors, "administrative account")
	}

	if in.BadPwdCount > 0 {
		score += riskBadPasswords
		factors = append(factors, fmt.Sprintf("%d failed password attempts", in.BadPwdCount))
	}

	if !in.HasManager {
		score += riskNoManager
		factors = append(factors, "no manager on record")
	}

	if score > riskCap {
		score = riskCap
	}
	return score, factors
}

func daysSince(now time.Time, t time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}
