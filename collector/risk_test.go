package collector

import (
	"reflect"
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestScore(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := timePtr(now.AddDate(0, 0, -10))
	old := timePtr(now.AddDate(0, 0, -200))
	ancient := timePtr(now.AddDate(-2, 0, 0))

	tests := []struct {
		name        string
		in          RiskInputs
		wantScore   int
		wantFactors []string
	}{
		{
			name:        "clean account",
			in:          RiskInputs{PwdLastSet: recent, Enabled: true, LastLogon: recent, HasManager: true, Now: now},
			wantScore:   0,
			wantFactors: nil,
		},
		{
			name: "never expires plus admin plus bad passwords plus no manager",
			in: RiskInputs{
				PwdNeverExpires: true,
				PwdLastSet:      ancient,
				Enabled:         true,
				LastLogon:       recent,
				IsAdmin:         true,
				BadPwdCount:     3,
				HasManager:      false,
				Now:             now,
			},
			wantScore: 70,
			wantFactors: []string{
				"password never expires",
				"administrative account",
				"3 failed password attempts",
				"no manager on record",
			},
		},
		{
			name: "never expires suppresses password age",
			in: RiskInputs{
				PwdNeverExpires: true,
				PwdLastSet:      ancient,
				Enabled:         true,
				LastLogon:       recent,
				HasManager:      true,
				Now:             now,
			},
			wantScore:   40,
			wantFactors: []string{"password never expires"},
		},
		{
			name: "stale password",
			in: RiskInputs{
				PwdLastSet: old,
				Enabled:    true,
				LastLogon:  recent,
				HasManager: true,
				Now:        now,
			},
			wantScore:   30,
			wantFactors: []string{"password unchanged for 200 days"},
		},
		{
			name: "ghost needs enabled",
			in: RiskInputs{
				PwdLastSet: recent,
				Enabled:    false,
				LastLogon:  ancient,
				HasManager: true,
				Now:        now,
			},
			wantScore:   0,
			wantFactors: nil,
		},
		{
			name: "ghost needs a known logon",
			in: RiskInputs{
				PwdLastSet: recent,
				Enabled:    true,
				LastLogon:  nil,
				HasManager: true,
				Now:        now,
			},
			wantScore:   0,
			wantFactors: nil,
		},
		{
			name: "everything at once caps at 100",
			in: RiskInputs{
				PwdNeverExpires: true,
				Enabled:         true,
				LastLogon:       ancient,
				IsAdmin:         true,
				BadPwdCount:     9,
				HasManager:      false,
				Now:             now,
			},
			wantScore: 95,
			wantFactors: []string{
				"password never expires",
				"ghost account: no logon for 731 days",
				"administrative account",
				"9 failed password attempts",
				"no manager on record",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, factors := Score(tt.in)
			if score != tt.wantScore {
				t.Errorf("score = %d, want %d", score, tt.wantScore)
			}
			if !reflect.DeepEqual(factors, tt.wantFactors) {
				t.Errorf("factors = %v, want %v", factors, tt.wantFactors)
			}
		})
	}
}

func TestScoreEvaluatesEveryFactor(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	in := RiskInputs{
		PwdLastSet:  timePtr(now.AddDate(-3, 0, 0)),
		Enabled:     true,
		LastLogon:   timePtr(now.AddDate(-1, 0, 0)),
		IsAdmin:     true,
		BadPwdCount: 5,
		HasManager:  false,
		Now:         now,
	}

	score, factors := Score(in)
	if score != 85 {
		t.Fatalf("score = %d, want 85", score)
	}
	if len(factors) != 5 {
		t.Fatalf("got %d factors, want 5: %v", len(factors), factors)
	}
}
