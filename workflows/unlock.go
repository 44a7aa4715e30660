package workflows

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const ActionUnlockUser = "UNLOCK_USER"

// UnlockUser clears a lockout so the account can bind again. It touches
// nothing else: no password reset, no group change.
func (s *Service) UnlockUser(ctx context.Context, creds Credentials, username, executor string) (*Result, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	dir, err := s.connect(creds)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	user, err := dir.FindUser(username)
	if err != nil {
		return nil, err
	}

	if err := dir.UnlockAccount(user.Ref); err != nil {
		return nil, fmt.Errorf("unlock %s: %w", username, err)
	}

	result := &Result{Target: username, Found: true, Details: fmt.Sprintf("account %s unlocked", username)}
	s.logger.Info("unlock workflow finished",
		zap.String("username", username),
		zap.String("executor", executor))
	s.recordSuccess(ctx, ActionUnlockUser, executor, result)
	return result, nil
}
