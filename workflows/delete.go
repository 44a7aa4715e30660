package workflows

import (
	"context"
	"fmt"

	"f0oster/adwarden/activedirectory"

	"go.uber.org/zap"
)

const (
	ActionDeleteUser     = "DELETE_USER"
	ActionDeleteComputer = "DELETE_COMPUTER"
)

// DeleteUser removes a user object. Deletion is idempotent: a missing user
// is a Found:false success, never an error. The mirror rows (active and
// disabled) go with it.
func (s *Service) DeleteUser(ctx context.Context, creds Credentials, username, executor string) (*Result, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	dir, err := s.connect(creds)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	result := &Result{Target: username}

	user, err := dir.FindUser(username)
	if err != nil {
		if activedirectory.IsNotFound(err) {
			result.Details = fmt.Sprintf("user %s not found, nothing to delete", username)
			s.cleanupUserMirror(ctx, username, result)
			s.recordSuccess(ctx, ActionDeleteUser, executor, result)
			return result, nil
		}
		return nil, err
	}

	if err := dir.DeleteObject(user.Ref, false); err != nil {
		return nil, fmt.Errorf("delete user %s: %w", username, err)
	}

	result.Found = true
	result.Details = fmt.Sprintf("user %s deleted", username)
	s.cleanupUserMirror(ctx, username, result)

	s.logger.Info("delete-user workflow finished",
		zap.String("username", username),
		zap.String("executor", executor))
	s.recordSuccess(ctx, ActionDeleteUser, executor, result)
	return result, nil
}

// DeleteComputer removes a computer object with its subtree (computer
// objects can own child objects). Idempotent like DeleteUser.
func (s *Service) DeleteComputer(ctx context.Context, creds Credentials, hostname, executor string) (*Result, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	dir, err := s.connect(creds)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	result := &Result{Target: hostname}

	computer, err := dir.FindComputer(hostname)
	if err != nil {
		if activedirectory.IsNotFound(err) {
			result.Details = fmt.Sprintf("computer %s not found, nothing to delete", hostname)
			if err := s.store.DeleteComputer(ctx, hostname); err != nil {
				result.warn(fmt.Sprintf("mirror cleanup failed: %v", err))
			}
			s.recordSuccess(ctx, ActionDeleteComputer, executor, result)
			return result, nil
		}
		return nil, err
	}

	if err := dir.DeleteObject(computer.Ref, true); err != nil {
		return nil, fmt.Errorf("delete computer %s: %w", hostname, err)
	}

	result.Found = true
	result.Details = fmt.Sprintf("computer %s deleted", hostname)
	if err := s.store.DeleteComputer(ctx, hostname); err != nil {
		result.warn(fmt.Sprintf("mirror cleanup failed: %v", err))
	}

	s.logger.Info("delete-computer workflow finished",
		zap.String("hostname", hostname),
		zap.String("executor", executor))
	s.recordSuccess(ctx, ActionDeleteComputer, executor, result)
	return result, nil
}

func (s *Service) cleanupUserMirror(ctx context.Context, username string, result *Result) {
	if err := s.store.DeleteUser(ctx, username); err != nil {
		result.warn(fmt.Sprintf("mirror cleanup failed: %v", err))
	}
	if err := s.store.DeleteDisabledUser(ctx, username); err != nil {
		result.warn(fmt.Sprintf("disabled-mirror cleanup failed: %v", err))
	}
}
