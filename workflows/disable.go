package workflows

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"f0oster/adwarden/activedirectory"

	"go.uber.org/zap"
)

const (
	// ActionDisableUser is the audit action name of the disable workflow.
	ActionDisableUser = "DISABLE_USER"

	// disabledMarker visually flags disabled accounts in listings.
	disabledMarker = "[DESATIVADO] "

	disableDateLayout = "2006-01-02"
)

// DisableUser runs the disable workflow: strip group memberships, flag the
// account, then move it to the disabled container.
//
// Failure boundaries: a group strip failure is a warning; the attribute
// update is the point of no return and failing it aborts before the move; a
// failed move is a warning, the account is already disabled and flagged
// where it sits. On success the active mirror row is removed.
func (s *Service) DisableUser(ctx context.Context, creds Credentials, username, executor string) (*Result, error) {
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
	ref := user.Ref
	result := &Result{Target: username, Found: true}

	for _, groupDN := range user.MemberOf {
		groupName := activedirectory.FirstDNComponentValue(groupDN)
		if groupName == primaryGroup {
			continue
		}

		group, err := dir.FetchMember(groupDN)
		if err != nil {
			result.warn(fmt.Sprintf("could not resolve group %s: %v", groupName, err))
			continue
		}
		if err := dir.ModifyGroupMember(group.Ref, ref.LastKnownDN, activedirectory.RemoveMember); err != nil {
			result.warn(fmt.Sprintf("could not leave group %s: %v", groupName, err))
		}
	}

	// Point of no return: flag, describe and rename in one modify.
	changes := []activedirectory.AttributeChange{
		{Name: "userAccountControl", Values: []string{strconv.Itoa(user.AccountControl | activedirectory.UACAccountDisabled)}},
		{Name: "description", Values: []string{"Disabled on " + time.Now().Format(disableDateLayout)}},
		{Name: "displayName", Values: []string{disabledMarker + user.DisplayName}},
	}
	if err := dir.ModifyAttributes(ref, changes); err != nil {
		return nil, fmt.Errorf("disable attributes for %s: %w", username, err)
	}

	// The rename above staled every cached DN; MoveObject re-resolves
	// through the GUID.
	if err := dir.MoveObject(ref, s.disabledOU); err != nil {
		result.warn(fmt.Sprintf("account disabled but not moved to %s: %v", s.disabledOU, err))
	}

	if err := s.store.DeleteUser(ctx, username); err != nil {
		result.warn(fmt.Sprintf("mirror cleanup failed: %v", err))
	}

	result.Details = fmt.Sprintf("account %s disabled", username)
	s.logger.Info("disable workflow finished",
		zap.String("username", username),
		zap.String("executor", executor),
		zap.Int("warnings", len(result.Warnings)))
	s.recordSuccess(ctx, ActionDisableUser, executor, result)
	return result, nil
}
