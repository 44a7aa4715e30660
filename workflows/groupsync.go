package workflows

import (
	"context"
	"fmt"
	"strings"

	"f0oster/adwarden/activedirectory"

	"go.uber.org/zap"
)

const ActionSyncGroups = "SYNC_GROUPS"

// ScalarUpdates are the optional attribute edits applied alongside a group
// sync. An empty field means "leave unchanged", not "clear".
type ScalarUpdates struct {
	DisplayName string
	Description string
	Seniority   string
}

func (u ScalarUpdates) changes() []activedirectory.AttributeChange {
	var changes []activedirectory.AttributeChange
	if u.DisplayName != "" {
		changes = append(changes, activedirectory.AttributeChange{Name: "displayName", Values: []string{u.DisplayName}})
	}
	if u.Description != "" {
		changes = append(changes, activedirectory.AttributeChange{Name: "description", Values: []string{u.Description}})
	}
	if u.Seniority != "" {
		changes = append(changes, activedirectory.AttributeChange{Name: "employeeType", Values: []string{u.Seniority}})
	}
	return changes
}

// SyncUserGroups reconciles a user's direct memberships against a desired
// list by set difference, so running it twice with the same input issues zero
// membership operations on the second pass. Removals happen before additions.
// Each membership operation is independently tolerant; the scalar update is a
// single modify and fatal when it fails.
func (s *Service) SyncUserGroups(ctx context.Context, creds Credentials, username string, desired []string, updates ScalarUpdates, executor string) (*Result, error) {
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
	result := &Result{Target: username, Found: true}

	desiredSet := make(map[string]string, len(desired))
	for _, name := range desired {
		if name == "" || strings.EqualFold(name, primaryGroup) {
			continue
		}
		desiredSet[strings.ToLower(name)] = name
	}

	currentSet := make(map[string]string, len(user.MemberOf))
	for _, groupDN := range user.MemberOf {
		name := activedirectory.FirstDNComponentValue(groupDN)
		if strings.EqualFold(name, primaryGroup) {
			continue
		}
		currentSet[strings.ToLower(name)] = groupDN
	}

	removed, added := 0, 0

	for key, groupDN := range currentSet {
		if _, keep := desiredSet[key]; keep {
			continue
		}
		group, err := dir.FetchMember(groupDN)
		if err != nil {
			result.warn(fmt.Sprintf("could not resolve group %s: %v", activedirectory.FirstDNComponentValue(groupDN), err))
			continue
		}
		if err := dir.ModifyGroupMember(group.Ref, user.Ref.LastKnownDN, activedirectory.RemoveMember); err != nil {
			result.warn(fmt.Sprintf("could not leave group %s: %v", group.Name, err))
			continue
		}
		removed++
	}

	for key, name := range desiredSet {
		if _, has := currentSet[key]; has {
			continue
		}
		group, err := dir.FindGroup(name)
		if err != nil {
			result.warn(fmt.Sprintf("could not resolve group %s: %v", name, err))
			continue
		}
		if err := dir.ModifyGroupMember(group.Ref, user.Ref.LastKnownDN, activedirectory.AddMember); err != nil {
			result.warn(fmt.Sprintf("could not join group %s: %v", name, err))
			continue
		}
		added++
	}

	if changes := updates.changes(); len(changes) > 0 {
		if err := dir.ModifyAttributes(user.Ref, changes); err != nil {
			return nil, fmt.Errorf("update attributes for %s: %w", username, err)
		}
	}

	result.Details = fmt.Sprintf("memberships of %s reconciled: %d added, %d removed", username, added, removed)
	s.logger.Info("group sync workflow finished",
		zap.String("username", username),
		zap.String("executor", executor),
		zap.Int("added", added),
		zap.Int("removed", removed),
		zap.Int("warnings", len(result.Warnings)))
	s.recordSuccess(ctx, ActionSyncGroups, executor, result)
	return result, nil
}
