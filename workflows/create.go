package workflows

import (
	"context"
	"fmt"

	"f0oster/adwarden/activedirectory"

	"go.uber.org/zap"
)

const ActionCreateUser = "CREATE_USER"

// CreateUserParams are the identity and membership facts of a new account.
type CreateUserParams struct {
	AccountName         string
	DisplayName         string
	GivenName           string
	Surname             string
	Mail                string
	Title               string
	Department          string
	Password            string
	Groups              []string
	ForcePasswordChange bool
}

func (p CreateUserParams) validate() error {
	if p.AccountName == "" || p.DisplayName == "" || p.Password == "" {
		return &activedirectory.ValidationError{Msg: "account name, display name and password are required"}
	}
	return nil
}

// CreateUser provisions a new account in two explicit phases: create the
// shell disabled, then set the credential and enable in one modify. The
// window between the phases can only ever hold a disabled, passwordless
// shell. Group joins afterwards are each independently tolerant.
//
// A logon name that already resolves is a ValidationError before any
// directory mutation is attempted.
func (s *Service) CreateUser(ctx context.Context, creds Credentials, params CreateUserParams, executor string) (*Result, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}
	if err := params.validate(); err != nil {
		return nil, err
	}

	dir, err := s.connect(creds)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	exists, err := dir.AccountNameExists(params.AccountName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, &activedirectory.ValidationError{
			Msg: fmt.Sprintf("logon name %s already exists", params.AccountName),
		}
	}

	// Phase one: disabled shell with identity attributes.
	ref, err := dir.CreateUserShell(s.usersOU, activedirectory.NewUserShell{
		AccountName: params.AccountName,
		UPNSuffix:   s.upnSuffix,
		DisplayName: params.DisplayName,
		GivenName:   params.GivenName,
		Surname:     params.Surname,
		Mail:        params.Mail,
		Title:       params.Title,
		Department:  params.Department,
	})
	if err != nil {
		return nil, fmt.Errorf("create shell for %s: %w", params.AccountName, err)
	}

	// Phase two: credential plus enable flag in a single modify.
	if err := dir.EnableUserAccount(ref, params.Password, params.ForcePasswordChange); err != nil {
		return nil, fmt.Errorf("enable account %s: %w", params.AccountName, err)
	}

	result := &Result{Target: params.AccountName, Found: true}

	groups := params.Groups
	if s.baseGroup != "" {
		groups = append([]string{s.baseGroup}, groups...)
	}
	joined := 0
	for _, groupName := range groups {
		group, err := dir.FindGroup(groupName)
		if err != nil {
			result.warn(fmt.Sprintf("could not resolve group %s: %v", groupName, err))
			continue
		}
		if err := dir.ModifyGroupMember(group.Ref, ref.LastKnownDN, activedirectory.AddMember); err != nil {
			result.warn(fmt.Sprintf("could not join group %s: %v", groupName, err))
			continue
		}
		joined++
	}

	result.Details = fmt.Sprintf("account %s created, joined %d of %d groups", params.AccountName, joined, len(groups))
	s.logger.Info("create-user workflow finished",
		zap.String("username", params.AccountName),
		zap.String("executor", executor),
		zap.Int("groups_joined", joined),
		zap.Int("warnings", len(result.Warnings)))
	s.recordSuccess(ctx, ActionCreateUser, executor, result)
	return result, nil
}
