package workflows

import (
	"context"
	"strings"

	"f0oster/adwarden/activedirectory"
	"f0oster/adwarden/audit"
	"f0oster/adwarden/metrics"

	"go.uber.org/zap"
)

// Credentials carry the acting administrator's own bind identity. Every
// mutation workflow executes under the caller, never under a fixed service
// account, and refuses to start without them.
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) validate() error {
	if c.Username == "" || c.Password == "" {
		return &activedirectory.ValidationError{Msg: "acting administrator credentials are required"}
	}
	return nil
}

// Result is a workflow outcome. Found is false when a delete-style workflow
// addressed an object that was already gone. Warnings are non-fatal step
// failures the workflow continued past; they end up in the audit details.
type Result struct {
	Target   string
	Found    bool
	Warnings []string
	Details  string
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (r *Result) auditDetails() string {
	if len(r.Warnings) == 0 {
		return r.Details
	}
	return r.Details + " [warnings: " + strings.Join(r.Warnings, "; ") + "]"
}

// Directory is the slice of the adapter the workflows drive. One session per
// workflow invocation, bound as the acting administrator.
type Directory interface {
	Close()
	FindUser(accountName string) (*activedirectory.UserEntry, error)
	FindComputer(hostname string) (*activedirectory.ComputerEntry, error)
	FindGroup(name string) (*activedirectory.GroupEntry, error)
	FetchMember(dn string) (*activedirectory.MemberEntry, error)
	AccountNameExists(accountName string) (bool, error)
	ModifyAttributes(ref activedirectory.ObjectRef, changes []activedirectory.AttributeChange) error
	MoveObject(ref activedirectory.ObjectRef, newParent string) error
	DeleteObject(ref activedirectory.ObjectRef, recursive bool) error
	ModifyGroupMember(group activedirectory.ObjectRef, memberDN string, op activedirectory.MembershipOp) error
	CreateUserShell(container string, shell activedirectory.NewUserShell) (activedirectory.ObjectRef, error)
	EnableUserAccount(ref activedirectory.ObjectRef, password string, forceChange bool) error
	UnlockAccount(ref activedirectory.ObjectRef) error
}

// Connector opens an authenticated directory session for one workflow run.
type Connector func(creds Credentials) (Directory, error)

// Store is the mirror cleanup surface the workflows use after a successful
// directory mutation.
type Store interface {
	DeleteUser(ctx context.Context, username string) error
	DeleteComputer(ctx context.Context, hostname string) error
	DeleteDisabledUser(ctx context.Context, username string) error
}

// primaryGroup is the built-in primary group; it is never stripped or
// diffed, membership in it is implicit.
const primaryGroup = "Domain Users"

// Service runs the mutation workflows: short ordered sequences of directory
// operations with compensating cleanup instead of rollback. Workflows record
// their own SUCCESS audit entries (warnings embedded in details); fatal
// errors propagate to the caller, which records the ERROR entry.
type Service struct {
	connect        Connector
	store          Store
	audit          audit.Sink
	disabledOU     string
	usersOU        string
	baseGroup      string
	upnSuffix      string
	logger         *zap.Logger
}

func NewService(
	connect Connector,
	store Store,
	sink audit.Sink,
	disabledOU string,
	usersOU string,
	baseGroup string,
	upnSuffix string,
	logger *zap.Logger,
) *Service {
	return &Service{
		connect:    connect,
		store:      store,
		audit:      sink,
		disabledOU: disabledOU,
		usersOU:    usersOU,
		baseGroup:  baseGroup,
		upnSuffix:  upnSuffix,
		logger:     logger,
	}
}

func (s *Service) recordSuccess(ctx context.Context, action, executor string, result *Result) {
	metrics.WorkflowOutcomes.WithLabelValues(action, string(audit.StatusSuccess)).Inc()
	s.audit.Record(ctx, action, executor, result.Target, audit.StatusSuccess, result.auditDetails())
}
