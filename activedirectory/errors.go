package activedirectory

import (
	"errors"
	"fmt"

	"github.com/go-ldap/ldap/v3"
)

// AuthError means the bind identity was rejected. It aborts the whole
// calling workflow.
type AuthError struct {
	Bind string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for %s: %v", e.Bind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError means the addressed object does not exist. Delete-style
// callers treat it as already satisfied; everything else treats it as fatal.
type NotFoundError struct {
	Target string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("directory object not found: %s", e.Target)
}

// ValidationError is a failed precondition. No directory mutation has been
// attempted when one is returned.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// TransportError is a network or timeout failure. The caller decides whether
// to retry; nothing here retries automatically.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("directory %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PartialFailure collects sub-step failures of a multi-group operation that
// continued past them.
type PartialFailure struct {
	Op       string
	Failures []string
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%s completed with %d failures: %v", e.Op, len(e.Failures), e.Failures)
}

// classifyError maps LDAP result codes onto the error taxonomy. This is the
// only place the mapping happens.
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}
	if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
		return &AuthError{Bind: op, Err: err}
	}
	if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
		return &NotFoundError{Target: op}
	}
	if ldap.IsErrorWithCode(err, ldap.ErrorNetwork) {
		return &TransportError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// membershipSatisfied reports whether a failed group-membership change is in
// the already-satisfied class: ADD of an existing member, or REMOVE of a
// member that is not there.
func membershipSatisfied(op MembershipOp, err error) bool {
	switch op {
	case AddMember:
		return ldap.IsErrorWithCode(err, ldap.LDAPResultEntryAlreadyExists) ||
			ldap.IsErrorWithCode(err, ldap.LDAPResultAttributeOrValueExists)
	case RemoveMember:
		return ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchAttribute) ||
			ldap.IsErrorWithCode(err, ldap.LDAPResultUnwillingToPerform)
	}
	return false
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
