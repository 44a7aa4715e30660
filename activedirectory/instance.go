package activedirectory

import (
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// Instance is one authenticated session against a domain controller. One
// instance per sync pass or mutation workflow; instances are not shared
// across concurrent invocations.
type Instance struct {
	BaseDN               string
	DomainControllerFQDN string
	PageSize             uint32
	BindTimeout          time.Duration

	ldapConnection *ldap.Conn
	logger         *zap.Logger
}

func NewInstance(baseDn string, domainControllerFQDN string, pageSize uint32, bindTimeout time.Duration, logger *zap.Logger) *Instance {
	return &Instance{
		BaseDN:               baseDn,
		DomainControllerFQDN: domainControllerFQDN,
		PageSize:             pageSize,
		BindTimeout:          bindTimeout,
		logger:               logger,
	}
}

// Connect dials the domain controller and binds as the given identity.
// A rejected bind comes back as *AuthError.
func (ad *Instance) Connect(username, password string) error {
	bindString := fmt.Sprintf("ldap://%s:389", ad.DomainControllerFQDN)

	conn, err := ldap.DialURL(bindString)
	if err != nil {
		return &TransportError{Op: "dial " + bindString, Err: err}
	}
	conn.SetTimeout(ad.BindTimeout)

	// TODO: LDAPS, IWA/GSSAPI, etc
	if err := conn.Bind(username, password); err != nil {
		conn.Close()
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return &AuthError{Bind: username, Err: err}
		}
		return classifyError("bind", err)
	}

	res, err := conn.WhoAmI(nil)
	if err != nil {
		conn.Close()
		return classifyError("whoami", err)
	}
	ad.logger.Info("authenticated to directory",
		zap.String("endpoint", bindString),
		zap.String("authzid", res.AuthzID))

	ad.ldapConnection = conn
	return nil
}

func (ad *Instance) Close() {
	if ad.ldapConnection != nil {
		ad.ldapConnection.Close()
		ad.ldapConnection = nil
	}
}

// searchSubtree runs a paged subtree search below base.
func (ad *Instance) searchSubtree(base, filter string, attributes []string) ([]*ldap.Entry, error) {
	request := ldap.NewSearchRequest(
		base,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		attributes,
		nil,
	)

	results, err := ad.ldapConnection.SearchWithPaging(request, ad.PageSize)
	if err != nil {
		return nil, classifyError("search "+base, err)
	}
	return results.Entries, nil
}

// searchOne expects at most one result; a miss is a *NotFoundError.
func (ad *Instance) searchOne(base string, scope int, filter string, attributes []string) (*ldap.Entry, error) {
	request := ldap.NewSearchRequest(
		base,
		scope,
		ldap.NeverDerefAliases,
		2, 0, false,
		filter,
		attributes,
		nil,
	)

	results, err := ad.ldapConnection.Search(request)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return nil, &NotFoundError{Target: base}
		}
		return nil, classifyError("search "+base, err)
	}
	if len(results.Entries) == 0 {
		return nil, &NotFoundError{Target: filter}
	}
	return results.Entries[0], nil
}
