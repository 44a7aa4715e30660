package activedirectory

import (
	"fmt"

	"f0oster/adwarden/activedirectory/ldaphelpers"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// ResolveStableRef re-derives the permanent reference for an entry. Callers
// hold on to the ObjectRef, not the entry DN.
func (ad *Instance) ResolveStableRef(entry *ldap.Entry) (ObjectRef, error) {
	return refFromEntry(entry)
}

// ResolveDN looks up the object's current DN through its GUID. Used whenever
// a prior workflow step may have moved or renamed the object.
func (ad *Instance) ResolveDN(ref ObjectRef) (string, error) {
	entry, err := ad.searchOne(ref.GUIDDN(), ldap.ScopeBaseObject, "(objectClass=*)", []string{"distinguishedName"})
	if err != nil {
		return "", err
	}
	return entry.DN, nil
}

// FindUser resolves a user by sAMAccountName anywhere under the base DN.
func (ad *Instance) FindUser(accountName string) (*UserEntry, error) {
	filter := ldaphelpers.And(
		ldaphelpers.Eq("objectCategory", "person"),
		ldaphelpers.Eq("objectClass", "user"),
		ldaphelpers.EqEscaped("sAMAccountName", accountName),
	).String()

	entry, err := ad.searchOne(ad.BaseDN, ldap.ScopeWholeSubtree, filter, userAttributes)
	if err != nil {
		return nil, err
	}
	user, err := userFromEntry(entry)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindComputer resolves a computer by hostname.
func (ad *Instance) FindComputer(hostname string) (*ComputerEntry, error) {
	filter := ldaphelpers.And(
		ldaphelpers.Eq("objectClass", "computer"),
		ldaphelpers.EqEscaped("sAMAccountName", hostname+"$"),
	).String()

	entry, err := ad.searchOne(ad.BaseDN, ldap.ScopeWholeSubtree, filter, computerAttributes)
	if err != nil {
		return nil, err
	}
	computer, err := computerFromEntry(entry)
	if err != nil {
		return nil, err
	}
	return &computer, nil
}

// FindGroup resolves a group by CN.
func (ad *Instance) FindGroup(name string) (*GroupEntry, error) {
	filter := ldaphelpers.And(
		ldaphelpers.Eq("objectClass", "group"),
		ldaphelpers.EqEscaped("cn", name),
	).String()

	entry, err := ad.searchOne(ad.BaseDN, ldap.ScopeWholeSubtree, filter, memberAttributes)
	if err != nil {
		return nil, err
	}
	group, err := groupFromEntry(entry)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// FetchMember reads one member edge target by DN (base scope).
func (ad *Instance) FetchMember(dn string) (*MemberEntry, error) {
	entry, err := ad.searchOne(dn, ldap.ScopeBaseObject, "(objectClass=*)", memberAttributes)
	if err != nil {
		return nil, err
	}
	member, err := memberFromEntry(entry)
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FetchUsers returns every enabled user account below the base DN.
func (ad *Instance) FetchUsers() ([]UserEntry, error) {
	filter := ldaphelpers.And(
		ldaphelpers.Eq("objectCategory", "person"),
		ldaphelpers.Eq("objectClass", "user"),
		ldaphelpers.Not(ldaphelpers.BitAnd("userAccountControl", UACAccountDisabled)),
	).String()

	entries, err := ad.searchSubtree(ad.BaseDN, filter, userAttributes)
	if err != nil {
		return nil, err
	}

	users := make([]UserEntry, 0, len(entries))
	for _, entry := range entries {
		user, err := userFromEntry(entry)
		if err != nil {
			ad.logger.Warn("skipping malformed user entry", zap.String("dn", entry.DN), zap.Error(err))
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// FetchComputers returns every computer account below the base DN.
func (ad *Instance) FetchComputers() ([]ComputerEntry, error) {
	filter := ldaphelpers.Eq("objectClass", "computer").String()

	entries, err := ad.searchSubtree(ad.BaseDN, filter, computerAttributes)
	if err != nil {
		return nil, err
	}

	computers := make([]ComputerEntry, 0, len(entries))
	for _, entry := range entries {
		computer, err := computerFromEntry(entry)
		if err != nil {
			ad.logger.Warn("skipping malformed computer entry", zap.String("dn", entry.DN), zap.Error(err))
			continue
		}
		computers = append(computers, computer)
	}
	return computers, nil
}

// FetchDisabledUsers scans the dedicated disabled container. This pass is
// independent of the enabled-user scan.
func (ad *Instance) FetchDisabledUsers(container string) ([]DisabledEntry, error) {
	filter := ldaphelpers.And(
		ldaphelpers.Eq("objectCategory", "person"),
		ldaphelpers.Eq("objectClass", "user"),
	).String()

	entries, err := ad.searchSubtree(container, filter, disabledAttributes)
	if err != nil {
		return nil, err
	}

	disabled := make([]DisabledEntry, 0, len(entries))
	for _, entry := range entries {
		d, err := disabledFromEntry(entry)
		if err != nil {
			ad.logger.Warn("skipping malformed disabled entry", zap.String("dn", entry.DN), zap.Error(err))
			continue
		}
		disabled = append(disabled, d)
	}
	return disabled, nil
}

// GroupsOfRef re-reads the object's memberOf list through its stable ref.
func (ad *Instance) GroupsOfRef(ref ObjectRef) ([]string, error) {
	entry, err := ad.searchOne(ref.GUIDDN(), ldap.ScopeBaseObject, "(objectClass=*)", []string{"memberOf"})
	if err != nil {
		return nil, err
	}
	return entry.GetAttributeValues("memberOf"), nil
}

// AccountNameExists reports whether any object already owns the logon name.
func (ad *Instance) AccountNameExists(accountName string) (bool, error) {
	filter := ldaphelpers.EqEscaped("sAMAccountName", accountName).String()

	_, err := ad.searchOne(ad.BaseDN, ldap.ScopeWholeSubtree, filter, []string{"objectGUID"})
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("duplicate check for %s: %w", accountName, err)
	}
	return true, nil
}
