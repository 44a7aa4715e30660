package activedirectory

import (
	"fmt"
	"strconv"
	"unicode/utf16"

	"github.com/go-ldap/ldap/v3"
	"go.uber.org/zap"
)

// MembershipOp selects the direction of a group membership change.
type MembershipOp int

const (
	AddMember MembershipOp = iota
	RemoveMember
)

func (op MembershipOp) String() string {
	if op == AddMember {
		return "add"
	}
	return "remove"
}

// treeDeleteOID requests server-side subtree deletion. Computer objects can
// own child objects, so deleting them needs this control.
const treeDeleteOID = "1.2.840.113556.1.4.805"

// AttributeChange is one replace operation inside a modify request.
type AttributeChange struct {
	Name   string
	Values []string
}

// ModifyAttributes replaces the given attributes in a single modify request,
// addressed by stable ref so the object is found even if it was renamed or
// moved earlier in the same workflow.
func (ad *Instance) ModifyAttributes(ref ObjectRef, changes []AttributeChange) error {
	if len(changes) == 0 {
		return nil
	}

	request := ldap.NewModifyRequest(ref.GUIDDN(), nil)
	for _, change := range changes {
		request.Replace(change.Name, change.Values)
	}

	if err := ad.ldapConnection.Modify(request); err != nil {
		return classifyError("modify "+ref.String(), err)
	}
	return nil
}

// MoveObject relocates the object under newParent. The current DN is
// re-resolved through the GUID first; the DN captured at workflow start must
// not be trusted here.
func (ad *Instance) MoveObject(ref ObjectRef, newParent string) error {
	currentDN, err := ad.ResolveDN(ref)
	if err != nil {
		return fmt.Errorf("resolve before move: %w", err)
	}

	parsed, err := ldap.ParseDN(currentDN)
	if err != nil || len(parsed.RDNs) == 0 {
		return fmt.Errorf("unparseable DN %q", currentDN)
	}
	rdnAttr := parsed.RDNs[0].Attributes[0]
	rdn := fmt.Sprintf("%s=%s", rdnAttr.Type, ldap.EscapeDN(rdnAttr.Value))

	request := ldap.NewModifyDNRequest(currentDN, rdn, true, newParent)
	if err := ad.ldapConnection.ModifyDN(request); err != nil {
		return classifyError("move "+ref.String(), err)
	}

	ad.logger.Info("moved directory object",
		zap.String("from", currentDN),
		zap.String("to", newParent))
	return nil
}

// DeleteObject removes the object, optionally with its whole subtree.
func (ad *Instance) DeleteObject(ref ObjectRef, recursive bool) error {
	currentDN, err := ad.ResolveDN(ref)
	if err != nil {
		return fmt.Errorf("resolve before delete: %w", err)
	}

	var controls []ldap.Control
	if recursive {
		controls = append(controls, ldap.NewControlString(treeDeleteOID, true, ""))
	}

	request := ldap.NewDelRequest(currentDN, controls)
	if err := ad.ldapConnection.Del(request); err != nil {
		return classifyError("delete "+ref.String(), err)
	}
	return nil
}

// ModifyGroupMember adds or removes one member of a group. Already-satisfied
// outcomes (ADD of an existing member, REMOVE of an absent one) are success.
func (ad *Instance) ModifyGroupMember(group ObjectRef, memberDN string, op MembershipOp) error {
	request := ldap.NewModifyRequest(group.GUIDDN(), nil)
	switch op {
	case AddMember:
		request.Add("member", []string{memberDN})
	case RemoveMember:
		request.Delete("member", []string{memberDN})
	}

	err := ad.ldapConnection.Modify(request)
	if err == nil {
		return nil
	}
	if membershipSatisfied(op, err) {
		ad.logger.Debug("group membership already satisfied",
			zap.String("group", group.String()),
			zap.String("member", memberDN),
			zap.Stringer("op", op))
		return nil
	}
	return classifyError(fmt.Sprintf("%s member on %s", op, group.String()), err)
}

// NewUserShell is the identity half of account creation. The shell is
// created disabled; EnableUserAccount supplies the credential and flips it
// on. The window between the two calls can only ever expose a disabled
// account without a password.
type NewUserShell struct {
	AccountName string
	UPNSuffix   string
	DisplayName string
	GivenName   string
	Surname     string
	Mail        string
	Title       string
	Department  string
}

// CreateUserShell performs phase one of account creation under container.
func (ad *Instance) CreateUserShell(container string, shell NewUserShell) (ObjectRef, error) {
	dn := fmt.Sprintf("CN=%s,%s", ldap.EscapeDN(shell.DisplayName), container)

	request := ldap.NewAddRequest(dn, nil)
	request.Attribute("objectClass", []string{"top", "person", "organizationalPerson", "user"})
	request.Attribute("cn", []string{shell.DisplayName})
	request.Attribute("sAMAccountName", []string{shell.AccountName})
	request.Attribute("userPrincipalName", []string{shell.AccountName + "@" + shell.UPNSuffix})
	request.Attribute("displayName", []string{shell.DisplayName})
	request.Attribute("userAccountControl", []string{strconv.Itoa(UACNormalAccount | UACAccountDisabled)})
	if shell.GivenName != "" {
		request.Attribute("givenName", []string{shell.GivenName})
	}
	if shell.Surname != "" {
		request.Attribute("sn", []string{shell.Surname})
	}
	if shell.Mail != "" {
		request.Attribute("mail", []string{shell.Mail})
	}
	if shell.Title != "" {
		request.Attribute("title", []string{shell.Title})
	}
	if shell.Department != "" {
		request.Attribute("department", []string{shell.Department})
	}

	if err := ad.ldapConnection.Add(request); err != nil {
		return ObjectRef{}, classifyError("create "+dn, err)
	}

	entry, err := ad.searchOne(dn, ldap.ScopeBaseObject, "(objectClass=*)", []string{"objectGUID"})
	if err != nil {
		return ObjectRef{}, fmt.Errorf("resolve created object %s: %w", dn, err)
	}
	return refFromEntry(entry)
}

// EnableUserAccount is phase two: set the credential and enable in one
// modify, optionally forcing rotation at first logon.
func (ad *Instance) EnableUserAccount(ref ObjectRef, password string, forceChange bool) error {
	request := ldap.NewModifyRequest(ref.GUIDDN(), nil)
	request.Replace("unicodePwd", []string{encodePassword(password)})
	request.Replace("userAccountControl", []string{strconv.Itoa(UACNormalAccount)})
	if forceChange {
		request.Replace("pwdLastSet", []string{"0"})
	}

	if err := ad.ldapConnection.Modify(request); err != nil {
		return classifyError("enable "+ref.String(), err)
	}
	return nil
}

// UnlockAccount clears the lockout counter.
func (ad *Instance) UnlockAccount(ref ObjectRef) error {
	return ad.ModifyAttributes(ref, []AttributeChange{{Name: "lockoutTime", Values: []string{"0"}}})
}

// encodePassword produces the UTF-16LE quoted form unicodePwd requires.
func encodePassword(password string) string {
	encoded := utf16.Encode([]rune(`"` + password + `"`))
	buf := make([]byte, 0, len(encoded)*2)
	for _, r := range encoded {
		buf = append(buf, byte(r), byte(r>>8))
	}
	return string(buf)
}
