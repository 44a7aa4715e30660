package workflows

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncUserGroupsDiff(t *testing.T) {
	h := newHarness(t)
	finance := h.ad.addGroup("Financeiro")
	sales := h.ad.addGroup("Vendas")
	h.ad.addGroup("TI")
	primary := h.ad.addGroup("Domain Users")
	h.ad.addUser("alice", finance.Ref.LastKnownDN, sales.Ref.LastKnownDN, primary.Ref.LastKnownDN)

	result, err := h.svc.SyncUserGroups(context.Background(), adminCreds, "alice",
		[]string{"Vendas", "TI"}, ScalarUpdates{}, "admin")
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	// Map iteration order is not fixed, but here each side of the diff has
	// exactly one entry: drop Financeiro, join TI, keep Vendas, never touch
	// the primary group.
	assert.Equal(t, []string{"member:remove:Financeiro", "member:add:TI"}, h.ad.calls)
}

func TestSyncUserGroupsSecondRunIsNoop(t *testing.T) {
	h := newHarness(t)
	finance := h.ad.addGroup("Financeiro")
	sales := h.ad.addGroup("Vendas")
	h.ad.addUser("alice", finance.Ref.LastKnownDN, sales.Ref.LastKnownDN)

	// First run already converged: desired equals current.
	result, err := h.svc.SyncUserGroups(context.Background(), adminCreds, "alice",
		[]string{"Financeiro", "Vendas"}, ScalarUpdates{}, "admin")
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, h.ad.calls, "converged input issues zero membership operations")
}

func TestSyncUserGroupsScalarUpdates(t *testing.T) {
	h := newHarness(t)
	h.ad.addUser("alice")

	_, err := h.svc.SyncUserGroups(context.Background(), adminCreds, "alice", nil,
		ScalarUpdates{DisplayName: "Alice A.", Seniority: "Senior"}, "admin")
	require.NoError(t, err)

	require.Len(t, h.ad.calls, 1)
	assert.Equal(t, "modify:displayName,employeeType", h.ad.calls[0],
		"empty scalars are left out, set ones go in one modify")
}

func TestSyncUserGroupsScalarFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.ad.addUser("alice")
	h.ad.modifyErr = errors.New("constraint violation")

	_, err := h.svc.SyncUserGroups(context.Background(), adminCreds, "alice", nil,
		ScalarUpdates{Description: "x"}, "admin")
	require.Error(t, err)
	assert.Empty(t, h.sink.successes())
}

func TestSyncUserGroupsRemovalsBeforeAdditions(t *testing.T) {
	h := newHarness(t)
	old1 := h.ad.addGroup("OldA")
	old2 := h.ad.addGroup("OldB")
	h.ad.addGroup("NewA")
	h.ad.addGroup("NewB")
	h.ad.addUser("alice", old1.Ref.LastKnownDN, old2.Ref.LastKnownDN)

	_, err := h.svc.SyncUserGroups(context.Background(), adminCreds, "alice",
		[]string{"NewA", "NewB"}, ScalarUpdates{}, "admin")
	require.NoError(t, err)

	require.Len(t, h.ad.calls, 4)
	removes := h.ad.calls[:2]
	adds := h.ad.calls[2:]
	sort.Strings(removes)
	sort.Strings(adds)
	assert.Equal(t, []string{"member:remove:OldA", "member:remove:OldB"}, removes)
	assert.Equal(t, []string{"member:add:NewA", "member:add:NewB"}, adds)
}

func TestSyncUserGroupsTolerantMembershipFailures(t *testing.T) {
	h := newHarness(t)
	old := h.ad.addGroup("OldA")
	h.ad.addGroup("NewA")
	h.ad.addUser("alice", old.Ref.LastKnownDN)
	h.ad.memberErr["OldA"] = errors.New("insufficient rights")

	result, err := h.svc.SyncUserGroups(context.Background(), adminCreds, "alice",
		[]string{"NewA"}, ScalarUpdates{}, "admin")
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "OldA")
	assert.Contains(t, h.ad.calls, "member:add:NewA", "the addition still happens")
}
