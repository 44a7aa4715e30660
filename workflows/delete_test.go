package workflows

import (
	"context"
	"testing"

	"f0oster/adwarden/activedirectory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteUserThenDeleteAgain(t *testing.T) {
	h := newHarness(t)
	h.ad.addUser("alice")

	first, err := h.svc.DeleteUser(context.Background(), adminCreds, "alice", "admin")
	require.NoError(t, err)
	assert.True(t, first.Found)
	assert.Contains(t, h.ad.calls, "delete:recursive=false")

	delete(h.ad.users, "alice")
	h.ad.calls = nil

	second, err := h.svc.DeleteUser(context.Background(), adminCreds, "alice", "admin")
	require.NoError(t, err, "deleting an absent user is a success")
	assert.False(t, second.Found)
	assert.Empty(t, h.ad.calls, "no directory mutation on the second run")

	assert.Equal(t, []string{"alice", "alice"}, h.mirror.deletedUsers, "mirror cleanup runs on both passes")
	assert.Equal(t, []string{"alice", "alice"}, h.mirror.deletedDisabled)
	assert.Len(t, h.sink.successes(), 2)
}

func TestDeleteComputerUsesSubtreeDelete(t *testing.T) {
	h := newHarness(t)
	h.ad.computers["WS-01"] = &activedirectory.ComputerEntry{
		Ref:      activedirectory.ObjectRef{ObjectGUID: uuid.New(), LastKnownDN: "CN=WS-01,OU=Machines,DC=corp,DC=test"},
		Hostname: "WS-01",
	}

	result, err := h.svc.DeleteComputer(context.Background(), adminCreds, "WS-01", "admin")
	require.NoError(t, err)
	assert.True(t, result.Found)
	assert.Contains(t, h.ad.calls, "delete:recursive=true")
	assert.Equal(t, []string{"WS-01"}, h.mirror.deletedMachines)
}

func TestDeleteComputerMissingIsSuccess(t *testing.T) {
	h := newHarness(t)

	result, err := h.svc.DeleteComputer(context.Background(), adminCreds, "WS-99", "admin")
	require.NoError(t, err)
	assert.False(t, result.Found)
	assert.Empty(t, h.ad.calls)
	assert.Equal(t, []string{"WS-99"}, h.mirror.deletedMachines)
}
