package pvecontrol

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yndnr/pveapi-go/internal/telemetry/logger"
	"github.com/yndnr/pveapi-go/pkg/pveapi"
)

type fakeAPI struct {
	users    []pveapi.User
	acl      []pveapi.ACLEntry
	usersErr error
	aclErr   error
	calls    int
}

func (f *fakeAPI) ListUsers(context.Context) ([]pveapi.User, error) {
	f.calls++
	return f.users, f.usersErr
}

func (f *fakeAPI) ListACL(context.Context) ([]pveapi.ACLEntry, error) {
	f.calls++
	return f.acl, f.aclErr
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		users: []pveapi.User{
			{UserID: "root@pam", Enable: true},
			{UserID: "bob@pve", Enable: true, Email: "bob@example.com"},
			{UserID: "eve@pve", Enable: false},
		},
		acl: []pveapi.ACLEntry{
			{Path: "/vms/100", RoleID: "PVEVMUser", Type: "user", UGID: "bob@pve", Propagate: true},
			{Path: "/VMS/200", RoleID: "PVEVMAdmin", Type: "user", UGID: "bob@pve"},
			{Path: "/storage/local", RoleID: "PVEDatastoreUser", Type: "user", UGID: "bob@pve"},
			{Path: "/vms/300", RoleID: "PVEVMUser", Type: "group", UGID: "ops"},
			{Path: "/vms/400", RoleID: "PVEVMUser", Type: "user", UGID: "bob@pve2"},
		},
	}
}

func TestController_SetUser(t *testing.T) {
	api := newFakeAPI()
	c := New(api, logger.Discard())

	s, err := c.SetUser(context.Background(), " bob@pve ")
	require.NoError(t, err)
	require.Equal(t, "bob@pve", s.UserID)
	require.True(t, s.Enabled)
	require.Equal(t, "bob@example.com", s.Config.Email)

	require.Len(t, s.ACLVMs, 3)
	require.Equal(t, "100", s.ACLVMs[0].VMID)
	require.Equal(t, "PVEVMUser", s.ACLVMs[0].RoleID)
	require.Equal(t, "200", s.ACLVMs[1].VMID, "prefix removal is case-insensitive")
	require.Equal(t, "/storage/local", s.ACLVMs[2].VMID, "non-VM paths pass through unchanged")

	cached, ok := c.User("bob@pve ")
	require.True(t, ok)
	require.Same(t, s, cached)
	require.Equal(t, []string{"bob@pve"}, c.Users())
}

func TestController_SetUserDisabled(t *testing.T) {
	c := New(newFakeAPI(), logger.Discard())

	s, err := c.SetUser(context.Background(), "eve@pve")
	require.NoError(t, err)
	require.False(t, s.Enabled)
	require.Empty(t, s.ACLVMs)
}

func TestController_SetUserNotFound(t *testing.T) {
	api := newFakeAPI()
	c := New(api, logger.Discard())

	_, err := c.SetUser(context.Background(), "ghost@pve")
	require.ErrorIs(t, err, ErrUserNotFound)
	require.Equal(t, 1, api.calls, "ACL must not be fetched for an unknown user")

	_, ok := c.User("ghost@pve")
	require.False(t, ok)
}

func TestController_SetUserAPIErrors(t *testing.T) {
	ctx := context.Background()

	api := newFakeAPI()
	api.usersErr = pveapi.ErrNotAuthenticated
	_, err := New(api, logger.Discard()).SetUser(ctx, "bob@pve")
	require.ErrorIs(t, err, pveapi.ErrNotAuthenticated)

	api = newFakeAPI()
	api.aclErr = &pveapi.RejectedError{StatusCode: 403, StatusLine: "HTTP/1.1 403 Permission check failed"}
	c := New(api, logger.Discard())
	_, err = c.SetUser(ctx, "bob@pve")
	require.ErrorIs(t, err, pveapi.ErrRequestRejected)
	require.Empty(t, c.Users())
}

func TestController_Forget(t *testing.T) {
	c := New(newFakeAPI(), logger.Discard())
	_, err := c.SetUser(context.Background(), "root@pam")
	require.NoError(t, err)

	require.True(t, c.Forget("root@pam"))
	require.False(t, c.Forget("root@pam"))
	_, ok := c.User("root@pam")
	require.False(t, ok)
}

func TestGeneratePassword(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, DefaultPasswordLength},
		{-3, DefaultPasswordLength},
		{1, 1},
		{32, 32},
	}
	for _, tt := range tests {
		p, err := GeneratePassword(tt.in)
		require.NoError(t, err)
		require.Len(t, p, tt.want)
		for _, r := range p {
			require.True(t, strings.ContainsRune(PasswordAlphabet, r), "unexpected %q", r)
		}
	}
}

func TestGeneratePassword_Distinct(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p, err := GeneratePassword(16)
		require.NoError(t, err)
		require.False(t, seen[p])
		seen[p] = true
	}
}
