package users

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/foxter/foxter/internal/sysexec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passwd = `# local accounts
root:x:0:0:root:/root:/bin/bash
daemon:x:1:1:daemon:/usr/sbin:/usr/sbin/nologin

alice:x:1000:1000:Alice:/home/alice:/bin/bash
+nisuser::::::
mallory:x:1001:1001::/home/mallory:/bin/sh
`

func TestParsePasswd(t *testing.T) {
	names, err := parsePasswd(strings.NewReader(passwd))
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "daemon", "alice", "mallory"}, names)
}

func TestList_Linux(t *testing.T) {
	dir := t.TempDir()
	pw := filepath.Join(dir, "passwd")
	require.NoError(t, os.WriteFile(pw, []byte(passwd), 0o644))
	home := filepath.Join(dir, "home")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stamps := map[string]time.Time{
		filepath.Join(home, "alice"):   now.Add(-30 * 24 * time.Hour),
		filepath.Join(home, "mallory"): now.Add(-2 * time.Hour),
	}
	m := NewManager("linux", &sysexec.Fake{})
	m.PasswdPath = pw
	m.HomeBase = home
	m.Now = func() time.Time { return now }
	m.ctime = func(p string) (time.Time, error) {
		if ts, ok := stamps[p]; ok {
			return ts, nil
		}
		return time.Time{}, &os.PathError{Op: "stat", Path: p, Err: os.ErrNotExist}
	}

	got, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Account{
		{Name: "alice", Home: filepath.Join(home, "alice")},
		{Name: "daemon"},
		{Name: "mallory", Home: filepath.Join(home, "mallory"), Recent: true},
		{Name: "root"},
	}, got)
}

func TestList_RealHomeStamp(t *testing.T) {
	dir := t.TempDir()
	pw := filepath.Join(dir, "passwd")
	require.NoError(t, os.WriteFile(pw, []byte("newbie:x:1002:1002::/home/newbie:/bin/sh\n"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "newbie"), 0o755))

	m := NewManager("linux", &sysexec.Fake{})
	m.PasswdPath = pw
	m.HomeBase = dir

	got, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Recent)
}

func TestList_Darwin(t *testing.T) {
	fake := &sysexec.Fake{Outputs: map[string]string{
		"dscl . -list /Users": "_spotlight\nbob\nalice\n\n",
	}}
	m := NewManager("darwin", fake)
	m.HomeBase = t.TempDir()
	got, err := m.List(context.Background())
	require.NoError(t, err)
	var names []string
	for _, a := range got {
		names = append(names, a.Name)
		assert.False(t, a.Recent)
	}
	assert.Equal(t, []string{"_spotlight", "alice", "bob"}, names)
}

func TestList_Windows(t *testing.T) {
	base := t.TempDir()
	for _, d := range []string{"Public", "Default", "carol"} {
		require.NoError(t, os.Mkdir(filepath.Join(base, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(base, "desktop.ini"), nil, 0o644))
	m := NewManager("windows", &sysexec.Fake{})
	m.HomeBase = base
	m.Now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	got, err := m.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "carol", got[0].Name)
	assert.False(t, got[0].Recent)
}

func TestList_Unsupported(t *testing.T) {
	_, err := NewManager("plan9", &sysexec.Fake{}).List(context.Background())
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"linux", "userdel -r mallory"},
		{"darwin", "sysadminctl -deleteUser mallory"},
		{"windows", "net user mallory /delete"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			fake := &sysexec.Fake{}
			require.NoError(t, NewManager(tt.goos, fake).Delete(context.Background(), "mallory"))
			assert.Equal(t, []string{tt.want}, fake.Commands())
		})
	}
}

func TestDelete_Rejected(t *testing.T) {
	tests := []struct {
		name string
		user string
		is   error
	}{
		{name: "option injection", user: "-rf"},
		{name: "shell metacharacters", user: "bob;reboot"},
		{name: "empty", user: ""},
		{name: "root", user: "root", is: ErrProtected},
		{name: "administrator", user: "Administrator", is: ErrProtected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &sysexec.Fake{}
			err := NewManager("linux", fake).Delete(context.Background(), tt.user)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			assert.Empty(t, fake.Commands())
		})
	}
}

func TestDelete_ToolFailure(t *testing.T) {
	cause := errors.New("exit status 6")
	fake := &sysexec.Fake{Errors: map[string]error{"userdel -r bob": cause}}
	err := NewManager("linux", fake).Delete(context.Background(), "bob")
	assert.ErrorIs(t, err, cause)
}
