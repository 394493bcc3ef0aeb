package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot_Subcommands(t *testing.T) {
	root := Root()

	tests := []struct {
		path []string
	}{
		{[]string{"serve"}},
		{[]string{"job", "create"}},
		{[]string{"job", "start"}},
		{[]string{"job", "stop"}},
		{[]string{"job", "restart"}},
		{[]string{"job", "perform"}},
		{[]string{"job", "show"}},
		{[]string{"job", "list"}},
		{[]string{"job", "report"}},
		{[]string{"job", "results"}},
		{[]string{"job", "upload-url"}},
		{[]string{"job", "delete-results"}},
		{[]string{"instances", "list"}},
		{[]string{"catalog", "images"}},
		{[]string{"catalog", "zones"}},
		{[]string{"catalog", "types"}},
		{[]string{"version"}},
	}
	for _, tt := range tests {
		cmd, rest, err := root.Find(tt.path)
		require.NoError(t, err, tt.path)
		assert.Empty(t, rest)
		assert.Equal(t, tt.path[len(tt.path)-1], cmd.Name())
	}
}

func TestRoot_ConfigFlag(t *testing.T) {
	flag := Root().PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestJobCreate_RequiresFlags(t *testing.T) {
	root := Root()
	root.SetArgs([]string{"job", "create", "--project", "p1"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	assert.ErrorContains(t, err, `required flag(s) "user" not set`)
}

func TestJobEvent_Args(t *testing.T) {
	tests := []struct {
		name    string
		cmd     *cobra.Command
		args    []string
		wantErr bool
	}{
		{"start needs job", jobEvent("start", "start", ""), nil, true},
		{"start with job", jobEvent("start", "start", ""), []string{"j1"}, false},
		{"perform with event", jobPerform(), []string{"j1", "render"}, false},
		{"perform too many", jobPerform(), []string{"j1", "render", "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cmd.Args(tt.cmd, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVersion_Output(t *testing.T) {
	orig := build
	t.Cleanup(func() { build = orig })
	SetBuildInfo(BuildInfo{Version: "1.2.3", Commit: "abc123", Date: "2026-01-01"})

	tests := []struct {
		args []string
		want string
	}{
		{[]string{}, "simrun 1.2.3 (commit abc123, built 2026-01-01)\n"},
		{[]string{"--short"}, "1.2.3\n"},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		cmd := Version()
		cmd.SetOut(&out)
		cmd.SetArgs(tt.args)
		require.NoError(t, cmd.Execute())
		assert.Equal(t, tt.want, out.String())
	}
}
