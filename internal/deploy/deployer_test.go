package deploy_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/simrun/internal/config"
	"github.com/imamik/simrun/internal/deploy"
	"github.com/imamik/simrun/internal/provider"
	simtest "github.com/imamik/simrun/internal/testing"
	"github.com/imamik/simrun/internal/util/labels"
)

type machine struct {
	name     string
	settings config.MachineConfig
	running  bool
}

func (m *machine) FullName() string               { return m.name }
func (m *machine) Settings() config.MachineConfig { return m.settings }
func (m *machine) SetRunning(running bool)        { m.running = running }

func newMachine(t *testing.T) *machine {
	return &machine{
		name: "sim-default-0a1b2c3d",
		settings: config.MachineConfig{
			Image:       "ubuntu-24.04",
			DiskSize:    50,
			Zone:        "nbg1",
			Network:     "sim-net",
			Type:        "cpx31",
			StartupPath: filepath.Join(t.TempDir(), "startup.sh"),
		},
	}
}

func TestCreateInstance(t *testing.T) {
	fx := simtest.NewProviderFixture()
	m := newMachine(t)
	require.NoError(t, os.WriteFile(m.settings.StartupPath, []byte("#!/bin/bash\nrun-simulation\n"), 0o600))

	d := deploy.New(fx.Cloud, m,
		deploy.WithMetadata(map[string]string{"job_id": "j1"}),
		deploy.WithLabels(map[string]string{labels.KeyJob: "j1"}),
	)
	require.NoError(t, d.CreateInstance(context.Background()))

	assert.True(t, m.running)
	assert.NoError(t, d.LastError())
	assert.Equal(t, []string{"disk/sim-default-0a1b2c3d", "instance/sim-default-0a1b2c3d"}, fx.Compute.Resources())

	userData := fx.Compute.UserData(m.name)
	assert.Contains(t, userData, "#!/bin/bash\n")
	assert.Contains(t, userData, "SIMRUN_JOB_ID='j1'\n")
	assert.Contains(t, userData, "run-simulation\n")

	instances, err := deploy.InstanceList(context.Background(), fx.Cloud)
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, "j1", instances[0].Labels[labels.KeyJob])
	assert.Equal(t, labels.ManagedBySimrun, instances[0].Labels[labels.KeyManagedBy])
}

func TestCreateInstance_WithoutStartupScript(t *testing.T) {
	fx := simtest.NewProviderFixture()
	m := newMachine(t)

	require.NoError(t, deploy.New(fx.Cloud, m).CreateInstance(context.Background()))
	assert.Equal(t, "#!/bin/sh\n", fx.Compute.UserData(m.name))
}

func TestCreateInstance_Failures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(fx *simtest.ProviderFixture, m *machine)
		wantIs error
	}{
		{
			name: "duplicate name",
			setup: func(fx *simtest.ProviderFixture, m *machine) {
				fx.Compute.AddInstance(m.name, nil)
			},
			wantIs: provider.ErrDuplicateName,
		},
		{
			name: "unknown zone",
			setup: func(_ *simtest.ProviderFixture, m *machine) {
				m.settings.Zone = "mars1"
			},
			wantIs: provider.ErrNotFound,
		},
		{
			name: "instance creation fails",
			setup: func(fx *simtest.ProviderFixture, _ *machine) {
				fx.Compute.FailOn(simtest.OpCreateInstance, errors.New("server limit reached"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := simtest.NewProviderFixture()
			m := newMachine(t)
			tt.setup(fx, m)
			before := fx.Compute.Resources()

			d := deploy.New(fx.Cloud, m)
			err := d.CreateInstance(context.Background())

			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			assert.False(t, m.running)
			assert.Equal(t, err, d.LastError())
			assert.Equal(t, before, fx.Compute.Resources())
		})
	}
}

func TestCreateInstance_UnreadableStartupScript(t *testing.T) {
	fx := simtest.NewProviderFixture()
	m := newMachine(t)
	m.settings.StartupPath = t.TempDir()

	d := deploy.New(fx.Cloud, m)
	err := d.CreateInstance(context.Background())

	assert.ErrorContains(t, err, "failed to read startup script")
	assert.Equal(t, 0, fx.Compute.Calls(simtest.OpCreateDisk))
}

func TestRemoveInstance(t *testing.T) {
	fx := simtest.NewProviderFixture()
	m := newMachine(t)
	d := deploy.New(fx.Cloud, m)
	ctx := context.Background()

	require.NoError(t, d.CreateInstance(ctx))
	require.NoError(t, d.RemoveInstance(ctx))

	assert.False(t, m.running)
	assert.Empty(t, fx.Compute.Resources())
}

func TestRemoveInstance_AlreadyGone(t *testing.T) {
	fx := simtest.NewProviderFixture()
	m := newMachine(t)
	m.running = true

	require.NoError(t, deploy.New(fx.Cloud, m).RemoveInstance(context.Background()))
	assert.False(t, m.running)
}

func TestRemoveInstance_Failure(t *testing.T) {
	fx := simtest.NewProviderFixture()
	m := newMachine(t)
	d := deploy.New(fx.Cloud, m)
	ctx := context.Background()

	require.NoError(t, d.CreateInstance(ctx))
	fx.Compute.FailOn(simtest.OpDeleteInstance, errors.New("locked"))

	err := d.RemoveInstance(ctx)
	assert.ErrorContains(t, err, "failed to remove instance")
	assert.True(t, m.running)
	assert.Equal(t, err, d.LastError())
}
