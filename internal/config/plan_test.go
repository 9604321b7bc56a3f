package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	cfg, err := Load(New(writeConfig(t, sampleConfig)))
	require.NoError(t, err)

	plan, err := cfg.Plan()
	require.NoError(t, err)
	require.Equal(t, []PlanEntry{
		{Name: "/dev/ttyS1", Role: "master", BaudRate: 9600},
		{Name: "/dev/ttyS1.modem", Role: "virtual", Master: "/dev/ttyS1", BaudRate: 9600, Writer: true},
		{Name: "/dev/ttyS1.logger", Role: "virtual", Master: "/dev/ttyS1", BaudRate: 115200},
		{Name: "/dev/ttyUSB0", Role: "master", BaudRate: 115200},
	}, plan)
}

func TestPlan_MissingSuffix(t *testing.T) {
	cfg := &Config{Masters: []MasterConfig{{
		Device:   "/dev/ttyS1",
		BaudRate: 9600,
		Virtuals: []VirtualConfig{{}},
	}}}
	_, err := cfg.Plan()
	require.Error(t, err)
}

func TestVirtuals(t *testing.T) {
	cfg, err := Load(New(writeConfig(t, sampleConfig)))
	require.NoError(t, err)

	require.Equal(t, []string{"/dev/ttyS1.modem", "/dev/ttyS1.logger"}, cfg.Virtuals("/dev/ttyS1"))
	require.Empty(t, cfg.Virtuals("/dev/ttyUSB0"))
	require.Nil(t, cfg.Virtuals("/dev/ttyS9"))
}
