package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestRootCmd_FlagDefaults(t *testing.T) {
	// GIVEN the root command with its registered flags
	// WHEN we check the default values
	// THEN they match the documented CLI surface
	cases := []struct {
		name     string
		defValue string
	}{
		{"configFile", ""},
		{"printConfiguration", "false"},
		{"printTopology", "true"},
		{"progressLogInterval", "15"},
		{"log", "info"},
		{"numWorkers", "1"},
		{"workerId", "0"},
	}
	for _, c := range cases {
		flag := rootCmd.Flags().Lookup(c.name)
		assert.NotNil(t, flag, "%s flag must be registered", c.name)
		if flag == nil {
			continue
		}
		assert.Equal(t, c.defValue, flag.DefValue, "default for --%s", c.name)
	}
}

func TestRootCmd_ConfigFileIsRequired(t *testing.T) {
	flag := rootCmd.Flags().Lookup("configFile")
	assert.NotNil(t, flag)
	required, ok := flag.Annotations[cobra.BashCompOneRequiredFlag]
	assert.True(t, ok, "configFile must carry cobra's required annotation")
	assert.Equal(t, []string{"true"}, required)
}
