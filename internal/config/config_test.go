package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const minimalYAML = `
global_settings:
  capture:
    pcap_prefix: run1
  attack:
    burst_duration_s: 2
    target_switch_duration_s: 0.5
    attack_vectors:
      - type: udp_flooding
        packet_size: 1000
        data_rate: "1Mbps"
  scheduling:
    simulation_duration_s: 60
  autonomous_systems_connections:
    network_address: 172.16.0.0
    network_mask: 12
central_network:
  topology_seed: 47
  network_address: 10.0.0.0
  network_mask: 16
  degree_of_redundancy: 0
  nodes:
    - id: t0
    - id: t1
    - id: t2
    - id: t3
autonomous_systems:
  - id: as0
    network_address: 192.168.0.0
    attachment:
      central_network_attachment_node: t0
target_server_nodes:
  - id: victim0
    owner_as: as0
attacker_nodes:
  - id: atk0
    owner_as: as0
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MinimalConfigParsesAndApplyDefaults(t *testing.T) {
	path := writeTemp(t, minimalYAML)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "run1", cfg.GlobalSettings.Capture.PcapPrefix)
	require.Equal(t, DefaultASBandwidth, cfg.AutonomousSystems[0].Bandwidth)
	require.Equal(t, DefaultASNetworkMask, cfg.AutonomousSystems[0].NetworkMask)
	require.NotNil(t, cfg.AttackerNodes[0].SourcePort)
	require.Equal(t, InheritPort, *cfg.AttackerNodes[0].SourcePort)
}

func TestValidate_UnknownOwnerASIsFatal(t *testing.T) {
	bad := minimalYAML + "\nbenign_client_nodes:\n  - id: b0\n    owner_as: ghost\n    peer: victim0\n"
	path := writeTemp(t, bad)

	_, err := Load(path)
	require.ErrorContains(t, err, "ghost")
}

func TestValidate_UnknownVectorTypeIsFatal(t *testing.T) {
	bad := `
global_settings:
  attack:
    attack_vectors:
      - type: not_a_real_vector
  scheduling:
    simulation_duration_s: 10
central_network:
  nodes:
    - id: t0
    - id: t1
target_server_nodes:
  - id: v0
    owner_as: as0
autonomous_systems:
  - id: as0
    attachment:
      central_network_attachment_node: t0
`
	path := writeTemp(t, bad)

	_, err := Load(path)
	require.ErrorContains(t, err, "not_a_real_vector")
}

func TestValidate_PortOutOfRangeIsFatal(t *testing.T) {
	bad := strings.Replace(minimalYAML,
		"  - id: atk0\n    owner_as: as0\n",
		"  - id: atk0\n    owner_as: as0\n    source_port: 70000\n", 1)
	path := writeTemp(t, bad)

	_, err := Load(path)
	require.ErrorContains(t, err, "out of range")
}

func TestParseDataRate(t *testing.T) {
	cases := map[string]float64{
		"1Mbps":   1e6,
		"10Gbps":  1e10,
		"500Kbps": 5e5,
		"200bps":  200,
	}
	for in, want := range cases {
		got, err := ParseDataRate(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}
