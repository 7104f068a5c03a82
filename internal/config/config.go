// Package config loads and validates the YAML scenario configuration:
// os.ReadFile + yaml.Unmarshal into a tree of tagged structs, with a
// Validate() method that names the offending entity id on every fatal
// violation.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Vector type names accepted in global_settings.attack.attack_vectors[].type.
const (
	VectorUDPFlooding    = "udp_flooding"
	VectorICMPFlooding   = "icmp_flooding"
	VectorTCPSynFlooding = "tcp_syn_flooding"
)

// InheritPort and RandomizePort are the two sentinel port-policy values;
// any other value in [0, 65535] is used verbatim.
const (
	InheritPort   = -2
	RandomizePort = -1
)

// Config is the top-level configuration tree.
type Config struct {
	GlobalSettings       GlobalSettings     `yaml:"global_settings"`
	CentralNetwork       CentralNetwork     `yaml:"central_network"`
	AutonomousSystems    []AutonomousSystem `yaml:"autonomous_systems"`
	TargetServerNodes    []ServerNode       `yaml:"target_server_nodes"`
	NonTargetServerNodes []ServerNode       `yaml:"non_target_server_nodes"`
	AttackerNodes        []AttackerNode     `yaml:"attacker_nodes"`
	BenignClientNodes    []BenignClientNode `yaml:"benign_client_nodes"`
}

// GlobalSettings groups the namespaced default blocks under
// global_settings.
type GlobalSettings struct {
	Capture                      CaptureSettings       `yaml:"capture"`
	Attack                       AttackSettings        `yaml:"attack"`
	Scheduling                   SchedulingSettings    `yaml:"scheduling"`
	AutonomousSystemsConnections ASConnectionsSettings `yaml:"autonomous_systems_connections"`
}

// CaptureSettings configures pcap output.
type CaptureSettings struct {
	PcapPrefix string `yaml:"pcap_prefix"`
}

// AttackSettings holds the vector list plus the global defaults every
// vector and attacker node falls back to through the
// vector_spec > attacker_node > global_default precedence chain.
type AttackSettings struct {
	BurstDurationS        float64        `yaml:"burst_duration_s"`
	TargetSwitchDurationS float64        `yaml:"target_switch_duration_s"`
	AttackVectors         []AttackVector `yaml:"attack_vectors"`

	// DefaultDataRate etc. are the "global_default" tier of the precedence
	// chain, so it has a concrete bottom rather than an implicit zero
	// value.
	DefaultDataRate               string   `yaml:"default_data_rate,omitempty"`
	DefaultPacketSize             int      `yaml:"default_packet_size,omitempty"`
	DefaultSourcePort             *int     `yaml:"default_source_port,omitempty"`
	DefaultDestinationPort        *int     `yaml:"default_destination_port,omitempty"`
	DefaultMaxDataRateFluctuation *float64 `yaml:"default_max_data_rate_fluctuation,omitempty"`

	// AllowUnreachableTargets makes a connect failure recoverable instead
	// of fatal.
	AllowUnreachableTargets bool `yaml:"allow_unreachable_targets,omitempty"`
}

// AttackVector is one entry of global_settings.attack.attack_vectors[].
type AttackVector struct {
	Type                   string   `yaml:"type"`
	BurstDurationS         *float64 `yaml:"burst_duration_s,omitempty"`
	TargetSwitchDurationS  *float64 `yaml:"target_switch_duration_s,omitempty"`
	DataRate               string   `yaml:"data_rate,omitempty"`
	PacketSize             int      `yaml:"packet_size,omitempty"`
	SourcePort             *int     `yaml:"source_port,omitempty"`
	DestinationPort        *int     `yaml:"destination_port,omitempty"`
	MaxDataRateFluctuation *float64 `yaml:"max_data_rate_fluctuation,omitempty"`
}

// SchedulingSettings holds the overall run duration.
type SchedulingSettings struct {
	SimulationDurationS float64 `yaml:"simulation_duration_s"`
}

// ASConnectionsSettings is the base CIDR inter-AS links draw subnets from.
type ASConnectionsSettings struct {
	NetworkAddress string `yaml:"network_address"`
	NetworkMask    int    `yaml:"network_mask"`
}

// CentralNetwork configures the transit network.
type CentralNetwork struct {
	TopologySeed       int64     `yaml:"topology_seed"`
	NetworkAddress     string    `yaml:"network_address"`
	NetworkMask        int       `yaml:"network_mask"`
	Bandwidth          string    `yaml:"bandwidth"`
	Delay              string    `yaml:"delay"`
	DegreeOfRedundancy float64   `yaml:"degree_of_redundancy"`
	Nodes              []NodeRef `yaml:"nodes"`
}

// NodeRef names a transit node by id.
type NodeRef struct {
	ID string `yaml:"id"`
}

// AutonomousSystem configures one AS.
type AutonomousSystem struct {
	ID             string     `yaml:"id"`
	NetworkAddress string     `yaml:"network_address"`
	NetworkMask    int        `yaml:"network_mask,omitempty"`
	Bandwidth      string     `yaml:"bandwidth,omitempty"`
	Delay          string     `yaml:"delay,omitempty"`
	Attachment     Attachment `yaml:"attachment"`
}

// Attachment configures the AS gateway's link into the transit network.
type Attachment struct {
	CentralNetworkAttachmentNode string `yaml:"central_network_attachment_node"`
	Bandwidth                    string `yaml:"bandwidth,omitempty"`
	Delay                        string `yaml:"delay,omitempty"`
}

// ServerNode configures a target or non-target server placement.
type ServerNode struct {
	ID             string `yaml:"id"`
	OwnerAS        string `yaml:"owner_as"`
	HTTPServerPort int    `yaml:"http_server_port,omitempty"`
}

// AttackerNode configures one attacker placement and its per-node
// overrides.
type AttackerNode struct {
	ID                     string   `yaml:"id"`
	OwnerAS                string   `yaml:"owner_as"`
	DataRate               string   `yaml:"data_rate,omitempty"`
	PacketSize             int      `yaml:"packet_size,omitempty"`
	SourcePort             *int     `yaml:"source_port,omitempty"`
	DestinationPort        *int     `yaml:"destination_port,omitempty"`
	MaxDataRateFluctuation *float64 `yaml:"max_data_rate_fluctuation,omitempty"`
}

// BenignClientNode configures a background-traffic HTTP client. The HTTP
// generator itself is an external collaborator, but its placement is still
// part of this system's node placement.
type BenignClientNode struct {
	ID              string   `yaml:"id"`
	OwnerAS         string   `yaml:"owner_as"`
	Peer            string   `yaml:"peer"`
	MaxReadingTimeS *float64 `yaml:"max_reading_time_s,omitempty"`
}

// Load reads and parses the YAML file at path, applies silent defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

// Dump re-serializes the configuration to YAML, for --printConfiguration;
// the dump shows silent defaults already applied.
func (c *Config) Dump() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("config: dump: %w", err)
	}
	return string(out), nil
}
