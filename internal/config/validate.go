package config

import "fmt"

// Validate enforces the fatal configuration checks: unknown owner_as, unknown
// peer, unknown attachment node, unknown vector type, or ports outside
// [-2, 65535]. Every error names the offending entity id, or the
// configuration key where no single entity is at fault.
func (c *Config) Validate() error {
	asIDs := map[string]bool{}
	for _, as := range c.AutonomousSystems {
		if as.ID == "" {
			return fmt.Errorf("autonomous_systems: entry with empty id")
		}
		if asIDs[as.ID] {
			return fmt.Errorf("autonomous_systems: duplicate id %q", as.ID)
		}
		asIDs[as.ID] = true
	}

	transitIDs := map[string]bool{}
	for _, n := range c.CentralNetwork.Nodes {
		transitIDs[n.ID] = true
	}
	if len(c.CentralNetwork.Nodes) < 2 {
		return fmt.Errorf("central_network: needs at least two nodes, got %d", len(c.CentralNetwork.Nodes))
	}
	if c.CentralNetwork.DegreeOfRedundancy < 0 {
		return fmt.Errorf("central_network: degree_of_redundancy must be >= 0, got %v", c.CentralNetwork.DegreeOfRedundancy)
	}

	for _, as := range c.AutonomousSystems {
		if !transitIDs[as.Attachment.CentralNetworkAttachmentNode] {
			return fmt.Errorf("autonomous_systems[%s]: unknown attachment node %q",
				as.ID, as.Attachment.CentralNetworkAttachmentNode)
		}
	}

	serverIDs := map[string]bool{}
	checkServer := func(kind string, nodes []ServerNode) error {
		for _, n := range nodes {
			if !asIDs[n.OwnerAS] {
				return fmt.Errorf("%s[%s]: unknown owner_as %q", kind, n.ID, n.OwnerAS)
			}
			if n.HTTPServerPort < 0 || n.HTTPServerPort > 65535 {
				return fmt.Errorf("%s[%s]: http_server_port %d out of range", kind, n.ID, n.HTTPServerPort)
			}
			serverIDs[n.ID] = true
		}
		return nil
	}
	if err := checkServer("target_server_nodes", c.TargetServerNodes); err != nil {
		return err
	}
	if err := checkServer("non_target_server_nodes", c.NonTargetServerNodes); err != nil {
		return err
	}
	if len(c.TargetServerNodes) == 0 {
		return fmt.Errorf("target_server_nodes: at least one target is required")
	}

	for _, a := range c.AttackVectorsFlat() {
		if err := validateVectorType(a.Type); err != nil {
			return err
		}
		if err := validatePort(a.SourcePort, "attack_vectors["+a.Type+"].source_port"); err != nil {
			return err
		}
		if err := validatePort(a.DestinationPort, "attack_vectors["+a.Type+"].destination_port"); err != nil {
			return err
		}
		if a.PacketSize < 1 {
			return fmt.Errorf("attack_vectors[%s]: packet_size must be >= 1, got %d", a.Type, a.PacketSize)
		}
	}

	for _, n := range c.AttackerNodes {
		if !asIDs[n.OwnerAS] {
			return fmt.Errorf("attacker_nodes[%s]: unknown owner_as %q", n.ID, n.OwnerAS)
		}
		if err := validatePort(n.SourcePort, "attacker_nodes["+n.ID+"].source_port"); err != nil {
			return err
		}
		if err := validatePort(n.DestinationPort, "attacker_nodes["+n.ID+"].destination_port"); err != nil {
			return err
		}
	}

	for _, n := range c.BenignClientNodes {
		if !asIDs[n.OwnerAS] {
			return fmt.Errorf("benign_client_nodes[%s]: unknown owner_as %q", n.ID, n.OwnerAS)
		}
		if !serverIDs[n.Peer] {
			return fmt.Errorf("benign_client_nodes[%s]: unknown peer %q", n.ID, n.Peer)
		}
	}

	if c.GlobalSettings.Scheduling.SimulationDurationS <= 0 {
		return fmt.Errorf("global_settings.scheduling.simulation_duration_s must be > 0")
	}

	return nil
}

// AttackVectorsFlat returns the configured attack vectors, defaults
// already applied; a validation convenience, not a resolver.
func (c *Config) AttackVectorsFlat() []AttackVector {
	return c.GlobalSettings.Attack.AttackVectors
}

func validateVectorType(t string) error {
	switch t {
	case VectorUDPFlooding, VectorICMPFlooding, VectorTCPSynFlooding:
		return nil
	default:
		return fmt.Errorf("attack_vectors: unknown type %q", t)
	}
}

func validatePort(p *int, label string) error {
	if p == nil {
		return nil
	}
	if *p < InheritPort || *p > 65535 {
		return fmt.Errorf("%s: port %d out of range [-2, 65535]", label, *p)
	}
	return nil
}
