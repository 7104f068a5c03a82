package config

import "github.com/sirupsen/logrus"

// Silent defaults: missing optional keys fall back to these documented
// values.
const (
	DefaultPcapPrefix       = "dpws"
	DefaultCentralBandwidth = "1Gbps"
	DefaultCentralDelay     = "2ms"
	DefaultASBandwidth      = "100Mbps"
	DefaultASDelay          = "1ms"
	DefaultAttachBandwidth  = "1Gbps"
	DefaultAttachDelay      = "5ms"
	DefaultASNetworkMask    = 24
	DefaultHTTPServerPort   = 80
	DefaultAttackDataRate   = "1Mbps"
	DefaultAttackPacketSize = 1024
	DefaultMaxReadingTimeS  = 1.0
	defaultMaxFluctuation   = 0.0
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// ApplyDefaults fills in every optional key that falls back to a default,
// logging at debug level so fallbacks stay silent unless --log debug asks
// for them.
func (c *Config) ApplyDefaults() {
	if c.GlobalSettings.Capture.PcapPrefix == "" {
		c.GlobalSettings.Capture.PcapPrefix = DefaultPcapPrefix
	}
	attack := &c.GlobalSettings.Attack
	if attack.DefaultDataRate == "" {
		attack.DefaultDataRate = DefaultAttackDataRate
	}
	if attack.DefaultPacketSize == 0 {
		attack.DefaultPacketSize = DefaultAttackPacketSize
	}
	if attack.DefaultSourcePort == nil {
		attack.DefaultSourcePort = intPtr(InheritPort)
	}
	if attack.DefaultDestinationPort == nil {
		attack.DefaultDestinationPort = intPtr(InheritPort)
	}
	if attack.DefaultMaxDataRateFluctuation == nil {
		attack.DefaultMaxDataRateFluctuation = floatPtr(defaultMaxFluctuation)
	}
	for i := range attack.AttackVectors {
		v := &attack.AttackVectors[i]
		if v.BurstDurationS == nil {
			v.BurstDurationS = floatPtr(attack.BurstDurationS)
		}
		if v.TargetSwitchDurationS == nil {
			v.TargetSwitchDurationS = floatPtr(attack.TargetSwitchDurationS)
		}
		if v.DataRate == "" {
			v.DataRate = attack.DefaultDataRate
		}
		if v.PacketSize == 0 {
			v.PacketSize = attack.DefaultPacketSize
		}
		if v.SourcePort == nil {
			v.SourcePort = intPtr(InheritPort)
		}
		if v.DestinationPort == nil {
			v.DestinationPort = intPtr(InheritPort)
		}
		if v.MaxDataRateFluctuation == nil {
			v.MaxDataRateFluctuation = floatPtr(*attack.DefaultMaxDataRateFluctuation)
		}
	}

	if c.CentralNetwork.Bandwidth == "" {
		c.CentralNetwork.Bandwidth = DefaultCentralBandwidth
	}
	if c.CentralNetwork.Delay == "" {
		c.CentralNetwork.Delay = DefaultCentralDelay
	}

	for i := range c.AutonomousSystems {
		as := &c.AutonomousSystems[i]
		if as.NetworkMask == 0 {
			as.NetworkMask = DefaultASNetworkMask
		}
		if as.Bandwidth == "" {
			as.Bandwidth = DefaultASBandwidth
		}
		if as.Delay == "" {
			as.Delay = DefaultASDelay
		}
		if as.Attachment.Bandwidth == "" {
			as.Attachment.Bandwidth = DefaultAttachBandwidth
		}
		if as.Attachment.Delay == "" {
			as.Attachment.Delay = DefaultAttachDelay
		}
	}

	for i := range c.TargetServerNodes {
		if c.TargetServerNodes[i].HTTPServerPort == 0 {
			c.TargetServerNodes[i].HTTPServerPort = DefaultHTTPServerPort
		}
	}
	for i := range c.NonTargetServerNodes {
		if c.NonTargetServerNodes[i].HTTPServerPort == 0 {
			c.NonTargetServerNodes[i].HTTPServerPort = DefaultHTTPServerPort
		}
	}

	for i := range c.AttackerNodes {
		a := &c.AttackerNodes[i]
		// a.DataRate/PacketSize/MaxDataRateFluctuation stay unset (zero value)
		// when absent: attack.ResolveVectorParams treats zero as "fall through
		// to the vector/global tier" per the precedence chain.
		if a.SourcePort == nil {
			a.SourcePort = intPtr(InheritPort)
		}
		if a.DestinationPort == nil {
			a.DestinationPort = intPtr(InheritPort)
		}
	}

	for i := range c.BenignClientNodes {
		if c.BenignClientNodes[i].MaxReadingTimeS == nil {
			c.BenignClientNodes[i].MaxReadingTimeS = floatPtr(DefaultMaxReadingTimeS)
		}
	}

	logrus.Debugf("config: defaults applied (pcap_prefix=%s, central bandwidth=%s/delay=%s)",
		c.GlobalSettings.Capture.PcapPrefix, c.CentralNetwork.Bandwidth, c.CentralNetwork.Delay)
}
