// Package attack implements the attacker orchestrator: for each attacker
// node, it resolves effective per-vector traffic
// parameters through the vector_spec > attacker_node > global_default
// precedence chain, instantiates one traffic.Source per vector, and drives
// the self-rescheduling retarget chain that produces the pulse-wave
// pattern across the target set.
package attack

import (
	"fmt"
	"net/netip"

	"github.com/dpws-sim/dpws-sim/internal/config"
	"github.com/dpws-sim/dpws-sim/internal/kernel"
	"github.com/dpws-sim/dpws-sim/internal/schedule"
	"github.com/dpws-sim/dpws-sim/internal/topology"
	"github.com/dpws-sim/dpws-sim/internal/traffic"
	"github.com/sirupsen/logrus"
)

// VectorParams is the fully-resolved, attacker-specific portion of one
// vector's traffic parameters.
type VectorParams struct {
	DataRateBps     float64
	PacketSize      int
	SourcePort      int
	DestinationPort int
	MaxFluctuation  float64
}

// ResolveSchedule builds the global pulse-wave schedule from the declared
// attack vectors and the target count. Burst and
// target-switch durations have only a vector_spec > global_default tier
// (no attacker-level override exists for them), so this schedule is
// identical for every attacker and every worker.
func ResolveSchedule(global config.AttackSettings, numTargets int) schedule.Schedule {
	specs := make([]schedule.VectorSpec, 0, len(global.AttackVectors))
	for _, v := range global.AttackVectors {
		burst := global.BurstDurationS
		if v.BurstDurationS != nil {
			burst = *v.BurstDurationS
		}
		swi := global.TargetSwitchDurationS
		if v.TargetSwitchDurationS != nil {
			swi = *v.TargetSwitchDurationS
		}
		specs = append(specs, schedule.VectorSpec{
			Name:                 v.Type,
			BurstDuration:        kernel.SecondsToVT(burst),
			TargetSwitchDuration: kernel.SecondsToVT(swi),
		})
	}
	return schedule.Calculate(specs, numTargets)
}

// ResolveVectorParams applies the vector_spec > attacker_node >
// global_default precedence to every declared attack
// vector for one attacker node. The returned slice is index-aligned with
// global.AttackVectors and with a Schedule built from the same list.
func ResolveVectorParams(global config.AttackSettings, attacker config.AttackerNode) ([]VectorParams, error) {
	out := make([]VectorParams, 0, len(global.AttackVectors))
	for _, v := range global.AttackVectors {
		rateStr := resolveString(v.DataRate, attacker.DataRate, global.DefaultDataRate)
		rate, err := config.ParseDataRate(rateStr)
		if err != nil {
			return nil, fmt.Errorf("attack: vector %s: %w", v.Type, err)
		}
		out = append(out, VectorParams{
			DataRateBps:     rate,
			PacketSize:      resolveInt(v.PacketSize, attacker.PacketSize, global.DefaultPacketSize),
			SourcePort:      resolvePortPrecedence(v.SourcePort, attacker.SourcePort, global.DefaultSourcePort),
			DestinationPort: resolvePortPrecedence(v.DestinationPort, attacker.DestinationPort, global.DefaultDestinationPort),
			MaxFluctuation:  resolveFluctuation(v.MaxDataRateFluctuation, attacker.MaxDataRateFluctuation, global.DefaultMaxDataRateFluctuation),
		})
	}
	return out, nil
}

func resolveString(tiers ...string) string {
	for _, s := range tiers {
		if s != "" {
			return s
		}
	}
	return ""
}

func resolveInt(tiers ...int) int {
	for _, v := range tiers {
		if v > 0 {
			return v
		}
	}
	return 0
}

func resolveFluctuation(tiers ...*float64) float64 {
	for _, f := range tiers {
		if f != nil {
			return *f
		}
	}
	return 0
}

// resolvePortPrecedence walks vector_spec > attacker_node > global_default,
// skipping any tier that is absent or explicitly InheritPort. If every tier
// is absent or inherits, the ultimate fallback is RandomizePort rather than
// a fixed port, since a silently-unset port policy should still vary rather
// than collide.
func resolvePortPrecedence(tiers ...*int) int {
	for _, t := range tiers {
		if t != nil && *t != config.InheritPort {
			return *t
		}
	}
	return config.RandomizePort
}

// App is the kernel.Application installed on an attacker node: one
// traffic.Source per attack vector, each driven by its own retarget chain.
type App struct {
	node             *kernel.Node
	net              *kernel.Network
	capture          kernel.CaptureSink
	vectorSpecs      []schedule.VectorSpec
	params           []VectorParams
	sched            schedule.Schedule
	targets          []netip.Addr
	allowUnreachable bool
	seedFactory      traffic.SeedFactory

	sources []*traffic.Source
}

// NewApp constructs an attacker Application bound to node, one source per
// declared vector. seedFactory, if nil, defaults to
// traffic.SystemSeedFactory.
func NewApp(node *kernel.Node, net *kernel.Network, capture kernel.CaptureSink, sched schedule.Schedule, vectorSpecs []schedule.VectorSpec, params []VectorParams, targets []netip.Addr, allowUnreachable bool, seedFactory traffic.SeedFactory) *App {
	return &App{
		node: node, net: net, capture: capture,
		vectorSpecs: vectorSpecs, params: params, sched: sched,
		targets: targets, allowUnreachable: allowUnreachable, seedFactory: seedFactory,
	}
}

// Start arms every vector's source at start_time(attacker) +
// schedule.start_offset(vector_index), and schedules the first retarget for
// any vector attacking more than one target. tStop only bounds the
// scheduler's lifetime; there is no per-source stop beyond global
// simulation teardown.
func (a *App) Start(sched *kernel.Scheduler, tStart, tStop kernel.VirtualTime) {
	if len(a.node.Interfaces) == 0 {
		logrus.Errorf("attack: attacker node %s has no interface, cannot start", a.node.ID)
		return
	}
	localAddr := a.node.Interfaces[0].Address

	for i, spec := range a.vectorSpecs {
		p := a.params[i]
		startAt := tStart + a.sched.StartOffset(i)

		src := traffic.NewSource(sched, localAddr, traffic.Params{
			Vector:           spec.Name,
			EffectiveSize:    p.PacketSize,
			DataRateBps:      p.DataRateBps,
			SourcePort:       p.SourcePort,
			DestinationPort:  p.DestinationPort,
			MaxFluctuation:   p.MaxFluctuation,
			OnTime:           a.sched.Vectors[i].OnTime,
			OffTime:          a.sched.Vectors[i].OffTime,
			SkipFirstOff:     true,
			AllowUnreachable: a.allowUnreachable,
		}, a.newSocket(sched, i), a.seedFactory)
		a.sources = append(a.sources, src)

		vectorIndex := i
		sched.Schedule(startAt, func() {
			src.Start(a.targets[0])
			if len(a.targets) > 1 {
				a.scheduleRetarget(sched, vectorIndex, 0)
			}
		})
	}
}

// scheduleRetarget arms the next retarget of vectorIndex's source away from
// targetIndex, firing retarget_interval(vectorIndex, targetIndex) from now,
// then rebinds to the next target and re-arms itself.
func (a *App) scheduleRetarget(sched *kernel.Scheduler, vectorIndex, targetIndex int) {
	numTargets := len(a.targets)
	interval := a.sched.RetargetInterval(vectorIndex, targetIndex, numTargets)
	sched.Schedule(interval, func() {
		nextIndex := (targetIndex + 1) % numTargets
		a.sources[vectorIndex].Retarget(a.targets[nextIndex])
		a.scheduleRetarget(sched, vectorIndex, nextIndex)
	})
}

func (a *App) newSocket(sched *kernel.Scheduler, vectorIndex int) func() kernel.Socket {
	proto := traffic.ProtocolFor(a.vectorSpecs[vectorIndex].Name)
	return func() kernel.Socket {
		return kernel.NewRawSocket(a.net, sched, a.node, proto, a.capture)
	}
}

// Sources returns the attacker's per-vector traffic sources, for tests and
// progress reporting.
func (a *App) Sources() []*traffic.Source { return a.sources }

// Node returns the kernel node this application is installed on.
func (a *App) Node() *kernel.Node { return a.node }

// BuildResult is everything the simulation driver needs after arming every
// attacker.
type BuildResult struct {
	Apps              []*App
	AttackerAddresses []string // node id -> primary address, in config order
}

// BuildAndStartAttackers resolves every attacker node's configuration,
// claims its host slot from the assembled topology, installs its
// Application, and, when thisWorker owns that attacker's AS partition,
// starts it. targetAddrs is the ordered target_server_node address list
// every vector's targets[0] initially binds to.
func BuildAndStartAttackers(cfg *config.Config, asm *topology.Assembly, targetAddrs []netip.Addr, capture kernel.CaptureSink, seedFactory traffic.SeedFactory, thisWorker int, sched *kernel.Scheduler, tStart, tStop kernel.VirtualTime) (*BuildResult, error) {
	if len(targetAddrs) == 0 {
		return nil, fmt.Errorf("attack: no target_server_nodes configured")
	}
	vectorSpecs := make([]schedule.VectorSpec, len(cfg.GlobalSettings.Attack.AttackVectors))
	waveform := ResolveSchedule(cfg.GlobalSettings.Attack, len(targetAddrs))
	for i, v := range waveform.Vectors {
		vectorSpecs[i] = schedule.VectorSpec{Name: v.Name}
	}

	result := &BuildResult{}
	for _, a := range cfg.AttackerNodes {
		node, err := asm.ClaimAttacker(a.OwnerAS, a.ID)
		if err != nil {
			return nil, err
		}
		params, err := ResolveVectorParams(cfg.GlobalSettings.Attack, a)
		if err != nil {
			return nil, fmt.Errorf("attack: attacker %s: %w", a.ID, err)
		}
		as, ok := asm.AS[a.OwnerAS]
		if !ok {
			return nil, fmt.Errorf("attack: attacker %s: unknown owner_as %q", a.ID, a.OwnerAS)
		}
		app := NewApp(node, asm.Net, capture, waveform, vectorSpecs, params, targetAddrs, cfg.GlobalSettings.Attack.AllowUnreachableTargets, seedFactory)
		topology.InstallAndMaybeStart(node, app, as.Partition(), thisWorker, sched, tStart, tStop)

		result.Apps = append(result.Apps, app)
		if len(node.Interfaces) > 0 {
			result.AttackerAddresses = append(result.AttackerAddresses, node.Interfaces[0].Address.String())
		}
	}
	return result, nil
}
