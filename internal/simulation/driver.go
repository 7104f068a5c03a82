// Package simulation implements the simulation driver: it assembles the
// topology, places every node kind, arms progress reporting, runs the event
// loop up to the configured simulation duration, and emits the final address
// lists and topology dump.
package simulation

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/dpws-sim/dpws-sim/internal/attack"
	"github.com/dpws-sim/dpws-sim/internal/capture"
	"github.com/dpws-sim/dpws-sim/internal/config"
	"github.com/dpws-sim/dpws-sim/internal/kernel"
	"github.com/dpws-sim/dpws-sim/internal/topology"
	"github.com/dpws-sim/dpws-sim/internal/traffic"
	"github.com/sirupsen/logrus"
)

// Options configures one driver run.
type Options struct {
	ThisWorker           int
	NumWorkers           int
	ProgressLogIntervalS int
	PrintConfiguration   bool
	PrintTopology        bool
	CaptureDir           string
	SeedFactory          traffic.SeedFactory
}

// Result carries the run's externally observable outputs.
type Result struct {
	TargetAddresses   []string
	AttackerAddresses []string
	TopologyDump      string
}

// Run assembles the topology, places every node, arms the attack
// orchestrator, and drives the event loop to completion.
func Run(cfg *config.Config, opts Options) (*Result, error) {
	if opts.NumWorkers < 1 {
		return nil, fmt.Errorf("simulation: numWorkers must be >= 1, got %d", opts.NumWorkers)
	}

	if opts.PrintConfiguration {
		dump, err := cfg.Dump()
		if err != nil {
			return nil, fmt.Errorf("simulation: print configuration: %w", err)
		}
		fmt.Print(dump)
	}

	asm, err := topology.Assemble(cfg, opts.ThisWorker, opts.NumWorkers)
	if err != nil {
		return nil, fmt.Errorf("simulation: assemble topology: %w", err)
	}
	if err := asm.PlacePassiveNodes(cfg); err != nil {
		return nil, fmt.Errorf("simulation: place nodes: %w", err)
	}
	// Every worker executes the full construction code so all workers share
	// an identical picture of the topology and event times; routing must be
	// built from that complete picture before any worker runs its event
	// loop.
	asm.Net.BuildRouting()

	captureMgr := capture.NewManager(opts.CaptureDir, cfg.GlobalSettings.Capture.PcapPrefix != "")
	defer func() {
		if err := captureMgr.Close(); err != nil {
			logrus.Warnf("simulation: close capture manager: %v", err)
		}
	}()

	targetAddrs, targetStrs, err := resolveAddresses(asm, asm.Targets)
	if err != nil {
		return nil, fmt.Errorf("simulation: resolve target addresses: %w", err)
	}

	sched := kernel.NewScheduler()
	simDuration := kernel.SecondsToVT(cfg.GlobalSettings.Scheduling.SimulationDurationS)

	attackers, err := attack.BuildAndStartAttackers(cfg, asm, targetAddrs, captureMgr, opts.SeedFactory, opts.ThisWorker, sched, 0, simDuration)
	if err != nil {
		return nil, fmt.Errorf("simulation: build attacker applications: %w", err)
	}

	scheduleProgressReports(sched, kernel.SecondsToVT(float64(opts.ProgressLogIntervalS)), simDuration)
	sched.Run(simDuration)

	result := &Result{
		TargetAddresses:   targetStrs,
		AttackerAddresses: attackers.AttackerAddresses,
	}
	if opts.PrintTopology {
		result.TopologyDump = asm.DumpTopology()
	}
	return result, nil
}

// resolveAddresses maps node ids to their primary interface address, both
// as netip.Addr (for the orchestrator) and as strings (for the printed
// address lists).
func resolveAddresses(asm *topology.Assembly, ids []string) ([]netip.Addr, []string, error) {
	addrs := make([]netip.Addr, 0, len(ids))
	strs := make([]string, 0, len(ids))
	for _, id := range ids {
		addr, ok := asm.AddressOf(id)
		if !ok {
			return nil, nil, fmt.Errorf("node %s has no address", id)
		}
		addrs = append(addrs, addr)
		strs = append(strs, addr.String())
	}
	return addrs, strs, nil
}

// scheduleProgressReports arms a self-rescheduling progress-report event
// every interval until stop, logging virtual-time and real-time elapsed. A
// non-positive interval disables reporting.
func scheduleProgressReports(sched *kernel.Scheduler, interval, stop kernel.VirtualTime) {
	if interval <= 0 {
		return
	}
	start := time.Now()
	var tick func()
	tick = func() {
		logrus.Infof("simulation: progress virtual_time=%.3fs real_time=%s", kernel.VTToSeconds(sched.Now()), time.Since(start).Round(time.Millisecond))
		if sched.Now()+interval <= stop {
			sched.Schedule(interval, tick)
		}
	}
	sched.Schedule(interval, tick)
}
