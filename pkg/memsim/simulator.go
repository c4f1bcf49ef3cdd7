// Copyright 2021 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memsim

import (
	"fmt"
	"sync"
	"time"

	logger "github.com/intel/numasim/pkg/log"
)

// Phase is the last completed top-level step of a Simulator.
type Phase int

const (
	// PhaseInitialized is the phase of a freshly constructed simulator.
	PhaseInitialized Phase = iota
	// PhaseAccessesRecorded follows recording accesses.
	PhaseAccessesRecorded
	// PhaseClassified follows classifying pages hot or cold.
	PhaseClassified
	// PhaseMigrated follows a migration pass.
	PhaseMigrated
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialized:
		return "initialized"
	case PhaseAccessesRecorded:
		return "accesses-recorded"
	case PhaseClassified:
		return "classified"
	case PhaseMigrated:
		return "migrated"
	}
	return fmt.Sprintf("<invalid phase %d>", int(p))
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithSampler replaces the seeded random source of the workload.
func WithSampler(sampler Sampler) Option {
	return func(s *Simulator) {
		s.sampler = sampler
	}
}

// WithStats makes the simulator store events in stats.
func WithStats(stats *Stats) Option {
	return func(s *Simulator) {
		s.stats = stats
	}
}

// Simulator owns a pool of pages on a fast and a slow node. It
// records accesses, classifies pages and migrates them between
// the nodes.
//
// Each top-level operation runs under the simulator lock and
// either completes or fails without changing the pool.
type Simulator struct {
	sync.Mutex
	cfg       Config
	slots     []*Page
	sampler   Sampler
	workload  *Workload
	migrator  *Migrator
	stats     *Stats
	phase     Phase
	threshold int
	lastMove  *MigrationResult
}

// rejects is for warning about out-of-range accesses.
var rejects = logger.RateLimit(log, logger.Interval(time.Second))

// NewSimulator creates a simulator with a freshly constructed pool.
// A nil cfg means the default configuration.
func NewSimulator(cfg *Config, opts ...Option) (*Simulator, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		cfg:       *cfg,
		threshold: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sampler == nil {
		s.sampler = NewSampler(s.cfg.Seed)
	}
	if s.stats == nil {
		s.stats = NewStats()
	}
	s.workload = NewWorkload(s.cfg.TotalPages, s.sampler)
	s.migrator = NewMigrator(&s.cfg)
	s.slots = make([]*Page, s.cfg.TotalPages)
	for pfn := range s.slots {
		node := s.cfg.InitialNode(pfn)
		s.slots[pfn] = newPage(pfn, node, s.cfg.Latency(node))
	}
	log.Debug("created pool of %d pages, pages %d-%d on node %s",
		s.cfg.TotalPages, 0, s.cfg.NodeSplit-1, NodeFast)
	s.stats.Store(StatsHeartbeat{"simulator.created"})
	return s, nil
}

// Config returns a copy of the simulator configuration.
func (s *Simulator) Config() Config {
	return s.cfg
}

// Phase returns the last completed top-level step.
func (s *Simulator) Phase() Phase {
	s.Lock()
	defer s.Unlock()
	return s.phase
}

// Stats returns the statistics of the simulator.
func (s *Simulator) Stats() *Stats {
	return s.stats
}

// RunAccessCycle records n accesses generated by the workload.
func (s *Simulator) RunAccessCycle(n int) error {
	if n < 0 {
		return configError("access cycle of %d accesses", n)
	}
	s.Lock()
	defer s.Unlock()

	pfns := s.workload.Generate(n)
	touched := 0
	for _, pfn := range pfns {
		p := s.slots[pfn]
		if !p.accessed {
			touched++
		}
		p.access()
	}
	s.phase = PhaseAccessesRecorded
	s.stats.Store(StatsAccessCycle{accesses: n, touched: touched})
	log.Debug("recorded %d accesses, %d pages accessed for the first time", n, touched)
	return nil
}

// RunDefaultCycle records an access cycle of configured length.
func (s *Simulator) RunDefaultCycle() error {
	return s.RunAccessCycle(s.cfg.CycleAccesses)
}

// AccessPage records a single access to a page.
func (s *Simulator) AccessPage(pfn int) error {
	s.Lock()
	defer s.Unlock()

	if pfn < 0 || pfn >= len(s.slots) {
		rejects.Warn("rejecting accesses outside the pool of %d pages", len(s.slots))
		return outOfRangeError(pfn, len(s.slots))
	}
	s.slots[pfn].access()
	s.phase = PhaseAccessesRecorded
	s.stats.Store(StatsHeartbeat{"simulator.access"})
	return nil
}

// Classify labels pages hot or cold and returns the resolved
// frequency threshold.
func (s *Simulator) Classify(thresholdAccesses int) int {
	s.Lock()
	defer s.Unlock()

	threshold, hot := Classifier{ThresholdAccesses: thresholdAccesses}.Classify(s.slots)
	s.threshold = threshold
	s.phase = PhaseClassified
	s.stats.Store(StatsClassified{thresholdAccesses: thresholdAccesses, threshold: threshold, hot: hot, pages: len(s.slots)})
	log.Debug("classification with threshold %d accesses: frequency threshold %d, %d hot pages",
		thresholdAccesses, threshold, hot)
	return threshold
}

// ClassifyDefault classifies using the configured access threshold.
func (s *Simulator) ClassifyDefault() int {
	return s.Classify(s.cfg.ThresholdAccesses)
}

// Threshold returns the frequency threshold of the latest
// classification, or false if pages have not been classified.
func (s *Simulator) Threshold() (int, bool) {
	s.Lock()
	defer s.Unlock()
	return s.threshold, s.threshold >= 0
}

// Migrate moves hot pages to the fast node, keeping at most
// floor(ratio * fast node pages) hot pages there.
func (s *Simulator) Migrate(ratio float64) (*MigrationResult, error) {
	s.Lock()
	defer s.Unlock()

	mr, err := s.migrator.Migrate(s.slots, ratio)
	if err != nil {
		return nil, err
	}
	s.lastMove = mr
	s.phase = PhaseMigrated
	s.stats.Store(StatsMigrated{*mr})
	log.Debug("%s", mr)
	return mr, nil
}

// MigrateDefault migrates using the configured maximum hot ratio.
func (s *Simulator) MigrateDefault() (*MigrationResult, error) {
	return s.Migrate(s.cfg.MaxHotRatio)
}

// LastMigration returns the result of the latest migration pass, or nil.
func (s *Simulator) LastMigration() *MigrationResult {
	s.Lock()
	defer s.Unlock()
	return s.lastMove
}

// TotalLatency returns the sum of access counts times page latencies.
func (s *Simulator) TotalLatency() int64 {
	s.Lock()
	defer s.Unlock()
	return totalLatency(s.slots)
}

// Snapshot returns the state of all pages in slot order.
func (s *Simulator) Snapshot() []PageInfo {
	s.Lock()
	defer s.Unlock()
	return s.snapshot()
}

func (s *Simulator) snapshot() []PageInfo {
	snapshot := make([]PageInfo, len(s.slots))
	for i, p := range s.slots {
		snapshot[i] = p.Info()
	}
	return snapshot
}

// simState is the state of a simulator at a single point in time.
type simState struct {
	snapshot   []PageInfo
	threshold  int
	classified bool
	migrated   int
}

// state returns the pool, the classification and the migration
// totals under a single lock.
func (s *Simulator) state() simState {
	s.Lock()
	defer s.Unlock()
	return simState{
		snapshot:   s.snapshot(),
		threshold:  s.threshold,
		classified: s.threshold >= 0,
		migrated:   s.stats.Migrated(),
	}
}

// Page returns the current state of a page.
func (s *Simulator) Page(pfn int) (PageInfo, error) {
	s.Lock()
	defer s.Unlock()
	if pfn < 0 || pfn >= len(s.slots) {
		return PageInfo{}, outOfRangeError(pfn, len(s.slots))
	}
	return s.slots[pfn].Info(), nil
}

// Histogram returns the number of pages per access count.
func (s *Simulator) Histogram() Histogram {
	s.Lock()
	defer s.Unlock()
	return NewHistogram(s.slots)
}

// NodeSummary aggregates the pages of a node.
type NodeSummary struct {
	Node      Node
	Pages     int
	HotPages  int
	Accesses  int64
	LatencyNs int64
}

// SummarizeNodes aggregates a snapshot per node.
func SummarizeNodes(snapshot []PageInfo) []NodeSummary {
	summaries := make([]NodeSummary, len(Nodes))
	for i, node := range Nodes {
		summaries[i].Node = node
	}
	for _, pi := range snapshot {
		if int(pi.Node) < 0 || int(pi.Node) >= len(summaries) {
			continue
		}
		ns := &summaries[pi.Node]
		ns.Pages++
		if pi.IsHot {
			ns.HotPages++
		}
		ns.Accesses += int64(pi.AccessCount)
		ns.LatencyNs += pi.TotalLatencyNs()
	}
	return summaries
}
