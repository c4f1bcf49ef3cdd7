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
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	logger "github.com/intel/numasim/pkg/log"
	"github.com/intel/numasim/pkg/testutils"
)

// fixedSampler returns a fixed sequence of values, repeating it.
type fixedSampler struct {
	values []float64
	next   int
}

func (f *fixedSampler) NormFloat64() float64 {
	v := f.values[f.next%len(f.values)]
	f.next++
	return v
}

func testConfig(pages, split int) *Config {
	cfg := DefaultConfig()
	cfg.TotalPages = pages
	cfg.NodeSplit = split
	return cfg
}

func newTestSimulator(t *testing.T, pages, split int, opts ...Option) *Simulator {
	t.Helper()
	sim, err := NewSimulator(testConfig(pages, split), opts...)
	require.NoError(t, err)
	return sim
}

// accessPages records counts[pfn] accesses to each page.
func accessPages(t *testing.T, sim *Simulator, counts []int) {
	t.Helper()
	for pfn, count := range counts {
		for i := 0; i < count; i++ {
			require.NoError(t, sim.AccessPage(pfn))
		}
	}
}

// verifyPool checks the invariants that hold after every operation.
func verifyPool(t *testing.T, sim *Simulator) {
	t.Helper()
	cfg := sim.Config()
	snapshot := sim.Snapshot()
	require.Len(t, snapshot, cfg.TotalPages)
	for slot, pi := range snapshot {
		require.Equal(t, slot, pi.Pfn, "pfn of page in slot %d", slot)
		require.Equal(t, cfg.Latency(pi.Node), pi.LatencyNs, "latency of page %d", slot)
		require.Equal(t, pi.AccessCount > 0, pi.Accessed, "accessed flag of page %d", slot)
	}
}

func sortedAccessCounts(snapshot []PageInfo) []int {
	counts := make([]int, 0, len(snapshot))
	for _, pi := range snapshot {
		counts = append(counts, pi.AccessCount)
	}
	sort.Ints(counts)
	return counts
}

func fastHotPages(snapshot []PageInfo) int {
	hot := 0
	for _, pi := range snapshot {
		if pi.Node == NodeFast && pi.IsHot {
			hot++
		}
	}
	return hot
}

func TestConstruction(t *testing.T) {
	for pages := 1; pages <= 12; pages++ {
		for split := 0; split <= pages; split++ {
			sim := newTestSimulator(t, pages, split)
			verifyPool(t, sim)
			nodes := map[Node]int{}
			for _, pi := range sim.Snapshot() {
				nodes[pi.Node]++
				require.Equal(t, 0, pi.AccessCount)
				require.False(t, pi.IsHot)
			}
			require.Equal(t, split, nodes[NodeFast], "fast pages with P=%d S=%d", pages, split)
			require.Equal(t, pages-split, nodes[NodeSlow], "slow pages with P=%d S=%d", pages, split)
			require.Equal(t, PhaseInitialized, sim.Phase())
			_, classified := sim.Threshold()
			require.False(t, classified)
		}
	}
}

func TestInvalidConfiguration(t *testing.T) {
	cfg := &Config{
		TotalPages:        0,
		NodeSplit:         5,
		CycleAccesses:     -1,
		ThresholdAccesses: -1,
		MaxHotRatio:       2,
		FastLatencyNs:     0,
		SlowLatencyNs:     -25,
		PageSize:          "bogus",
	}
	sim, err := NewSimulator(cfg)
	require.Nil(t, sim)
	testutils.VerifyError(t, err, 8, []string{"TotalPages", "NodeSplit", "MaxHotRatio", "PageSize"})
	require.True(t, errors.Is(err, ErrInvalidConfiguration))

	tcases := []struct {
		name   string
		modify func(*Config)
		errors int
	}{
		{
			name:   "defaults",
			modify: func(*Config) {},
		},
		{
			name:   "negative split",
			modify: func(c *Config) { c.NodeSplit = -1 },
			errors: 1,
		},
		{
			name:   "split at pool end",
			modify: func(c *Config) { c.NodeSplit = c.TotalPages },
		},
		{
			name:   "split beyond pool",
			modify: func(c *Config) { c.NodeSplit = c.TotalPages + 1 },
			errors: 1,
		},
		{
			name:   "negative pool",
			modify: func(c *Config) { c.TotalPages = -1; c.NodeSplit = 0 },
			errors: 2,
		},
		{
			name:   "ratio below zero",
			modify: func(c *Config) { c.MaxHotRatio = -0.1 },
			errors: 1,
		},
		{
			name:   "zero page size",
			modify: func(c *Config) { c.PageSize = "0" },
			errors: 1,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			testutils.VerifyError(t, cfg.Validate(), tc.errors, nil)
		})
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte("TotalPages: 64\nNodeSplit: 16\nMaxHotRatio: 0.5\nPageSize: 2M\n"))
	require.NoError(t, err)
	expected := DefaultConfig()
	expected.TotalPages = 64
	expected.NodeSplit = 16
	expected.MaxHotRatio = 0.5
	expected.PageSize = "2M"
	testutils.VerifyDeepEqual(t, "config", expected, cfg)
	require.Equal(t, int64(2*1024*1024), cfg.PageBytes())

	_, err = ParseConfig([]byte("NodeSplit: 4096\n"))
	require.True(t, errors.Is(err, ErrInvalidConfiguration))

	_, err = ParseConfig([]byte("Pages: 4096\n"))
	require.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "numasim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("TotalPages: 32\nNodeSplit: 8\n"), 0644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 32, cfg.TotalPages)
	require.Equal(t, 8, cfg.NodeSplit)
	require.Equal(t, DefaultCycleAccesses, cfg.CycleAccesses)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.True(t, errors.Is(err, ErrInvalidConfiguration))
}

func TestPhaseString(t *testing.T) {
	require.Equal(t, "initialized", PhaseInitialized.String())
	require.Equal(t, "accesses-recorded", PhaseAccessesRecorded.String())
	require.Equal(t, "classified", PhaseClassified.String())
	require.Equal(t, "migrated", PhaseMigrated.String())
	require.Equal(t, "<invalid phase 7>", Phase(7).String())
}

func TestAccessPage(t *testing.T) {
	sim := newTestSimulator(t, 8, 4)
	accessPages(t, sim, []int{0, 3, 0, 0, 0, 0, 7, 0})
	verifyPool(t, sim)
	require.Equal(t, PhaseAccessesRecorded, sim.Phase())

	before := sim.Snapshot()
	for i := 0; i < 5; i++ {
		require.NoError(t, sim.AccessPage(1))
	}
	after := sim.Snapshot()
	for pfn := range after {
		expected := before[pfn]
		if pfn == 1 {
			expected.AccessCount += 5
		}
		testutils.VerifyDeepEqual(t, "page", expected, after[pfn])
	}

	for _, pfn := range []int{-1, 8, 1 << 20} {
		err := sim.AccessPage(pfn)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrOutOfRange), "pfn %d", pfn)
		_, err = sim.Page(pfn)
		require.True(t, errors.Is(err, ErrOutOfRange), "pfn %d", pfn)
	}
	testutils.VerifyDeepEqual(t, "pool after rejected accesses", after, sim.Snapshot())
}

// captureBackend records warnings for verification.
type captureBackend struct {
	sync.Mutex
	warnings []string
}

func (*captureBackend) Name() string { return "capture" }

func (b *captureBackend) Log(level logger.Level, source, format string, args ...interface{}) {
	if level != logger.LevelWarn {
		return
	}
	b.Lock()
	defer b.Unlock()
	b.warnings = append(b.warnings, source+": "+fmt.Sprintf(format, args...))
}

func (*captureBackend) Block(logger.Level, string, string, string, ...interface{}) {}
func (*captureBackend) Sync()                                                      {}
func (*captureBackend) Stop()                                                      {}
func (*captureBackend) SetSourceAlignment(int)                                     {}

func TestOutOfRangeWarningsAreRateLimited(t *testing.T) {
	capture := &captureBackend{}
	logger.RegisterBackend("capture", func() logger.Backend { return capture })
	require.NoError(t, logger.SetBackend("capture"))
	defer func() {
		require.NoError(t, logger.SetBackend(logger.FmtBackendName))
	}()

	sim := newTestSimulator(t, 13, 5)
	for i := 0; i < 10; i++ {
		require.True(t, errors.Is(sim.AccessPage(13+i), ErrOutOfRange))
	}
	require.Equal(t, []string{
		"memsim: <rate-limited> rejecting accesses outside the pool of 13 pages",
	}, capture.warnings)
}

func TestRunAccessCycle(t *testing.T) {
	sim := newTestSimulator(t, 2048, 1024)
	require.NoError(t, sim.RunAccessCycle(10240))
	verifyPool(t, sim)
	require.Equal(t, 10240, sim.Histogram().Accesses())
	require.Equal(t, PhaseAccessesRecorded, sim.Phase())

	// additive
	require.NoError(t, sim.RunAccessCycle(100))
	require.Equal(t, 10340, sim.Histogram().Accesses())

	// same seed, same accesses
	other := newTestSimulator(t, 2048, 1024)
	require.NoError(t, other.RunAccessCycle(10240))
	require.NoError(t, other.RunAccessCycle(100))
	testutils.VerifyDeepEqual(t, "snapshot", sim.Snapshot(), other.Snapshot())

	// a negative cycle fails without changes
	before := sim.Snapshot()
	err := sim.RunAccessCycle(-1)
	require.True(t, errors.Is(err, ErrInvalidConfiguration))
	testutils.VerifyDeepEqual(t, "snapshot", before, sim.Snapshot())

	require.NoError(t, sim.RunAccessCycle(0))
	testutils.VerifyDeepEqual(t, "snapshot", before, sim.Snapshot())
}

func TestRunAccessCycleWithSampler(t *testing.T) {
	// pool of 6: mean 3, stddev 1
	sampler := &fixedSampler{values: []float64{0, 0, 2.5, -4.5, -10, 10}}
	sim := newTestSimulator(t, 6, 3, WithSampler(sampler))
	require.NoError(t, sim.RunAccessCycle(6))
	counts := []int{}
	for _, pi := range sim.Snapshot() {
		counts = append(counts, pi.AccessCount)
	}
	// 3, 3, 5, 5 (-1 wraps), 5 (-7 wraps), 1 (13 wraps)
	require.Equal(t, []int{0, 1, 0, 2, 0, 3}, counts)
}

func TestConcreteScenario(t *testing.T) {
	sim := newTestSimulator(t, 4, 2)
	accessPages(t, sim, []int{0, 0, 5, 5})
	require.Equal(t, int64(250), sim.TotalLatency())

	require.Equal(t, 5, sim.Classify(5))
	require.Equal(t, PhaseClassified, sim.Phase())
	threshold, ok := sim.Threshold()
	require.True(t, ok)
	require.Equal(t, 5, threshold)

	mr, err := sim.Migrate(1.0)
	require.NoError(t, err)
	testutils.VerifyDeepEqual(t, "migration result", &MigrationResult{
		Ratio:         1.0,
		FastPages:     2,
		FastHot:       0,
		FastCold:      2,
		SlowHot:       2,
		SlowCold:      0,
		MaxHotAllowed: 2,
		Swaps:         []Swap{{ColdPfn: 0, HotPfn: 2}, {ColdPfn: 1, HotPfn: 3}},

		LatencyBeforeNs: 250,
		LatencyAfterNs:  100,
	}, mr)
	require.Equal(t, 4, mr.Migrated())
	require.Equal(t, PhaseMigrated, sim.Phase())

	testutils.VerifyDeepEqual(t, "snapshot", []PageInfo{
		{Pfn: 0, AccessCount: 5, Node: NodeFast, LatencyNs: 10, IsHot: true, Accessed: true},
		{Pfn: 1, AccessCount: 5, Node: NodeFast, LatencyNs: 10, IsHot: true, Accessed: true},
		{Pfn: 2, AccessCount: 0, Node: NodeSlow, LatencyNs: 25},
		{Pfn: 3, AccessCount: 0, Node: NodeSlow, LatencyNs: 25},
	}, sim.Snapshot())
	require.Equal(t, int64(100), sim.TotalLatency())
	require.Same(t, mr, sim.LastMigration())
}

func TestAllZeroAccesses(t *testing.T) {
	sim := newTestSimulator(t, 16, 8)
	require.Equal(t, 0, sim.Classify(DefaultThresholdAccesses))
	for _, pi := range sim.Snapshot() {
		require.True(t, pi.IsHot, "page %d", pi.Pfn)
	}
	for _, ratio := range []float64{0, 0.5, 0.9, 1} {
		mr, err := sim.Migrate(ratio)
		require.NoError(t, err)
		require.Empty(t, mr.Swaps)
		require.Equal(t, 0, mr.FastCold)
	}
	verifyPool(t, sim)
	require.Equal(t, int64(0), sim.TotalLatency())
}

func TestMigrateBeforeClassify(t *testing.T) {
	sim := newTestSimulator(t, 8, 4)
	accessPages(t, sim, []int{0, 0, 0, 0, 9, 9, 9, 9})
	before := sim.Snapshot()
	mr, err := sim.Migrate(1.0)
	require.NoError(t, err)
	require.Empty(t, mr.Swaps)
	require.Equal(t, 0, mr.SlowHot)
	require.Equal(t, PhaseMigrated, sim.Phase())
	testutils.VerifyDeepEqual(t, "snapshot", before, sim.Snapshot())
}

func TestMigrateRatio(t *testing.T) {
	sim := newTestSimulator(t, 8, 4)
	accessPages(t, sim, []int{0, 9, 0, 0, 9, 9, 9, 0})
	require.Equal(t, int64(765), sim.TotalLatency())
	require.Equal(t, 9, sim.Classify(1))

	mr, err := sim.Migrate(0.5)
	require.NoError(t, err)
	testutils.VerifyDeepEqual(t, "migration result", &MigrationResult{
		Ratio:         0.5,
		FastPages:     4,
		FastHot:       1,
		FastCold:      3,
		SlowHot:       3,
		SlowCold:      1,
		MaxHotAllowed: 2,
		Swaps:         []Swap{{ColdPfn: 0, HotPfn: 4}},

		LatencyBeforeNs: 765,
		LatencyAfterNs:  630,
	}, mr)
	verifyPool(t, sim)
	require.Equal(t, int64(630), sim.TotalLatency())
	require.Equal(t, 2, fastHotPages(sim.Snapshot()))

	// the cap is reached, nothing to do
	mr, err = sim.Migrate(0.5)
	require.NoError(t, err)
	require.Empty(t, mr.Swaps)
	require.Equal(t, 2, mr.FastHot)

	mr, err = sim.Migrate(1.0)
	require.NoError(t, err)
	testutils.VerifyDeepEqual(t, "swaps",
		[]Swap{{ColdPfn: 2, HotPfn: 5}, {ColdPfn: 3, HotPfn: 6}}, mr.Swaps)
	verifyPool(t, sim)
	require.Equal(t, 4, fastHotPages(sim.Snapshot()))
	require.Equal(t, 6, sim.Stats().Migrated())

	for _, ratio := range []float64{-0.1, 1.01, 2} {
		before := sim.Snapshot()
		_, err := sim.Migrate(ratio)
		require.True(t, errors.Is(err, ErrInvalidConfiguration), "ratio %v", ratio)
		testutils.VerifyDeepEqual(t, "snapshot", before, sim.Snapshot())
	}
}

func TestDefaultRun(t *testing.T) {
	stats := NewStats()
	sim, err := NewSimulator(nil, WithStats(stats))
	require.NoError(t, err)
	require.Equal(t, *DefaultConfig(), sim.Config())

	require.NoError(t, sim.RunDefaultCycle())
	threshold := sim.ClassifyDefault()
	require.Greater(t, threshold, 0)

	// classification is a pure function of the access counts
	labels := sim.Snapshot()
	require.Equal(t, threshold, sim.ClassifyDefault())
	testutils.VerifyDeepEqual(t, "labels", labels, sim.Snapshot())

	before := sim.Snapshot()
	latencyBefore := sim.TotalLatency()
	hotBefore := fastHotPages(before)

	mr, err := sim.MigrateDefault()
	require.NoError(t, err)
	after := sim.Snapshot()
	verifyPool(t, sim)

	ratio := DefaultMaxHotRatio
	require.Equal(t, int(math.Floor(1024*ratio)), mr.MaxHotAllowed)
	require.Equal(t, 921, mr.MaxHotAllowed)
	hotAfter := fastHotPages(after)
	require.LessOrEqual(t, hotAfter, maxInt(hotBefore, mr.MaxHotAllowed))
	require.Equal(t, hotBefore+len(mr.Swaps), hotAfter)
	require.Equal(t, sortedAccessCounts(before), sortedAccessCounts(after))
	require.LessOrEqual(t, sim.TotalLatency(), latencyBefore)

	// exactly the swapped pages changed slot
	moved := map[int]bool{}
	for _, s := range mr.Swaps {
		moved[s.ColdPfn] = true
		moved[s.HotPfn] = true
		require.Equal(t, before[s.ColdPfn].AccessCount, after[s.HotPfn].AccessCount)
		require.Equal(t, before[s.HotPfn].AccessCount, after[s.ColdPfn].AccessCount)
		require.True(t, after[s.ColdPfn].IsHot)
		require.False(t, after[s.HotPfn].IsHot)
	}
	require.Len(t, moved, mr.Migrated())
	for pfn := range before {
		if !moved[pfn] {
			require.Equal(t, before[pfn], after[pfn], "untouched page %d", pfn)
		}
	}

	require.Equal(t, uint64(1), stats.Beats("simulator.cycle"))
	require.Equal(t, uint64(2), stats.Beats("simulator.classify"))
	require.Equal(t, uint64(1), stats.Beats("simulator.migrate"))
	require.Equal(t, mr.Migrated(), stats.Migrated())
	summary := stats.Summarize()
	for _, table := range []string{"table: events", "table: access cycles", "table: classifications", "table: migrations"} {
		require.Contains(t, summary, table)
	}
}

func TestSummarizeNodes(t *testing.T) {
	sim := newTestSimulator(t, 4, 2)
	accessPages(t, sim, []int{1, 0, 5, 5})
	sim.Classify(5)
	testutils.VerifyDeepEqual(t, "summary", []NodeSummary{
		{Node: NodeFast, Pages: 2, HotPages: 0, Accesses: 1, LatencyNs: 10},
		{Node: NodeSlow, Pages: 2, HotPages: 2, Accesses: 10, LatencyNs: 250},
	}, SummarizeNodes(sim.Snapshot()))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
