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
)

// Swap is a pair of pages exchanged by migration. Pfns are the
// slots of the pages before the exchange.
type Swap struct {
	ColdPfn int `json:"coldPfn"`
	HotPfn  int `json:"hotPfn"`
}

// MigrationResult describes a migration pass.
type MigrationResult struct {
	Ratio         float64 `json:"ratio"`
	FastPages     int     `json:"fastPages"`
	FastHot       int     `json:"fastHot"`
	FastCold      int     `json:"fastCold"`
	SlowHot       int     `json:"slowHot"`
	SlowCold      int     `json:"slowCold"`
	MaxHotAllowed int     `json:"maxHotAllowed"`
	Swaps         []Swap  `json:"swaps"`

	// total latency of the pool before and after the pass
	LatencyBeforeNs int64 `json:"latencyBeforeNs"`
	LatencyAfterNs  int64 `json:"latencyAfterNs"`
}

// Migrated returns the number of pages that changed slot.
func (mr *MigrationResult) Migrated() int {
	return 2 * len(mr.Swaps)
}

func (mr *MigrationResult) String() string {
	return fmt.Sprintf("migration(ratio=%g, node0 %d pages: %d hot %d cold, node1: %d hot %d cold, max hot %d) => %d swaps",
		mr.Ratio, mr.FastPages, mr.FastHot, mr.FastCold, mr.SlowHot, mr.SlowCold,
		mr.MaxHotAllowed, len(mr.Swaps))
}

// Migrator swaps cold pages on the fast node with hot pages on the
// slow node, keeping the share of hot pages on the fast node at or
// below a ratio.
type Migrator struct {
	cfg *Config
}

// NewMigrator creates a migrator using per-node latencies from cfg.
func NewMigrator(cfg *Config) *Migrator {
	return &Migrator{cfg: cfg}
}

// Plan computes the swaps of a migration pass without touching the pool.
func (m *Migrator) Plan(slots []*Page, ratio float64) (*MigrationResult, error) {
	if err := validateRatio(ratio); err != nil {
		return nil, err
	}
	var fastCold, slowHot []int
	mr := &MigrationResult{
		Ratio:           ratio,
		Swaps:           []Swap{},
		LatencyBeforeNs: totalLatency(slots),
	}
	for pfn, p := range slots {
		switch {
		case p.node == NodeFast && p.hot:
			mr.FastHot++
		case p.node == NodeFast:
			fastCold = append(fastCold, pfn)
		case p.hot:
			slowHot = append(slowHot, pfn)
		default:
			mr.SlowCold++
		}
	}
	mr.FastCold = len(fastCold)
	mr.SlowHot = len(slowHot)
	mr.FastPages = mr.FastHot + mr.FastCold
	mr.MaxHotAllowed = int(math.Floor(float64(mr.FastPages) * ratio))

	k := minInt(len(fastCold), len(slowHot), mr.MaxHotAllowed-mr.FastHot)
	for i := 0; i < k; i++ {
		mr.Swaps = append(mr.Swaps, Swap{ColdPfn: fastCold[i], HotPfn: slowHot[i]})
	}
	return mr, nil
}

// Apply performs planned swaps on the pool.
func (m *Migrator) Apply(slots []*Page, mr *MigrationResult) {
	for _, s := range mr.Swaps {
		cold, hot := slots[s.ColdPfn], slots[s.HotPfn]
		slots[s.ColdPfn], slots[s.HotPfn] = hot, cold
		cold.pfn, hot.pfn = s.HotPfn, s.ColdPfn
		coldNode, hotNode := cold.node, hot.node
		cold.setNode(hotNode, m.cfg.Latency(hotNode))
		hot.setNode(coldNode, m.cfg.Latency(coldNode))
		log.Debug("swapped cold page %d and hot page %d", s.ColdPfn, s.HotPfn)
	}
	mr.LatencyAfterNs = totalLatency(slots)
}

// Migrate plans and applies a migration pass.
func (m *Migrator) Migrate(slots []*Page, ratio float64) (*MigrationResult, error) {
	mr, err := m.Plan(slots, ratio)
	if err != nil {
		return nil, err
	}
	m.Apply(slots, mr)
	return mr, nil
}

func totalLatency(slots []*Page) int64 {
	total := int64(0)
	for _, p := range slots {
		total += int64(p.accessCount) * int64(p.latencyNs)
	}
	return total
}
