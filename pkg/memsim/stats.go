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
	"strings"
	"sync"
	"time"
)

// Stats collects events of simulator operations.
type Stats struct {
	sync.Mutex
	namePulse mapStringPStatsPulse
	cycles    []StatsAccessCycle
	classes   []StatsClassified
	moves     []StatsMigrated
}

type StatsPulse struct {
	sumBeats   uint64
	firstBeat  int64
	latestBeat int64
}

type StatsHeartbeat struct {
	name string
}

type StatsAccessCycle struct {
	accesses int
	touched  int
}

type StatsClassified struct {
	thresholdAccesses int
	threshold         int
	hot               int
	pages             int
}

type StatsMigrated struct {
	result MigrationResult
}

// NewStats creates an empty set of statistics.
func NewStats() *Stats {
	return &Stats{
		namePulse: make(mapStringPStatsPulse),
	}
}

func newStatsPulse() *StatsPulse {
	return &StatsPulse{}
}

// Store adds an event to the statistics.
func (s *Stats) Store(entry interface{}) {
	s.Lock()
	defer s.Unlock()

	switch v := entry.(type) {
	case StatsHeartbeat:
		s.beat(v.name)
	case StatsAccessCycle:
		s.beat("simulator.cycle")
		s.cycles = append(s.cycles, v)
	case StatsClassified:
		s.beat("simulator.classify")
		s.classes = append(s.classes, v)
	case StatsMigrated:
		s.beat("simulator.migrate")
		s.moves = append(s.moves, v)
	}
}

func (s *Stats) beat(name string) {
	pulse, ok := s.namePulse[name]
	if !ok {
		pulse = newStatsPulse()
		pulse.firstBeat = time.Now().UnixNano()
		s.namePulse[name] = pulse
	}
	pulse.sumBeats += 1
	pulse.latestBeat = time.Now().UnixNano()
}

// Beats returns the number of events stored under a name.
func (s *Stats) Beats(name string) uint64 {
	s.Lock()
	defer s.Unlock()
	if pulse, ok := s.namePulse[name]; ok {
		return pulse.sumBeats
	}
	return 0
}

// Migrated returns the total number of pages moved by all migrations.
func (s *Stats) Migrated() int {
	s.Lock()
	defer s.Unlock()
	total := 0
	for _, m := range s.moves {
		total += m.result.Migrated()
	}
	return total
}

func (s *Stats) Summarize() string {
	s.Lock()
	defer s.Unlock()

	lines := []string{}
	lines = append(lines, "table: events")
	lines = append(lines, "   count timeint[s] latest[s ago] name")
	now := time.Now().UnixNano()
	for _, name := range s.namePulse.sortedKeys() {
		pulse := s.namePulse[name]
		secondsSinceFirst := float32(now-pulse.firstBeat) / float32(time.Second)
		secondsSinceLatest := float32(now-pulse.latestBeat) / float32(time.Second)
		beatsMinusOne := pulse.sumBeats - 1
		if beatsMinusOne == 0 {
			beatsMinusOne = 1
		}
		lines = append(lines,
			fmt.Sprintf("%8d %10.3f %13.3f %s",
				pulse.sumBeats,
				(secondsSinceFirst-secondsSinceLatest)/float32(beatsMinusOne),
				secondsSinceLatest,
				name))
	}
	lines = append(lines, "table: access cycles")
	lines = append(lines, "   cycle   accesses new[pages]")
	for i, c := range s.cycles {
		lines = append(lines, fmt.Sprintf("%8d %10d %10d", i, c.accesses, c.touched))
	}
	lines = append(lines, "table: classifications")
	lines = append(lines, "   class  threshold[acc] threshold[freq]  hot[pages] cold[pages]")
	for i, c := range s.classes {
		lines = append(lines, fmt.Sprintf("%8d %14d %15d %11d %11d",
			i, c.thresholdAccesses, c.threshold, c.hot, c.pages-c.hot))
	}
	lines = append(lines, "table: migrations")
	lines = append(lines, "    move  ratio  maxhot node0:hot/cold node1:hot/cold   swaps")
	for i, m := range s.moves {
		r := m.result
		lines = append(lines, fmt.Sprintf("%8d %6.3f %7d %14s %14s %7d",
			i, r.Ratio, r.MaxHotAllowed,
			fmt.Sprintf("%d/%d", r.FastHot, r.FastCold),
			fmt.Sprintf("%d/%d", r.SlowHot, r.SlowCold),
			len(r.Swaps)))
	}
	return strings.Join(lines, "\n")
}

func (s *Stats) String() string {
	s.Lock()
	defer s.Unlock()
	return fmt.Sprintf("stats{cycles:%d,classifications:%d,migrations:%d}",
		len(s.cycles), len(s.classes), len(s.moves))
}
