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
	"math"

	"github.com/hashicorp/go-multierror"

	"github.com/intel/numasim/pkg/config"
)

const (
	// DefaultTotalPages is the default number of pages in the pool.
	DefaultTotalPages = 2048
	// DefaultNodeSplit is the default first pfn on the slow node.
	DefaultNodeSplit = 1024
	// DefaultCycleAccesses is the default number of accesses in an access cycle.
	DefaultCycleAccesses = 10240
	// DefaultThresholdAccesses is the default cumulative access threshold.
	DefaultThresholdAccesses = 5120
	// DefaultMaxHotRatio is the default maximum share of hot pages on the fast node.
	DefaultMaxHotRatio = 0.9
	// DefaultFastLatencyNs is the default access latency of the fast node.
	DefaultFastLatencyNs = 10
	// DefaultSlowLatencyNs is the default access latency of the slow node.
	DefaultSlowLatencyNs = 25
	// DefaultPageSize is the default page size.
	DefaultPageSize = "4k"
	// DefaultSeed seeds the default random source of the workload.
	DefaultSeed = 42
)

// Config is the configuration of a Simulator.
type Config struct {
	// TotalPages is the number of pages in the pool.
	TotalPages int
	// NodeSplit is the first pfn on the slow node. Pages below
	// it start on the fast node.
	NodeSplit int
	// CycleAccesses is the number of accesses in an access cycle.
	CycleAccesses int
	// ThresholdAccesses is the cumulative number of accesses
	// that cold pages may account for in classification.
	ThresholdAccesses int
	// MaxHotRatio is the maximum share of hot pages on the fast
	// node after migration, 0.0 - 1.0.
	MaxHotRatio float64
	// FastLatencyNs and SlowLatencyNs are the access latencies
	// of the fast and the slow node in nanoseconds.
	FastLatencyNs int
	SlowLatencyNs int
	// PageSize is the size of a page: <NUM>[k|M|G].
	PageSize string
	// Seed seeds the random source of the workload.
	Seed uint64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		TotalPages:        DefaultTotalPages,
		NodeSplit:         DefaultNodeSplit,
		CycleAccesses:     DefaultCycleAccesses,
		ThresholdAccesses: DefaultThresholdAccesses,
		MaxHotRatio:       DefaultMaxHotRatio,
		FastLatencyNs:     DefaultFastLatencyNs,
		SlowLatencyNs:     DefaultSlowLatencyNs,
		PageSize:          DefaultPageSize,
		Seed:              DefaultSeed,
	}
}

// LoadConfig reads a YAML or JSON configuration file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	if err := config.ParseYAMLFile(path, c); err != nil {
		return nil, configError("%s", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseConfig parses YAML or JSON configuration data on top of the defaults.
func ParseConfig(raw []byte) (*Config, error) {
	c := DefaultConfig()
	if err := config.ParseYAMLData(raw, c); err != nil {
		return nil, configError("%s", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration, reporting all problems found.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if c.TotalPages <= 0 {
		errs = multierror.Append(errs, configError("TotalPages %d, > 0 expected", c.TotalPages))
	}
	if c.NodeSplit < 0 || c.NodeSplit > c.TotalPages {
		errs = multierror.Append(errs, configError("NodeSplit %d, 0-%d expected", c.NodeSplit, c.TotalPages))
	}
	if c.CycleAccesses < 0 {
		errs = multierror.Append(errs, configError("CycleAccesses %d, >= 0 expected", c.CycleAccesses))
	}
	if c.ThresholdAccesses < 0 {
		errs = multierror.Append(errs, configError("ThresholdAccesses %d, >= 0 expected", c.ThresholdAccesses))
	}
	if err := validateRatio(c.MaxHotRatio); err != nil {
		errs = multierror.Append(errs, err)
	}
	if c.FastLatencyNs <= 0 {
		errs = multierror.Append(errs, configError("FastLatencyNs %d, > 0 expected", c.FastLatencyNs))
	}
	if c.SlowLatencyNs <= 0 {
		errs = multierror.Append(errs, configError("SlowLatencyNs %d, > 0 expected", c.SlowLatencyNs))
	}
	if size, err := ParseBytes(c.PageSize); err != nil {
		errs = multierror.Append(errs, configError("PageSize: %s", err))
	} else if size <= 0 {
		errs = multierror.Append(errs, configError("PageSize %q, > 0 expected", c.PageSize))
	}

	return errs.ErrorOrNil()
}

// Latency returns the access latency of a node in nanoseconds.
func (c *Config) Latency(node Node) int {
	if node == NodeFast {
		return c.FastLatencyNs
	}
	return c.SlowLatencyNs
}

// PageBytes returns the page size in bytes, 0 if the size is invalid.
func (c *Config) PageBytes() int64 {
	size, err := ParseBytes(c.PageSize)
	if err != nil {
		return 0
	}
	return size
}

// InitialNode returns the node of a page at construction.
func (c *Config) InitialNode(pfn int) Node {
	if pfn < c.NodeSplit {
		return NodeFast
	}
	return NodeSlow
}

func validateRatio(ratio float64) error {
	if math.IsNaN(ratio) || ratio < 0.0 || ratio > 1.0 {
		return configError("MaxHotRatio %v, 0.0-1.0 expected", ratio)
	}
	return nil
}
