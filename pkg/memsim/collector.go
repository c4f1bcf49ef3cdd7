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
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus Metric descriptor indices and descriptor table
const (
	pagesDesc = iota
	nodeMemoryDesc
	accessesDesc
	latencyDesc
	totalLatencyDesc
	thresholdDesc
	migratedDesc
	numDescriptors
)

var descriptors = [numDescriptors]*prometheus.Desc{
	pagesDesc: prometheus.NewDesc(
		"numasim_pages",
		"Number of simulated pages on a node.",
		[]string{
			// NUMA node
			"node",
			// hot or cold
			"tier",
		}, nil,
	),
	nodeMemoryDesc: prometheus.NewDesc(
		"numasim_node_memory_bytes",
		"Memory of the pages on a node.",
		[]string{
			"node",
		}, nil,
	),
	accessesDesc: prometheus.NewDesc(
		"numasim_page_accesses",
		"Recorded accesses to the pages on a node.",
		[]string{
			"node",
		}, nil,
	),
	latencyDesc: prometheus.NewDesc(
		"numasim_latency_ns",
		"Total access latency of the pages on a node.",
		[]string{
			"node",
		}, nil,
	),
	totalLatencyDesc: prometheus.NewDesc(
		"numasim_total_latency_ns",
		"Total access latency of all pages.",
		nil, nil,
	),
	thresholdDesc: prometheus.NewDesc(
		"numasim_frequency_threshold",
		"Access count at or above which pages are hot.",
		nil, nil,
	),
	migratedDesc: prometheus.NewDesc(
		"numasim_migrated_pages",
		"Pages that changed slot in migrations.",
		nil, nil,
	),
}

type collector struct {
	sim *Simulator
}

// NewCollector creates a Prometheus collector for the simulator.
func NewCollector(sim *Simulator) prometheus.Collector {
	return &collector{sim: sim}
}

// Describe implements prometheus.Collector interface
func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range descriptors {
		ch <- d
	}
}

// Collect implements prometheus.Collector interface
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	st := c.sim.state()
	pageBytes := c.sim.cfg.PageBytes()
	total := int64(0)

	for _, ns := range SummarizeNodes(st.snapshot) {
		node := ns.Node.String()
		ch <- prometheus.MustNewConstMetric(
			descriptors[pagesDesc],
			prometheus.GaugeValue,
			float64(ns.HotPages),
			node, "hot",
		)
		ch <- prometheus.MustNewConstMetric(
			descriptors[pagesDesc],
			prometheus.GaugeValue,
			float64(ns.Pages-ns.HotPages),
			node, "cold",
		)
		ch <- prometheus.MustNewConstMetric(
			descriptors[nodeMemoryDesc],
			prometheus.GaugeValue,
			float64(int64(ns.Pages)*pageBytes),
			node,
		)
		ch <- prometheus.MustNewConstMetric(
			descriptors[accessesDesc],
			prometheus.CounterValue,
			float64(ns.Accesses),
			node,
		)
		ch <- prometheus.MustNewConstMetric(
			descriptors[latencyDesc],
			prometheus.GaugeValue,
			float64(ns.LatencyNs),
			node,
		)
		total += ns.LatencyNs
	}

	ch <- prometheus.MustNewConstMetric(
		descriptors[totalLatencyDesc],
		prometheus.GaugeValue,
		float64(total),
	)
	if st.classified {
		ch <- prometheus.MustNewConstMetric(
			descriptors[thresholdDesc],
			prometheus.GaugeValue,
			float64(st.threshold),
		)
	}
	ch <- prometheus.MustNewConstMetric(
		descriptors[migratedDesc],
		prometheus.CounterValue,
		float64(st.migrated),
	)
}
