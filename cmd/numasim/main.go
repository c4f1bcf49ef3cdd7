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

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/intel/numasim/pkg/config"
	logger "github.com/intel/numasim/pkg/log"
	"github.com/intel/numasim/pkg/memsim"
	"github.com/intel/numasim/pkg/metrics"
	"github.com/intel/numasim/pkg/report"
	"github.com/intel/numasim/pkg/version"
)

var log = logger.NewLogger("numasim")

// configFlags maps command line options to configuration fields.
var configFlags = map[string]string{
	"pages":      "TotalPages",
	"node-split": "NodeSplit",
	"accesses":   "CycleAccesses",
	"threshold":  "ThresholdAccesses",
	"ratio":      "MaxHotRatio",
	"fast-ns":    "FastLatencyNs",
	"slow-ns":    "SlowLatencyNs",
	"page-size":  "PageSize",
	"seed":       "Seed",
}

func exit(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, "numasim: "+format+"\n", a...)
	logger.Flush()
	os.Exit(1)
}

// loadConfig reads the configuration file, if any, and applies
// command line overrides on top of it.
func loadConfig(path string) (*memsim.Config, error) {
	cfg := memsim.DefaultConfig()
	if path != "" {
		data, err := config.DataFromFile(path)
		if err != nil {
			return nil, err
		}
		if err := data.Apply(config.SourceFile, cfg); err != nil {
			return nil, err
		}
		log.Info("loaded configuration from %s:", path)
		data.Print(log.Info)
	}
	overrides := map[string]string{}
	flag.Visit(func(f *flag.Flag) {
		key, ok := configFlags[f.Name]
		if !ok {
			return
		}
		value := f.Value.String()
		if key == "PageSize" {
			// keep sizes like 4096 strings
			value = strconv.Quote(value)
		}
		overrides[key] = value
	})
	data, err := config.DataFromStringMap(overrides)
	if err != nil {
		return nil, err
	}
	if err := data.Apply(config.SourceCommandLine, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run does one round: access cycle, classification, migration.
func run(sim *memsim.Simulator, r *report.Reporter, g prometheus.Gatherer) error {
	if err := sim.RunDefaultCycle(); err != nil {
		return err
	}
	before := sim.Snapshot()
	if _, err := r.WriteCharts(before, false); err != nil {
		return err
	}
	if _, err := r.WriteSnapshot("snapshot-before.json", before); err != nil {
		return err
	}

	threshold := sim.ClassifyDefault()
	log.Info("frequency threshold: %d accesses", threshold)

	mr, err := sim.MigrateDefault()
	if err != nil {
		return err
	}
	log.Info("%s", mr)

	return writeResults(sim, r, g)
}

// writeResults saves the final state and prints the latency report.
func writeResults(sim *memsim.Simulator, r *report.Reporter, g prometheus.Gatherer) error {
	latencyBefore := sim.TotalLatency()
	latencyAfter := latencyBefore
	if mr := sim.LastMigration(); mr != nil {
		latencyBefore, latencyAfter = mr.LatencyBeforeNs, mr.LatencyAfterNs
	}

	after := sim.Snapshot()
	paths, err := r.WriteCharts(after, true)
	if err != nil {
		return err
	}
	for _, path := range paths {
		log.Debug("chart saved to %s", path)
	}
	if _, err := r.WriteSnapshot("snapshot-after.json", after); err != nil {
		return err
	}
	if mr := sim.LastMigration(); mr != nil {
		if _, err := r.WriteMigration("migration.json", mr); err != nil {
			return err
		}
	}
	if _, err := r.WriteMetrics(g); err != nil {
		return err
	}

	r.Latency(latencyBefore, latencyAfter)
	cfg := sim.Config()
	r.NodeMemory(after, cfg.PageBytes())
	return nil
}

func main() {
	optConfig := flag.String("config", "", "-config=FILE read simulator configuration from YAML or JSON FILE")
	optOutput := flag.String("output", report.DefaultDir, "-output=DIR save charts and exports to DIR")
	optPrompt := flag.Bool("prompt", false, "-prompt drive the simulator from an interactive prompt")
	optEcho := flag.Bool("echo", false, "-echo echo commands read in the prompt")
	optStats := flag.Bool("stats", false, "-stats print statistics at exit")
	optDumpConfig := flag.Bool("dump-config", false, "-dump-config print effective configuration and exit")
	optColumns := flag.Int("columns", report.DefaultColumns, "-columns=NUM pfn buckets in access charts")
	optRows := flag.Int("rows", report.DefaultRows, "-rows=NUM height of access charts")
	optWidth := flag.Int("width", report.DefaultWidth, "-width=NUM bar width in histograms")

	flag.Int("pages", memsim.DefaultTotalPages, "-pages=NUM pages in the pool")
	flag.Int("node-split", memsim.DefaultNodeSplit, "-node-split=PFN first page on the slow node")
	flag.Int("accesses", memsim.DefaultCycleAccesses, "-accesses=NUM accesses in an access cycle")
	flag.Int("threshold", memsim.DefaultThresholdAccesses, "-threshold=NUM cumulative access threshold of classification")
	flag.Float64("ratio", memsim.DefaultMaxHotRatio, "-ratio=0.0-1.0 maximum share of hot pages on the fast node")
	flag.Int("fast-ns", memsim.DefaultFastLatencyNs, "-fast-ns=NUM access latency of the fast node")
	flag.Int("slow-ns", memsim.DefaultSlowLatencyNs, "-slow-ns=NUM access latency of the slow node")
	flag.String("page-size", memsim.DefaultPageSize, "-page-size=SIZE[k|M|G] page size")
	flag.Uint64("seed", memsim.DefaultSeed, "-seed=NUM seed of the access workload")

	flag.Parse()
	defer logger.Flush()

	log.Debug("numasim %s", version.Info())

	cfg, err := loadConfig(*optConfig)
	if err != nil {
		exit("invalid configuration: %v", err)
	}
	if *optDumpConfig {
		dump, err := config.DumpYAML(cfg)
		if err != nil {
			exit("%v", err)
		}
		fmt.Print(dump)
		return
	}

	sim, err := memsim.NewSimulator(cfg)
	if err != nil {
		exit("%v", err)
	}
	err = metrics.RegisterCollector("memsim", func() (prometheus.Collector, error) {
		return memsim.NewCollector(sim), nil
	})
	if err != nil {
		exit("%v", err)
	}
	g, err := metrics.NewMetricGatherer()
	if err != nil {
		exit("%v", err)
	}

	r, err := report.NewReporter(*optOutput, report.WithChartSize(*optColumns, *optRows, *optWidth))
	if err != nil {
		exit("%v", err)
	}

	if *optPrompt {
		prompt := memsim.NewPrompt("numasim> ", bufio.NewReader(os.Stdin), bufio.NewWriter(os.Stdout), sim)
		prompt.SetEcho(*optEcho)
		prompt.Interact()
		if err := writeResults(sim, r, g); err != nil {
			exit("%v", err)
		}
	} else if err := run(sim, r, g); err != nil {
		exit("%v", err)
	}

	if *optStats {
		log.InfoBlock("  ", "%s", sim.Stats().Summarize())
	}
}
