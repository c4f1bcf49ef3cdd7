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

package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	units "github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	logger "github.com/intel/numasim/pkg/log"
	"github.com/intel/numasim/pkg/memsim"
)

const (
	// DefaultDir is the default output directory.
	DefaultDir = "output"
	// MetricsFile is the name of the metrics export.
	MetricsFile = "metrics.prom"
)

var log = logger.NewLogger("report")

// Reporter writes charts and exports to an output directory and
// prints the console report.
type Reporter struct {
	dir     string
	out     io.Writer
	columns int
	rows    int
	width   int
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithOutput sets the writer of the console report.
func WithOutput(w io.Writer) Option {
	return func(r *Reporter) {
		r.out = w
	}
}

// WithChartSize sets the number of pfn buckets and rows in access
// charts and the bar width in histograms.
func WithChartSize(columns, rows, width int) Option {
	return func(r *Reporter) {
		r.columns = columns
		r.rows = rows
		r.width = width
	}
}

// NewReporter creates a reporter, creating dir if it does not exist.
func NewReporter(dir string, opts ...Option) (*Reporter, error) {
	if dir == "" {
		dir = DefaultDir
	}
	r := &Reporter{
		dir:     dir,
		out:     os.Stdout,
		columns: DefaultColumns,
		rows:    DefaultRows,
		width:   DefaultWidth,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, reportError("failed to create output directory %q: %v", dir, err)
	}
	return r, nil
}

// Dir returns the output directory.
func (r *Reporter) Dir() string {
	return r.dir
}

// WriteCharts saves the pfn access chart and the access histogram.
func (r *Reporter) WriteCharts(snapshot []memsim.PageInfo, colored bool) ([]string, error) {
	charts := []*Chart{
		PfnAccessChart(snapshot, colored, r.columns, r.rows),
		AccessHistogramChart(snapshot, colored, r.width),
	}
	paths := []string{}
	for _, c := range charts {
		path, err := r.WriteChart(c)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteChart saves a chart to a file named after its title.
func (r *Reporter) WriteChart(c *Chart) (string, error) {
	return r.writeFile(c.FileName(), []byte(c.String()))
}

// WriteSnapshot exports a snapshot as JSON.
func (r *Reporter) WriteSnapshot(name string, snapshot []memsim.PageInfo) (string, error) {
	return r.writeJSON(name, snapshot)
}

// WriteMigration exports a migration result as JSON.
func (r *Reporter) WriteMigration(name string, mr *memsim.MigrationResult) (string, error) {
	return r.writeJSON(name, mr)
}

// WriteMetrics exports gathered metrics in the text exposition format.
func (r *Reporter) WriteMetrics(g prometheus.Gatherer) (string, error) {
	families, err := g.Gather()
	if err != nil {
		return "", reportError("failed to gather metrics: %v", err)
	}
	path := filepath.Join(r.dir, MetricsFile)
	f, err := os.Create(path)
	if err != nil {
		return "", reportError("failed to create %q: %v", path, err)
	}
	defer f.Close()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return "", reportError("failed to write metric %s: %v", mf.GetName(), err)
		}
	}
	log.Debug("wrote %d metric families to %s", len(families), path)
	return path, nil
}

// Latency prints the total latency before and after migration.
func (r *Reporter) Latency(before, after int64) {
	fmt.Fprintf(r.out, "Latency before migration: %d ns\n", before)
	fmt.Fprintf(r.out, "Latency after migration: %d ns\n", after)
}

// NodeMemory prints pages and memory per node.
func (r *Reporter) NodeMemory(snapshot []memsim.PageInfo, pageBytes int64) {
	for _, ns := range memsim.SummarizeNodes(snapshot) {
		fmt.Fprintf(r.out, "node %s: %d pages (%s), %d hot (%s), %d accesses\n",
			ns.Node,
			ns.Pages, units.BytesSize(float64(int64(ns.Pages)*pageBytes)),
			ns.HotPages, units.BytesSize(float64(int64(ns.HotPages)*pageBytes)),
			ns.Accesses)
	}
}

func (r *Reporter) writeJSON(name string, obj interface{}) (string, error) {
	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "", reportError("failed to marshal %s: %v", name, err)
	}
	return r.writeFile(name, append(data, '\n'))
}

func (r *Reporter) writeFile(name string, data []byte) (string, error) {
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", reportError("failed to write %q: %v", path, err)
	}
	log.Debug("wrote %s", path)
	return path, nil
}

func reportError(format string, args ...interface{}) error {
	return errors.Errorf("report: "+format, args...)
}
