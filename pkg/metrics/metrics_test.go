// Copyright 2019 Intel Corporation. All Rights Reserved.
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

package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newGauge(name string, value float64) InitCollector {
	return func() (prometheus.Collector, error) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: "test gauge " + name})
		g.Set(value)
		return g, nil
	}
}

func TestRegisterCollector(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterCollector("a", newGauge("test_a", 1)))
	require.NoError(t, r.RegisterCollector("b", newGauge("test_b", 2)))
	require.Error(t, r.RegisterCollector("a", newGauge("test_a", 3)))
	require.Equal(t, []string{"a", "b"}, r.Names())
}

func TestNewMetricGatherer(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterCollector("a", newGauge("test_a", 1)))
	require.NoError(t, r.RegisterCollector("b", newGauge("test_b", 2)))
	require.NoError(t, r.RegisterCollector("broken", func() (prometheus.Collector, error) {
		return nil, fmt.Errorf("cannot initialize")
	}))

	g, err := r.NewMetricGatherer()
	require.NoError(t, err)
	families, err := g.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		require.Len(t, mf.GetMetric(), 1)
		values[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
	}
	require.Equal(t, map[string]float64{"test_a": 1, "test_b": 2}, values)

	// collectors are initialized only once
	g, err = r.NewMetricGatherer()
	require.NoError(t, err)
	families, err = g.Gather()
	require.NoError(t, err)
	require.Len(t, families, 2)
}
