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
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	logger "github.com/intel/numasim/pkg/log"
)

// InitCollector is the type for functions that initialize collectors.
type InitCollector func() (prometheus.Collector, error)

// Registry tracks named collectors and the ones already initialized.
type Registry struct {
	sync.Mutex
	builtIn     map[string]InitCollector
	registered  []prometheus.Collector
	initialized map[string]struct{}
}

var (
	defaultRegistry = NewRegistry()
	log             = logger.NewLogger("collectors")
)

// NewRegistry creates an empty collector registry.
func NewRegistry() *Registry {
	return &Registry{
		builtIn:     make(map[string]InitCollector),
		registered:  []prometheus.Collector{},
		initialized: make(map[string]struct{}),
	}
}

// RegisterCollector registers the named prometheus.Collector in the default registry.
func RegisterCollector(name string, init InitCollector) error {
	return defaultRegistry.RegisterCollector(name, init)
}

// NewMetricGatherer creates a prometheus.Gatherer for the default registry.
func NewMetricGatherer() (prometheus.Gatherer, error) {
	return defaultRegistry.NewMetricGatherer()
}

// RegisterCollector registers the named prometheus.Collector for metrics collection.
func (r *Registry) RegisterCollector(name string, init InitCollector) error {
	log.Info("registering collector %s...", name)

	r.Lock()
	defer r.Unlock()

	if _, found := r.builtIn[name]; found {
		return metricsError("collector %s already registered", name)
	}

	r.builtIn[name] = init

	return nil
}

// Names returns the names of registered collectors.
func (r *Registry) Names() []string {
	r.Lock()
	defer r.Unlock()

	names := make([]string, 0, len(r.builtIn))
	for name := range r.builtIn {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewMetricGatherer creates a new prometheus.Gatherer with all registered collectors.
func (r *Registry) NewMetricGatherer() (prometheus.Gatherer, error) {
	r.Lock()
	defer r.Unlock()

	reg := prometheus.NewPedanticRegistry()

	for name, cb := range r.builtIn {
		if _, ok := r.initialized[name]; ok {
			continue
		}

		c, err := cb()
		if err != nil {
			log.Error("failed to initialize collector '%s': %v, skipping it", name, err)
			continue
		}
		r.registered = append(r.registered, c)
		r.initialized[name] = struct{}{}
	}

	for _, c := range r.registered {
		if err := reg.Register(c); err != nil {
			return nil, metricsError("failed to register collector: %v", err)
		}
	}

	return reg, nil
}

func metricsError(format string, args ...interface{}) error {
	return errors.Errorf("metrics: "+format, args...)
}
