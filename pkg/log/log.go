// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
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

package log

import (
	"fmt"
	"math"
	"strings"
	"sync"
)

const (
	maxLoggers = math.MaxUint16
)

// logging is our runtime state.
type logging struct {
	sync.RWMutex
	level   Level                // lowest unsuppressed severity
	forced  bool                 // debugging forced on for all sources
	active  Backend              // active backend
	backend map[string]BackendFn // registered backends
	loggers map[string]logger    // source name to logger
	sources map[logger]string    // logger to source name
	configs map[logger]config    // per-logger configuration
	enable  srcmap               // sources with logging enabled/disabled
	debug   srcmap               // sources with debugging enabled/disabled
	align   int                  // longest source name seen
}

var log = &logging{
	level:   DefaultLevel,
	backend: make(map[string]BackendFn),
	loggers: make(map[string]logger),
	sources: make(map[logger]string),
	configs: make(map[logger]config),
	enable:  make(srcmap),
	debug:   make(srcmap),
}

// NewLogger creates a logger for the given source, returning any existing one.
func NewLogger(source string) Logger {
	return log.get(source)
}

// Get is an alias for NewLogger.
func Get(source string) Logger {
	return log.get(source)
}

// SetLevel sets the lowest severity level that passes through.
func SetLevel(level Level) {
	log.Lock()
	defer log.Unlock()
	log.level = level
}

// SetBackend activates the named Backend.
func SetBackend(name string) error {
	log.Lock()
	defer log.Unlock()
	return log.setBackend(name)
}

// Flush waits until the active backend has emitted all pending messages.
func Flush() {
	log.RLock()
	active := log.active
	log.RUnlock()
	if active != nil {
		active.Sync()
	}
}

// get returns the logger for source, creating it if necessary.
func (log *logging) get(source string) logger {
	source = strings.Trim(source, "[] ")

	log.Lock()
	defer log.Unlock()

	if l, ok := log.loggers[source]; ok {
		return l
	}
	if len(log.loggers) >= maxLoggers {
		panic(fmt.Sprintf("log: can't create logger %q, too many loggers", source))
	}

	l := logger(len(log.loggers))
	log.loggers[source] = l
	log.sources[l] = source
	log.configs[l] = mkConfig(log.enable.enabled(source, true), log.debug.enabled(source, false))

	if len(source) > log.align {
		log.align = len(source)
		if log.active != nil {
			log.active.SetSourceAlignment(log.align)
		}
	}

	return l
}

// setBackend creates and activates the named backend. Called with the lock held.
func (log *logging) setBackend(name string) error {
	if log.active != nil && log.active.Name() == name {
		return nil
	}
	fn, ok := log.backend[name]
	if !ok {
		return loggerError("unknown logger backend %q", name)
	}
	if log.active != nil {
		log.active.Stop()
	}
	log.active = fn()
	log.active.SetSourceAlignment(log.align)
	return nil
}

// update reconfigures all loggers after a change in enabled/debugged sources.
func (log *logging) update() {
	for source, l := range log.loggers {
		cfg := log.configs[l]
		cfg.setLogging(log.enable.enabled(source, true))
		cfg.setDebugging(log.debug.enabled(source, false))
		log.configs[l] = cfg
	}
}

// forceDebug forces debugging on or off for all sources.
func (log *logging) forceDebug(state bool) bool {
	log.Lock()
	defer log.Unlock()
	old := log.forced
	log.forced = state
	return old
}

func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("logger: "+format, args...)
}
