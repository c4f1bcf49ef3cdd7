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
	"flag"
	"sort"
	"strings"
)

const (
	// DefaultLevel is the default logging severity level.
	DefaultLevel = LevelInfo
	// command-line argument prefix.
	optPrefix = "logger"
	// Flag for enabling/disabling normal non-debug logging for sources.
	optEnable = optPrefix + "-sources"
	// Flag for enabling/disabling debug logging for sources.
	optDebug = optPrefix + "-debug"
	// Flag for selecting logging level.
	optLevel = optPrefix + "-level"
	// Flag for selecting logging backend.
	optLogger = optPrefix
)

// srcmap tracks logging or debugging settings for sources.
type srcmap map[string]bool

// backendName is a flag.Value for selecting the active Backend.
type backendName string

// levelFlag is a flag.Value for the logging severity level.
type levelFlag struct{}

// srcmapFlag is a flag.Value for one of the source maps.
type srcmapFlag struct {
	debug bool
}

// ParseLevel parses the given level name.
func ParseLevel(value string) (Level, error) {
	levels := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warning": LevelWarn,
		"warn":    LevelWarn,
		"error":   LevelError,
		"fatal":   LevelFatal,
		"panic":   LevelPanic,
	}
	level, ok := levels[strings.ToLower(value)]
	if !ok {
		return DefaultLevel, loggerError("invalid logging level %s", value)
	}
	return level, nil
}

// String returns the name of the level.
func (l Level) String() string {
	names := map[Level]string{
		LevelDebug: "debug",
		LevelInfo:  "info",
		LevelWarn:  "warning",
		LevelError: "error",
		LevelFatal: "fatal",
		LevelPanic: "panic",
	}
	if level, ok := names[l]; ok {
		return level
	}
	return names[LevelInfo]
}

func (levelFlag) Set(value string) error {
	level, err := ParseLevel(value)
	if err != nil {
		return err
	}
	SetLevel(level)
	return nil
}

func (levelFlag) String() string {
	if log == nil {
		return DefaultLevel.String()
	}
	log.RLock()
	defer log.RUnlock()
	return log.level.String()
}

func (n *backendName) Set(value string) error {
	if err := SetBackend(value); err != nil {
		return err
	}
	*n = backendName(value)
	return nil
}

func (n *backendName) String() string {
	if n == nil || *n == "" {
		return FmtBackendName
	}
	return string(*n)
}

func (f *srcmapFlag) Set(value string) error {
	parsed, err := parseSrcmap(value)
	if err != nil {
		return err
	}

	log.Lock()
	defer log.Unlock()

	m := log.enable
	if f.debug {
		m = log.debug
	}
	if _, ok := parsed["*"]; ok {
		// a wildcard resets any earlier per-source settings
		for s := range m {
			delete(m, s)
		}
	}
	for src, state := range parsed {
		m[src] = state
	}
	log.update()

	return nil
}

func (f *srcmapFlag) String() string {
	if f == nil || log == nil {
		return ""
	}
	log.RLock()
	defer log.RUnlock()
	if f.debug {
		return log.debug.String()
	}
	return log.enable.String()
}

// SetSources enables or disables logging for sources, as in -logger-sources.
func SetSources(value string) error {
	return (&srcmapFlag{}).Set(value)
}

// SetDebug enables or disables debugging for sources, as in -logger-debug.
func SetDebug(value string) error {
	return (&srcmapFlag{debug: true}).Set(value)
}

// parseSrcmap parses a source map spec: [on:|off:]src1[,[on:|off:]src2,...].
// A state applies to all sources following it until the next state.
func parseSrcmap(value string) (srcmap, error) {
	sm := make(srcmap)
	prev := ""
	for _, entry := range strings.Split(value, ",") {
		state, src := "", ""
		statesrc := strings.Split(entry, ":")
		switch len(statesrc) {
		case 2:
			state, src = statesrc[0], statesrc[1]
		case 1:
			src = statesrc[0]
		default:
			return nil, loggerError("invalid state spec '%s' in source map", entry)
		}

		if state != "" {
			prev = state
		} else {
			state = prev
			if state == "" {
				state = "on"
			}
		}
		if src == "all" {
			src = "*"
		}
		if src == "" {
			continue
		}

		enabled, err := parseEnabled(state)
		if err != nil {
			return nil, err
		}
		sm[src] = enabled
	}
	return sm, nil
}

// parseEnabled parses an on/off state string.
func parseEnabled(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "on", "true", "enable", "enabled", "1":
		return true, nil
	case "off", "false", "disable", "disabled", "0":
		return false, nil
	}
	return false, loggerError("invalid state '%s' in source map", state)
}

// enabled checks the state for source, falling back to '*', then to def.
func (m srcmap) enabled(source string, def bool) bool {
	if state, ok := m[source]; ok {
		return state
	}
	if state, ok := m["*"]; ok {
		return state
	}
	return def
}

// String returns a string representation of the srcmap.
func (m srcmap) String() string {
	on, off := []string{}, []string{}
	for src, state := range m {
		if state {
			on = append(on, src)
		} else {
			off = append(off, src)
		}
	}
	sort.Strings(on)
	sort.Strings(off)

	switch {
	case len(on) == 0 && len(off) == 0:
		return ""
	case len(off) == 0:
		return "on:" + strings.Join(on, ",")
	case len(on) == 0:
		return "off:" + strings.Join(off, ",")
	}
	return "on:" + strings.Join(on, ",") + ",off:" + strings.Join(off, ",")
}

var defaultBackend backendName

// Register us for command line parsing.
func init() {
	flag.Var(&defaultBackend, optLogger,
		"logger backend to use (fmt, klog).")
	flag.Var(levelFlag{}, optLevel,
		"lowest severity level to pass through (debug, info, warning, error)")
	flag.Var(&srcmapFlag{}, optEnable,
		"comma-separated list of source names to enable/disable.\n"+
			"Specify '*' or 'all' to enable all sources, which is also the default.\n"+
			"Prefix a source or list with 'off:' to disable.")
	flag.Var(&srcmapFlag{debug: true}, optDebug,
		"comma-separated list of source names to enable debug messages for.\n"+
			"Specify '*' or 'all' to enable all sources.\n"+
			"Prefix a source or list with 'off:' to disable, which is also the default state.")
}
