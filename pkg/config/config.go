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

// Package config loads configuration from YAML or JSON data.
//
// Configuration is applied on top of an object holding the default
// values. Keys missing from the data leave the corresponding field
// untouched, unknown keys are rejected. Data from several sources
// (a file, then command line overrides) can be applied in order.
package config

import (
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	logger "github.com/intel/numasim/pkg/log"
)

// Source describes where a piece of configuration data comes from.
type Source string

const (
	// SourceDefault marks built-in default values.
	SourceDefault Source = "default"
	// SourceFile marks data read from a configuration file.
	SourceFile Source = "file"
	// SourceCommandLine marks values set on the command line.
	SourceCommandLine Source = "command line"
)

var log = logger.NewLogger("config")

// ParseYAMLFile reads the given file and applies it on top of obj.
func ParseYAMLFile(path string, obj interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return configError("failed to read file %q: %v", path, err)
	}
	if err := ParseYAMLData(raw, obj); err != nil {
		return errors.Wrapf(err, "configuration file %q", path)
	}
	log.Info("loaded configuration from %s %q", SourceFile, path)
	return nil
}

// ParseYAMLData applies the given YAML or JSON data on top of obj.
func ParseYAMLData(raw []byte, obj interface{}) error {
	if err := yaml.UnmarshalStrict(raw, obj); err != nil {
		return configError("failed to apply configuration to %T: %v", obj, err)
	}
	return nil
}

// Apply applies configuration data from source on top of obj.
func (d Data) Apply(source Source, obj interface{}) error {
	if len(d) == 0 {
		return nil
	}
	raw, err := yaml.Marshal(d)
	if err != nil {
		return configError("failed to marshal %s data: %v", source, err)
	}
	if err := ParseYAMLData(raw, obj); err != nil {
		return errors.Wrapf(err, "%s", source)
	}
	log.Debug("applied %s configuration:", source)
	log.DebugBlock("  ", "%s", d.String())
	return nil
}

// DumpYAML returns obj marshalled as YAML.
func DumpYAML(obj interface{}) (string, error) {
	raw, err := yaml.Marshal(obj)
	if err != nil {
		return "", configError("failed to marshal %T: %v", obj, err)
	}
	return string(raw), nil
}

func configError(format string, args ...interface{}) error {
	return errors.Errorf("config: "+format, args...)
}
