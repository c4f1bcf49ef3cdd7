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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string
	Count   int
	Ratio   float64
	Enabled bool
}

func defaultTestConfig() *testConfig {
	return &testConfig{Name: "default", Count: 1, Ratio: 0.5}
}

func TestParseYAMLData(t *testing.T) {
	tcases := []struct {
		name     string
		data     string
		expected *testConfig
		fail     bool
	}{
		{
			name:     "empty data keeps defaults",
			data:     "",
			expected: defaultTestConfig(),
		},
		{
			name:     "yaml overrides given fields",
			data:     "Count: 5\nRatio: 0.9\n",
			expected: &testConfig{Name: "default", Count: 5, Ratio: 0.9},
		},
		{
			name:     "json is accepted",
			data:     `{"Name": "json", "Enabled": true}`,
			expected: &testConfig{Name: "json", Count: 1, Ratio: 0.5, Enabled: true},
		},
		{
			name: "unknown key is rejected",
			data: "Bogus: 1\n",
			fail: true,
		},
		{
			name: "mistyped value is rejected",
			data: "Count: many\n",
			fail: true,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultTestConfig()
			err := ParseYAMLData([]byte(tc.data), cfg)
			if tc.fail {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, cfg)
		})
	}
}

func TestParseYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Name: file\nCount: 3\n"), 0644))

	cfg := defaultTestConfig()
	require.NoError(t, ParseYAMLFile(path, cfg))
	require.Equal(t, &testConfig{Name: "file", Count: 3, Ratio: 0.5}, cfg)

	err := ParseYAMLFile(filepath.Join(dir, "missing.yaml"), cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing.yaml")
}

func TestApplyStringMap(t *testing.T) {
	data, err := DataFromStringMap(map[string]string{
		"Count":   "7",
		"Ratio":   "0.25",
		"Enabled": "true",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Count", "Enabled", "Ratio"}, data.Keys())

	cfg := defaultTestConfig()
	require.NoError(t, data.Apply(SourceCommandLine, cfg))
	require.Equal(t, &testConfig{Name: "default", Count: 7, Ratio: 0.25, Enabled: true}, cfg)

	bad, err := DataFromStringMap(map[string]string{"Unknown": "1"})
	require.NoError(t, err)
	err = bad.Apply(SourceCommandLine, defaultTestConfig())
	require.Error(t, err)
	require.Contains(t, err.Error(), string(SourceCommandLine))
}

func TestDataFromObject(t *testing.T) {
	data, err := DataFromObject(&testConfig{Name: "obj", Count: 2})
	require.NoError(t, err)
	require.Equal(t, "obj", data["Name"])

	cfg := &testConfig{}
	require.NoError(t, data.Apply(SourceDefault, cfg))
	require.Equal(t, &testConfig{Name: "obj", Count: 2}, cfg)

	dump, err := DumpYAML(cfg)
	require.NoError(t, err)
	require.Contains(t, dump, "Name: obj")
}

func TestDataFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Name: file\nCount: 3\n"), 0644))

	data, err := DataFromFile(path)
	require.NoError(t, err)
	require.Equal(t, []string{"Count", "Name"}, data.Keys())

	cfg := defaultTestConfig()
	require.NoError(t, data.Apply(SourceFile, cfg))
	require.Equal(t, &testConfig{Name: "file", Count: 3, Ratio: 0.5}, cfg)

	printed := []string{}
	data.Print(func(format string, args ...interface{}) {
		printed = append(printed, fmt.Sprintf(format, args...))
	})
	require.Equal(t, []string{"Count: 3", "Name: file"}, printed)

	_, err = DataFromFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("Name: [unterminated\n"), 0644))
	_, err = DataFromFile(path)
	require.Error(t, err)
}
