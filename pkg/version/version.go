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

// Package version tags built binaries with version metadata.
//
// Set the metadata with linker flags, for instance:
//
//	go build -ldflags \
//	  "-X=github.com/intel/numasim/pkg/version.Version=<version> \
//	   -X=github.com/intel/numasim/pkg/version.Build=<build-id>"
//
// Importing the package adds a -version command line option.
package version

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Default values of variables we'll override with the linker.
var (
	// Version is our version as given by 'git describe'.
	Version = "unknown"
	// Build is the SHA1 of the repository we've been built from.
	Build = "unknown"
)

// Info returns version and build on a single line.
func Info() string {
	return fmt.Sprintf("version %s, build %s", Version, Build)
}

// PrintVersionInfo prints version information about this binary.
func PrintVersionInfo(w io.Writer) {
	fmt.Fprintf(w, "%s version information:\n", filepath.Base(os.Args[0]))
	fmt.Fprintf(w, "  - version: %s\n", Version)
	fmt.Fprintf(w, "  - build:   %s\n", Build)
}

// version hooks into flag.Value.Set of -version.
type version struct{}

// IsBoolFlag tell flag that we only have optional arguments.
func (version) IsBoolFlag() bool {
	return true
}

func (version) Set(value string) error {
	print, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	if print {
		PrintVersionInfo(os.Stdout)
		os.Exit(0)
	}
	return nil
}

func (*version) String() string {
	return "false"
}

func init() {
	flag.Var(&version{}, "version", "print version information about "+filepath.Base(os.Args[0]))
}
