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
	"strings"

	units "github.com/docker/go-units"
	"github.com/pkg/errors"
)

// ParseBytes parses a binary size: <NUM>[k|M|G|T][B].
func ParseBytes(s string) (int64, error) {
	size, err := units.RAMInBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(err, "syntax error in bytes %q", s)
	}
	return size, nil
}

// FormatBytes formats a size in binary units, for instance 4MiB.
func FormatBytes(size int64) string {
	return units.BytesSize(float64(size))
}
