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
	"github.com/pkg/errors"
)

var (
	// ErrOutOfRange is returned for page frame numbers outside the pool.
	ErrOutOfRange = errors.New("page frame number out of range")
	// ErrInvalidConfiguration is returned for malformed configuration or arguments.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

func outOfRangeError(pfn, pages int) error {
	return errors.Wrapf(ErrOutOfRange, "pfn %d, pool has pages 0-%d", pfn, pages-1)
}

func configError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfiguration, format, args...)
}
