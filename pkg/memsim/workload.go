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
	"math/rand/v2"
)

// Sampler is a source of standard normally distributed values.
// *rand.Rand satisfies it.
type Sampler interface {
	NormFloat64() float64
}

// NewSampler returns a seeded Sampler.
func NewSampler(seed uint64) Sampler {
	return rand.New(rand.NewPCG(seed, 0))
}

// Workload generates page accesses. The accessed pfns follow a
// normal distribution with mean pages/2 and standard deviation
// pages/6.
type Workload struct {
	pages   int
	mean    float64
	stddev  float64
	sampler Sampler
}

// NewWorkload creates a workload for a pool of the given size.
func NewWorkload(pages int, sampler Sampler) *Workload {
	return &Workload{
		pages:   pages,
		mean:    float64(pages) / 2,
		stddev:  float64(pages) / 6,
		sampler: sampler,
	}
}

// Next returns the pfn of the next access.
func (w *Workload) Next() int {
	x := w.mean + w.stddev*w.sampler.NormFloat64()
	// Truncate toward zero, then wrap into the pool. Samples
	// beyond either end of the pool are not clamped.
	return wrapPfn(int(x), w.pages)
}

// Generate returns the pfns of the next n accesses.
func (w *Workload) Generate(n int) []int {
	pfns := make([]int, n)
	for i := range pfns {
		pfns[i] = w.Next()
	}
	return pfns
}

// wrapPfn maps any integer into [0, pages) by floor modulo.
func wrapPfn(pfn, pages int) int {
	pfn %= pages
	if pfn < 0 {
		pfn += pages
	}
	return pfn
}
