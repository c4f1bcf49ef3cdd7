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
	"fmt"
	"strings"
)

// Histogram maps an access count to the number of pages with that count.
type Histogram map[int]int

// NewHistogram counts pages per access count.
func NewHistogram(pages []*Page) Histogram {
	h := make(Histogram)
	for _, p := range pages {
		h[p.accessCount]++
	}
	return h
}

// HistogramOf counts pages per access count in a snapshot.
func HistogramOf(snapshot []PageInfo) Histogram {
	h := make(Histogram)
	for _, pi := range snapshot {
		h[pi.AccessCount]++
	}
	return h
}

// Counts returns the distinct access counts in ascending order.
func (h Histogram) Counts() []int {
	return mapIntInt(h).sortedKeys()
}

// Accesses returns the total number of accesses in the histogram.
func (h Histogram) Accesses() int {
	total := 0
	for count, pages := range h {
		total += count * pages
	}
	return total
}

// Max returns the largest access count, 0 for an empty histogram.
func (h Histogram) Max() int {
	max := 0
	for count := range h {
		if count > max {
			max = count
		}
	}
	return max
}

func (h Histogram) String() string {
	entries := []string{}
	for _, count := range h.Counts() {
		entries = append(entries, fmt.Sprintf("%d:%d", count, h[count]))
	}
	return "{" + strings.Join(entries, ",") + "}"
}

// FrequencyThreshold returns the smallest access count f for which
// the accesses of all pages with access counts up to f reach
// thresholdAccesses. Accesses, not pages, are accumulated: each
// distinct count c adds c times the number of pages with count c.
// Returns 0 if the threshold is never reached.
func FrequencyThreshold(h Histogram, thresholdAccesses int) int {
	cumulative := 0
	for _, count := range h.Counts() {
		cumulative += h[count] * count
		if cumulative >= thresholdAccesses {
			return count
		}
	}
	return 0
}

// Classifier labels pages hot or cold.
type Classifier struct {
	// ThresholdAccesses is the cumulative access threshold.
	ThresholdAccesses int
}

// Threshold returns the frequency threshold of the pages.
func (c Classifier) Threshold(pages []*Page) int {
	return FrequencyThreshold(NewHistogram(pages), c.ThresholdAccesses)
}

// Classify marks pages with at least threshold accesses hot, the
// rest cold, and returns the threshold and the number of hot pages.
func (c Classifier) Classify(pages []*Page) (int, int) {
	threshold := c.Threshold(pages)
	hot := 0
	for _, p := range pages {
		p.hot = p.accessCount >= threshold
		if p.hot {
			hot++
		}
	}
	return threshold, hot
}
