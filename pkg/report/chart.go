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

package report

import (
	"fmt"
	"strings"

	"github.com/intel/numasim/pkg/memsim"
)

const (
	// ColdMark draws accesses of cold pages, and of all pages in uncolored charts.
	ColdMark = '#'
	// HotMark draws accesses of hot pages in colored charts.
	HotMark = 'H'

	// DefaultColumns is the default number of pfn buckets in access charts.
	DefaultColumns = 64
	// DefaultRows is the default height of access charts.
	DefaultRows = 16
	// DefaultWidth is the default width of the bars in histograms.
	DefaultWidth = 60
)

// Chart is a text rendering of simulator state.
type Chart struct {
	Title string
	Lines []string
}

func (c *Chart) String() string {
	return c.Title + "\n" + strings.Join(c.Lines, "\n") + "\n"
}

// FileName returns the name of the file a chart is saved to.
func (c *Chart) FileName() string {
	return FileName(c.Title, ".txt")
}

// FileName converts a title to a file name: lowercase, spaces
// replaced by underscores, colons removed.
func FileName(title, suffix string) string {
	name := strings.ReplaceAll(title, " ", "_")
	name = strings.ReplaceAll(name, ":", "")
	return strings.ToLower(name) + suffix
}

func titleSuffix(colored bool) string {
	if colored {
		return " (Colored)"
	}
	return " (Uncolored)"
}

func legend(colored bool) string {
	if colored {
		return fmt.Sprintf("%c: hot, %c: cold", HotMark, ColdMark)
	}
	return fmt.Sprintf("%c: accesses", ColdMark)
}

// PfnAccessChart draws access counts by pfn. Pfns are bucketed into
// columns, the height of a column is the largest access count in
// its bucket. In colored charts a column with any hot page is hot.
func PfnAccessChart(snapshot []memsim.PageInfo, colored bool, columns, rows int) *Chart {
	c := &Chart{Title: "PFN Access Count" + titleSuffix(colored)}
	pages := len(snapshot)
	if pages == 0 {
		c.Lines = []string{"no pages"}
		return c
	}
	if columns <= 0 || columns > pages {
		columns = pages
	}
	if rows <= 0 {
		rows = DefaultRows
	}

	peaks := make([]int, columns)
	hot := make([]bool, columns)
	for _, pi := range snapshot {
		col := pi.Pfn * columns / pages
		if pi.AccessCount > peaks[col] {
			peaks[col] = pi.AccessCount
		}
		hot[col] = hot[col] || pi.IsHot
	}
	max := 0
	for _, peak := range peaks {
		if peak > max {
			max = peak
		}
	}

	heights := make([]int, columns)
	for col, peak := range peaks {
		if max > 0 {
			heights[col] = (peak*rows + max - 1) / max
		}
	}

	labelWidth := len(fmt.Sprint(max))
	for row := rows; row >= 1; row-- {
		label := ""
		if row == rows {
			label = fmt.Sprint(max)
		}
		var sb strings.Builder
		for col, height := range heights {
			switch {
			case height < row:
				sb.WriteByte(' ')
			case colored && hot[col]:
				sb.WriteByte(HotMark)
			default:
				sb.WriteByte(ColdMark)
			}
		}
		c.Lines = append(c.Lines, fmt.Sprintf("%*s |%s", labelWidth, label, strings.TrimRight(sb.String(), " ")))
	}
	c.Lines = append(c.Lines,
		fmt.Sprintf("%*s +%s", labelWidth, "0", strings.Repeat("-", columns)),
		fmt.Sprintf("%*s  pfn 0-%d, %d pages per column, %s",
			labelWidth, "", pages-1, (pages+columns-1)/columns, legend(colored)))
	return c
}

// AccessHistogramChart draws the number of pages per access count,
// one bar for every count from zero to the largest one. In colored
// charts counts at or above the smallest count of a hot page are hot.
func AccessHistogramChart(snapshot []memsim.PageInfo, colored bool, width int) *Chart {
	c := &Chart{Title: "Access Frequency Histogram" + titleSuffix(colored)}
	if len(snapshot) == 0 {
		c.Lines = []string{"no pages"}
		return c
	}
	if width <= 0 {
		width = DefaultWidth
	}

	h := memsim.HistogramOf(snapshot)
	threshold := -1
	for _, pi := range snapshot {
		if pi.IsHot && (threshold < 0 || pi.AccessCount < threshold) {
			threshold = pi.AccessCount
		}
	}
	maxPages := 0
	for _, pages := range h {
		if pages > maxPages {
			maxPages = pages
		}
	}

	labelWidth := len(fmt.Sprint(h.Max()))
	for count := 0; count <= h.Max(); count++ {
		pages := h[count]
		mark := ColdMark
		if colored && threshold >= 0 && count >= threshold {
			mark = HotMark
		}
		bar := strings.Repeat(string(mark), (pages*width+maxPages-1)/maxPages)
		c.Lines = append(c.Lines, fmt.Sprintf("%*d |%s %d", labelWidth, count, bar, pages))
	}
	c.Lines = append(c.Lines, fmt.Sprintf("%*s  access frequency | pages, %s", labelWidth, "", legend(colored)))
	return c
}
