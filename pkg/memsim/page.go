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
)

// Node is a NUMA memory node.
type Node int

const (
	// NodeFast is the low-latency node.
	NodeFast Node = iota
	// NodeSlow is the high-latency node.
	NodeSlow
)

// Nodes lists all nodes in the simulated system.
var Nodes = []Node{NodeFast, NodeSlow}

func (n Node) String() string {
	switch n {
	case NodeFast:
		return "0"
	case NodeSlow:
		return "1"
	}
	return fmt.Sprintf("<invalid node %d>", int(n))
}

// Page is a page frame in the pool.
type Page struct {
	pfn         int
	accessCount int
	node        Node
	latencyNs   int
	hot         bool
	accessed    bool
}

// PageInfo is a read-only copy of the state of a page.
type PageInfo struct {
	Pfn         int  `json:"pfn"`
	AccessCount int  `json:"accessCount"`
	Node        Node `json:"node"`
	LatencyNs   int  `json:"latencyNs"`
	IsHot       bool `json:"isHot"`
	Accessed    bool `json:"accessed"`
}

func newPage(pfn int, node Node, latencyNs int) *Page {
	return &Page{
		pfn:       pfn,
		node:      node,
		latencyNs: latencyNs,
	}
}

func (p *Page) Pfn() int {
	return p.pfn
}

func (p *Page) AccessCount() int {
	return p.accessCount
}

func (p *Page) Node() Node {
	return p.node
}

func (p *Page) LatencyNs() int {
	return p.latencyNs
}

// IsHot returns the result of the latest classification of the page.
func (p *Page) IsHot() bool {
	return p.hot
}

// Accessed tells if the page has been accessed at least once.
func (p *Page) Accessed() bool {
	return p.accessed
}

// Info returns a copy of the page state.
func (p *Page) Info() PageInfo {
	return PageInfo{
		Pfn:         p.pfn,
		AccessCount: p.accessCount,
		Node:        p.node,
		LatencyNs:   p.latencyNs,
		IsHot:       p.hot,
		Accessed:    p.accessed,
	}
}

func (p *Page) access() {
	p.accessed = true
	p.accessCount++
}

// setNode moves the page to a node, keeping latency consistent with it.
func (p *Page) setNode(node Node, latencyNs int) {
	p.node = node
	p.latencyNs = latencyNs
}

func (p *Page) String() string {
	hotness := "cold"
	if p.hot {
		hotness = "hot"
	}
	return fmt.Sprintf("{pfn:%d,accesses:%d,node:%s,latency:%dns,%s}",
		p.pfn, p.accessCount, p.node, p.latencyNs, hotness)
}

// TotalLatencyNs returns the latency of all accesses to the page.
func (pi PageInfo) TotalLatencyNs() int64 {
	return int64(pi.AccessCount) * int64(pi.LatencyNs)
}
