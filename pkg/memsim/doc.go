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

/*

	Package memsim simulates hot/cold page placement on a two-node
	NUMA system.

	A Simulator owns a fixed pool of pages. Slot i of the pool
	always holds the page with page frame number (pfn) i. Pages
	below the node split point start on the fast node 0, the rest
	on the slow node 1. Every page has the access latency of the
	node it is on.

	One simulation round runs the following steps, each a single
	Simulator call:

		+---------------+  access counts   +------------+
		|   Workload    |----------------->|    Pool    |
		|(normal distr.)|                  +--+------+--+
		+---------------+                     |      ^
		                        access counts |      | is_hot
		                                      V      |
		                                 +-----------+--+
		                                 |  Classifier  |
		                                 +--------------+
		                                      |
		                                      V node, is_hot
		                                 +--------------+
		                                 |   Migrator   |--swap slots-->Pool
		                                 +--------------+

	Workload (workload.go) samples page accesses from a normal
	distribution centered on the middle of the pool. Samples
	outside the pool wrap around.

	Classifier (classifier.go) picks the smallest access count f
	at which the accesses of all pages with counts up to f reach
	the cumulative access threshold. Pages with at least f
	accesses are hot.

	Migrator (migration.go) swaps cold pages on the fast node with
	hot pages on the slow node, never letting the share of hot
	pages on the fast node exceed a ratio.

	Simulator (simulator.go) orchestrates the above and accounts
	the total access latency of the pool.
*/

package memsim
