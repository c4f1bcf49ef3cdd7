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

// This file implements interactive prompt and command execution.

package memsim

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
)

type Cmd struct {
	description string
	Run         func([]string) CommandStatus
}

// Prompt drives a simulator with commands read from a reader.
type Prompt struct {
	r    *bufio.Reader
	w    *bufio.Writer
	f    *flag.FlagSet
	sim  *Simulator
	cmds map[string]Cmd
	ps1  string
	echo bool
	quit bool
}

type CommandStatus int

const (
	csOk CommandStatus = iota
	csUnknownCommand
	csPipeCreateError
	csPipeProcessStartError
	csError
)

func NewPrompt(ps1 string, reader *bufio.Reader, writer *bufio.Writer, sim *Simulator) *Prompt {
	p := Prompt{
		r:   reader,
		w:   writer,
		ps1: ps1,
		sim: sim,
	}
	p.cmds = map[string]Cmd{
		"q":        {"quit interactive prompt.", p.cmdQuit},
		"access":   {"record accesses to pages.", p.cmdAccess},
		"cycle":    {"run an access cycle.", p.cmdCycle},
		"classify": {"classify pages hot or cold.", p.cmdClassify},
		"migrate":  {"migrate hot pages to the fast node.", p.cmdMigrate},
		"latency":  {"print total access latency.", p.cmdLatency},
		"pages":    {"print pages and per-node summary.", p.cmdPages},
		"hist":     {"print access count histogram.", p.cmdHist},
		"stats":    {"print statistics.", p.cmdStats},
		"help":     {"print help.", p.cmdHelp},
		"nop":      {"no operation.", p.cmdNop},
	}
	return &p
}

func (p *Prompt) output(format string, a ...interface{}) {
	if p.w == nil {
		return
	}
	p.w.WriteString(fmt.Sprintf(format, a...))
	p.w.Flush()
}

func (p *Prompt) RunCmdSlice(cmdSlice []string) CommandStatus {
	if len(cmdSlice) == 0 {
		return csOk
	}
	if cmdSlice[0] == "" {
		cmdSlice[0] = "nop"
	}
	p.f = flag.NewFlagSet(cmdSlice[0], flag.ContinueOnError)
	if p.w != nil {
		p.f.SetOutput(p.w)
	}
	cmd, ok := p.cmds[cmdSlice[0]]
	if !ok {
		p.output("unknown command %q\n", cmdSlice[0])
		return csUnknownCommand
	}
	return cmd.Run(cmdSlice[1:])
}

func (p *Prompt) RunCmdString(cmdString string) CommandStatus {
	var err error
	// If command has "|", run the right-hand-side of the pipe in
	// a shell and feed the output of the command to it.
	origOutputWriter := p.w
	pipeCmd := ""
	pipeIndex := strings.Index(cmdString, "|")
	if pipeIndex > -1 {
		pipeCmd = cmdString[pipeIndex+1:]
		cmdString = cmdString[:pipeIndex]
	}
	cmdSlice := strings.Fields(cmdString)
	if len(cmdSlice) == 0 {
		cmdSlice = []string{""}
	}

	var pipeProcess *exec.Cmd
	var pipeInput io.WriteCloser
	if pipeCmd != "" {
		pipeProcess = exec.Command("sh", "-c", pipeCmd)
		pipeInput, err = pipeProcess.StdinPipe()
		if err != nil {
			p.output("failed to create pipe for command %q\n", pipeCmd)
			return csPipeCreateError
		}
		pipeProcess.Stdout = origOutputWriter
		pipeProcess.Stderr = origOutputWriter
		if err := pipeProcess.Start(); err != nil {
			p.output("failed to start: sh -c %q: %s\n", pipeCmd, err)
			pipeInput.Close()
			return csPipeProcessStartError
		}
		p.w = bufio.NewWriter(pipeInput)
	}
	runRv := p.RunCmdSlice(cmdSlice)
	if pipeCmd != "" {
		p.w.Flush()
		pipeInput.Close()
		pipeProcess.Wait()
		p.w = origOutputWriter
		p.w.Flush()
	}
	return runRv
}

func (p *Prompt) Interact() {
	for !p.quit {
		p.output("%s", p.ps1)
		cmdString, err := p.r.ReadString(byte('\n'))
		if err != nil {
			if err != io.EOF {
				p.output("quit: %s\n", err)
			}
			break
		}
		if p.echo {
			p.output("%s", cmdString)
		}
		p.RunCmdString(cmdString)
	}
	p.output("quit.\n")
}

func (p *Prompt) SetEcho(newEcho bool) {
	p.echo = newEcho
}

func sortedStringKeys(m map[string]Cmd) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *Prompt) cmdNop(args []string) CommandStatus {
	return csOk
}

func (p *Prompt) cmdQuit(args []string) CommandStatus {
	p.quit = true
	return csOk
}

func (p *Prompt) cmdHelp(args []string) CommandStatus {
	p.output("Available commands:\n")
	for _, name := range sortedStringKeys(p.cmds) {
		p.output("        %-12s %s\n", name, p.cmds[name].description)
	}
	p.output("Syntax:\n")
	p.output("        <command> -h show help on command options.\n")
	p.output("        [command] | <shell-command>\n")
	p.output("                     pipe command output to shell-command.\n")
	return csOk
}

func (p *Prompt) cmdAccess(args []string) CommandStatus {
	pfn := p.f.Int("pfn", -1, "access page PFN")
	count := p.f.Int("count", 1, "number of accesses")
	if err := p.f.Parse(args); err != nil {
		return csOk
	}
	if *pfn < 0 {
		p.output("missing -pfn=PFN\n")
		return csError
	}
	for i := 0; i < *count; i++ {
		if err := p.sim.AccessPage(*pfn); err != nil {
			p.output("%s\n", err)
			return csError
		}
	}
	pi, _ := p.sim.Page(*pfn)
	p.output("page %d: %d accesses\n", pi.Pfn, pi.AccessCount)
	return csOk
}

func (p *Prompt) cmdCycle(args []string) CommandStatus {
	n := p.f.Int("n", p.sim.cfg.CycleAccesses, "number of accesses in the cycle")
	if err := p.f.Parse(args); err != nil {
		return csOk
	}
	if err := p.sim.RunAccessCycle(*n); err != nil {
		p.output("%s\n", err)
		return csError
	}
	p.output("recorded %d accesses\n", *n)
	return csOk
}

func (p *Prompt) cmdClassify(args []string) CommandStatus {
	t := p.f.Int("t", p.sim.cfg.ThresholdAccesses, "cumulative access threshold")
	if err := p.f.Parse(args); err != nil {
		return csOk
	}
	threshold := p.sim.Classify(*t)
	hot := 0
	for _, pi := range p.sim.Snapshot() {
		if pi.IsHot {
			hot++
		}
	}
	p.output("frequency threshold: %d, hot pages: %d\n", threshold, hot)
	return csOk
}

func (p *Prompt) cmdMigrate(args []string) CommandStatus {
	ratio := p.f.Float64("ratio", p.sim.cfg.MaxHotRatio, "maximum share of hot pages on node 0")
	verbose := p.f.Bool("v", false, "list swapped pages")
	if err := p.f.Parse(args); err != nil {
		return csOk
	}
	mr, err := p.sim.Migrate(*ratio)
	if err != nil {
		p.output("%s\n", err)
		return csError
	}
	p.output("%s\n", mr)
	if *verbose {
		for _, s := range mr.Swaps {
			p.output("cold %d <-> hot %d\n", s.ColdPfn, s.HotPfn)
		}
	}
	return csOk
}

func (p *Prompt) cmdLatency(args []string) CommandStatus {
	if err := p.f.Parse(args); err != nil {
		return csOk
	}
	p.output("total latency: %d ns\n", p.sim.TotalLatency())
	return csOk
}

func (p *Prompt) cmdPages(args []string) CommandStatus {
	ls := p.f.Bool("ls", false, "list pages")
	node := p.f.Int("node", -1, "include only pages on NODE")
	hotOnly := p.f.Bool("hot", false, "include only hot pages")
	if err := p.f.Parse(args); err != nil {
		return csOk
	}
	snapshot := p.sim.Snapshot()
	if *ls {
		for _, pi := range snapshot {
			if *node >= 0 && int(pi.Node) != *node {
				continue
			}
			if *hotOnly && !pi.IsHot {
				continue
			}
			p.output("pfn %6d node %s accesses %6d latency %3dns hot %v\n",
				pi.Pfn, pi.Node, pi.AccessCount, pi.LatencyNs, pi.IsHot)
		}
	}
	for _, ns := range SummarizeNodes(snapshot) {
		p.output("node %s: %d pages, %d hot, %d accesses, %d ns\n",
			ns.Node, ns.Pages, ns.HotPages, ns.Accesses, ns.LatencyNs)
	}
	p.output("phase: %s\n", p.sim.Phase())
	return csOk
}

func (p *Prompt) cmdHist(args []string) CommandStatus {
	if err := p.f.Parse(args); err != nil {
		return csOk
	}
	h := p.sim.Histogram()
	p.output("accesses    pages\n")
	for _, count := range h.Counts() {
		p.output("%8d %8d\n", count, h[count])
	}
	return csOk
}

func (p *Prompt) cmdStats(args []string) CommandStatus {
	if err := p.f.Parse(args); err != nil {
		return csOk
	}
	p.output("%s\n", p.sim.Stats().Summarize())
	return csOk
}
