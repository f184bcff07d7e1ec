package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/pathminer/internal/ir"
)

// RecursionWarning reports a cycle among application methods.
//
// Recursion is not an error: an interprocedural walk stepping into such a
// cycle keeps descending until the walk-depth bound abandons the method.
type RecursionWarning struct {
	Path    []string `json:"path"`    // ["a()", "b()", "a()"]
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// AnalyzeRecursion finds call cycles among application methods with bodies,
// the only callees an interprocedural walk steps into. Warnings are ordered
// by the smallest signature of each cycle.
func AnalyzeRecursion(prog *ir.Program) []RecursionWarning {
	graph := buildCallGraph(prog)
	if len(graph) == 0 {
		return []RecursionWarning{}
	}

	var warnings []RecursionWarning
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, sccToWarning(scc, graph))
		}
	}
	sort.Slice(warnings, func(i, j int) bool {
		return warnings[i].Path[0] < warnings[j].Path[0]
	})
	if warnings == nil {
		return []RecursionWarning{}
	}
	return warnings
}

// callGraph maps a method signature to the application methods it invokes.
type callGraph map[string][]string

func buildCallGraph(prog *ir.Program) callGraph {
	walkable := make(map[string]bool)
	for _, m := range prog.Methods {
		if m.Body != nil && prog.Classes[m.Class].Application {
			walkable[m.Signature()] = true
		}
	}

	graph := make(callGraph, len(walkable))
	for _, m := range prog.Methods {
		sig := m.Signature()
		if !walkable[sig] {
			continue
		}
		graph[sig] = []string{}
		seen := make(map[string]bool)
		for _, s := range m.Body.Stmts {
			if s.Invoke == nil {
				continue
			}
			callee := s.Invoke.Method.Signature()
			if walkable[callee] && !seen[callee] {
				seen[callee] = true
				graph[sig] = append(graph[sig], callee)
			}
		}
	}
	return graph
}

func hasSelfLoop(node string, graph callGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC returns the strongly connected components of graph. Nodes are
// visited in sorted order so results are stable; each component is sorted.
func tarjanSCC(graph callGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func sccToWarning(scc []string, graph callGraph) RecursionWarning {
	if len(scc) == 1 {
		sig := scc[0]
		return RecursionWarning{
			Path:    []string{sig, sig},
			Message: fmt.Sprintf("recursive method: %s", sig),
			Level:   "warning",
		}
	}

	path := cyclePath(scc, graph)
	return RecursionWarning{
		Path:    path,
		Message: fmt.Sprintf("mutually recursive methods: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// cyclePath follows edges inside scc from its first member until it returns
// to the start or runs out of unvisited members.
func cyclePath(scc []string, graph callGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
