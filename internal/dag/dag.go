// Package dag builds the dependency graph of scripts and schedules their
// concurrent execution: which scripts are ready to run right now, and which
// ones become ready once a running script finishes.
package dag

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/carbonfact/lea-sub000/internal/script"
	"github.com/carbonfact/lea-sub000/internal/tableref"
)

// ErrCycle is returned by New when the scripts it was given contain a
// dependency cycle.
var ErrCycle = errors.New("dag: dependency cycle")

// ErrEmptySelection is returned when a selector matches no node in the DAG.
var ErrEmptySelection = errors.New("dag: selector matched no scripts")

// node is one script plus its resolved in-DAG dependency and dependent keys.
type node struct {
	script       script.Script
	dependsOn    map[string]bool
	dependedOnBy map[string]bool
}

// DAG is the full dependency graph of a run: every script known to the
// session (both regular scripts and synthetic assertion tests), keyed by
// TableRef.Key().
type DAG struct {
	nodes map[string]*node

	mu        sync.Mutex
	done      map[string]bool
	failed    map[string]bool
	skipped   map[string]bool
	running   map[string]bool
	selection map[string]bool // nil means "everything is selected"
}

// New builds a DAG from scripts, resolving each script's dependencies against
// the other scripts in the set (dependencies on tables with no backing
// script - e.g. raw source tables - are dropped, since nothing schedules
// them). It returns ErrCycle if the resulting graph isn't a DAG.
func New(scripts []script.Script) (*DAG, error) {
	nodes := make(map[string]*node, len(scripts))
	for _, s := range scripts {
		key := s.TableRef.Key()
		if _, exists := nodes[key]; exists {
			return nil, fmt.Errorf("dag: duplicate script for %s", s.TableRef)
		}
		nodes[key] = &node{script: s, dependsOn: map[string]bool{}, dependedOnBy: map[string]bool{}}
	}

	for key, n := range nodes {
		for depKey := range n.script.Dependencies() {
			if _, ok := nodes[depKey]; !ok {
				continue // external dependency, nothing to schedule
			}
			n.dependsOn[depKey] = true
			nodes[depKey].dependedOnBy[key] = true
		}
	}

	d := &DAG{
		nodes:   nodes,
		done:    map[string]bool{},
		failed:  map[string]bool{},
		skipped: map[string]bool{},
		running: map[string]bool{},
	}
	if cyc, ok := d.findCycle(); ok {
		return nil, fmt.Errorf("%w: %v", ErrCycle, cyc)
	}
	return d, nil
}

func (d *DAG) findCycle() ([]string, bool) {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int, len(d.nodes))
	var path []string

	var visit func(key string) ([]string, bool)
	visit = func(key string) ([]string, bool) {
		color[key] = grey
		path = append(path, key)
		keys := make([]string, 0, len(d.nodes[key].dependsOn))
		for dep := range d.nodes[key].dependsOn {
			keys = append(keys, dep)
		}
		sort.Strings(keys)
		for _, dep := range keys {
			switch color[dep] {
			case white:
				if cyc, found := visit(dep); found {
					return cyc, true
				}
			case grey:
				return append(append([]string{}, path...), dep), true
			}
		}
		path = path[:len(path)-1]
		color[key] = black
		return nil, false
	}

	keys := make([]string, 0, len(d.nodes))
	for key := range d.nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if color[key] == white {
			if cyc, found := visit(key); found {
				return cyc, true
			}
		}
	}
	return nil, false
}

// Select narrows the scheduling universe to the nodes resolved by the given
// selector expression (and whatever their closure requires, e.g. "a.b+"
// pulls in descendants). Pass "" or "*" to select everything. It returns
// ErrEmptySelection if the expression matches nothing.
func (d *DAG) Select(expr string) error {
	if expr == "" || expr == "*" {
		d.mu.Lock()
		d.selection = nil
		d.mu.Unlock()
		return nil
	}
	keys, err := resolveSelector(d, expr)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return ErrEmptySelection
	}
	d.mu.Lock()
	d.selection = keys
	d.mu.Unlock()
	return nil
}

func (d *DAG) isSelected(key string) bool {
	if d.selection == nil {
		return true
	}
	return d.selection[key]
}

// Scripts returns every script selected for scheduling, in no particular
// order.
func (d *DAG) Scripts() []script.Script {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []script.Script
	for key, n := range d.nodes {
		if d.isSelected(key) {
			out = append(out, n.script)
		}
	}
	return out
}

// IsSelected reports whether the node at key is part of the current
// selection.
func (d *DAG) IsSelected(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isSelected(key)
}

// Script returns the script registered under key, if any.
func (d *DAG) Script(key string) (script.Script, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.nodes[key]
	if !ok {
		return script.Script{}, false
	}
	return n.script, true
}

// Keys returns every node key in the DAG, selected or not.
func (d *DAG) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.nodes))
	for key := range d.nodes {
		keys = append(keys, key)
	}
	return keys
}

// Len reports how many scripts are selected for scheduling.
func (d *DAG) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for key := range d.nodes {
		if d.isSelected(key) {
			n++
		}
	}
	return n
}

// Ready returns the scripts that are selected, not yet resolved (done,
// failed, or skipped) or running, and whose selected dependencies are all
// done. A script with a failed or skipped dependency is never returned -
// spec.md requires dependents of a failed job to never be submitted - and is
// instead folded into skipped so Finished() still converges.
func (d *DAG) Ready() []script.Script {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ready []script.Script
	for key, n := range d.nodes {
		if !d.isSelected(key) || d.resolved(key) || d.running[key] {
			continue
		}
		blocked := false
		unreachable := false
		for dep := range n.dependsOn {
			if !d.isSelected(dep) {
				continue
			}
			if d.failed[dep] || d.skipped[dep] {
				unreachable = true
				break
			}
			if !d.done[dep] {
				blocked = true
			}
		}
		if unreachable {
			d.skipped[key] = true
			continue
		}
		if !blocked {
			ready = append(ready, n.script)
			d.running[key] = true
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		return ready[i].TableRef.String() < ready[j].TableRef.String()
	})
	return ready
}

func (d *DAG) resolved(key string) bool {
	return d.done[key] || d.failed[key] || d.skipped[key]
}

// Done marks ref's script as successfully finished, unblocking whatever
// depends on it.
func (d *DAG) Done(ref tableref.TableRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := ref.Key()
	delete(d.running, key)
	d.done[key] = true
}

// Fail marks ref's script as failed. Nothing that (transitively) depends on
// it will ever be scheduled; those scripts are folded into the skipped set
// the next time Ready is polled, so Finished still converges.
func (d *DAG) Fail(ref tableref.TableRef) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := ref.Key()
	delete(d.running, key)
	d.failed[key] = true
}

// Finished reports whether every selected script has been resolved: done,
// failed outright, or skipped because a dependency failed.
func (d *DAG) Finished() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.nodes {
		if d.isSelected(key) && !d.resolved(key) {
			return false
		}
	}
	return true
}

// Failed reports whether ref's script (or any of its dependencies) failed.
func (d *DAG) Failed(ref tableref.TableRef) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := ref.Key()
	return d.failed[key] || d.skipped[key]
}

// Ancestors returns the keys of every script that key (transitively) depends
// on.
func (d *DAG) Ancestors(key string) map[string]bool {
	return d.closure(key, func(n *node) map[string]bool { return n.dependsOn })
}

// Descendants returns the keys of every script that (transitively) depends
// on key.
func (d *DAG) Descendants(key string) map[string]bool {
	return d.closure(key, func(n *node) map[string]bool { return n.dependedOnBy })
}

func (d *DAG) closure(start string, edges func(*node) map[string]bool) map[string]bool {
	out := map[string]bool{}
	var visit func(key string)
	visit = func(key string) {
		n, ok := d.nodes[key]
		if !ok {
			return
		}
		for next := range edges(n) {
			if !out[next] {
				out[next] = true
				visit(next)
			}
		}
	}
	visit(start)
	return out
}
