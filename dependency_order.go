package simhost

import (
	"container/heap"
	"slices"
)

// typeQueue is a min-heap of type identifiers.
type typeQueue []string

func (q typeQueue) Len() int           { return len(q) }
func (q typeQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q typeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *typeQueue) Push(x any)        { *q = append(*q, x.(string)) }
func (q *typeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// dependencyOrder returns a type-level topological order of deps. Among the
// types whose dependencies are all placed, the lexicographically smallest goes
// next. Dependencies on types outside deps are ignored. Types on or behind a
// cycle never reach zero in-degree and are left out of the result.
func dependencyOrder(deps map[string][]string) []string {
	indegree := make(map[string]int, len(deps))
	dependents := make(map[string][]string, len(deps))
	for typeID := range deps {
		indegree[typeID] = 0
	}
	for typeID, requires := range deps {
		for _, dep := range requires {
			if _, known := deps[dep]; !known {
				continue
			}
			indegree[typeID]++
			dependents[dep] = append(dependents[dep], typeID)
		}
	}

	ready := &typeQueue{}
	for typeID, n := range indegree {
		if n == 0 {
			*ready = append(*ready, typeID)
		}
	}
	heap.Init(ready)

	order := make([]string, 0, len(deps))
	for ready.Len() > 0 {
		node := heap.Pop(ready).(string)
		order = append(order, node)
		// A dependent listing the same dependency twice was counted twice.
		for _, dependent := range dependents[node] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}
	return order
}

// unorderedTypes returns the types of deps missing from order, sorted.
func unorderedTypes(deps map[string][]string, order []string) []string {
	var missing []string
	for typeID := range deps {
		if !slices.Contains(order, typeID) {
			missing = append(missing, typeID)
		}
	}
	slices.Sort(missing)
	return missing
}
