// Package layout implements the Layout Resolver (spec.md §4.4): topological
// ordering of array and class declarations by structural dependency, cycle
// detection, and the class/array struct-shape assignment (superclass
// prefixing, field ordinal shifting, empty-class placeholder) that depends
// on that ordering.
package layout

import (
	"fmt"
	"sort"

	"github.com/tcbbd/dragon-Compiler/internal/ast"
	"github.com/tcbbd/dragon-Compiler/internal/types"
)

// edge is a single dependency: kind+name "depends on" kind+name. Kept
// separately from the adjacency map so cycle reporting can name the exact
// relation ("array 'A' is of type 'B'" vs. "class 'X' extends 'Y'").
type edge struct {
	from, to string
	relation string // "is of type", "extends" or "has a field of type"
}

// deps returns, for every declared array and class, the list of type names
// it structurally depends on, plus the edges used to phrase a cycle error.
func deps(reg *types.Registry) (map[string][]string, []edge) {
	adj := make(map[string][]string)
	var edges []edge

	for name, d := range reg.Arrays {
		if _, isAgg := reg.Arrays[d.ElementName]; isAgg {
			adj[name] = append(adj[name], d.ElementName)
			edges = append(edges, edge{name, d.ElementName, "is of type"})
		} else if _, isAgg := reg.Classes[d.ElementName]; isAgg {
			adj[name] = append(adj[name], d.ElementName)
			edges = append(edges, edge{name, d.ElementName, "is of type"})
		}
	}

	for name, d := range reg.Classes {
		if d.SuperName != "" {
			adj[name] = append(adj[name], d.SuperName)
			edges = append(edges, edge{name, d.SuperName, "extends"})
		}
		for _, m := range d.Members {
			if _, isAgg := reg.Arrays[m.Type.Name]; isAgg && m.Type.Kind == types.Array {
				adj[name] = append(adj[name], m.Type.Name)
				edges = append(edges, edge{name, m.Type.Name, "has a field of type"})
			} else if _, isAgg := reg.Classes[m.Type.Name]; isAgg && m.Type.Kind == types.Class {
				adj[name] = append(adj[name], m.Type.Name)
				edges = append(edges, edge{name, m.Type.Name, "has a field of type"})
			}
		}
	}

	return adj, edges
}

// Order runs Kahn's algorithm over the array/class dependency graph and
// returns type names leaves-first: every name is preceded by every name it
// depends on. Returns an error describing the dependency cycle if the graph
// is not a DAG.
func Order(reg *types.Registry) ([]string, error) {
	adj, edges := deps(reg)

	var all []string
	for name := range reg.Arrays {
		all = append(all, name)
	}
	for name := range reg.Classes {
		all = append(all, name)
	}
	sort.Strings(all) // Deterministic output ordering among independent siblings.

	indeg := make(map[string]int, len(all))
	for _, n := range all {
		indeg[n] = 0
	}
	// adj[a] = [b, c] means a depends on b and c: edges point dependent -> dependency.
	// Kahn's processes sources (indegree 0) first, so we need indegree counted
	// on the DEPENDED-ON node from the dependent, reversed: a node can only be
	// emitted once everything IT depends on has been emitted, so we run Kahn's
	// over the reverse graph (dependency -> dependent) and track indegree as
	// "number of unresolved dependencies".
	for _, n := range all {
		indeg[n] = len(adj[n])
	}
	rev := make(map[string][]string) // dependency -> dependents
	for _, n := range all {
		for _, dep := range adj[n] {
			rev[dep] = append(rev[dep], n)
		}
	}
	for _, n := range all {
		sort.Strings(rev[n])
	}

	var queue []string
	for _, n := range all {
		if indeg[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, dependent := range rev[n] {
			indeg[dependent]--
			if indeg[dependent] == 0 {
				queue = append(queue, dependent)
				sort.Strings(queue)
			}
		}
	}

	if len(order) != len(all) {
		return nil, cycleError(all, indeg, edges)
	}
	return order, nil
}

// cycleError builds a diagnostic naming one full dependency cycle among the
// nodes left with unresolved indegree, phrased as
// `"A" is of type "B", "B" is of type "A", which closes the cycle`.
func cycleError(all []string, indeg map[string]int, edges []edge) error {
	remaining := make(map[string]bool)
	for _, n := range all {
		if indeg[n] > 0 {
			remaining[n] = true
		}
	}

	// Only edges between unresolved nodes can lie on the cycle.
	byFrom := make(map[string]edge)
	for _, e := range edges {
		if _, ok := byFrom[e.from]; !ok && remaining[e.to] {
			byFrom[e.from] = e
		}
	}

	var start string
	for _, n := range all {
		if remaining[n] {
			start = n
			break
		}
	}

	visited := make(map[string]bool)
	path := []string{start}
	cur := start
	for {
		visited[cur] = true
		e, ok := byFrom[cur]
		if !ok || !remaining[e.to] {
			break
		}
		cur = e.to
		if visited[cur] {
			path = append(path, cur)
			break
		}
		path = append(path, cur)
	}
	// Drop any lead-in before the node the walk returned to.
	for i, n := range path[:len(path)-1] {
		if n == path[len(path)-1] {
			path = path[i:]
			break
		}
	}

	msg := ""
	for i := 0; i < len(path)-1; i++ {
		e := byFrom[path[i]]
		msg += fmt.Sprintf("%q %s %q, ", path[i], e.relation, path[i+1])
	}
	return ast.Errorf(ast.Location{}, "dependency cycle detected: %swhich closes the cycle", msg)
}

// Resolve assigns the LLVM struct-shape metadata (irType names, member
// ordinals, superclass prefixing, empty-class placeholder) to every array
// and class declaration, given a valid dependency order from Order.
func Resolve(reg *types.Registry, order []string) error {
	for _, name := range order {
		if d, ok := reg.Arrays[name]; ok {
			if err := resolveArray(reg, d); err != nil {
				return err
			}
			continue
		}
		if d, ok := reg.Classes[name]; ok {
			if err := resolveClass(reg, d); err != nil {
				return err
			}
		}
	}
	return nil
}

func resolveArray(reg *types.Registry, d *types.ArrayDecl) error {
	elemType, err := reg.Resolve(d.ElementName, d.Loc)
	if err != nil {
		return err
	}
	elemIR, err := reg.IRType(elemType)
	if err != nil {
		return err
	}
	d.SetIRType(fmt.Sprintf("[%d x %s]", d.Length, elemIR))
	return nil
}

func resolveClass(reg *types.Registry, d *types.ClassDecl) error {
	var fieldIR []string
	ordinal := 0

	if d.SuperName != "" {
		super, ok := reg.Classes[d.SuperName]
		if !ok {
			return ast.Errorf(d.Loc, "class %q extends undeclared class %q", d.Name, d.SuperName)
		}
		if super.IRTypeName() == "" {
			return ast.Errorf(d.Loc, "superclass %q of %q has not been laid out yet", d.SuperName, d.Name)
		}
		// The superclass is fully laid out by now (the topological order puts
		// every "extends" dependency first), so this is the first point at
		// which every ancestor field is known and field shadowing can be
		// checked (spec.md §3: "no field shadows an ancestor field").
		for _, m := range d.Members {
			if anc, _ := reg.FindMember(d.SuperName, m.Name); anc != nil {
				return ast.Errorf(m.Loc, "field %q of class %q shadows an inherited field of the same name", m.Name, d.Name)
			}
		}
		// The superclass occupies struct index 0 in its entirety: single
		// inheritance is modelled as struct prefixing, not field flattening.
		fieldIR = append(fieldIR, super.IRTypeName())
		ordinal = 1
	}

	for _, m := range d.Members {
		ir, err := reg.IRType(m.Type)
		if err != nil {
			return err
		}
		m.Ordinal = ordinal
		fieldIR = append(fieldIR, ir)
		ordinal++
	}

	if len(fieldIR) == 0 {
		// Empty classes still need a non-zero-sized LLVM struct body.
		fieldIR = append(fieldIR, "i8")
	}

	body := "{ "
	for i, f := range fieldIR {
		if i > 0 {
			body += ", "
		}
		body += f
	}
	body += " }"

	d.SetIRType("%class." + d.Name)
	d.SetBody(body)
	return nil
}
