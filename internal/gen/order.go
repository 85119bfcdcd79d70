package gen

import "slices"

// registrationOrder sorts types so each registers after the package types
// it is built from. Kahn's algorithm runs in waves; each wave keeps
// declaration order. Types left in a cycle follow in declaration order.
func registrationOrder(decl []*TypePlan) []*TypePlan {
	n := len(decl)
	index := make(map[string]int, n)
	for i, tp := range decl {
		index[tp.Name] = i
	}
	indeg := make([]int, n)
	users := make([][]int, n)
	for i, tp := range decl {
		for dep := range tp.deps {
			j, ok := index[dep]
			if !ok || j == i {
				continue
			}
			users[j] = append(users[j], i)
			indeg[i]++
		}
	}

	order := make([]*TypePlan, 0, n)
	placed := make([]bool, n)
	current := make([]int, 0, n)
	for i := range n {
		if indeg[i] == 0 {
			current = append(current, i)
		}
	}
	for len(current) > 0 {
		next := make([]int, 0)
		for _, i := range current {
			order = append(order, decl[i])
			placed[i] = true
			for _, u := range users[i] {
				indeg[u]--
				if indeg[u] == 0 {
					next = append(next, u)
				}
			}
		}
		slices.Sort(next)
		current = next
	}

	for i := range n {
		if !placed[i] {
			order = append(order, decl[i])
		}
	}
	return order
}
