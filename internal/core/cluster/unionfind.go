package cluster

// unionFind is a disjoint-set forest with union by size and path halving,
// giving near-linear connected-component extraction over the scored edges.
type unionFind struct {
	parent []uint32
	size   []uint32
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]uint32, n),
		size:   make([]uint32, n),
	}
	for i := range uf.parent {
		uf.parent[i] = uint32(i)
		uf.size[i] = 1
	}
	return uf
}

func (uf *unionFind) find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b uint32) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.size[ra] < uf.size[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
}
