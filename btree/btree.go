// Package btree implements C3, a leaf-linked B+-tree over (key, position)
// pairs for unclustered or clustered indexed columns, per spec.md §3/§4.2.
//
// Following the Design Notes' guidance on the source's tagged-union C
// nodes, every node is owned by an arena (Tree.nodes) and referenced by a
// small integer nodeID rather than a pointer; sibling links are therefore
// plain ids that never need weak-reference bookkeeping or double-free
// protection when the tree is torn down (freeing the arena frees
// everything at once, unlike the source's bfs_traverse_tree(FREE_NODE...)
// approach, which the source itself admits can dangle sibling pointers on
// a partially built tree).
package btree

import (
	"sort"

	"github.com/rpcpool/coldb/errs"
)

// nodeID indexes into Tree.nodes; there is no null pointer, only nilNode.
type nodeID int32

const nilNode nodeID = -1

// DefaultDegree is a reasonable production fan-out; tests use much smaller
// degrees to exercise split paths without huge inputs.
const DefaultDegree = 128

type leafData struct {
	keys      []int32
	positions []uint32
	prev, next nodeID
}

type internalData struct {
	keys     []int32
	children []nodeID
	level    int
}

// node is the sum type "Node { Leaf{...}, Internal{...} }" from the Design
// Notes, flattened into one arena-friendly struct with a discriminant.
type node struct {
	isLeaf   bool
	leaf     leafData
	internal internalData
}

// Tree is a B+-tree index. Clustered trees are built over a table's
// primary column and additionally support FindInsertPosition; unclustered
// trees are built over any other indexed column.
type Tree struct {
	nodes     []node
	root      nodeID
	maxKeys   int
	clustered bool
}

// New returns an empty B+-tree with the given max degree (MAX_KEYS =
// maxDegree - 1).
func New(maxDegree int, clustered bool) *Tree {
	if maxDegree < 3 {
		maxDegree = 3
	}
	t := &Tree{maxKeys: maxDegree - 1, clustered: clustered}
	t.root = t.newLeaf(nilNode, nilNode)
	return t
}

func (t *Tree) get(id nodeID) node   { return t.nodes[id] }
func (t *Tree) set(id nodeID, n node) { t.nodes[id] = n }

func (t *Tree) newLeaf(prev, next nodeID) nodeID {
	t.nodes = append(t.nodes, node{isLeaf: true, leaf: leafData{prev: prev, next: next}})
	return nodeID(len(t.nodes) - 1)
}

func (t *Tree) newInternal(level int) nodeID {
	t.nodes = append(t.nodes, node{isLeaf: false, internal: internalData{level: level}})
	return nodeID(len(t.nodes) - 1)
}

// Len returns the total number of (key, position) entries stored.
func (t *Tree) Len() int {
	n := 0
	for id := t.leftmostLeaf(); id != nilNode; id = t.get(id).leaf.next {
		n += len(t.get(id).leaf.keys)
	}
	return n
}

func (t *Tree) leftmostLeaf() nodeID {
	id := t.root
	for {
		n := t.get(id)
		if n.isLeaf {
			return id
		}
		id = n.internal.children[0]
	}
}

func (t *Tree) rightmostLeaf() nodeID {
	id := t.root
	for {
		n := t.get(id)
		if n.isLeaf {
			return id
		}
		id = n.internal.children[len(n.internal.children)-1]
	}
}

// SearchLeaf returns the leaf in which key would live, descending at each
// internal node into the first child whose fence is greater than key (the
// last child if none is). When duplicates of key straddle a leaf boundary,
// this is the rightmost leaf holding key.
func (t *Tree) SearchLeaf(key int32) nodeID {
	id := t.root
	for {
		n := t.get(id)
		if n.isLeaf {
			return id
		}
		// Fence k[i] separates child i from child i+1: descend into the
		// first child whose fence exceeds key.
		i := sort.Search(len(n.internal.keys), func(i int) bool {
			return n.internal.keys[i] > key
		})
		id = n.internal.children[i]
	}
}

// FindInsertPosition returns the base-array index at which a new row with
// this clustered key should appear: the first position whose current key
// is > the new key, or N (the table length) if none qualifies. Only
// meaningful for clustered trees.
func (t *Tree) FindInsertPosition(key int32) uint32 {
	leafID := t.SearchLeaf(key)
	for {
		lf := t.get(leafID).leaf
		i := sort.Search(len(lf.keys), func(i int) bool { return lf.keys[i] > key })
		if i < len(lf.keys) {
			return lf.positions[i]
		}
		if lf.next == nilNode {
			return uint32(t.Len())
		}
		leafID = lf.next
	}
}

// Range returns positions of all entries with lo <= key < hi.
func (t *Tree) Range(lo, hi int32) []uint32 {
	if t.clustered {
		return t.rangeClustered(lo, hi)
	}
	return t.rangeUnclustered(lo, hi)
}

// rangeUnclustered walks the leaf sibling chain from the lowest qualifying
// leaf to the highest, expanding leftward while the previous leaf's max
// key is still >= lo (duplicates can straddle a leaf boundary).
func (t *Tree) rangeUnclustered(lo, hi int32) []uint32 {
	start := t.SearchLeaf(lo)
	for {
		lf := t.get(start).leaf
		if lf.prev == nilNode {
			break
		}
		prev := t.get(lf.prev).leaf
		if len(prev.keys) == 0 || prev.keys[len(prev.keys)-1] < lo {
			break
		}
		start = lf.prev
	}

	var out []uint32
	for id := start; id != nilNode; {
		lf := t.get(id).leaf
		for i, k := range lf.keys {
			if k >= lo && k < hi {
				out = append(out, lf.positions[i])
			}
		}
		if len(lf.keys) > 0 && lf.keys[len(lf.keys)-1] >= hi {
			break
		}
		id = lf.next
	}
	return out
}

// rangeClustered exploits position contiguity: since a clustered tree's
// positions are exactly the base-array indices in key order, the matching
// set is always a contiguous half-open position range.
func (t *Tree) rangeClustered(lo, hi int32) []uint32 {
	firstPos, ok := t.firstPosAtLeast(lo)
	if !ok {
		return nil
	}
	lastExclusive, ok := t.firstPosAtLeast(hi)
	if !ok {
		lastExclusive = uint32(t.Len())
	}
	if lastExclusive <= firstPos {
		return nil
	}
	out := make([]uint32, 0, lastExclusive-firstPos)
	for p := firstPos; p < lastExclusive; p++ {
		out = append(out, p)
	}
	return out
}

// firstPosAtLeast returns the position of the first entry whose key >= v.
func (t *Tree) firstPosAtLeast(v int32) (uint32, bool) {
	leafID := t.SearchLeaf(v)
	// Duplicates of v can straddle a leaf boundary: step left while the
	// previous leaf still holds keys >= v.
	for {
		prevID := t.get(leafID).leaf.prev
		if prevID == nilNode {
			break
		}
		prev := t.get(prevID).leaf
		if len(prev.keys) == 0 || prev.keys[len(prev.keys)-1] < v {
			break
		}
		leafID = prevID
	}
	for id := leafID; id != nilNode; {
		lf := t.get(id).leaf
		i := sort.Search(len(lf.keys), func(i int) bool { return lf.keys[i] >= v })
		if i < len(lf.keys) {
			return lf.positions[i], true
		}
		id = lf.next
	}
	return 0, false
}

// Insert inserts (key, pos) into the correct leaf, splitting and
// propagating upward as needed. When shiftPositions is true (clustered
// inserts that displace later rows), every stored position >= pos is
// incremented first, so the freshly inserted entry is the only one left
// holding exactly pos.
func (t *Tree) Insert(key int32, pos uint32, shiftPositions bool) errs.Status {
	if shiftPositions {
		t.shiftPositionsFrom(pos)
	}
	liftKey, newRight, split := t.insertRec(t.root, key, pos)
	if split {
		newRootLevel := 1
		if !t.get(t.root).isLeaf {
			newRootLevel = t.get(t.root).internal.level + 1
		}
		newRoot := t.newInternal(newRootLevel)
		t.set(newRoot, node{
			isLeaf: false,
			internal: internalData{
				keys:     []int32{liftKey},
				children: []nodeID{t.root, newRight},
				level:    newRootLevel,
			},
		})
		t.root = newRoot
	}
	return errs.OK()
}

// shiftPositionsFrom increments every stored leaf position >= pos by one,
// across the whole sibling chain.
func (t *Tree) shiftPositionsFrom(pos uint32) {
	for id := t.leftmostLeaf(); id != nilNode; {
		lf := t.get(id).leaf
		for i, p := range lf.positions {
			if p >= pos {
				lf.positions[i] = p + 1
			}
		}
		t.set(id, node{isLeaf: true, leaf: lf})
		id = lf.next
	}
}

// insertRec inserts into the subtree rooted at id, returning (liftKey,
// newRight, true) if id's node split and a key must be lifted into id's
// parent (or a new root, if id was the tree root).
func (t *Tree) insertRec(id nodeID, key int32, pos uint32) (int32, nodeID, bool) {
	n := t.get(id)
	if n.isLeaf {
		return t.insertLeaf(id, key, pos)
	}

	i := sort.Search(len(n.internal.keys), func(i int) bool { return n.internal.keys[i] > key })
	childID := n.internal.children[i]
	liftKey, newRight, split := t.insertRec(childID, key, pos)
	if !split {
		return 0, nilNode, false
	}

	n = t.get(id) // re-fetch: recursion may have grown the arena
	in := n.internal
	in.keys = insertInt32At(in.keys, i, liftKey)
	in.children = insertNodeIDAt(in.children, i+1, newRight)
	t.set(id, node{isLeaf: false, internal: in})

	if len(in.keys) <= t.maxKeys {
		return 0, nilNode, false
	}
	return t.splitInternal(id)
}

func (t *Tree) insertLeaf(id nodeID, key int32, pos uint32) (int32, nodeID, bool) {
	n := t.get(id)
	lf := n.leaf
	idx := sort.Search(len(lf.keys), func(i int) bool {
		if lf.keys[i] != key {
			return lf.keys[i] > key
		}
		return lf.positions[i] > pos
	})
	lf.keys = insertInt32At(lf.keys, idx, key)
	lf.positions = insertUint32At(lf.positions, idx, pos)
	t.set(id, node{isLeaf: true, leaf: lf})

	if len(lf.keys) <= t.maxKeys {
		return 0, nilNode, false
	}
	return t.splitLeaf(id)
}

func (t *Tree) splitLeaf(id nodeID) (int32, nodeID, bool) {
	lf := t.get(id).leaf
	total := len(lf.keys)
	rightCount := (t.maxKeys + 2) / 2 // ceil((MAX_KEYS+1)/2)
	leftCount := total - rightCount

	rightKeys := append([]int32(nil), lf.keys[leftCount:]...)
	rightPositions := append([]uint32(nil), lf.positions[leftCount:]...)
	oldNext := lf.next

	rightID := t.newLeaf(id, oldNext)
	rn := t.get(rightID)
	rn.leaf.keys = rightKeys
	rn.leaf.positions = rightPositions
	t.set(rightID, rn)

	lf = t.get(id).leaf // re-fetch after arena growth
	lf.keys = lf.keys[:leftCount]
	lf.positions = lf.positions[:leftCount]
	lf.next = rightID
	t.set(id, node{isLeaf: true, leaf: lf})

	if oldNext != nilNode {
		on := t.get(oldNext)
		on.leaf.prev = rightID
		t.set(oldNext, on)
	}

	return rightKeys[0], rightID, true
}

func (t *Tree) splitInternal(id nodeID) (int32, nodeID, bool) {
	in := t.get(id).internal
	total := len(in.keys)
	mid := total / 2
	liftKey := in.keys[mid]

	rightKeys := append([]int32(nil), in.keys[mid+1:]...)
	rightChildren := append([]nodeID(nil), in.children[mid+1:]...)

	rightID := t.newInternal(in.level)
	rn := t.get(rightID)
	rn.internal.keys = rightKeys
	rn.internal.children = rightChildren
	t.set(rightID, rn)

	in = t.get(id).internal
	in.keys = in.keys[:mid]
	in.children = in.children[:mid+1]
	t.set(id, node{isLeaf: false, internal: in})

	return liftKey, rightID, true
}

// NodeRecord is one breadth-first-ordered node as produced by DumpBFS and
// consumed by LoadBFS, per spec.md §4.2's bulk dump/load contract ("must
// preserve breadth-first order so the sibling chain can be reconstructed
// deterministically"). Internal nodes carry Children as indices into the
// same BFS-ordered record list; leaves carry no Children and are linked
// back up into the sibling chain purely by their position among the other
// leaf records in the list.
type NodeRecord struct {
	IsLeaf    bool
	Level     int
	Keys      []int32
	Positions []uint32 // leaf only
	Children  []int32  // internal only: BFS indices of this node's children
}

// MaxKeys and Clustered expose the tree's construction parameters so a
// persisted tree can be rebuilt with LoadBFS using the same degree and
// clustered-ness it was built with.
func (t *Tree) MaxKeys() int    { return t.maxKeys }
func (t *Tree) Clustered() bool { return t.clustered }

// DumpBFS walks the tree in breadth-first order (per the source's
// bfs_traverse_tree) and returns one NodeRecord per node, root first. This
// is the layout spec.md §6 requires for a tree's on-disk index file.
func (t *Tree) DumpBFS() []NodeRecord {
	var out []NodeRecord
	idOf := map[nodeID]int32{}
	queue := []nodeID{t.root}
	for i := 0; i < len(queue); i++ {
		idOf[queue[i]] = int32(i)
	}
	for i := 0; i < len(queue); i++ {
		n := t.get(queue[i])
		if n.isLeaf {
			out = append(out, NodeRecord{
				IsLeaf:    true,
				Keys:      append([]int32(nil), n.leaf.keys...),
				Positions: append([]uint32(nil), n.leaf.positions...),
			})
			continue
		}
		children := make([]int32, len(n.internal.children))
		for j, c := range n.internal.children {
			if _, ok := idOf[c]; !ok {
				idOf[c] = int32(len(queue))
				queue = append(queue, c)
			}
			children[j] = idOf[c]
		}
		out = append(out, NodeRecord{
			IsLeaf:   false,
			Level:    n.internal.level,
			Keys:     append([]int32(nil), n.internal.keys...),
			Children: children,
		})
	}
	return out
}

// LoadBFS rebuilds a tree from records previously produced by DumpBFS,
// re-deriving leaf sibling links from each leaf's position among the other
// leaf records, left to right, rather than from any persisted pointer —
// matching the Design Notes' guidance to reconstruct the chain
// deterministically instead of trusting stored sibling references.
func LoadBFS(records []NodeRecord, maxDegree int, clustered bool) *Tree {
	t := &Tree{maxKeys: maxDegree - 1, clustered: clustered}
	if len(records) == 0 {
		t.root = t.newLeaf(nilNode, nilNode)
		return t
	}

	t.nodes = make([]node, len(records))
	for i, r := range records {
		if r.IsLeaf {
			t.nodes[i] = node{isLeaf: true, leaf: leafData{
				keys:      append([]int32(nil), r.Keys...),
				positions: append([]uint32(nil), r.Positions...),
				prev:      nilNode,
				next:      nilNode,
			}}
			continue
		}
		children := make([]nodeID, len(r.Children))
		for j, c := range r.Children {
			children[j] = nodeID(c)
		}
		t.nodes[i] = node{isLeaf: false, internal: internalData{
			keys:     append([]int32(nil), r.Keys...),
			children: children,
			level:    r.Level,
		}}
	}
	t.root = 0

	prev := nilNode
	for i := range t.nodes {
		if !t.nodes[i].isLeaf {
			continue
		}
		t.nodes[i].leaf.prev = prev
		if prev != nilNode {
			t.nodes[prev].leaf.next = nodeID(i)
		}
		prev = nodeID(i)
	}
	return t
}

func insertInt32At(s []int32, i int, v int32) []int32 {
	s = append(s, 0)
	copy(s[i+1:], s[i:len(s)-1])
	s[i] = v
	return s
}

func insertUint32At(s []uint32, i int, v uint32) []uint32 {
	s = append(s, 0)
	copy(s[i+1:], s[i:len(s)-1])
	s[i] = v
	return s
}

func insertNodeIDAt(s []nodeID, i int, v nodeID) []nodeID {
	s = append(s, 0)
	copy(s[i+1:], s[i:len(s)-1])
	s[i] = v
	return s
}
