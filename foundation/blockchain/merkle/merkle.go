// Package merkle provides a generic merkle tree used to produce the summary
// digest of the transactions held by a block and inclusion proofs for them.
// The tree layout follows github.com/cbergoon/merkletree (MIT License).
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"hash"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrNotFound is returned when a value is not a leaf of the tree.
var ErrNotFound = errors.New("value not found in tree")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() ([]byte, error)
	Equals(other T) bool
}

// Order values returned with a proof. Left means the proof hash is
// concatenated before the running hash, Right means after.
const (
	Left  int64 = 0
	Right int64 = 1
)

// =============================================================================

// Tree represents a merkle tree over values of type T.
type Tree[T Hashable[T]] struct {
	Root         *Node[T]
	Leafs        []*Node[T]
	MerkleRoot   []byte
	hashStrategy func() hash.Hash
}

// WithHashStrategy replaces the default sha256 hashing used to combine nodes.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a tree over the values. An empty set of values is
// allowed and produces a root of all zeros.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Generate constructs the leafs and nodes of the tree from the specified
// values, replacing anything the tree held before.
func (t *Tree[T]) Generate(values []T) error {
	t.Root = nil
	t.Leafs = nil

	if len(values) == 0 {
		t.MerkleRoot = make([]byte, t.hashStrategy().Size())
		return nil
	}

	leafs := make([]*Node[T], 0, len(values)+1)
	for _, value := range values {
		h, err := value.Hash()
		if err != nil {
			return err
		}

		leafs = append(leafs, &Node[T]{
			Tree:  t,
			Hash:  h,
			Value: value,
			leaf:  true,
		})
	}

	// An odd number of leafs duplicates the last one so every level pairs up.
	if len(leafs)%2 == 1 {
		last := leafs[len(leafs)-1]
		leafs = append(leafs, &Node[T]{
			Tree:  t,
			Hash:  last.Hash,
			Value: last.Value,
			leaf:  true,
			dup:   true,
		})
	}

	level := leafs
	for len(level) > 1 {
		next := make([]*Node[T], 0, (len(level)+1)/2)

		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}

			h, err := t.combine(left.Hash, right.Hash)
			if err != nil {
				return err
			}

			parent := Node[T]{
				Tree:  t,
				Left:  left,
				Right: right,
				Hash:  h,
			}
			left.Parent = &parent
			right.Parent = &parent

			next = append(next, &parent)
		}

		level = next
	}

	t.Root = level[0]
	t.Leafs = leafs
	t.MerkleRoot = t.Root.Hash

	return nil
}

// Values returns the values stored in the tree in their original order,
// without the padding leaf.
func (t *Tree[T]) Values() []T {
	values := make([]T, 0, len(t.Leafs))
	for _, leaf := range t.Leafs {
		if leaf.dup {
			continue
		}
		values = append(values, leaf.Value)
	}

	return values
}

// Proof returns the set of hashes and the order of concatenating those
// hashes for proving a value is in the tree.
//
// Hash the value in question and walk the proof. For each entry, an order
// of Left means concat(proof[i], running) and Right means
// concat(running, proof[i]). Hashing each concatenation in turn must
// reproduce the merkle root.
func (t *Tree[T]) Proof(value T) ([][]byte, []int64, error) {
	for _, node := range t.Leafs {
		if node.dup || !node.Value.Equals(value) {
			continue
		}

		var proof [][]byte
		var order []int64

		for parent := node.Parent; parent != nil; parent = parent.Parent {
			if parent.Left == node {
				proof = append(proof, parent.Right.Hash)
				order = append(order, Right)
			} else {
				proof = append(proof, parent.Left.Hash)
				order = append(order, Left)
			}
			node = parent
		}

		return proof, order, nil
	}

	return nil, nil, ErrNotFound
}

// Verify recalculates every node of the tree from the leaf values and checks
// the result against the stored merkle root.
func (t *Tree[T]) Verify() error {
	if t.Root == nil {
		if !bytes.Equal(t.MerkleRoot, make([]byte, t.hashStrategy().Size())) {
			return errors.New("empty tree has a non zero root")
		}
		return nil
	}

	calculated, err := t.Root.calculate()
	if err != nil {
		return err
	}

	if !bytes.Equal(t.MerkleRoot, calculated) {
		return errors.New("root hash invalid")
	}

	return nil
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return hexutil.Encode(t.MerkleRoot)
}

// MarshalText panics since the tree itself should never be serialized.
// Use the Values function to return a slice that can be marshaled.
func (t *Tree[T]) MarshalText() (text []byte, err error) {
	panic("do not marshal the merkle tree, use Values")
}

func (t *Tree[T]) combine(left []byte, right []byte) ([]byte, error) {
	h := t.hashStrategy()

	if _, err := h.Write(left); err != nil {
		return nil, err
	}
	if _, err := h.Write(right); err != nil {
		return nil, err
	}

	return h.Sum(nil), nil
}

// =============================================================================

// VerifyProof checks that the leaf hash combined with the proof produces the
// root using sha256. This is what a client holding only a block header uses.
func VerifyProof(leaf []byte, proof [][]byte, order []int64, root []byte) bool {
	if len(proof) != len(order) {
		return false
	}

	running := leaf
	for i := range proof {
		h := sha256.New()

		switch order[i] {
		case Left:
			h.Write(proof[i])
			h.Write(running)
		default:
			h.Write(running)
			h.Write(proof[i])
		}

		running = h.Sum(nil)
	}

	return bytes.Equal(running, root)
}

// =============================================================================

// Node represents a node, root, or leaf in the tree.
type Node[T Hashable[T]] struct {
	Tree   *Tree[T]
	Parent *Node[T]
	Left   *Node[T]
	Right  *Node[T]
	Hash   []byte
	Value  T
	leaf   bool
	dup    bool
}

// calculate walks down to the leafs, recomputing the hash at every level.
func (n *Node[T]) calculate() ([]byte, error) {
	if n.leaf {
		return n.Value.Hash()
	}

	left, err := n.Left.calculate()
	if err != nil {
		return nil, err
	}

	right, err := n.Right.calculate()
	if err != nil {
		return nil, err
	}

	return n.Tree.combine(left, right)
}
