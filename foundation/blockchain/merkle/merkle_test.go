package merkle_test

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/ebsnet/blockchain/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// Data uses the sha256 hashing algorithm for the merkle tree.
type Data struct {
	x string
}

// Hash hashes the values using sha256.
func (d Data) Hash() ([]byte, error) {
	h := sha256.Sum256([]byte(d.x))
	return h[:], nil
}

// Equals tests for equality of two piece of data.
func (d Data) Equals(other Data) bool {
	return d.x == other.x
}

func leafHash(s string) []byte {
	h := sha256.Sum256([]byte(s))
	return h[:]
}

func pair(left, right []byte) []byte {
	h := sha256.Sum256(append(append([]byte{}, left...), right...))
	return h[:]
}

// =============================================================================

func Test_Root(t *testing.T) {
	a, b, c := leafHash("a"), leafHash("b"), leafHash("c")

	type table struct {
		name string
		data []Data
		root []byte
	}

	tt := []table{
		{name: "empty", data: nil, root: make([]byte, sha256.Size)},
		{name: "one", data: []Data{{"a"}}, root: pair(a, a)},
		{name: "two", data: []Data{{"a"}, {"b"}}, root: pair(a, b)},
		{name: "three", data: []Data{{"a"}, {"b"}, {"c"}}, root: pair(pair(a, b), pair(c, c))},
	}

	t.Log("Given the need to produce a summary digest of a set of values.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				t.Logf("\tTest %d:\tWhen handling %d values.", testID, len(tst.data))
				{
					tree, err := merkle.NewTree(tst.data)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to construct the tree: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to construct the tree.", success, testID)

					if !bytes.Equal(tree.MerkleRoot, tst.root) {
						t.Logf("\t%s\tTest %d:\tgot: %x", failed, testID, tree.MerkleRoot)
						t.Logf("\t%s\tTest %d:\texp: %x", failed, testID, tst.root)
						t.Fatalf("\t%s\tTest %d:\tShould get back the expected root.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the expected root.", success, testID)

					values := tree.Values()
					if len(values) != len(tst.data) {
						t.Fatalf("\t%s\tTest %d:\tShould get back %d values, got %d.", failed, testID, len(tst.data), len(values))
					}
					for i := range values {
						if !values[i].Equals(tst.data[i]) {
							t.Fatalf("\t%s\tTest %d:\tShould get back the values in order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the values in order.", success, testID)

					if err := tree.Verify(); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to verify the tree: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to verify the tree.", success, testID)
				}
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_Proof(t *testing.T) {
	data := []Data{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}

	t.Log("Given the need to prove a value is included in a tree.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling five values.", testID)
		{
			tree, err := merkle.NewTree(data)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the tree: %v", failed, testID, err)
			}

			for _, d := range data {
				proof, order, err := tree.Proof(d)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to get a proof for %q: %v", failed, testID, d.x, err)
				}

				if !merkle.VerifyProof(leafHash(d.x), proof, order, tree.MerkleRoot) {
					t.Fatalf("\t%s\tTest %d:\tShould be able to verify the proof for %q.", failed, testID, d.x)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to verify a proof for every value.", success, testID)

			proof, order, _ := tree.Proof(Data{"a"})
			if merkle.VerifyProof(leafHash("z"), proof, order, tree.MerkleRoot) {
				t.Fatalf("\t%s\tTest %d:\tShould not verify a proof for a different value.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not verify a proof for a different value.", success, testID)

			if _, _, err := tree.Proof(Data{"z"}); !errors.Is(err, merkle.ErrNotFound) {
				t.Fatalf("\t%s\tTest %d:\tShould get ErrNotFound for a missing value: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould get ErrNotFound for a missing value.", success, testID)
		}
	}
}

func Test_Tampering(t *testing.T) {
	t.Log("Given the need to detect a tree that was modified.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the root hash is changed.", testID)
		{
			tree, err := merkle.NewTree([]Data{{"a"}, {"b"}, {"c"}}, merkle.WithHashStrategy[Data](md5.New))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the tree: %v", failed, testID, err)
			}

			if err := tree.Verify(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to verify the untouched tree: %v", failed, testID, err)
			}

			tree.MerkleRoot = []byte{1}
			if err := tree.Verify(); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail to verify the modified tree.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail to verify the modified tree.", success, testID)
		}
	}
}
