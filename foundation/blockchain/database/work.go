package database

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// twoTo256 is the size of the hash space.
var twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)

// HashToBig interprets a hex encoded hash as an unsigned integer.
func HashToBig(hash string) (*big.Int, error) {

	// hexutil.DecodeBig rejects leading zeros which every solved hash has.
	b, err := hexutil.Decode(hash)
	if err != nil {
		return nil, err
	}

	return new(big.Int).SetBytes(b), nil
}

// SolvesTarget checks the hash complies with the POW rules. The numeric
// value of the hash must be less than or equal to the target.
func SolvesTarget(hash string, target *big.Int) bool {
	n, err := HashToBig(hash)
	if err != nil {
		return false
	}

	return n.Cmp(target) <= 0
}

// Work returns the expected number of hashes needed to solve the target.
// This is 2^256 / (target + 1).
func Work(target *big.Int) *big.Int {
	if target.Sign() < 0 {
		return new(big.Int)
	}

	denominator := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Div(twoTo256, denominator)
}
