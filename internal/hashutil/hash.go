// Package hashutil provides content hashing; gstate's name table stores a
// MurmurHash digest on every interned Name.
//
// Grounded on the teacher's hash package (github.com/grailbio/gql/hash):
// a 32-byte digest with an order-independent Add and an order-dependent
// Merge. MurmurString and MurmurHash additionally wire
// github.com/spaolacci/murmur3, mirroring symbol.hashSymbolName's use of the
// teacher's hash.String for the symbol intern table.
package hashutil

import (
	"crypto/sha256"

	"github.com/spaolacci/murmur3"
)

// Hash is a 256-bit content digest.
type Hash [32]byte

// String hashes a string.
func String(s string) Hash { return sha256.Sum256([]byte(s)) }

// Bytes hashes a byte slice.
func Bytes(b []byte) Hash { return sha256.Sum256(b) }

// Int hashes an integer.
func Int(n int64) Hash {
	var b [8]byte
	for i := range b {
		b[i] = byte(n >> (8 * uint(i)))
	}
	return Bytes(b[:])
}

// Add combines two hashes order-independently (h.Add(o) == o.Add(h)).
// Used when the contribution order of a set of children is not significant.
func (h Hash) Add(o Hash) Hash {
	var r Hash
	for i := range h {
		r[i] = h[i] + o[i]
	}
	return r
}

// Merge combines two hashes order-dependently. Used when the order of
// children changes the semantics of the parent (e.g., argument lists).
func (h Hash) Merge(o Hash) Hash {
	buf := make([]byte, 0, len(h)+len(o))
	buf = append(buf, h[:]...)
	buf = append(buf, o[:]...)
	return Bytes(buf)
}

// MurmurString returns a fast, non-cryptographic hash of s (not for
// content-addressing). The name table uses MurmurHash, built on the same
// murmur3 function.
func MurmurString(s string) uint64 {
	return murmur3.Sum64([]byte(s))
}

// MurmurHash expands MurmurString into a full Hash by re-seeding four times,
// so name-table entries can carry the same Hash type the content-addressed
// callers (String, Bytes, Int) use without widening Name's hash field to a
// second type.
func MurmurHash(s string) Hash {
	b := []byte(s)
	var h Hash
	for seed := uint32(0); seed < 4; seed++ {
		v := murmur3.Sum64WithSeed(b, seed)
		for i := 0; i < 8; i++ {
			h[int(seed)*8+i] = byte(v >> (8 * uint(i)))
		}
	}
	return h
}
