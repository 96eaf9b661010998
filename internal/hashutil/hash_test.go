package hashutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sorbetgo/checker/internal/hashutil"
)

var (
	randomHash = hashutil.Hash{
		0xce, 0xce, 0x7c, 0x18, 0xdf, 0x26, 0xa8, 0x3c,
		0xfe, 0x56, 0xee, 0xd0, 0x35, 0x22, 0x8f, 0x7c,
		0x08, 0x5d, 0xf9, 0xc9, 0x80, 0x87, 0x5b, 0x35,
		0x0f, 0xd4, 0x25, 0x0d, 0xb0, 0x75, 0x83, 0x61}

	randomHash2 = hashutil.Hash{
		0x5f, 0xe4, 0x30, 0x98, 0xf1, 0x55, 0x26, 0x7a,
		0x50, 0x2e, 0x43, 0xa8, 0x40, 0xae, 0x5b, 0x67,
		0x9e, 0x4b, 0xbe, 0x98, 0x1a, 0x48, 0x30, 0xbd,
		0x0c, 0x63, 0x08, 0x8d, 0x5d, 0xad, 0xf7, 0x19}
)

func TestEmptyHash(t *testing.T) {
	assert.NotEqual(t, hashutil.Bytes(nil), hashutil.Hash{})
	assert.NotEqual(t, hashutil.String(""), hashutil.Hash{})
}

func TestHashAdd(t *testing.T) {
	assert.Equal(t, hashutil.Hash{}.Add(randomHash), randomHash)
	assert.Equal(t, randomHash.Add(hashutil.Hash{}), randomHash)
	assert.NotEqual(t, randomHash.Add(randomHash), hashutil.Hash{})
	assert.Equal(t, randomHash.Add(randomHash2), randomHash2.Add(randomHash))
}

func TestHashMerge(t *testing.T) {
	assert.NotEqual(t, hashutil.Hash{}.Merge(randomHash), randomHash)
	assert.NotEqual(t, hashutil.Hash{}.Merge(randomHash), hashutil.Hash{})
	assert.NotEqual(t, randomHash.Merge(hashutil.Hash{}), randomHash)
	assert.NotEqual(t, randomHash.Merge(randomHash2), randomHash2.Merge(randomHash))
}

func TestMurmurStringDeterministic(t *testing.T) {
	assert.Equal(t, hashutil.MurmurString("foo"), hashutil.MurmurString("foo"))
	assert.NotEqual(t, hashutil.MurmurString("foo"), hashutil.MurmurString("bar"))
}
