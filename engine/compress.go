package engine

import (
	"encoding/binary"
	"math/bits"

	"alma.local/shatb/oracle"
	"alma.local/shatb/padding"
)

// iv is the SHA-256 initial hash value.
var iv = [8]uint32{
	0x6a09e667, 0xbb67ae85, 0x3c6ef372, 0xa54ff53a,
	0x510e527f, 0x9b05688c, 0x1f83d9ab, 0x5be0cd19,
}

var k = [64]uint32{
	0x428a2f98, 0x71374491, 0xb5c0fbcf, 0xe9b5dba5, 0x3956c25b, 0x59f111f1, 0x923f82a4, 0xab1c5ed5,
	0xd807aa98, 0x12835b01, 0x243185be, 0x550c7dc3, 0x72be5d74, 0x80deb1fe, 0x9bdc06a7, 0xc19bf174,
	0xe49b69c1, 0xefbe4786, 0x0fc19dc6, 0x240ca1cc, 0x2de92c6f, 0x4a7484aa, 0x5cb0a9dc, 0x76f988da,
	0x983e5152, 0xa831c66d, 0xb00327c8, 0xbf597fc7, 0xc6e00bf3, 0xd5a79147, 0x06ca6351, 0x14292967,
	0x27b70a85, 0x2e1b2138, 0x4d2c6dfc, 0x53380d13, 0x650a7354, 0x766a0abb, 0x81c2c92e, 0x92722c85,
	0xa2bfe8a1, 0xa81a664b, 0xc24b8b70, 0xc76c51a3, 0xd192e819, 0xd6990624, 0xf40e3585, 0x106aa070,
	0x19a4c116, 0x1e376c08, 0x2748774c, 0x34b0bcb5, 0x391c0cb3, 0x4ed8aa4a, 0x5b9cca4f, 0x682e6ff3,
	0x748f82ee, 0x78a5636f, 0x84c87814, 0x8cc70208, 0x90befffa, 0xa4506ceb, 0xbef9a3f7, 0xc67178f2,
}

// Rounds is the number of compression rounds per block.
const Rounds = 64

// schedule expands a block into the 64-word message schedule.
func schedule(blk *padding.Block) [Rounds]uint32 {
	var w [Rounds]uint32
	for i := 0; i < 16; i++ {
		w[i] = binary.BigEndian.Uint32(blk[i*4:])
	}
	for i := 16; i < Rounds; i++ {
		v1 := w[i-2]
		t1 := bits.RotateLeft32(v1, -17) ^ bits.RotateLeft32(v1, -19) ^ (v1 >> 10)
		v2 := w[i-15]
		t2 := bits.RotateLeft32(v2, -7) ^ bits.RotateLeft32(v2, -18) ^ (v2 >> 3)
		w[i] = t1 + w[i-7] + t2 + w[i-16]
	}
	return w
}

// round applies compression round i to the working variables.
func round(v *[8]uint32, i int, wi uint32) {
	a, b, c, d, e, f, g, h := v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7]

	s1 := bits.RotateLeft32(e, -6) ^ bits.RotateLeft32(e, -11) ^ bits.RotateLeft32(e, -25)
	ch := (e & f) ^ (^e & g)
	t1 := h + s1 + ch + k[i] + wi
	s0 := bits.RotateLeft32(a, -2) ^ bits.RotateLeft32(a, -13) ^ bits.RotateLeft32(a, -22)
	maj := (a & b) ^ (a & c) ^ (b & c)
	t2 := s0 + maj

	v[0], v[1], v[2], v[3], v[4], v[5], v[6], v[7] = t1+t2, a, b, c, d+t1, e, f, g
}

// finalize adds the working variables to the initial hash value and
// serializes the result big-endian.
func finalize(v *[8]uint32) oracle.Digest {
	var d oracle.Digest
	for i := range v {
		binary.BigEndian.PutUint32(d[i*4:], iv[i]+v[i])
	}
	return d
}

// Compress runs the full single-block compression from the initial hash
// value. The block is taken as is; no padding is added.
func Compress(blk padding.Block) oracle.Digest {
	w := schedule(&blk)
	v := iv
	for i := 0; i < Rounds; i++ {
		round(&v, i, w[i])
	}
	return finalize(&v)
}
