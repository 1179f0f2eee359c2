// Package crccombine computes the IEEE CRC-32 of concatenated byte
// ranges from the checksums of the ranges alone, without rehashing
// any data. This is the same algebra as zlib's crc32_combine: a CRC
// is a linear function over GF(2), so appending lenB bytes to a range
// is equivalent to multiplying its CRC by a 32x32 bit matrix that
// only depends on lenB, built by repeated squaring of the
// one-zero-byte operator.
package crccombine

// Reflected form of the CRC-32 generator polynomial used by gzip.
const polynomial = 0xedb88320

// zeroByteOp is the matrix that advances a CRC over 8 zero bits,
// precomputed once. Matrices are column vectors: mat[n] is the output
// for input bit n.
var zeroByteOp [32]uint32

func init() {
	// Operator for a single zero bit.
	var odd [32]uint32
	odd[0] = polynomial
	row := uint32(1)
	for n := 1; n < 32; n++ {
		odd[n] = row
		row <<= 1
	}

	// Square three times: 1 bit -> 2 bits -> 4 bits -> 8 bits.
	var even [32]uint32
	gf2MatrixSquare(&even, &odd)
	gf2MatrixSquare(&odd, &even)
	gf2MatrixSquare(&zeroByteOp, &odd)
}

// gf2MatrixTimes multiplies matrix mat by vector vec over GF(2).
func gf2MatrixTimes(mat *[32]uint32, vec uint32) uint32 {
	var sum uint32
	for i := 0; vec != 0; i++ {
		if vec&1 != 0 {
			sum ^= mat[i]
		}
		vec >>= 1
	}
	return sum
}

// gf2MatrixSquare sets square to mat*mat.
func gf2MatrixSquare(square, mat *[32]uint32) {
	for n := range square {
		square[n] = gf2MatrixTimes(mat, mat[n])
	}
}

// Combine returns the CRC-32 of the concatenation A||B given
// crc32(A), crc32(B) and the length of B in bytes. lenB <= 0 returns
// crcA unchanged, matching zlib: combining with an empty range is the
// identity on both sides (an empty range has CRC 0).
func Combine(crcA, crcB uint32, lenB int64) uint32 {
	if lenB <= 0 {
		return crcA
	}

	// Walk the bits of lenB, squaring the zero-byte operator as we
	// go and applying it to crcA wherever the bit is set.
	var even, odd [32]uint32
	odd = zeroByteOp
	for {
		if lenB&1 != 0 {
			crcA = gf2MatrixTimes(&odd, crcA)
		}
		lenB >>= 1
		if lenB == 0 {
			break
		}
		gf2MatrixSquare(&even, &odd)

		if lenB&1 != 0 {
			crcA = gf2MatrixTimes(&even, crcA)
		}
		lenB >>= 1
		if lenB == 0 {
			break
		}
		gf2MatrixSquare(&odd, &even)
	}

	return crcA ^ crcB
}
