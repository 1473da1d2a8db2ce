package ad2cp

// checksumSeed initializes the running sum, per the integrators guide.
const checksumSeed = 0xB58C

// Checksum computes the AD2CP data checksum of buf: a 16-bit sum, seeded
// with 0xB58C, over the buffer viewed as little-endian 16-bit words, with
// natural wraparound.
//
// For an odd-length buffer the vendor reference code reads one byte past
// the declared size, picking up whatever the adjacent memory holds. That
// is not reproducible, so the trailing byte is summed with a zero high
// byte instead. Captures observed in the field always carry even data
// sizes, which keeps the two definitions in agreement.
func Checksum(buf []byte) uint16 {
	sum := uint16(checksumSeed)
	n := len(buf) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint16(buf[i]) | uint16(buf[i+1])<<8
	}
	if len(buf)&1 == 1 {
		sum += uint16(buf[len(buf)-1])
	}
	return sum
}
