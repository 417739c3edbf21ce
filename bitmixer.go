package lattice

const (
	// Golden ratio bit mixers.
	phiC32 = uint32(0x9e3779b9)
	phiC64 = uint64(0x9e3779b97f4a7c15)
)

func mix(key int) int {
	return mix32(key)
}

// Final mixing step of 32-bit MurmurHash3.
func mix32(v int) int {
	k := uint32(v)
	k = (k ^ (k >> 16)) * 0x85ebca6b
	k = (k ^ (k >> 13)) * 0xc2b2ae35
	return int(k ^ (k >> 16))
}

// mixPair combines a state id and a string id into one well-spread hash.
func mixPair(state int, str StringID) uint64 {
	h := uint32(mix(state)) ^ (uint32(str) * phiC32)
	return uint64(mix32(int(h)))
}
