package core

import (
	"math/bits"
	"runtime"

	"golang.org/x/sys/cpu"
)

// HasPopcount reports whether the CPU counts bits in hardware.
var HasPopcount = runtime.GOARCH != "amd64" || cpu.X86.HasPOPCNT

// popcount64 is the bit counting kernel used by the Hamming distances.
var popcount64 = selectPopcount(HasPopcount)

func selectPopcount(hardware bool) func(uint64) int {
	if hardware {
		return bits.OnesCount64
	}
	return popcountTable
}

// popcountTable counts bits a byte at a time through a lookup table.
func popcountTable(x uint64) int {
	return int(popTable[x&0xff] + popTable[x>>8&0xff] + popTable[x>>16&0xff] + popTable[x>>24&0xff] +
		popTable[x>>32&0xff] + popTable[x>>40&0xff] + popTable[x>>48&0xff] + popTable[x>>56])
}

var popTable = func() (t [256]uint8) {
	for i := range t {
		t[i] = uint8(bits.OnesCount8(uint8(i)))
	}
	return t
}()
