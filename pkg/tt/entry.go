package tt

type Bound uint8

const (
	BoundNone Bound = iota
	BoundExact
	BoundLower
	BoundUpper
)

const (
	ageCycle = 64
	ageMask  = ageCycle - 1
	maxDepth = 127
)

// Entry is the unpacked form of one table slot.
type Entry struct {
	Move  uint16
	Score int16
	Eval  int16
	Depth int
	Bound Bound
	Age   uint8
	IsPV  bool
}

// The data word packs the whole entry into 64 bits:
// move[48:64) score[32:48) depth[25:32) bound[23:25) age[17:23)
// pv:16 eval[0:16). The paired key word holds the full position key,
// zero meaning empty.
func packEntry(e Entry) uint64 {
	var data = uint64(e.Move)<<48 |
		uint64(uint16(e.Score))<<32 |
		uint64(e.Depth&maxDepth)<<25 |
		uint64(e.Bound)<<23 |
		uint64(e.Age&ageMask)<<17 |
		uint64(uint16(e.Eval))
	if e.IsPV {
		data |= 1 << 16
	}
	return data
}

func unpackEntry(data uint64) Entry {
	return Entry{
		Move:  uint16(data >> 48),
		Score: int16(uint16(data >> 32)),
		Depth: int((data >> 25) & maxDepth),
		Bound: Bound((data >> 23) & 0x3),
		Age:   uint8((data >> 17) & ageMask),
		IsPV:  data&(1<<16) != 0,
		Eval:  int16(uint16(data)),
	}
}

func entryDepth(data uint64) int {
	return int((data >> 25) & maxDepth)
}

func entryBound(data uint64) Bound {
	return Bound((data >> 23) & 0x3)
}

func entryAge(data uint64) uint8 {
	return uint8((data >> 17) & ageMask)
}

func entryIsPV(data uint64) bool {
	return data&(1<<16) != 0
}
