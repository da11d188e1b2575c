package codec

// FEC parity over the logical-channel matrix. Five group parities cover
// overlapping 16-row subsets placed Hamming-style: group g (one of 16, 8, 4,
// 2, 1) covers every row whose reversed index 31-row has bit g set, and
// lands in the row whose reversed index is exactly g. The stored word is the
// bitwise complement of the XOR across the group's data rows, so a verifier
// XNOR-ing the full group at any column gets zero. A final global parity over
// rows 0-30 lands in row 31 the same way.
//
// Parity is generated on transmit only. The receive side deliberately never
// checks it; downstream consumers rely on that leniency.

// GroupParityRows are the five group-parity destination rows.
var GroupParityRows = [5]int{15, 23, 27, 29, 30}

// parityEntry lists the source rows XOR-ed into one destination row.
type parityEntry struct {
	dest    int
	sources []int
}

// parityTable holds the five group entries; globalSources lists rows 0-30
// feeding the global parity row. Both are fixed at startup.
var (
	parityTable   [5]parityEntry
	globalSources [GlobalParityRow]int
)

func init() {
	groups := [5]uint8{16, 8, 4, 2, 1}
	for i, g := range groups {
		dest := GlobalParityRow - int(g)
		e := parityEntry{dest: dest}
		for row := 0; row < GlobalParityRow; row++ {
			if row == dest {
				continue
			}
			if uint8(GlobalParityRow-row)&g != 0 {
				e.sources = append(e.sources, row)
			}
		}
		parityTable[i] = e
	}
	for row := 0; row < GlobalParityRow; row++ {
		globalSources[row] = row
	}
}

// ApplyParity writes the five group-parity rows and the global-parity row
// for the first `columns` subframe columns. Every data cell in those columns
// must already hold its final word.
func ApplyParity(m *Matrix, columns int) {
	for _, e := range parityTable {
		for col := 0; col < columns; col++ {
			var acc uint32
			for _, row := range e.sources {
				acc ^= m.Cell(row, col)
			}
			m.SetCell(e.dest, col, ^acc)
		}
	}
	for col := 0; col < columns; col++ {
		var acc uint32
		for _, row := range globalSources {
			acc ^= m.Cell(row, col)
		}
		m.SetCell(GlobalParityRow, col, ^acc)
	}
}

// ParitySources returns the source rows feeding the given group-parity
// destination row, or nil if row is not a parity destination.
func ParitySources(row int) []int {
	for _, e := range parityTable {
		if e.dest == row {
			return e.sources
		}
	}
	return nil
}
