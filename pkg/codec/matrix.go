package codec

import "fmt"

// Logical-channel matrix geometry. One matrix holds one block of audio and
// aux data: 32 encoded blocks (rows) by 22 subframes (columns) of 32-bit
// words. At 48 kHz a block occupies 11 columns and is carried by a single
// frame; at 44.1 kHz a block occupies all 22 columns and is carried by two
// back-to-back frames of 11 columns each.
const (
	NumRows    = 32
	NumColumns = 22

	// ColumnsPerFrame is the number of subframe columns serialized into one
	// network frame.
	ColumnsPerFrame = 11

	// AudioChannels is the number of logical audio channels per block.
	AudioChannels = 24

	// Aux side-channel rows.
	AuxRowA = 24
	AuxRowB = 25

	// GlobalParityRow holds the complemented XOR of rows 0-30.
	GlobalParityRow = 31
)

// audioRowTable maps a logical audio channel (0-23) to its matrix row. The
// five group-parity rows (15, 23, 27, 29, 30), the two aux rows (24, 25) and
// the global-parity row (31) are skipped.
var audioRowTable = [AudioChannels]int{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14,
	16, 17, 18, 19, 20, 21, 22,
	26, 28,
}

// AudioRow returns the matrix row carrying logical audio channel ch.
func AudioRow(ch int) int {
	if ch < 0 || ch >= AudioChannels {
		panic(fmt.Sprintf("codec: audio channel %d out of range", ch))
	}
	return audioRowTable[ch]
}

// Matrix is one block's logical-channel grid. Cells are never implicitly
// cleared between uses: a build pass must overwrite every cell a consumer
// will read, since the previous occupant's words are otherwise still
// visible. The fill bitmap, when enabled, records which cells the current
// pass has written so that Coverage can enforce the full-overwrite contract.
type Matrix struct {
	cells [NumRows][NumColumns]uint32

	trackFill bool
	filled    [NumRows]uint32
}

// NewMatrix returns a zeroed matrix with fill tracking disabled.
func NewMatrix() *Matrix {
	return &Matrix{}
}

func checkIndex(row, col int) {
	if row < 0 || row >= NumRows || col < 0 || col >= NumColumns {
		panic(fmt.Sprintf("codec: matrix index (%d,%d) out of range", row, col))
	}
}

// Cell returns the word at (row, col). Out-of-range indices panic.
func (m *Matrix) Cell(row, col int) uint32 {
	checkIndex(row, col)
	return m.cells[row][col]
}

// SetCell stores a word at (row, col). Out-of-range indices panic.
func (m *Matrix) SetCell(row, col int, v uint32) {
	checkIndex(row, col)
	m.cells[row][col] = v
	if m.trackFill {
		m.filled[row] |= 1 << uint(col)
	}
}

// Clear zeroes every cell and the fill bitmap.
func (m *Matrix) Clear() {
	m.cells = [NumRows][NumColumns]uint32{}
	m.filled = [NumRows]uint32{}
}

// SetFillTracking enables or disables the write bitmap.
func (m *Matrix) SetFillTracking(on bool) {
	m.trackFill = on
}

// ResetFill clears the write bitmap ahead of a new build pass.
func (m *Matrix) ResetFill() {
	m.filled = [NumRows]uint32{}
}

// Coverage reports an error naming the first cell inside the first `columns`
// columns that the current build pass has not written. It is only meaningful
// while fill tracking is enabled.
func (m *Matrix) Coverage(columns int) error {
	if !m.trackFill {
		return nil
	}
	want := uint32(1<<uint(columns)) - 1
	for row := 0; row < NumRows; row++ {
		if missing := want &^ m.filled[row]; missing != 0 {
			for col := 0; col < columns; col++ {
				if missing&(1<<uint(col)) != 0 {
					return fmt.Errorf("codec: cell (%d,%d) not written this pass", row, col)
				}
			}
		}
	}
	return nil
}
