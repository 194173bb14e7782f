package careauth

// CodeEntry models the six-cell code input: one digit per discrete cell, a
// focus index, auto-advance on input, and atomic paste. The web layer feeds
// it key and paste events and reads the joined code back; it holds no secret
// state of its own.
type CodeEntry struct {
	cells [otpDigits]byte
	focus int
}

// NewCodeEntry returns an empty entry focused on the first cell.
func NewCodeEntry() *CodeEntry {
	return &CodeEntry{}
}

// Input writes a digit into the focused cell and advances focus. Non-digit
// input is rejected per cell and reports false without changing anything.
func (e *CodeEntry) Input(r rune) bool {
	if r < '0' || r > '9' {
		return false
	}
	e.cells[e.focus] = byte(r)
	if e.focus < otpDigits-1 {
		e.focus++
	}
	return true
}

// Backspace clears the focused cell if it holds a digit; on an empty cell it
// moves focus to the previous cell instead.
func (e *CodeEntry) Backspace() {
	if e.cells[e.focus] != 0 {
		e.cells[e.focus] = 0
		return
	}
	if e.focus > 0 {
		e.focus--
	}
}

// Paste fills all six cells atomically when the payload strips to exactly
// six digits, leaving focus on the last cell. Any other payload changes no
// cell and reports false.
func (e *CodeEntry) Paste(payload string) bool {
	var digits []byte
	for i := 0; i < len(payload); i++ {
		if payload[i] >= '0' && payload[i] <= '9' {
			digits = append(digits, payload[i])
		}
	}
	if len(digits) != otpDigits {
		return false
	}
	copy(e.cells[:], digits)
	e.focus = otpDigits - 1
	return true
}

// Code returns the joined digits and whether all six cells are filled.
func (e *CodeEntry) Code() (string, bool) {
	buf := make([]byte, 0, otpDigits)
	for _, c := range e.cells {
		if c == 0 {
			return "", false
		}
		buf = append(buf, c)
	}
	return string(buf), true
}

// Clear empties every cell and returns focus to the first one. Called after
// a rejected code so the user retypes from the start.
func (e *CodeEntry) Clear() {
	e.cells = [otpDigits]byte{}
	e.focus = 0
}

// Focus is the index of the cell that receives the next input.
func (e *CodeEntry) Focus() int {
	return e.focus
}

// Cell returns the digit in cell i, or 0 when empty.
func (e *CodeEntry) Cell(i int) byte {
	if i < 0 || i >= otpDigits {
		return 0
	}
	return e.cells[i]
}
