package musickey

// OpenKeyNumber and LancelotNumber are the 1..12 wheel positions used by
// Open Key and Lancelot/Camelot notation respectively; each combines with a
// Mode to address one of the 24 key codes.
type OpenKeyNumber int
type LancelotNumber int

// OpenKeyCode converts an Open Key (number, mode) pair to its Code.
func OpenKeyCode(n OpenKeyNumber, m Mode) Code {
	delta := 0
	if m == ModeMajor {
		delta = 1
	}
	return Code(2*int(n) - delta)
}

// OpenKeyFromCode converts a Code back to its Open Key (number, mode) pair.
// Off (Code 0) is not representable and returns ok=false.
func OpenKeyFromCode(c Code) (OpenKeyNumber, Mode, bool) {
	if c == 0 {
		return 0, 0, false
	}
	mode, _ := c.Mode()
	return OpenKeyNumber(1 + (int(c)-1)/2), mode, true
}

// LancelotCode converts a Lancelot/Camelot (number, mode) pair to its Code.
func LancelotCode(n LancelotNumber, m Mode) Code {
	delta := 0
	if m == ModeMinor {
		delta = 1
	}
	return Code((int(n)*2+9)%24 + delta)
}

// LancelotFromCode converts a Code back to its Lancelot/Camelot (number,
// mode) pair.
func LancelotFromCode(c Code) (LancelotNumber, Mode, bool) {
	if c == 0 {
		return 0, 0, false
	}
	mode, _ := c.Mode()
	return LancelotNumber(1 + ((int(c)+13)/2)%12), mode, true
}

// EngineNumber is the 1..24 numbering used by Denon/Engine DJ hardware,
// which walks the Circle of Fifths starting from a different offset than
// the canonical Code numbering.
type EngineNumber int

// EngineCode converts an Engine key number to its Code.
func EngineCode(n EngineNumber) Code {
	return Code(int(n)%24 + 1)
}

// EngineFromCode converts a Code back to its Engine key number.
func EngineFromCode(c Code) (EngineNumber, bool) {
	if c == 0 {
		return 0, false
	}
	if c == 1 {
		return 24, true
	}
	return EngineNumber(int(c) - 1), true
}
