package capture

// ProgramMemory tracks which of the 32 instruction slots of a PIO block are in
// use. Backends own one per block and write instructions wherever it says.
type ProgramMemory struct {
	// Bitmask of used instruction space. Each PIO has 32 slots for instructions.
	used uint32
}

// Used returns the bitmask of occupied slots.
func (m *ProgramMemory) Used() uint32 { return m.used }

// Reserve finds room for instructions, marks it used and returns the
// relocated instructions along with the offset they belong at. origin
// indicates where the program must be loaded, or -1 if the code is
// position independent.
func (m *ProgramMemory) Reserve(instructions []uint16, origin int8) (offset uint8, relocated []uint16, ok bool) {
	maybeOffset := m.find(instructions, origin)
	if maybeOffset < 0 {
		return 0, nil, false
	}
	offset = uint8(maybeOffset)
	relocated = make([]uint16, len(instructions))
	for i, instr := range instructions {
		// Patch jump instructions with relative offset
		if _INSTR_BITS_JMP == instr&_INSTR_BITS_Msk {
			relocated[i] = instr + uint16(offset)
		} else {
			relocated[i] = instr
		}
	}
	m.used |= programMask(len(instructions)) << offset
	return offset, relocated, true
}

// Release frees length slots starting at offset.
func (m *ProgramMemory) Release(offset, length uint8) {
	if uint16(offset)+uint16(length) > 32 {
		panic("capture: invalid program bounds")
	}
	m.used &^= programMask(int(length)) << offset
}

func (m *ProgramMemory) find(instructions []uint16, origin int8) int8 {
	programLen := len(instructions)
	if programLen == 0 || programLen > 32 {
		return -1
	}
	mask := programMask(programLen)

	// Program has fixed offset (not relocatable)
	if origin >= 0 {
		if int(origin) > 32-programLen {
			return -1
		}
		if m.used&(mask<<uint32(origin)) != 0 {
			return -1
		}
		return origin
	}

	// work down from the top always
	for i := int8(32 - programLen); i >= 0; i-- {
		if m.used&(mask<<uint32(i)) == 0 {
			return i
		}
	}
	return -1
}

func programMask(length int) uint32 {
	return uint32(uint64(1)<<uint(length) - 1)
}
