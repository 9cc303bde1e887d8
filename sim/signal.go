package sim

// Square toggles pin every halfPeriod cycles, starting low.
func Square(pin uint8, halfPeriod uint64) Signal {
	if halfPeriod == 0 {
		halfPeriod = 1
	}
	return func(cycle uint64) uint32 {
		return uint32((cycle/halfPeriod)&1) << pin
	}
}

// Rise drives pin low before cycle at and high from then on.
func Rise(pin uint8, at uint64) Signal {
	return func(cycle uint64) uint32 {
		if cycle < at {
			return 0
		}
		return 1 << pin
	}
}

// Constant holds every pin at the levels in mask.
func Constant(mask uint32) Signal {
	return func(uint64) uint32 { return mask }
}

// Merge combines signals on distinct pins.
func Merge(signals ...Signal) Signal {
	return func(cycle uint64) uint32 {
		var v uint32
		for _, s := range signals {
			v |= s(cycle)
		}
		return v
	}
}
