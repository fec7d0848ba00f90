package stft

// reflectIndex bounces i off the [0, n) boundary until it lands in range,
// the same reflect convention used at both ends of reflectPad. A length-1
// buffer collapses every index to 0.
func reflectIndex(i, n int) int {
	if n <= 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// ReflectPad returns signal padded by padLeft on the left and padRight on
// the right using reflect-at-boundary indexing. Exported for callers (the
// mel analyzer) that need a custom pad width instead of Forward's default
// nFft/2 centering.
func ReflectPad(signal []float64, padLeft, padRight int) []float64 {
	return reflectPad(signal, padLeft, padRight)
}

// reflectPad returns signal padded by padLeft on the left and padRight on
// the right using reflect-at-boundary indexing.
func reflectPad(signal []float64, padLeft, padRight int) []float64 {
	n := len(signal)
	out := make([]float64, padLeft+n+padRight)
	for i := 0; i < padLeft; i++ {
		out[i] = signal[reflectIndex(padLeft-i, n)]
	}
	copy(out[padLeft:padLeft+n], signal)
	for i := 0; i < padRight; i++ {
		out[padLeft+n+i] = signal[reflectIndex(n-2-i, n)]
	}
	return out
}
