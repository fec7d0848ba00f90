package featurecache

import "math"

func float32Bits(v float32) uint32     { return math.Float32bits(v) }
func float32FromBits(b uint32) float32 { return math.Float32frombits(b) }
