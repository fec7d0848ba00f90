// Package model holds the request-level data types shared across the render
// pipeline: flags, their clamping/signature rules, and render parameters.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Flags is the UTAU flag record, all integer knobs clamped on entry (§3).
type Flags struct {
	G  int // formant/gender shift, cents/100 = semitones
	Hb int // breath gain %
	Hv int // voice gain %
	HG int // growl strength
	P  int // loudness-normalize blend
	T  int // pitch shift in cents
	Ht int // tension
	A  int // amplitude-from-pitch depth

	ForceRegen bool // G flag
	MelLoop    bool // He flag
}

// DefaultFlags returns the documented defaults for every knob.
func DefaultFlags() Flags {
	return Flags{
		G:  0,
		Hb: 100,
		Hv: 100,
		HG: 0,
		P:  100,
		T:  0,
		Ht: 0,
		A:  0,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp returns a copy of f with every field clamped to its declared range.
func (f Flags) Clamp() Flags {
	f.G = clamp(f.G, -600, 600)
	f.Hb = clamp(f.Hb, 0, 500)
	f.Hv = clamp(f.Hv, 0, 150)
	f.HG = clamp(f.HG, 0, 100)
	f.P = clamp(f.P, 0, 100)
	f.T = clamp(f.T, -1200, 1200)
	f.Ht = clamp(f.Ht, -100, 100)
	f.A = clamp(f.A, -100, 100)
	return f
}

// Signature returns the first six hex characters of
// SHA-256("g=<g>;Hb=<Hb>;Hv=<Hv>;Ht=<Ht>") — only the cache-relevant flags
// participate (§3 "Flag signature").
func (f Flags) Signature() string {
	clamped := f.Clamp()
	payload := fmt.Sprintf("g=%d;Hb=%d;Hv=%d;Ht=%d", clamped.G, clamped.Hb, clamped.Hv, clamped.Ht)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])[:6]
}

// ShouldBypassCache reports whether the G (force-regeneration) flag is set.
func (f Flags) ShouldBypassCache() bool { return f.ForceRegen }
