// Package utauargs decodes the space-delimited UTAU resampler CLI
// convention into model.RenderParams, including the base64-like pitch-bend
// run-length encoding (§6 "CLI bridge").
package utauargs

import (
	"strconv"
	"strings"

	"github.com/resamplr/hifigo/internal/model"
	"github.com/resamplr/hifigo/internal/renderctx"
)

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// Parse decodes a UTAU invocation's argument list (already split on
// whitespace by the shell/process launcher, argv[1:]) into RenderParams.
// Tokens are, in order: in.wav out.wav note velocity [flags] offset length
// consonant cutoff volume modulation !tempo pitchBendBase64. When flags is
// absent the token count is 12 instead of 13; an empty flags slot is
// inserted to recover.
func Parse(args []string) (model.RenderParams, error) {
	const fullLen = 13
	const noFlagsLen = 12

	switch len(args) {
	case fullLen:
		// already in canonical shape
	case noFlagsLen:
		recovered := make([]string, 0, fullLen)
		recovered = append(recovered, args[:4]...)
		recovered = append(recovered, "")
		recovered = append(recovered, args[4:]...)
		args = recovered
	default:
		return model.RenderParams{}, renderctx.Invalid("utauargs: expected %d or %d arguments, got %d", noFlagsLen, fullLen, len(args))
	}

	note, err := parseInt(args[2], "note")
	if err != nil {
		return model.RenderParams{}, err
	}
	velocity, err := parseFloat(args[3], "velocity")
	if err != nil {
		return model.RenderParams{}, err
	}
	flags, err := ParseFlags(args[4])
	if err != nil {
		return model.RenderParams{}, err
	}
	offset, err := parseFloat(args[5], "offset")
	if err != nil {
		return model.RenderParams{}, err
	}
	length, err := parseFloat(args[6], "length")
	if err != nil {
		return model.RenderParams{}, err
	}
	consonant, err := parseFloat(args[7], "consonant")
	if err != nil {
		return model.RenderParams{}, err
	}
	cutoff, err := parseFloat(args[8], "cutoff")
	if err != nil {
		return model.RenderParams{}, err
	}
	volume, err := parseFloat(args[9], "volume")
	if err != nil {
		return model.RenderParams{}, err
	}
	modulation, err := parseFloat(args[10], "modulation")
	if err != nil {
		return model.RenderParams{}, err
	}
	tempo, err := parseTempo(args[11])
	if err != nil {
		return model.RenderParams{}, err
	}
	bend, err := DecodePitchBend(args[12])
	if err != nil {
		return model.RenderParams{}, err
	}

	return model.RenderParams{
		InputPath:      args[0],
		OutputPath:     args[1],
		PitchMidi:      note,
		Velocity:       velocity,
		Flags:          flags,
		OffsetMs:       offset,
		LengthMs:       length,
		ConsonantMs:    consonant,
		CutoffMs:       cutoff,
		VolumePct:      volume,
		Modulation:     modulation,
		TempoBpm:       tempo,
		PitchBendCents: bend,
	}, nil
}

func parseTempo(tok string) (float64, error) {
	tok = strings.TrimPrefix(tok, "!")
	return parseFloat(tok, "tempo")
}

func parseInt(tok, field string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(tok))
	if err != nil {
		return 0, renderctx.Invalid("utauargs: invalid %s %q", field, tok)
	}
	return v, nil
}

func parseFloat(tok, field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil {
		return 0, renderctx.Invalid("utauargs: invalid %s %q", field, tok)
	}
	return v, nil
}

// DecodePitchBend decodes the base64-like run-length-encoded pitch-bend
// string into a cents array, appending a trailing 0 per §6.
func DecodePitchBend(encoded string) ([]float64, error) {
	if encoded == "" {
		return []float64{0}, nil
	}

	// Decode pair-by-pair; a "#<n>" run-length marker repeats the most
	// recently decoded value n times.
	var values []float64
	data := encoded
	pos := 0
	var last float64
	haveLast := false
	for pos < len(data) {
		if data[pos] == '#' {
			pos++
			start := pos
			for pos < len(data) && isDigit(data[pos]) {
				pos++
			}
			if start == pos {
				return nil, renderctx.Invalid("utauargs: malformed repeat segment in pitch bend at byte %d", start)
			}
			n, err := strconv.Atoi(data[start:pos])
			if err != nil {
				return nil, renderctx.Invalid("utauargs: malformed repeat count in pitch bend: %q", data[start:pos])
			}
			if !haveLast {
				return nil, renderctx.Invalid("utauargs: repeat segment with no preceding value in pitch bend")
			}
			for i := 0; i < n; i++ {
				values = append(values, last)
			}
			continue
		}
		if pos+2 > len(data) {
			return nil, renderctx.Invalid("utauargs: truncated value pair in pitch bend at byte %d", pos)
		}
		c0 := strings.IndexByte(base64Alphabet, data[pos])
		c1 := strings.IndexByte(base64Alphabet, data[pos+1])
		if c0 < 0 || c1 < 0 {
			return nil, renderctx.Invalid("utauargs: invalid base64 character in pitch bend at byte %d", pos)
		}
		raw := (c0 << 6) | c1
		v := raw
		if raw&0x800 != 0 {
			v = raw - 4096
		}
		last = float64(v)
		haveLast = true
		values = append(values, last)
		pos += 2
	}

	values = append(values, 0)
	return values, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ParseFlags decodes the flags token (e.g. "g5Hb80Hv100HG20t-100Ht10A5GHe")
// into a Flags record. Letter-keyed numeric fields consume digits
// (optionally signed) immediately following their key; G and He are bare
// boolean switches.
func ParseFlags(tok string) (model.Flags, error) {
	f := model.DefaultFlags()
	i := 0
	n := len(tok)
	for i < n {
		switch {
		case hasPrefixAt(tok, i, "Hb"):
			v, next, err := readInt(tok, i+2)
			if err != nil {
				return f, err
			}
			f.Hb = v
			i = next
		case hasPrefixAt(tok, i, "Hv"):
			v, next, err := readInt(tok, i+2)
			if err != nil {
				return f, err
			}
			f.Hv = v
			i = next
		case hasPrefixAt(tok, i, "HG"):
			v, next, err := readInt(tok, i+2)
			if err != nil {
				return f, err
			}
			f.HG = v
			i = next
		case hasPrefixAt(tok, i, "Ht"):
			v, next, err := readInt(tok, i+2)
			if err != nil {
				return f, err
			}
			f.Ht = v
			i = next
		case hasPrefixAt(tok, i, "He"):
			f.MelLoop = true
			i += 2
		case tok[i] == 'g':
			v, next, err := readInt(tok, i+1)
			if err != nil {
				return f, err
			}
			f.G = v
			i = next
		case tok[i] == 'G':
			f.ForceRegen = true
			i++
		case tok[i] == 'P':
			v, next, err := readInt(tok, i+1)
			if err != nil {
				return f, err
			}
			f.P = v
			i = next
		case tok[i] == 't':
			v, next, err := readInt(tok, i+1)
			if err != nil {
				return f, err
			}
			f.T = v
			i = next
		case tok[i] == 'A':
			v, next, err := readInt(tok, i+1)
			if err != nil {
				return f, err
			}
			f.A = v
			i = next
		default:
			return f, renderctx.Invalid("utauargs: unrecognized flag token at byte %d in %q", i, tok)
		}
	}
	return f.Clamp(), nil
}

func hasPrefixAt(s string, i int, prefix string) bool {
	return i+len(prefix) <= len(s) && s[i:i+len(prefix)] == prefix
}

// readInt reads an optionally-signed decimal integer starting at i,
// returning its value and the index just past it.
func readInt(s string, i int) (int, int, error) {
	start := i
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		i++
	}
	digitsStart := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == digitsStart {
		return 0, 0, renderctx.Invalid("utauargs: expected digits at byte %d in %q", start, s)
	}
	v, err := strconv.Atoi(s[start:i])
	if err != nil {
		return 0, 0, renderctx.Invalid("utauargs: malformed integer at byte %d in %q", start, s)
	}
	return v, i, nil
}
