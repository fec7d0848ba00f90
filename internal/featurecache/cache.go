// Package featurecache implements the content-addressed (by filename and
// flag signature, not file content) binary caches for mel spectrograms,
// their scale factor, and harmonic-separator output (C8).
package featurecache

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"

	"github.com/resamplr/hifigo/internal/matrix"
	"github.com/resamplr/hifigo/internal/renderctx"
)

const (
	magicMel  = "MEL1"
	magicScl  = "SCL1"
	magicHnp  = "HNP1"
)

// MelPath returns the mel cache path for a source file and flag signature.
func MelPath(sourcePath, signature string) string {
	return sibling(sourcePath, stem(sourcePath)+"_"+signature+".mel.bin")
}

// ScalePath returns the scale cache path for a source file and flag signature.
func ScalePath(sourcePath, signature string) string {
	return sibling(sourcePath, stem(sourcePath)+"_"+signature+".scale.bin")
}

// HnSepPath returns the harmonic-separator cache path for a source file.
func HnSepPath(sourcePath string) string {
	return sibling(sourcePath, stem(sourcePath)+".hnsep.bin")
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// sibling returns name next to sourcePath's directory, falling back to the
// current working directory when sourcePath has none.
func sibling(sourcePath, name string) string {
	dir := filepath.Dir(sourcePath)
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}

// LoadMel reads a mel cache file, returning nil (no error) on any
// corruption or missing-file condition — per §4.8, load failures are
// treated as a cache miss, never a hard error.
func LoadMel(path string) *matrix.FloatMatrix {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	if len(data) < 12 || string(data[0:4]) != magicMel {
		return nil
	}
	rows := int(int32(binary.LittleEndian.Uint32(data[4:8])))
	cols := int(int32(binary.LittleEndian.Uint32(data[8:12])))
	if rows < 0 || cols < 0 {
		return nil
	}
	want := 12 + rows*cols*4
	if len(data) != want {
		return nil
	}
	m := matrix.New(rows, cols)
	off := 12
	for r := 0; r < rows; r++ {
		row := m.Row(r)
		for c := 0; c < cols; c++ {
			bits := binary.LittleEndian.Uint32(data[off : off+4])
			row[c] = float32FromBits(bits)
			off += 4
		}
	}
	return m
}

// SaveMel atomically writes m to path (temp file + rename).
func SaveMel(path string, m *matrix.FloatMatrix) error {
	buf := make([]byte, 12+m.Rows()*m.Cols()*4)
	copy(buf[0:4], magicMel)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(int32(m.Rows())))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(int32(m.Cols())))
	off := 12
	for r := 0; r < m.Rows(); r++ {
		row := m.Row(r)
		for c := 0; c < m.Cols(); c++ {
			binary.LittleEndian.PutUint32(buf[off:off+4], float32Bits(row[c]))
			off += 4
		}
	}
	return atomicWrite(path, buf)
}

// LoadScale reads the scale cache file, returning (0, false) on any
// corruption or missing-file condition.
func LoadScale(path string) (float32, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	if len(data) != 8 || string(data[0:4]) != magicScl {
		return 0, false
	}
	return float32FromBits(binary.LittleEndian.Uint32(data[4:8])), true
}

// SaveScale atomically writes scale to path.
func SaveScale(path string, scale float32) error {
	buf := make([]byte, 8)
	copy(buf[0:4], magicScl)
	binary.LittleEndian.PutUint32(buf[4:8], float32Bits(scale))
	return atomicWrite(path, buf)
}

// LoadHnSep reads the separator cache file, accepting it only when its
// declared length matches expectedLength (otherwise discarded, per §4.8's
// invariant that stale-length separator caches are not reused).
func LoadHnSep(path string, expectedLength int) []float64 {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	if len(data) < 8 || string(data[0:4]) != magicHnp {
		return nil
	}
	length := int(int32(binary.LittleEndian.Uint32(data[4:8])))
	if length < 0 || length != expectedLength {
		return nil
	}
	if len(data) != 8+length*4 {
		return nil
	}
	out := make([]float64, length)
	off := 8
	for i := 0; i < length; i++ {
		bits := binary.LittleEndian.Uint32(data[off : off+4])
		out[i] = float64(float32FromBits(bits))
		off += 4
	}
	return out
}

// SaveHnSep atomically writes samples to path.
func SaveHnSep(path string, samples []float64) error {
	buf := make([]byte, 8+len(samples)*4)
	copy(buf[0:4], magicHnp)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(int32(len(samples))))
	off := 8
	for _, s := range samples {
		binary.LittleEndian.PutUint32(buf[off:off+4], float32Bits(float32(s)))
		off += 4
	}
	return atomicWrite(path, buf)
}

// atomicWrite writes data to a temp file in path's directory, then renames
// it onto path, so a cancelled or crashed write never leaves a partial
// cache file in place.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return renderctx.Wrap(renderctx.KindInternal, err, "featurecache: creating cache directory %q", dir)
	}
	tmp, err := os.CreateTemp(dir, ".featurecache-*.tmp")
	if err != nil {
		return renderctx.Wrap(renderctx.KindInternal, err, "featurecache: creating temp file in %q", dir)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return renderctx.Wrap(renderctx.KindInternal, err, "featurecache: writing %q", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return renderctx.Wrap(renderctx.KindInternal, err, "featurecache: closing %q", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return renderctx.Wrap(renderctx.KindInternal, err, "featurecache: renaming %q to %q", tmpName, path)
	}
	return nil
}
