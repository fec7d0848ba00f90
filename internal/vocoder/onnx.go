package vocoder

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/resamplr/hifigo/internal/matrix"
)

// ONNXVocoder runs a mel-to-waveform ONNX model. Sessions are not
// goroutine-safe in onnxruntime_go, so calls are serialized with a mutex —
// render-level parallelism comes from the worker pool dispatching whole
// requests, not concurrent vocoder calls within one.
type ONNXVocoder struct {
	mu          sync.Mutex
	session     *ort.DynamicAdvancedSession
	sampleCount int
}

// NewONNXVocoder loads a mel-to-waveform model. inputNames/outputNames
// name the model's mel and f0 inputs and its waveform output, in the order
// the graph expects them.
func NewONNXVocoder(modelPath string, inputNames, outputNames []string) (*ONNXVocoder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("vocoder: initializing ONNX runtime: %w", err)
	}
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("vocoder: creating session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("vocoder: creating ONNX session for %q: %w", modelPath, err)
	}
	return &ONNXVocoder{session: session}, nil
}

// SpecToWav runs the vocoder model on mel (nMels x frames, row-major) and
// the matching f0 contour (length frames), returning the synthesized
// waveform.
func (v *ONNXVocoder) SpecToWav(mel *matrix.FloatMatrix, f0 []float64) ([]float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	nMels, frames := mel.Rows(), mel.Cols()
	melFlat := make([]float32, nMels*frames)
	for r := 0; r < nMels; r++ {
		copy(melFlat[r*frames:(r+1)*frames], mel.Row(r))
	}
	melShape := ort.NewShape(1, int64(nMels), int64(frames))
	melTensor, err := ort.NewTensor(melShape, melFlat)
	if err != nil {
		return nil, fmt.Errorf("vocoder: creating mel tensor: %w", err)
	}
	defer melTensor.Destroy()

	f0f32 := make([]float32, len(f0))
	for i, hz := range f0 {
		f0f32[i] = float32(hz)
	}
	f0Shape := ort.NewShape(1, int64(len(f0)))
	f0Tensor, err := ort.NewTensor(f0Shape, f0f32)
	if err != nil {
		return nil, fmt.Errorf("vocoder: creating f0 tensor: %w", err)
	}
	defer f0Tensor.Destroy()

	samples := v.sampleCount
	if samples <= 0 {
		samples = frames * 256 // hopSize fallback if not yet configured
	}
	outShape := ort.NewShape(1, int64(samples))
	outData := make([]float32, samples)
	outTensor, err := ort.NewTensor(outShape, outData)
	if err != nil {
		return nil, fmt.Errorf("vocoder: creating output tensor: %w", err)
	}
	defer outTensor.Destroy()

	if err := v.session.Run([]ort.Value{melTensor, f0Tensor}, []ort.Value{outTensor}); err != nil {
		return nil, fmt.Errorf("vocoder: inference failed: %w", err)
	}

	out := make([]float64, samples)
	for i, s := range outData {
		out[i] = float64(s)
	}
	return out, nil
}

// Close releases the underlying ONNX session.
func (v *ONNXVocoder) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.session != nil {
		v.session.Destroy()
		v.session = nil
	}
	return nil
}

// ONNXMaskModel runs a complex-mask ONNX model, packing [real|imag] into a
// [1, 2, bins, frames] input tensor per §4.7.
type ONNXMaskModel struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// NewONNXMaskModel loads a harmonic/noise mask-prediction model.
func NewONNXMaskModel(modelPath string, inputNames, outputNames []string) (*ONNXMaskModel, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("maskmodel: initializing ONNX runtime: %w", err)
	}
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("maskmodel: creating session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("maskmodel: creating ONNX session for %q: %w", modelPath, err)
	}
	return &ONNXMaskModel{session: session}, nil
}

// PredictMask runs the mask model on a one-sided spectrogram (real, imag,
// each bins*frames, row-major) and returns the predicted complex mask in
// the same layout.
func (m *ONNXMaskModel) PredictMask(real, imag []float64, bins, frames int) ([]float64, []float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	packed := make([]float32, 2*bins*frames)
	for i := 0; i < bins*frames; i++ {
		packed[i] = float32(real[i])
		packed[bins*frames+i] = float32(imag[i])
	}
	inShape := ort.NewShape(1, 2, int64(bins), int64(frames))
	inTensor, err := ort.NewTensor(inShape, packed)
	if err != nil {
		return nil, nil, fmt.Errorf("maskmodel: creating input tensor: %w", err)
	}
	defer inTensor.Destroy()

	outData := make([]float32, 2*bins*frames)
	outTensor, err := ort.NewTensor(inShape, outData)
	if err != nil {
		return nil, nil, fmt.Errorf("maskmodel: creating output tensor: %w", err)
	}
	defer outTensor.Destroy()

	if err := m.session.Run([]ort.Value{inTensor}, []ort.Value{outTensor}); err != nil {
		return nil, nil, fmt.Errorf("maskmodel: inference failed: %w", err)
	}

	maskRe := make([]float64, bins*frames)
	maskIm := make([]float64, bins*frames)
	for i := 0; i < bins*frames; i++ {
		maskRe[i] = float64(outData[i])
		maskIm[i] = float64(outData[bins*frames+i])
	}
	return maskRe, maskIm, nil
}

// Close releases the underlying ONNX session.
func (m *ONNXMaskModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	return nil
}
