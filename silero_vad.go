package vadstate

import (
	"errors"
	"time"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	sileroContextSamples = 64
	sileroInputSamples   = sileroContextSamples + RequiredChunkSize // 576
	sileroStateSize      = 2 * 1 * 128
	sileroIdleReset      = 5 * time.Second
)

// frameDetector is the external VAD collaborator consumed by the engine: one
// inference per fixed-size frame yielding a probability and a binary flag.
type frameDetector interface {
	detect(chunk []float32) (prob float32, voiced bool, err error)
	resetState()
	destroy() error
}

// sileroVAD runs Silero VAD over ONNX Runtime. Stateful (the model carries
// RNN state across frames); not safe for concurrent use.
type sileroVAD struct {
	session   *ort.AdvancedSession
	input     *ort.Tensor[float32] // (1, 576)
	state     *ort.Tensor[float32] // (2, 1, 128)
	sr        *ort.Tensor[int64]   // (1,) = 16000
	output    *ort.Tensor[float32] // (1, 1) speech prob
	stateOut  *ort.Tensor[float32] // (2, 1, 128) new state
	threshold float32

	context   [sileroContextSamples]float32
	lastReset time.Time
}

// newSileroVAD loads the Silero model and fixes the decision threshold:
// frames with probability >= threshold are flagged voiced.
func newSileroVAD(modelPath string, threshold float32) (*sileroVAD, error) {
	if threshold < 0 || threshold > 1 {
		return nil, errors.New("silero: threshold must be in [0, 1]")
	}

	var created []ort.Value
	cleanup := func() {
		for _, t := range created {
			_ = t.Destroy()
		}
	}

	input, err := ort.NewTensor(ort.NewShape(1, sileroInputSamples), make([]float32, sileroInputSamples))
	if err != nil {
		return nil, err
	}
	created = append(created, input)

	state, err := ort.NewTensor(ort.NewShape(2, 1, 128), make([]float32, sileroStateSize))
	if err != nil {
		cleanup()
		return nil, err
	}
	created = append(created, state)

	sr, err := ort.NewTensor(ort.NewShape(1), []int64{int64(RequiredSampleRate)})
	if err != nil {
		cleanup()
		return nil, err
	}
	created = append(created, sr)

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		cleanup()
		return nil, err
	}
	created = append(created, output)

	stateOut, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, 128))
	if err != nil {
		cleanup()
		return nil, err
	}
	created = append(created, stateOut)

	sess, err := ort.NewAdvancedSession(modelPath,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{input, state, sr},
		[]ort.Value{output, stateOut},
		nil)
	if err != nil {
		cleanup()
		return nil, err
	}

	return &sileroVAD{
		session:   sess,
		input:     input,
		state:     state,
		sr:        sr,
		output:    output,
		stateOut:  stateOut,
		threshold: threshold,
		lastReset: time.Now(),
	}, nil
}

// detect returns the speech probability and binary flag for a 512-sample
// chunk. Caller must not modify chunk. No allocations in the hot path; the
// session tensors are reused.
func (v *sileroVAD) detect(chunk []float32) (float32, bool, error) {
	if len(chunk) != RequiredChunkSize {
		return 0, false, ErrChunkSize
	}

	if time.Since(v.lastReset) >= sileroIdleReset {
		v.resetState()
	}

	// Input is 64 samples of context followed by the chunk.
	inputData := v.input.GetData()
	copy(inputData[:sileroContextSamples], v.context[:])
	copy(inputData[sileroContextSamples:], chunk)
	copy(v.context[:], inputData[sileroInputSamples-sileroContextSamples:])

	if err := v.session.Run(); err != nil {
		return 0, false, err
	}

	prob := v.output.GetData()[0]

	// Carry stateN into state for the next run.
	copy(v.state.GetData(), v.stateOut.GetData())

	return prob, prob >= v.threshold, nil
}

// resetState zeroes the RNN state and sample context.
func (v *sileroVAD) resetState() {
	for i := range v.context {
		v.context[i] = 0
	}
	v.state.ZeroContents()
	v.lastReset = time.Now()
}

func (v *sileroVAD) destroy() error {
	return v.session.Destroy()
}
