package vadstate

import (
	"errors"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	RequiredSampleRate = 16000
	RequiredChunkSize  = 512
)

var ErrChunkSize = errors.New("chunk must be exactly 512 samples")

// EngineConfig configures the audio pipeline around the classifier. All
// fields except Classifier must be set; a zero Classifier config means
// DefaultConfig.
type EngineConfig struct {
	SampleRate   int     // must be 16000
	ChunkSize    int     // must be 512 (Silero's frame size)
	VADThreshold float32 // speech probability threshold (e.g. 0.5)

	// PreRollMs is how much audio before a confirmed onset is included in
	// the episode delivered via OnEpisode (e.g. 200).
	PreRollMs int

	// MaxEpisodeSeconds caps episode audio capture. When an episode runs
	// past the cap, its audio is delivered early; classification continues
	// unaffected.
	MaxEpisodeSeconds float32

	// Classifier holds the hysteresis thresholds (see Config). The zero
	// value selects DefaultConfig.
	Classifier Config

	SileroModelPath string // path to silero_vad.onnx
}

// validateEngineConfig checks EngineConfig and returns an error on invalid
// or missing values.
func validateEngineConfig(cfg EngineConfig) error {
	if cfg.SampleRate != RequiredSampleRate {
		return errors.New("config: SampleRate must be 16000")
	}
	if cfg.ChunkSize != RequiredChunkSize {
		return errors.New("config: ChunkSize must be 512")
	}
	if cfg.VADThreshold < 0 || cfg.VADThreshold > 1 {
		return errors.New("config: VADThreshold must be in [0, 1]")
	}
	if cfg.PreRollMs < 0 {
		return errors.New("config: PreRollMs must be >= 0")
	}
	if cfg.MaxEpisodeSeconds <= 0 {
		return errors.New("config: MaxEpisodeSeconds must be > 0")
	}
	if cfg.SileroModelPath == "" {
		return errors.New("config: SileroModelPath is required")
	}
	if _, err := os.Stat(cfg.SileroModelPath); err != nil {
		if os.IsNotExist(err) {
			return errors.New("config: Silero VAD model file not found: " + cfg.SileroModelPath)
		}
		return err
	}
	return nil
}

type transition struct {
	from, to State
}

// Engine wires the Silero VAD detector into the classifier and reports
// lifecycle events through Callbacks. It is single-threaded and not
// goroutine-safe; the caller must serialize PushPCM and lifecycle methods.
type Engine struct {
	cfg        EngineConfig
	cb         Callbacks
	detector   frameDetector
	classifier *Classifier
	recorder   *episodeRecorder

	transitions []transition
	listening   bool
	closed      bool
}

// NewEngine creates an engine from config and callbacks. It validates
// config, locates and initializes the ONNX Runtime if needed, and loads the
// Silero model. Call ort.SetSharedLibraryPath before NewEngine to override
// the bundled-library search.
func NewEngine(cfg EngineConfig, cb Callbacks) (*Engine, error) {
	if err := validateEngineConfig(cfg); err != nil {
		return nil, err
	}
	if !ort.IsInitialized() {
		if p := resolveBundledLib(candidateBaseDirs()); p != "" {
			ort.SetSharedLibraryPath(p)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, err
		}
	}
	det, err := newSileroVAD(cfg.SileroModelPath, cfg.VADThreshold)
	if err != nil {
		return nil, err
	}
	e, err := newEngineWithDetector(cfg, cb, det)
	if err != nil {
		_ = det.destroy()
		return nil, err
	}
	return e, nil
}

// newEngineWithDetector builds the engine around an already-constructed
// detector. Split out so tests can substitute a fake.
func newEngineWithDetector(cfg EngineConfig, cb Callbacks, det frameDetector) (*Engine, error) {
	ccfg := cfg.Classifier
	if ccfg == (Config{}) {
		ccfg = DefaultConfig()
	}
	e := &Engine{cfg: cfg, cb: cb, detector: det}
	cls, err := NewClassifier(ccfg, cfg.ChunkSize, cfg.SampleRate, ObserverFunc(e.onTransition))
	if err != nil {
		return nil, err
	}
	e.classifier = cls
	e.recorder = newEpisodeRecorder(cfg.SampleRate, cfg.ChunkSize, cfg.PreRollMs, cfg.MaxEpisodeSeconds)
	return e, nil
}

func (e *Engine) onTransition(from, to State) {
	e.transitions = append(e.transitions, transition{from: from, to: to})
}

// Start starts listening. Invokes OnListeningStarted.
func (e *Engine) Start() {
	if e.closed {
		return
	}
	e.listening = true
	if e.cb.OnListeningStarted != nil {
		e.cb.OnListeningStarted()
	}
}

// Stop stops listening. Invokes OnListeningStopped.
func (e *Engine) Stop() {
	if e.closed {
		return
	}
	e.listening = false
	if e.cb.OnListeningStopped != nil {
		e.cb.OnListeningStopped()
	}
}

// PushPCM processes one chunk of 512 float32 samples (mono, 16 kHz).
// Returns ErrChunkSize if len(chunk) != 512. Callbacks are invoked
// synchronously. A frame whose inference fails is reported via OnError and
// skipped: the classifier never sees it, so it does not advance time.
func (e *Engine) PushPCM(chunk []float32) error {
	if e.closed {
		return errors.New("engine is closed")
	}
	if len(chunk) != e.cfg.ChunkSize {
		return ErrChunkSize
	}
	if !e.listening {
		return nil
	}

	prob, voiced, err := e.detector.detect(chunk)
	if err != nil {
		if e.cb.OnError != nil {
			e.cb.OnError(err)
		}
		return err
	}

	capped := false
	if e.recorder.active {
		capped = e.recorder.append(chunk)
	} else {
		e.recorder.push(chunk)
	}

	e.transitions = e.transitions[:0]
	e.classifier.Process(voiced, prob)

	started, ended := false, false
	for _, tr := range e.transitions {
		switch tr.to {
		case StateSpeechStart:
			started = true
		case StateSpeechEnd:
			ended = true
		}
	}
	// Open the episode before dispatching so OnSpeechStart observers see
	// capture already in progress. The triggering chunk is in the pre-roll.
	if started {
		e.recorder.start()
	}
	for _, tr := range e.transitions {
		e.dispatch(tr)
	}
	if ended || capped {
		if seg := e.recorder.finalize(); seg != nil && e.cb.OnEpisode != nil {
			e.cb.OnEpisode(seg)
		}
	}
	return nil
}

func (e *Engine) dispatch(tr transition) {
	if e.cb.OnStateChange != nil {
		e.cb.OnStateChange(tr.from, tr.to)
	}
	switch tr.to {
	case StateSpeechStart:
		if e.cb.OnSpeechStart != nil {
			e.cb.OnSpeechStart()
		}
	case StateSpeechPause:
		if e.cb.OnPause != nil {
			e.cb.OnPause()
		}
	case StateSpeechContinue:
		if tr.from == StateSpeechPause && e.cb.OnResume != nil {
			e.cb.OnResume()
		}
	case StateSpeechEnd:
		if e.cb.OnSpeechEnd != nil {
			e.cb.OnSpeechEnd()
		}
	}
}

// CurrentState returns the classifier's current state.
func (e *Engine) CurrentState() State {
	return e.classifier.CurrentState()
}

// CurrentStateDuration returns how long the classifier has been in its
// current state, in milliseconds.
func (e *Engine) CurrentStateDuration() float64 {
	return e.classifier.CurrentStateDuration()
}

// Stats returns the classifier's counter snapshot.
func (e *Engine) Stats() Stats {
	return e.classifier.Stats()
}

// Reset clears detector, classifier, and episode capture state. Sessions
// are not closed and no callbacks fire.
func (e *Engine) Reset() {
	if e.closed {
		return
	}
	e.detector.resetState()
	e.classifier.Reset()
	e.recorder.reset()
}

// Close releases the ONNX session. The engine must not be used after Close.
// Calling Close more than once is safe.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.listening = false
	_ = e.detector.destroy()
}
