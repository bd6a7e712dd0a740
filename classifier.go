package vadstate

import "errors"

// Classifier smooths raw per-frame VAD decisions into a stable five-state
// speech/silence sequence. Pure logic; no ONNX, no audio.
//
// It is single-threaded and not goroutine-safe: Process must be called
// exactly once per frame, in frame order, from one goroutine. Elapsed time
// is frame count times frame duration, so skipped or duplicated frames
// silently corrupt timing-based transitions.
type Classifier struct {
	cfg             Config
	hopSize         int
	sampleRate      int
	frameDurationMs float64

	currentState  State
	previousState State

	speechFrameCount  int
	silenceFrameCount int
	totalFrameCount   int

	currentStateFrames int
	speechStartFrame   int
	lastSpeechFrame    int

	lastProbability float32

	observer TransitionObserver
}

// Stats is a point-in-time snapshot of the classifier's counters. The frame
// indices are diagnostic only; no transition depends on them.
type Stats struct {
	CurrentState       State
	PreviousState      State
	SpeechFrameCount   int
	SilenceFrameCount  int
	TotalFrameCount    int
	CurrentStateFrames int
	SpeechStartFrame   int
	LastSpeechFrame    int
	LastProbability    float32
}

// NewClassifier builds a classifier for frames of hopSize samples at
// sampleRate Hz. The observer may be nil; when set, it is invoked
// synchronously from Process on every state transition, before Process
// returns. It must not block and must not call back into the classifier.
func NewClassifier(cfg Config, hopSize, sampleRate int, obs TransitionObserver) (*Classifier, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if hopSize < 1 {
		return nil, errors.New("classifier: hopSize must be >= 1")
	}
	if sampleRate < 1 {
		return nil, errors.New("classifier: sampleRate must be >= 1")
	}
	c := &Classifier{
		cfg:             cfg,
		hopSize:         hopSize,
		sampleRate:      sampleRate,
		frameDurationMs: float64(hopSize) * 1000 / float64(sampleRate),
		observer:        obs,
	}
	c.Reset()
	return c, nil
}

// Process consumes one VAD decision and returns the (possibly updated)
// state. voiced is the detector's binary flag for this frame; probability is
// its confidence in [0, 1], recorded for observability but never consulted
// by the transition logic.
func (c *Classifier) Process(voiced bool, probability float32) State {
	c.totalFrameCount++
	c.currentStateFrames++
	c.lastProbability = probability

	if voiced {
		c.speechFrameCount++
		c.silenceFrameCount = 0
		c.lastSpeechFrame = c.totalFrameCount
	} else {
		c.silenceFrameCount++
		c.speechFrameCount = 0
	}

	switch c.currentState {
	case StateSilence:
		if c.speechFrameCount >= c.cfg.SpeechStartFrames {
			c.speechStartFrame = c.totalFrameCount - c.speechFrameCount + 1
			c.changeState(StateSpeechStart)
		}

	case StateSpeechStart:
		if voiced {
			// Onset confirmed by continuing voice.
			c.changeState(StateSpeechContinue)
		} else if c.silenceFrameCount >= c.cfg.SpeechEndFrames {
			if float64(c.currentStateFrames)*c.frameDurationMs < c.cfg.MinSpeechDurationMs {
				// Too brief to count as speech; reject as noise.
				c.changeState(StateSilence)
			} else {
				c.changeState(StateSpeechEnd)
			}
		}

	case StateSpeechContinue:
		if c.silenceFrameCount >= c.cfg.PauseFrames {
			c.changeState(StateSpeechPause)
		}

	case StateSpeechPause:
		if c.speechFrameCount >= c.cfg.PauseResumeFrames {
			c.changeState(StateSpeechContinue)
		} else if float64(c.silenceFrameCount)*c.frameDurationMs >= c.cfg.MaxPauseDurationMs {
			// Pause outlasted the tolerance; the episode is over.
			c.changeState(StateSpeechEnd)
		}

	case StateSpeechEnd:
		if c.speechFrameCount >= c.cfg.SpeechStartFrames {
			c.speechStartFrame = c.totalFrameCount - c.speechFrameCount + 1
			c.changeState(StateSpeechStart)
		} else {
			c.changeState(StateSilence)
		}
	}

	return c.currentState
}

// changeState performs a transition if newState differs from the current
// state: previous/current swap, the per-state frame counter restarts, and
// the observer (if any) is notified.
func (c *Classifier) changeState(newState State) {
	if c.currentState == newState {
		return
	}
	old := c.currentState
	c.previousState = old
	c.currentState = newState
	c.currentStateFrames = 0
	if c.observer != nil {
		c.observer.OnTransition(old, newState)
	}
}

// CurrentState returns the current state without side effects.
func (c *Classifier) CurrentState() State {
	return c.currentState
}

// PreviousState returns the state before the most recent transition.
func (c *Classifier) PreviousState() State {
	return c.previousState
}

// CurrentStateDuration returns how long the classifier has been in the
// current state, in milliseconds.
func (c *Classifier) CurrentStateDuration() float64 {
	return float64(c.currentStateFrames) * c.frameDurationMs
}

// FrameDuration returns the wall-clock duration one frame represents, in
// milliseconds.
func (c *Classifier) FrameDuration() float64 {
	return c.frameDurationMs
}

// Config returns the thresholds the classifier was built with.
func (c *Classifier) Config() Config {
	return c.cfg
}

// Stats returns a snapshot of all counters and frame indices.
func (c *Classifier) Stats() Stats {
	return Stats{
		CurrentState:       c.currentState,
		PreviousState:      c.previousState,
		SpeechFrameCount:   c.speechFrameCount,
		SilenceFrameCount:  c.silenceFrameCount,
		TotalFrameCount:    c.totalFrameCount,
		CurrentStateFrames: c.currentStateFrames,
		SpeechStartFrame:   c.speechStartFrame,
		LastSpeechFrame:    c.lastSpeechFrame,
		LastProbability:    c.lastProbability,
	}
}

// Reset restores the classifier to its initial state in place. Configuration
// and frame duration are untouched. Reset is a hard restart, not a semantic
// transition: the observer is not notified even though the state becomes
// SILENCE.
func (c *Classifier) Reset() {
	c.currentState = StateSilence
	c.previousState = StateSilence
	c.speechFrameCount = 0
	c.silenceFrameCount = 0
	c.totalFrameCount = 0
	c.currentStateFrames = 0
	c.speechStartFrame = -1
	c.lastSpeechFrame = -1
	c.lastProbability = 0
}
