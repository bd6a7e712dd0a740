// Package vadstate smooths noisy per-frame voice-activity-detector output
// into a stable speech/silence state sequence.
//
// The core is Classifier: a hysteresis state machine over five states
// (SILENCE, SPEECH_START, SPEECH_CONTINUE, SPEECH_PAUSE, SPEECH_END) that
// consumes one (flag, probability) decision per fixed-duration frame. It
// suppresses flicker, tells a pause-in-speech apart from end-of-speech, and
// rejects bursts too short to be real speech. The classifier is pure logic;
// it holds no audio and calls no model.
//
// Engine is the batteries-included pipeline around it: Silero VAD inference
// over ONNX Runtime, per-chunk classification, synchronous Callbacks for
// state changes, and episode audio capture with pre-roll. Applications that
// bring their own detector can use Classifier directly.
//
// Everything here is single-threaded: one goroutine feeds frames in order,
// and callbacks run synchronously on that goroutine.
package vadstate
