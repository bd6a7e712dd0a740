package vadstate

// State is the smoothed speech/silence state of the classifier.
type State int

const (
	// StateSilence is the initial state; no active speech episode.
	StateSilence State = iota
	// StateSpeechStart is a provisional speech onset, not yet confirmed.
	StateSpeechStart
	// StateSpeechContinue is confirmed, ongoing speech.
	StateSpeechContinue
	// StateSpeechPause is sustained speech interrupted by a short silence run.
	StateSpeechPause
	// StateSpeechEnd marks a completed speech episode; it lasts at most one
	// frame before either a new episode starts or the state decays to silence.
	StateSpeechEnd
)

// String returns the state name for diagnostics and logging.
func (s State) String() string {
	switch s {
	case StateSilence:
		return "SILENCE"
	case StateSpeechStart:
		return "SPEECH_START"
	case StateSpeechContinue:
		return "SPEECH_CONTINUE"
	case StateSpeechPause:
		return "SPEECH_PAUSE"
	case StateSpeechEnd:
		return "SPEECH_END"
	default:
		return "UNKNOWN"
	}
}
