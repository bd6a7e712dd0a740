package vadstate

// TransitionObserver receives classifier state transitions. OnTransition is
// invoked synchronously from the goroutine calling Process, before Process
// returns. Implementations must not block and must not call back into the
// classifier that notified them.
type TransitionObserver interface {
	OnTransition(old, new State)
}

// ObserverFunc adapts a plain function to a TransitionObserver.
type ObserverFunc func(old, new State)

// OnTransition calls f(old, new).
func (f ObserverFunc) OnTransition(old, new State) {
	f(old, new)
}

// Callbacks are invoked synchronously by the engine from the same goroutine
// that calls PushPCM. The engine does not spawn goroutines. All fields are
// optional (nil is allowed).
type Callbacks struct {
	OnListeningStarted func()
	OnListeningStopped func()

	// OnStateChange fires on every classifier transition with the old and
	// new states.
	OnStateChange func(old, new State)

	// OnSpeechStart fires when a provisional onset is detected
	// (SPEECH_START), OnSpeechEnd when an episode completes (SPEECH_END).
	OnSpeechStart func()
	OnSpeechEnd   func()

	// OnPause and OnResume fire on SPEECH_PAUSE entry and on resumption
	// back to SPEECH_CONTINUE.
	OnPause  func()
	OnResume func()

	// OnEpisode receives the audio of a completed episode, pre-roll
	// included; the engine may reuse the slice after the callback
	// returns—copy if retaining.
	OnEpisode func(samples []float32)

	// OnError receives detector inference failures. The failed frame is
	// skipped: it is never fed to the classifier.
	OnError func(err error)
}
