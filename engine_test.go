package vadstate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDetector replays a scripted sequence of detector results so engine
// behavior can be tested without ONNX Runtime.
type fakeDetector struct {
	results []fakeResult
	calls   int
	resets  int
	closed  int
}

type fakeResult struct {
	prob   float32
	voiced bool
	err    error
}

func (f *fakeDetector) detect(chunk []float32) (float32, bool, error) {
	if f.calls >= len(f.results) {
		f.calls++
		return 0, false, nil
	}
	r := f.results[f.calls]
	f.calls++
	return r.prob, r.voiced, r.err
}

func (f *fakeDetector) resetState() { f.resets++ }
func (f *fakeDetector) destroy() error {
	f.closed++
	return nil
}

func voicedRun(n int) []fakeResult {
	out := make([]fakeResult, n)
	for i := range out {
		out[i] = fakeResult{prob: 0.9, voiced: true}
	}
	return out
}

func silentRun(n int) []fakeResult {
	out := make([]fakeResult, n)
	for i := range out {
		out[i] = fakeResult{prob: 0.1}
	}
	return out
}

func testEngineConfig() EngineConfig {
	return EngineConfig{
		SampleRate:        RequiredSampleRate,
		ChunkSize:         RequiredChunkSize,
		VADThreshold:      0.5,
		PreRollMs:         64,
		MaxEpisodeSeconds: 600,
	}
}

func newTestEngine(t *testing.T, cfg EngineConfig, cb Callbacks, det *fakeDetector) *Engine {
	t.Helper()
	e, err := newEngineWithDetector(cfg, cb, det)
	require.NoError(t, err)
	return e
}

func pushAll(t *testing.T, e *Engine, n int) {
	t.Helper()
	chunk := make([]float32, RequiredChunkSize)
	for i := 0; i < n; i++ {
		require.NoError(t, e.PushPCM(chunk))
	}
}

func TestEngineNotListening(t *testing.T) {
	det := &fakeDetector{results: voicedRun(10)}
	e := newTestEngine(t, testEngineConfig(), Callbacks{}, det)

	pushAll(t, e, 5)
	assert.Zero(t, det.calls)
	assert.Zero(t, e.Stats().TotalFrameCount)
}

func TestEngineChunkSize(t *testing.T) {
	e := newTestEngine(t, testEngineConfig(), Callbacks{}, &fakeDetector{})
	e.Start()
	assert.ErrorIs(t, e.PushPCM(make([]float32, 100)), ErrChunkSize)
}

func TestEngineSkipsFailedFrames(t *testing.T) {
	// Frames whose inference fails are reported and dropped; the classifier
	// never sees them and its frame clock does not advance.
	detErr := errors.New("inference failed")
	results := append(voicedRun(2), fakeResult{err: detErr})
	results = append(results, voicedRun(2)...)
	det := &fakeDetector{results: results}

	var errs []error
	e := newTestEngine(t, testEngineConfig(), Callbacks{
		OnError: func(err error) { errs = append(errs, err) },
	}, det)
	e.Start()

	chunk := make([]float32, RequiredChunkSize)
	require.NoError(t, e.PushPCM(chunk))
	require.NoError(t, e.PushPCM(chunk))
	require.ErrorIs(t, e.PushPCM(chunk), detErr)
	require.NoError(t, e.PushPCM(chunk))
	require.NoError(t, e.PushPCM(chunk))

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], detErr)
	assert.Equal(t, 4, e.Stats().TotalFrameCount)
}

func TestEngineEpisodeLifecycle(t *testing.T) {
	// 2 silent, 4 voiced, then silence until the default 1000ms pause
	// timeout ends the episode (32ms frames).
	script := append(silentRun(2), voicedRun(4)...)
	script = append(script, silentRun(40)...)
	det := &fakeDetector{results: script}

	var events []string
	var episodes [][]float32
	cb := Callbacks{
		OnStateChange: func(old, new State) {
			events = append(events, old.String()+"->"+new.String())
		},
		OnSpeechStart: func() { events = append(events, "speech-start") },
		OnSpeechEnd:   func() { events = append(events, "speech-end") },
		OnPause:       func() { events = append(events, "pause") },
		OnEpisode: func(seg []float32) {
			episodes = append(episodes, append([]float32(nil), seg...))
		},
	}
	e := newTestEngine(t, testEngineConfig(), cb, det)
	e.Start()
	pushAll(t, e, len(script))

	want := []string{
		"SILENCE->SPEECH_START", "speech-start",
		"SPEECH_START->SPEECH_CONTINUE",
		"SPEECH_CONTINUE->SPEECH_PAUSE", "pause",
		"SPEECH_PAUSE->SPEECH_END", "speech-end",
		"SPEECH_END->SILENCE",
	}
	assert.Equal(t, want, events)

	// Frames (1-based): onset confirmed at frame 5; pre-roll holds frames
	// 4-5; capture runs through the SPEECH_END frame 38 (32 consecutive
	// silent frames x 32ms >= 1000ms).
	require.Len(t, episodes, 1)
	assert.Len(t, episodes[0], 35*RequiredChunkSize)
	assert.Equal(t, StateSilence, e.CurrentState())
}

func TestEngineEpisodeCapped(t *testing.T) {
	// maxChunks = 0.128 * 16000 / 512 = 4: episode audio is delivered early
	// while classification keeps running.
	cfg := testEngineConfig()
	cfg.PreRollMs = 32
	cfg.MaxEpisodeSeconds = 0.128

	script := append(voicedRun(10), silentRun(40)...)
	det := &fakeDetector{results: script}

	var episodes int
	var speechEnds int
	var capLen int
	cb := Callbacks{
		OnSpeechEnd: func() { speechEnds++ },
		OnEpisode: func(seg []float32) {
			episodes++
			capLen = len(seg)
		},
	}
	e := newTestEngine(t, cfg, cb, det)
	e.Start()
	pushAll(t, e, len(script))

	require.Equal(t, 1, episodes)
	assert.Equal(t, 4*RequiredChunkSize, capLen)
	// The episode still ends by pause timeout later, but its audio was
	// already delivered.
	assert.Equal(t, 1, speechEnds)
}

func TestEngineResumeCallback(t *testing.T) {
	script := append(voicedRun(4), silentRun(5)...)
	script = append(script, voicedRun(2)...)
	det := &fakeDetector{results: script}

	var resumed int
	e := newTestEngine(t, testEngineConfig(), Callbacks{
		OnResume: func() { resumed++ },
	}, det)
	e.Start()
	pushAll(t, e, len(script))

	assert.Equal(t, 1, resumed)
	assert.Equal(t, StateSpeechContinue, e.CurrentState())
}

func TestEngineReset(t *testing.T) {
	det := &fakeDetector{results: voicedRun(10)}
	e := newTestEngine(t, testEngineConfig(), Callbacks{}, det)
	e.Start()
	pushAll(t, e, 5)
	require.NotZero(t, e.Stats().TotalFrameCount)

	e.Reset()
	assert.Equal(t, 1, det.resets)
	assert.Zero(t, e.Stats().TotalFrameCount)
	assert.Equal(t, StateSilence, e.CurrentState())
}

func TestEngineCloseIdempotent(t *testing.T) {
	det := &fakeDetector{}
	e := newTestEngine(t, testEngineConfig(), Callbacks{}, det)

	e.Close()
	e.Close()
	assert.Equal(t, 1, det.closed)
	assert.Error(t, e.PushPCM(make([]float32, RequiredChunkSize)))
}

func TestEngineStartStopCallbacks(t *testing.T) {
	var events []string
	e := newTestEngine(t, testEngineConfig(), Callbacks{
		OnListeningStarted: func() { events = append(events, "started") },
		OnListeningStopped: func() { events = append(events, "stopped") },
	}, &fakeDetector{})

	e.Start()
	e.Stop()
	assert.Equal(t, []string{"started", "stopped"}, events)
}

func TestValidateEngineConfig(t *testing.T) {
	base := testEngineConfig()
	base.SileroModelPath = "testdata/missing.onnx"

	cases := []struct {
		name   string
		mutate func(*EngineConfig)
	}{
		{"sample rate", func(c *EngineConfig) { c.SampleRate = 8000 }},
		{"chunk size", func(c *EngineConfig) { c.ChunkSize = 256 }},
		{"threshold", func(c *EngineConfig) { c.VADThreshold = 1.5 }},
		{"pre-roll", func(c *EngineConfig) { c.PreRollMs = -1 }},
		{"max episode", func(c *EngineConfig) { c.MaxEpisodeSeconds = 0 }},
		{"model path", func(c *EngineConfig) { c.SileroModelPath = "" }},
		{"model missing", func(c *EngineConfig) {}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			assert.Error(t, validateEngineConfig(cfg))
		})
	}
}
