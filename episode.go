package vadstate

// episodeRecorder accumulates the audio of one speech episode, including a
// pre-roll of chunks captured before the onset was confirmed. Pure buffering;
// no classification logic.
type episodeRecorder struct {
	cfg configEpisode

	preBuffer   [][]float32
	preBufIdx   int
	preBufCount int
	episode     []float32
	active      bool
	chunks      int
}

type configEpisode struct {
	preChunks int
	maxChunks int
	chunkSize int
}

func newEpisodeRecorder(sampleRate, chunkSize, preRollMs int, maxDurationSec float32) *episodeRecorder {
	chunkMs := float64(chunkSize) / float64(sampleRate) * 1000
	preChunks := ceilDiv(preRollMs, max(1, int(chunkMs)))
	if preChunks <= 0 {
		preChunks = 1
	}
	preChunks = min(preChunks, 256)
	maxChunks := int(maxDurationSec * float32(sampleRate) / float32(chunkSize))
	if maxChunks <= 0 {
		maxChunks = 1
	}
	return &episodeRecorder{
		cfg: configEpisode{
			preChunks: preChunks,
			maxChunks: maxChunks,
			chunkSize: chunkSize,
		},
		preBuffer: make([][]float32, preChunks),
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// push records one chunk outside an active episode into the pre-roll ring.
func (r *episodeRecorder) push(chunk []float32) {
	if r.active || len(chunk) != r.cfg.chunkSize {
		return
	}
	chunkCopy := make([]float32, len(chunk))
	copy(chunkCopy, chunk)
	r.preBuffer[r.preBufIdx] = chunkCopy
	r.preBufIdx = (r.preBufIdx + 1) % r.cfg.preChunks
	if r.preBufCount < r.cfg.preChunks {
		r.preBufCount++
	}
}

// start opens an episode. The pre-roll ring already contains the current
// chunk (push is called before start), so the assembled episode covers the
// voiced frames that triggered the onset.
func (r *episodeRecorder) start() {
	if r.active {
		return
	}
	n := r.preBufCount * r.cfg.chunkSize
	seg := make([]float32, 0, n)
	startIdx := (r.preBufIdx - r.preBufCount + r.cfg.preChunks) % r.cfg.preChunks
	for i := 0; i < r.preBufCount; i++ {
		idx := (startIdx + i) % r.cfg.preChunks
		if r.preBuffer[idx] != nil {
			seg = append(seg, r.preBuffer[idx]...)
		}
	}
	r.episode = seg
	r.active = true
	r.chunks = r.preBufCount
}

// append adds one chunk to the active episode. It returns true when the
// episode has hit the max-duration cap and should be finalized by the caller.
func (r *episodeRecorder) append(chunk []float32) (capped bool) {
	if !r.active || len(chunk) != r.cfg.chunkSize {
		return false
	}
	r.episode = append(r.episode, chunk...)
	r.chunks++
	return r.chunks >= r.cfg.maxChunks
}

// finalize closes the episode, clears all buffering (pre-roll included, so
// the next episode cannot pick up audio from before this one), and returns
// the episode audio.
func (r *episodeRecorder) finalize() []float32 {
	if !r.active {
		return nil
	}
	seg := r.episode
	r.reset()
	return seg
}

func (r *episodeRecorder) reset() {
	r.episode = nil
	r.active = false
	r.chunks = 0
	r.preBufIdx = 0
	r.preBufCount = 0
	for i := range r.preBuffer {
		r.preBuffer[i] = nil
	}
}
