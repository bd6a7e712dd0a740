package vadstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkOf returns a chunk of n samples all set to v, to make chunk ordering
// visible in assembled episodes.
func chunkOf(n int, v float32) []float32 {
	c := make([]float32, n)
	for i := range c {
		c[i] = v
	}
	return c
}

func TestEpisodePreRollAssembly(t *testing.T) {
	// 2 chunks of pre-roll: 64ms at 32ms chunks.
	r := newEpisodeRecorder(16000, 512, 64, 10)
	require.Equal(t, 2, r.cfg.preChunks)

	r.push(chunkOf(512, 1))
	r.push(chunkOf(512, 2))
	r.push(chunkOf(512, 3)) // evicts chunk 1
	r.start()
	require.True(t, r.active)

	r.append(chunkOf(512, 4))
	seg := r.finalize()
	require.Len(t, seg, 3*512)
	assert.Equal(t, float32(2), seg[0])
	assert.Equal(t, float32(3), seg[512])
	assert.Equal(t, float32(4), seg[1024])
}

func TestEpisodeMaxDurationCap(t *testing.T) {
	// maxChunks = 0.096 * 16000 / 512 = 3
	r := newEpisodeRecorder(16000, 512, 32, 0.096)
	require.Equal(t, 3, r.cfg.maxChunks)

	r.push(chunkOf(512, 1))
	r.start() // 1 chunk from pre-roll
	assert.False(t, r.append(chunkOf(512, 2)))
	assert.True(t, r.append(chunkOf(512, 3)))

	seg := r.finalize()
	assert.Len(t, seg, 3*512)
}

func TestEpisodeFinalizeClearsPreRoll(t *testing.T) {
	r := newEpisodeRecorder(16000, 512, 64, 10)

	r.push(chunkOf(512, 1))
	r.start()
	require.NotNil(t, r.finalize())

	// The next episode must not contain audio from before the previous one.
	r.push(chunkOf(512, 9))
	r.start()
	seg := r.finalize()
	require.Len(t, seg, 512)
	assert.Equal(t, float32(9), seg[0])
}

func TestEpisodeRecorderIgnoresWrongChunkSize(t *testing.T) {
	r := newEpisodeRecorder(16000, 512, 64, 10)

	r.push(chunkOf(100, 1))
	r.start()
	assert.False(t, r.append(chunkOf(100, 2)))
	assert.Empty(t, r.finalize())
}

func TestEpisodeFinalizeInactive(t *testing.T) {
	r := newEpisodeRecorder(16000, 512, 64, 10)
	assert.Nil(t, r.finalize())
}
