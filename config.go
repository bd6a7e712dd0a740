package vadstate

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the hysteresis thresholds of the classifier. All frame counts
// are consecutive-frame requirements; durations are wall-clock milliseconds.
// Config is immutable after construction; changing thresholds means building
// a new classifier.
type Config struct {
	// SpeechStartFrames is the number of consecutive voiced frames required
	// to leave SILENCE (or SPEECH_END) into SPEECH_START.
	SpeechStartFrames int `yaml:"speech_start_frames"`

	// SpeechEndFrames is the number of consecutive silent frames required to
	// resolve a provisional SPEECH_START, either back to SILENCE or to
	// SPEECH_END depending on MinSpeechDurationMs.
	SpeechEndFrames int `yaml:"speech_end_frames"`

	// PauseFrames is the number of consecutive silent frames inside
	// SPEECH_CONTINUE that counts as a pause rather than flicker.
	PauseFrames int `yaml:"pause_frames"`

	// PauseResumeFrames is the number of consecutive voiced frames inside
	// SPEECH_PAUSE that resumes SPEECH_CONTINUE.
	PauseResumeFrames int `yaml:"pause_resume_frames"`

	// MinSpeechDurationMs is the minimum elapsed time in SPEECH_START below
	// which an episode resolving to silence is discarded as noise.
	MinSpeechDurationMs float64 `yaml:"min_speech_duration_ms"`

	// MaxPauseDurationMs is the silent duration tolerated inside
	// SPEECH_PAUSE before the episode is declared ended.
	MaxPauseDurationMs float64 `yaml:"max_pause_duration_ms"`
}

// DefaultConfig returns the stock thresholds: 3 frames to start, 10 to
// resolve a provisional onset, 5 to pause, 2 to resume, 200ms minimum
// speech, 1000ms maximum pause. At 16ms frames that is 48ms / 160ms / 80ms /
// 32ms respectively.
func DefaultConfig() Config {
	return Config{
		SpeechStartFrames:   3,
		SpeechEndFrames:     10,
		PauseFrames:         5,
		PauseResumeFrames:   2,
		MinSpeechDurationMs: 200,
		MaxPauseDurationMs:  1000,
	}
}

// LoadConfig reads a YAML file of classifier thresholds. Fields absent from
// the file keep their DefaultConfig values; the result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validateConfig checks Config and returns an error on invalid values.
func validateConfig(cfg Config) error {
	if cfg.SpeechStartFrames < 1 {
		return errors.New("config: SpeechStartFrames must be >= 1")
	}
	if cfg.SpeechEndFrames < 1 {
		return errors.New("config: SpeechEndFrames must be >= 1")
	}
	if cfg.PauseFrames < 1 {
		return errors.New("config: PauseFrames must be >= 1")
	}
	if cfg.PauseResumeFrames < 1 {
		return errors.New("config: PauseResumeFrames must be >= 1")
	}
	if cfg.MinSpeechDurationMs < 0 {
		return errors.New("config: MinSpeechDurationMs must be >= 0")
	}
	if cfg.MaxPauseDurationMs < 0 {
		return errors.New("config: MaxPauseDurationMs must be >= 0")
	}
	return nil
}
