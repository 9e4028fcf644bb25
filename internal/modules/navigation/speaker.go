package navigation

// VoiceOptions controls how an announcement is spoken.
type VoiceOptions struct {
	Language string  `json:"language"`
	Pitch    float64 `json:"pitch"`
	Rate     float64 `json:"rate"`
}

func DefaultVoiceOptions() VoiceOptions {
	return VoiceOptions{Language: "en-US", Pitch: 1.0, Rate: 1.0}
}

// Speaker speaks step instructions. Speak is fire-and-forget: implementations
// must return promptly and must not report failures to the caller.
type Speaker interface {
	Speak(text string, opts VoiceOptions)
}

// SpeakerFunc adapts a plain function to Speaker.
type SpeakerFunc func(text string, opts VoiceOptions)

func (f SpeakerFunc) Speak(text string, opts VoiceOptions) { f(text, opts) }

type silentSpeaker struct{}

func (silentSpeaker) Speak(string, VoiceOptions) {}
