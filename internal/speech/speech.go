// README: Speech output sinks for navigation announcements (log and FCM push).
package speech

import (
	"go.uber.org/zap"

	"saferoute/internal/modules/navigation"
)

// LogSpeaker writes announcements to the log. It is the sink used when the
// walker has no registered device.
type LogSpeaker struct {
	logger *zap.Logger
}

func NewLogSpeaker(logger *zap.Logger) *LogSpeaker {
	return &LogSpeaker{logger: logger}
}

func (s *LogSpeaker) Speak(text string, opts navigation.VoiceOptions) {
	s.logger.Info("speak",
		zap.String("text", text),
		zap.String("language", opts.Language),
		zap.Float64("pitch", opts.Pitch),
		zap.Float64("rate", opts.Rate),
	)
}

// Multi fans one announcement out to several sinks.
type Multi []navigation.Speaker

func (m Multi) Speak(text string, opts navigation.VoiceOptions) {
	for _, s := range m {
		s.Speak(text, opts)
	}
}
