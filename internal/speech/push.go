package speech

import (
	"context"
	"strconv"
	"sync"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"saferoute/internal/modules/navigation"
)

// Messenger is the part of the FCM client the pusher needs.
type Messenger interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

type pushJob struct {
	token string
	text  string
	opts  navigation.VoiceOptions
}

// Pusher delivers announcements to walkers' devices as FCM data messages so the
// app can speak them. Sends happen on one background worker; when the queue is
// full the announcement is dropped.
type Pusher struct {
	client  Messenger
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan pushJob
	done   chan struct{}
}

func NewPusher(client Messenger, logger *zap.Logger, queueSize int, timeout time.Duration) *Pusher {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &Pusher{
		client:  client,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan pushJob, queueSize),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// For returns a Speaker bound to one device token.
func (p *Pusher) For(deviceToken string) navigation.Speaker {
	return navigation.SpeakerFunc(func(text string, opts navigation.VoiceOptions) {
		p.enqueue(pushJob{token: deviceToken, text: text, opts: opts})
	})
}

func (p *Pusher) enqueue(job pushJob) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- job:
	default:
		p.logger.Warn("announcement queue full, dropping", zap.String("text", job.text))
	}
}

func (p *Pusher) run() {
	defer close(p.done)
	for job := range p.queue {
		p.send(job)
	}
}

func (p *Pusher) send(job pushJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	msg := &messaging.Message{
		Token: job.token,
		Data: map[string]string{
			"type":     "navigation_announcement",
			"text":     job.text,
			"language": job.opts.Language,
			"pitch":    strconv.FormatFloat(job.opts.Pitch, 'f', 2, 64),
			"rate":     strconv.FormatFloat(job.opts.Rate, 'f', 2, 64),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	messageID, err := p.client.Send(ctx, msg)
	if err != nil {
		p.logger.Warn("FCM announcement failed", zap.Error(err))
		return
	}
	p.logger.Debug("FCM announcement sent", zap.String("message_id", messageID))
}

// Close drains queued announcements and stops the worker.
func (p *Pusher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}

// Speakers builds the navigation.SpeakerFactory: sessions with a device token
// get push delivery plus a log line, the rest only the log line.
func Speakers(p *Pusher, logger *zap.Logger) navigation.SpeakerFactory {
	logSpeaker := NewLogSpeaker(logger)
	return func(deviceToken string) navigation.Speaker {
		if p == nil || deviceToken == "" {
			return logSpeaker
		}
		return Multi{logSpeaker, p.For(deviceToken)}
	}
}
