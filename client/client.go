// Package client consumes a notification stream endpoint, keeping the
// connection alive across transient failures. It reconnects with bounded
// exponential backoff and, after repeated failures, degrades to periodic
// polling while opportunistically trying to re-open the stream.
package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ConnectionState string

const (
	StateIdle         ConnectionState = "idle"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
	StatePolling      ConnectionState = "polling"
)

// EventName identifies what the application callback is reacting to:
// either a named server event, a poll tick, or a transport error.
type EventName string

const (
	EventInit   EventName = "init"
	EventNew    EventName = "notification:new"
	EventUpdate EventName = "notification:update"
	EventSync   EventName = "notification:sync"
	EventPing   EventName = "ping"
	EventPoll   EventName = "poll"
	EventError  EventName = "error"
)

const (
	defaultBaseDelay    = time.Second
	defaultMaxDelay     = 30 * time.Second
	defaultPollInterval = 60 * time.Second
	defaultMaxRetries   = 3
	defaultCoalesce     = 250 * time.Millisecond
)

type Config struct {
	// URL of the stream endpoint; Token is sent as a bearer token.
	URL   string
	Token string

	HTTPClient *http.Client

	BaseDelay                time.Duration
	MaxDelay                 time.Duration
	PollInterval             time.Duration
	MaxRetriesBeforeFallback int
	CoalesceWindow           time.Duration

	// OnEvent receives every inbound event, coalesced: bursts inside the
	// coalescing window collapse into one call carrying the newest event.
	OnEvent func(name EventName, payload []byte)

	// OpenStream overrides how a connection is opened; tests inject fake
	// transports here. Defaults to an SSE request against URL.
	OpenStream OpenStreamFunc

	Logger *zap.Logger
}

// Stream is the client-side connection controller. All methods are safe
// for concurrent use; the OnEvent callback runs on timer goroutines and
// must not call back into the controller synchronously holding its own
// locks.
type Stream struct {
	cfg Config
	log *zap.Logger

	mu         sync.Mutex
	enabled    bool
	generation int
	state      ConnectionState
	lastEvent  EventName
	attempts   int

	connecting   bool
	reader       EventReader
	readerCancel context.CancelFunc

	reconnectTimer *time.Timer
	pollStop       chan struct{}

	coalesceTimer  *time.Timer
	pendingName    EventName
	pendingPayload []byte
}

func New(cfg Config) *Stream {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxRetriesBeforeFallback <= 0 {
		cfg.MaxRetriesBeforeFallback = defaultMaxRetries
	}
	if cfg.CoalesceWindow <= 0 {
		cfg.CoalesceWindow = defaultCoalesce
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	s := &Stream{cfg: cfg, log: cfg.Logger, state: StateIdle}
	if s.cfg.OpenStream == nil {
		s.cfg.OpenStream = func(ctx context.Context) (EventReader, error) {
			return openSSE(ctx, cfg.HTTPClient, cfg.URL, cfg.Token)
		}
	}
	return s
}

// Start enables the controller and opens the stream. It is a no-op when
// already started.
func (s *Stream) Start() {
	s.mu.Lock()
	if s.enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = true
	s.generation++
	s.attempts = 0
	gen := s.generation
	s.mu.Unlock()

	go s.connect(gen)
}

// Stop tears the controller down from any state: the connection is closed,
// every pending timer is cancelled, and the state returns to idle. Stop is
// idempotent.
func (s *Stream) Stop() {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = false
	s.generation++
	s.state = StateIdle
	s.attempts = 0
	s.connecting = false

	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.coalesceTimer != nil {
		s.coalesceTimer.Stop()
		s.coalesceTimer = nil
	}
	if s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
	if s.readerCancel != nil {
		s.readerCancel()
		s.readerCancel = nil
	}
	reader := s.reader
	s.reader = nil
	s.mu.Unlock()

	if reader != nil {
		_ = reader.Close()
	}
}

func (s *Stream) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Stream) LastEvent() EventName {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEvent
}

// IsUsingFallback reports whether the controller has degraded to polling.
func (s *Stream) IsUsingFallback() bool {
	return s.State() == StatePolling
}

func (s *Stream) connect(gen int) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if !s.enabled || gen != s.generation || s.connecting || s.reader != nil {
		s.mu.Unlock()
		cancel()
		return
	}
	s.connecting = true
	s.readerCancel = cancel
	if s.attempts > 0 {
		s.state = StateReconnecting
	} else if s.state != StatePolling {
		s.state = StateConnecting
	}
	s.mu.Unlock()

	reader, err := s.cfg.OpenStream(ctx)

	s.mu.Lock()
	if !s.enabled || gen != s.generation {
		s.mu.Unlock()
		cancel()
		if reader != nil {
			_ = reader.Close()
		}
		return
	}
	s.connecting = false
	if err != nil {
		s.readerCancel = nil
		s.mu.Unlock()
		cancel()
		s.log.Debug("stream open failed", zap.Error(err))
		s.streamFailed(gen)
		return
	}

	s.reader = reader
	s.attempts = 0
	s.state = StateConnected
	s.stopPollingLocked()
	s.mu.Unlock()

	s.readLoop(gen, reader)
}

func (s *Stream) readLoop(gen int, reader EventReader) {
	for {
		name, data, err := reader.Next()
		if err != nil {
			_ = reader.Close()
			s.mu.Lock()
			if !s.enabled || gen != s.generation {
				s.mu.Unlock()
				return
			}
			s.reader = nil
			if s.readerCancel != nil {
				s.readerCancel()
				s.readerCancel = nil
			}
			s.mu.Unlock()
			s.streamFailed(gen)
			return
		}
		s.schedule(gen, EventName(name), data)
	}
}

// streamFailed records one transport failure and decides between a delayed
// reconnect and the polling fallback. Failures never escape as errors;
// they only move the state machine.
func (s *Stream) streamFailed(gen int) {
	s.schedule(gen, EventError, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || gen != s.generation {
		return
	}

	s.attempts++
	if s.pollStop != nil {
		// Already degraded: stay in polling and let the next poll tick
		// make the next upgrade attempt.
		s.state = StatePolling
		return
	}
	if s.attempts >= s.cfg.MaxRetriesBeforeFallback {
		s.startPollingLocked(gen)
		return
	}

	delay := ReconnectDelay(s.cfg.BaseDelay, s.cfg.MaxDelay, s.attempts)
	s.state = StateReconnecting
	s.scheduleReconnectLocked(gen, delay)
}

func (s *Stream) scheduleReconnectLocked(gen int, delay time.Duration) {
	if s.reconnectTimer != nil {
		return
	}
	s.reconnectTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if !s.enabled || gen != s.generation {
			s.mu.Unlock()
			return
		}
		s.reconnectTimer = nil
		s.mu.Unlock()
		s.connect(gen)
	})
}

func (s *Stream) startPollingLocked(gen int) {
	s.state = StatePolling
	if s.pollStop != nil {
		return
	}
	s.log.Warn("stream fallback to polling",
		zap.Duration("interval", s.cfg.PollInterval),
		zap.Int("attempts", s.attempts),
	)

	stop := make(chan struct{})
	s.pollStop = stop
	ticker := time.NewTicker(s.cfg.PollInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.pollTick(gen)
			}
		}
	}()
}

func (s *Stream) stopPollingLocked() {
	if s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
}

// pollTick fires the poll callback and makes at most one opportunistic
// attempt to upgrade back to streaming. An attempt already in flight or
// already scheduled is not duplicated.
func (s *Stream) pollTick(gen int) {
	s.schedule(gen, EventPoll, nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled || gen != s.generation {
		return
	}
	if s.reader != nil || s.connecting || s.reconnectTimer != nil {
		return
	}
	s.attempts = 0
	s.scheduleReconnectLocked(gen, 0)
}

// schedule coalesces events into the application callback: at most one
// dispatch is pending at a time and newer events replace its payload, so
// exactly one callback fires per burst carrying the newest event.
func (s *Stream) schedule(gen int, name EventName, payload []byte) {
	s.mu.Lock()
	if !s.enabled || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.lastEvent = name
	if s.cfg.OnEvent == nil {
		s.mu.Unlock()
		return
	}
	s.pendingName = name
	s.pendingPayload = payload
	if s.coalesceTimer == nil {
		s.coalesceTimer = time.AfterFunc(s.cfg.CoalesceWindow, func() {
			s.flush(gen)
		})
	}
	s.mu.Unlock()
}

func (s *Stream) flush(gen int) {
	s.mu.Lock()
	if !s.enabled || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.coalesceTimer = nil
	name := s.pendingName
	payload := s.pendingPayload
	callback := s.cfg.OnEvent
	s.mu.Unlock()

	if callback != nil {
		callback(name, payload)
	}
}
