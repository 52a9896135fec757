package reporter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/op/go-logging"
)

const (
	DefaultSendInterval  = 10 * time.Second
	DefaultResendTimeout = 2 * time.Second
)

const (
	startedEventText = "TestTitle started"
	endedEventText   = "TestTitle ended"
)

var log = logging.MustGetLogger("influx-reporter")

// Listener is the capability contract the host engine drives. The engine
// pushes one record per completed aggregation window, polls Tick
// periodically (typically once per second), and calls FlushAll once at
// shutdown after NotifyEnd.
type Listener interface {
	OnWindowComplete(rec Record)
	Tick(now time.Time)
	FlushAll()
	NotifyStart()
	NotifyEnd()
}

// Poster delivers one text/plain payload to a URL and reports the
// response status. Transport-level failures (refused, reset, timeout, TLS)
// surface as errors; any received response surfaces as a status code.
type Poster interface {
	Post(ctx context.Context, url string, body string) (status int, err error)
}

type Config struct {
	// URL is the write endpoint of the sink. Required.
	URL string
	// Application tags every fact with the logical application name. Required.
	Application string
	// Measurement is the measurement name KPI facts are written under. Required.
	Measurement string

	// SendInterval is the minimum spacing between interval flushes.
	// Defaults to DefaultSendInterval.
	SendInterval time.Duration
	// ResendTimeout is how long to wait before the single retry after a
	// failed delivery. Defaults to DefaultResendTimeout.
	ResendTimeout time.Duration

	// Poster overrides the transport. Defaults to an HTTP POST client.
	Poster Poster
	// Logger overrides the package logger.
	Logger *logging.Logger
}

// Uploader accumulates records and delivers them in batches. Delivery is
// best effort: a failed batch is retried once after ResendTimeout and then
// dropped, so a slow or unreachable sink never stalls the test run and
// never grows the buffer without bound.
//
// OnWindowComplete and Tick may be called from different goroutines; the
// buffer swap is the only section under the lock, so ingestion is never
// blocked by an in-flight delivery.
type Uploader struct {
	ctx           context.Context
	url           string
	sendInterval  time.Duration
	resendTimeout time.Duration
	poster        Poster
	serializer    *Serializer
	log           *logging.Logger
	clock         func() time.Time

	mu           sync.Mutex
	buffer       []Record
	lastDispatch time.Time
}

var _ Listener = (*Uploader)(nil)

// NewUploader validates the configuration and returns an idle uploader.
// No network activity happens until the first event or flush.
func NewUploader(ctx context.Context, config Config) (*Uploader, error) {
	if config.URL == "" {
		return nil, errors.New("url is required")
	}
	if config.Application == "" {
		return nil, errors.New("application is required")
	}
	if config.Measurement == "" {
		return nil, errors.New("measurement is required")
	}
	if config.SendInterval == 0 {
		config.SendInterval = DefaultSendInterval
	}
	if config.ResendTimeout == 0 {
		config.ResendTimeout = DefaultResendTimeout
	}
	if config.Poster == nil {
		config.Poster = &httpPoster{}
	}
	if config.Logger == nil {
		config.Logger = log
	}
	return &Uploader{
		ctx:           ctx,
		url:           config.URL,
		sendInterval:  config.SendInterval,
		resendTimeout: config.ResendTimeout,
		poster:        config.Poster,
		serializer: &Serializer{
			Measurement: config.Measurement,
			Application: config.Application,
		},
		log:   config.Logger,
		clock: time.Now,
	}, nil
}

// OnWindowComplete appends one completed window to the pending buffer.
// Malformed records are rejected here, before they can reach the wire.
func (u *Uploader) OnWindowComplete(rec Record) {
	if err := rec.Validate(); err != nil {
		u.log.Errorf("rejecting record for %q: %v", rec.Label, err)
		return
	}
	u.mu.Lock()
	u.buffer = append(u.buffer, rec)
	u.mu.Unlock()
}

// Tick flushes the buffer when at least SendInterval has passed since the
// previous interval flush and there is something to send. The snapshot is
// taken and the buffer reset under the lock; serialization and delivery
// happen outside it, so records arriving mid-flush land in a fresh buffer.
func (u *Uploader) Tick(now time.Time) {
	u.mu.Lock()
	u.log.Debugf("KPI buffer length: %d", len(u.buffer))
	if now.Sub(u.lastDispatch) < u.sendInterval || len(u.buffer) == 0 {
		u.mu.Unlock()
		return
	}
	snapshot := u.buffer
	u.buffer = nil
	u.lastDispatch = now
	u.mu.Unlock()

	u.dispatch(u.ctx, snapshot)
}

// FlushAll synchronously delivers whatever is buffered, ignoring the send
// interval. It is the shutdown path: it runs its retry to completion even
// if the uploader's context is already cancelled, and it never returns an
// error because shutdown must proceed regardless.
func (u *Uploader) FlushAll() {
	u.mu.Lock()
	snapshot := u.buffer
	u.buffer = nil
	u.mu.Unlock()

	if len(snapshot) == 0 {
		return
	}
	u.log.Infof("sending remaining %d buffered records", len(snapshot))
	u.dispatch(context.Background(), snapshot)
}

// NotifyStart marks the start of the test run with a single best-effort
// event, outside the buffer and retry path.
func (u *Uploader) NotifyStart() {
	u.sendEvent(startedEventText)
}

// NotifyEnd marks the end of the test run. Best effort, like NotifyStart.
func (u *Uploader) NotifyEnd() {
	u.sendEvent(endedEventText)
}

func (u *Uploader) sendEvent(text string) {
	line := u.serializer.EventLine(text, u.clock())
	status, err := u.poster.Post(u.ctx, u.url, line)
	if err != nil {
		u.log.Warningf("failed to send %q event to %s: %v", text, u.url, err)
		return
	}
	u.checkStatus(status)
}

func (u *Uploader) dispatch(ctx context.Context, records []Record) {
	lines, err := u.serializer.Lines(records)
	if err != nil {
		u.log.Errorf("dropping %d records: %v", len(records), err)
		return
	}
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	u.transmit(ctx, sb.String())
}

// transmit sends one payload with the single-retry policy: on a transport
// failure wait ResendTimeout and try the identical payload once more; if
// that fails too the payload is dropped, never requeued.
func (u *Uploader) transmit(ctx context.Context, payload string) {
	status, err := u.poster.Post(ctx, u.url, payload)
	if err == nil {
		u.checkStatus(status)
		return
	}

	u.log.Warningf("failed to send data to %s, will retry in %s: %v", u.url, u.resendTimeout, err)
	if !u.pause(ctx) {
		u.log.Errorf("cancelled before retry, datapoints dropped")
		return
	}

	status, err = u.poster.Post(ctx, u.url, payload)
	if err != nil {
		u.log.Errorf("could not reach %s after retry, datapoints dropped: %v", u.url, err)
		return
	}
	u.checkStatus(status)
}

// checkStatus logs a server-side rejection. The server accepted the bytes,
// so the payload counts as delivered and is not retried.
func (u *Uploader) checkStatus(status int) {
	if status > http.StatusNoContent {
		u.log.Warningf("response code %d from %s, data possibly not saved", status, u.url)
	}
}

func (u *Uploader) pause(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(u.resendTimeout):
		return true
	}
}

type httpPoster struct {
	client *http.Client
}

func (p *httpPoster) Post(ctx context.Context, url string, body string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "text/plain")

	client := p.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
