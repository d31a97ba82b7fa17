// Package proxy relays media bytes from an origin to the caller without buffering whole files.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	mediasource "github.com/egfanboy/mediapire-gateway/internal/integrations/media-source"
	"github.com/egfanboy/mediapire-gateway/internal/metrics"
	"github.com/egfanboy/mediapire-gateway/pkg/types"
	"github.com/rs/zerolog"
)

const (
	DefaultChunkSize      = 8 << 10
	DefaultConnectTimeout = 60 * time.Second
	DefaultIdleTimeout    = 60 * time.Second

	defaultContentType = "application/octet-stream"
)

var (
	ErrOriginUnavailable = errors.New("media origin is unavailable")
	ErrOriginStalled     = errors.New("media origin stopped sending data")
)

// forwardedHeaders is the complete set of origin headers passed to the caller.
var forwardedHeaders = []string{"Content-Type", "Content-Length"}

type Config struct {
	ChunkSize      int
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
}

type Streamer struct {
	mediaSource mediasource.MediaSourceIntegration
	httpClient  *http.Client
	chunkSize   int
	idleTimeout time.Duration
	metrics     *metrics.Metrics
}

// Stream is an open origin response. It must be relayed or closed exactly once.
type Stream struct {
	StatusCode int
	Header     http.Header
	Url        string

	ctx       context.Context
	body      io.ReadCloser
	cancel    context.CancelFunc
	chunkSize int
	idle      time.Duration
	metrics   *metrics.Metrics
	closeOnce sync.Once
}

// Open resolves id and connects to the origin. Nothing has been sent to the caller yet,
// so every error returned here can still become a structured error response.
func (s *Streamer) Open(ctx context.Context, id types.ContentID) (*Stream, error) {
	resolved, err := s.mediaSource.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	// cancelled by the caller's context going away or by the idle watchdog
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, resolved.Url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("proxy %q: %w: %v", id, ErrOriginUnavailable, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("proxy %q: %w: %v", id, ErrOriginUnavailable, err)
	}

	header := http.Header{}
	for _, h := range forwardedHeaders {
		if v := resp.Header.Get(h); v != "" {
			header.Set(h, v)
		}
	}

	if header.Get("Content-Type") == "" {
		contentType := resolved.MimeType
		if contentType == "" {
			contentType = defaultContentType
		}
		header.Set("Content-Type", contentType)
	}

	// net/http drops the header for unknown lengths, keep what it parsed
	if header.Get("Content-Length") == "" && resp.ContentLength >= 0 {
		header.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}

	return &Stream{
		StatusCode: resp.StatusCode,
		Header:     header,
		Url:        resolved.Url,
		ctx:        ctx,
		body:       resp.Body,
		cancel:     cancel,
		chunkSize:  s.chunkSize,
		idle:       s.idleTimeout,
		metrics:    s.metrics,
	}, nil
}

// Relay commits status and headers to w and copies the body one chunk at a time.
// The next chunk is read only after the previous one was written and flushed.
// The origin connection is released before Relay returns, whatever the outcome.
func (st *Stream) Relay(w http.ResponseWriter) (written int64, err error) {
	defer st.Close()

	logger := zerolog.Ctx(st.ctx)

	for k, v := range st.Header {
		w.Header()[k] = v
	}
	w.WriteHeader(st.StatusCode)

	rc := http.NewResponseController(w)
	buf := make([]byte, st.chunkSize)

	var stalled atomic.Bool
	watchdog := time.AfterFunc(st.idle, func() {
		stalled.Store(true)
		st.cancel()
	})
	defer watchdog.Stop()

	for {
		n, readErr := st.body.Read(buf)
		watchdog.Stop()

		if n > 0 {
			wn, writeErr := w.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				st.metrics.ObserveProxyStream("caller_gone", written)
				return written, fmt.Errorf("write to caller: %w", writeErr)
			}

			if flushErr := rc.Flush(); flushErr != nil && !errors.Is(flushErr, http.ErrNotSupported) {
				st.metrics.ObserveProxyStream("caller_gone", written)
				return written, fmt.Errorf("flush to caller: %w", flushErr)
			}
		}

		if readErr == io.EOF {
			st.metrics.ObserveProxyStream("complete", written)
			logger.Debug().Int64("bytes", written).Msg("proxy stream complete")
			return written, nil
		}

		if readErr != nil {
			if st.ctx.Err() != nil {
				st.metrics.ObserveProxyStream("caller_gone", written)
				return written, fmt.Errorf("caller went away: %w", st.ctx.Err())
			}
			if stalled.Load() {
				readErr = ErrOriginStalled
			}
			st.metrics.ObserveProxyStream("origin_failed", written)
			return written, fmt.Errorf("read from origin: %w", readErr)
		}

		watchdog.Reset(st.idle)
	}
}

// Close cancels the origin request and releases its connection. Safe to call more than once.
func (st *Stream) Close() error {
	var err error
	st.closeOnce.Do(func() {
		st.cancel()
		err = st.body.Close()
	})

	return err
}

// CloseIdleConnections drops pooled origin connections, used on shutdown.
func (s *Streamer) CloseIdleConnections() {
	s.httpClient.CloseIdleConnections()
}

func NewStreamer(mediaSource mediasource.MediaSourceIntegration, cfg Config, m *metrics.Metrics) *Streamer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ConnectTimeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		// media is relayed byte for byte, never decompressed
		DisableCompression: true,
	}

	return &Streamer{
		mediaSource: mediaSource,
		// no client timeout: it would cap the duration of the whole stream
		httpClient:  &http.Client{Transport: transport},
		chunkSize:   cfg.ChunkSize,
		idleTimeout: cfg.IdleTimeout,
		metrics:     m,
	}
}
