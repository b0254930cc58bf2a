package sender

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"tempo/internal/core"
	"tempo/internal/logging"
)

const (
	defaultTimeout = 30 * time.Second
	// maxDebugBodySize limits the response body logged at debug level.
	maxDebugBodySize = 1024
)

// HTTPConfig describes the request sent on every iteration. URL, Body and
// header values may contain ${name} placeholders.
type HTTPConfig struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
	Timeout time.Duration
}

// HTTP sends one request per iteration. Responses with a status of 400 or
// above count as failures.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
	logger *zap.Logger
}

func NewHTTP(cfg HTTPConfig, client *http.Client) *HTTP {
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTP{cfg: cfg, client: client, logger: logging.Named("sender")}
}

func (s *HTTP) Init() error {
	if s.cfg.URL == "" {
		return fmt.Errorf("http sender: url is required")
	}
	return nil
}

func (s *HTTP) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *HTTP) Send(ctx context.Context, values map[string]string, unit *core.MeasurementUnit) error {
	req, size, err := s.request(ctx, values)
	if err != nil {
		return err
	}
	unit.AppendResult(core.ResultRequestSize, size)

	unit.StartMeasure()
	resp, err := s.client.Do(req)
	if err != nil {
		unit.StopMeasure()
		s.logger.Debug("Request failed", zap.Int64("iteration", unit.Iteration()), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	var received int64
	var head []byte
	if ce := s.logger.Check(zap.DebugLevel, "Response"); ce != nil {
		head, _ = io.ReadAll(io.LimitReader(resp.Body, maxDebugBodySize))
		received = int64(len(head))
		n, _ := io.Copy(io.Discard, resp.Body)
		received += n
		unit.StopMeasure()
		d, _ := unit.LastTime()
		ce.Write(
			zap.Int64("iteration", unit.Iteration()),
			zap.String("method", req.Method),
			zap.Stringer("url", req.URL),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", d),
			zap.ByteString("body", head),
		)
	} else {
		received, _ = io.Copy(io.Discard, resp.Body)
		unit.StopMeasure()
	}
	unit.AppendResult(core.ResultResponseSize, received)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected response status %s", resp.Status)
	}
	return nil
}

func (s *HTTP) request(ctx context.Context, values map[string]string) (*http.Request, int64, error) {
	url, err := Substitute(s.cfg.URL, values)
	if err != nil {
		return nil, 0, err
	}
	body, err := Substitute(s.cfg.Body, values)
	if err != nil {
		return nil, 0, err
	}
	headers, err := SubstituteMap(s.cfg.Headers, values)
	if err != nil {
		return nil, 0, err
	}

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, s.cfg.Method, url, r)
	if err != nil {
		return nil, 0, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, int64(len(body)), nil
}
