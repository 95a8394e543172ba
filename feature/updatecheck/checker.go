package updatecheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"
)

var versionRe = regexp.MustCompile(`VERSION = "(.*)"`)

// Result is the outcome of one check.
type Result struct {
	Current string
	Latest  string
}

// Outdated reports whether a different version is published.
func (r Result) Outdated() bool {
	return r.Latest != "" && r.Latest != r.Current
}

// Checker compares the running version with the published one.
type Checker struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

// NewChecker creates a checker. A nil client uses a plain client with the configured timeout.
func NewChecker(client *http.Client, cfg Config, logger *zap.Logger) *Checker {
	if client == nil {
		timeout := cfg.TimeoutSeconds
		if timeout <= 0 {
			timeout = 5
		}
		client = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checker{client: client, cfg: cfg, logger: logger}
}

// Latest fetches the published version.
func (c *Checker) Latest(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.VersionURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}
	m := versionRe.FindSubmatch(body)
	if m == nil {
		return "", fmt.Errorf("could not parse remote version file")
	}
	return string(m[1]), nil
}

// Check logs whether an update is available. It never fails the caller.
func (c *Checker) Check(ctx context.Context, current string) Result {
	res := Result{Current: current}

	latest, err := c.Latest(ctx)
	if err != nil {
		c.logger.Warn("Could not check for updates", zap.String("project", c.cfg.ProjectURL), zap.Error(err))
		return res
	}
	res.Latest = latest

	if res.Outdated() {
		c.logger.Warn("New version available",
			zap.String("latest", latest),
			zap.String("current", current),
			zap.String("project", c.cfg.ProjectURL),
		)
	} else {
		c.logger.Info("You are using the latest version", zap.String("version", current))
	}
	return res
}
