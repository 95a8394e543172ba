package session

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"exam-mirror/core/httpclient"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidCredentials means the identity provider rejected the username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRequired means the session is not logged in and prompting is disabled.
	ErrLoginRequired = errors.New("session needs login")

	samlResponseRe = regexp.MustCompile(`<input type="hidden" name="SAMLResponse" value="([^"]*)"\s*/?>`)
	relayStateRe   = regexp.MustCompile(`<input type="hidden" name="RelayState" value="([^"]*)"\s*/?>`)
)

const (
	signInMarker   = "Sign In"
	loggedInMarker = "/logout/logout.cgi"
	maxPageSize    = 4 << 20
)

// Session is an HTTP client carrying the catalog login cookies.
type Session struct {
	cfg      Config
	jar      *Jar
	client   *http.Client
	prompter Prompter
	logger   *zap.Logger
}

// New creates a session whose client is limited by httpCfg.
func New(cfg Config, httpCfg httpclient.Config, prompter Prompter, logger *zap.Logger) (*Session, error) {
	jar, err := NewJar()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	jar.Track(cfg.HomeURL)
	jar.Track(cfg.LoginURL)
	return &Session{
		cfg:      cfg,
		jar:      jar,
		client:   httpclient.New(httpCfg, jar),
		prompter: prompter,
		logger:   logger,
	}, nil
}

// Client returns the authenticated HTTP client.
func (s *Session) Client() *http.Client {
	return s.client
}

// Jar returns the session cookie jar.
func (s *Session) Jar() *Jar {
	return s.jar
}

// Setup restores saved cookies, logs in when they no longer work and saves the result.
func (s *Session) Setup(ctx context.Context) error {
	if s.cfg.CookieFile != "" {
		n, err := s.jar.Load(s.cfg.CookieFile)
		if err != nil {
			s.logger.Warn("Ignoring unreadable cookie file", zap.String("path", s.cfg.CookieFile), zap.Error(err))
		} else if n > 0 {
			s.logger.Info("Using previous session cookies", zap.String("path", s.cfg.CookieFile), zap.Int("cookies", n))
		}
	}

	needsLogin, err := s.NeedsLogin(ctx)
	if err != nil {
		return err
	}

	if needsLogin {
		s.logger.Info("Session needs login")
		if !s.cfg.Interactive || s.prompter == nil {
			return ErrLoginRequired
		}
		username, err := s.Login(ctx)
		if err != nil {
			return err
		}
		s.logger.Info("Logged in", zap.String("user", username))
	} else {
		s.logger.Info("Session authenticated")
	}

	if s.cfg.CookieFile != "" {
		if err := s.jar.Save(s.cfg.CookieFile); err != nil {
			return fmt.Errorf("save cookies: %w", err)
		}
	}
	return nil
}

// NeedsLogin probes the catalog home page.
func (s *Session) NeedsLogin(ctx context.Context) (bool, error) {
	finalURL, body, err := s.fetch(ctx, s.cfg.HomeURL)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", s.cfg.HomeURL, err)
	}
	return s.isSignInPage(finalURL, body), nil
}

func (s *Session) isSignInPage(finalURL *url.URL, body string) bool {
	if s.cfg.SignInHost != "" && strings.Contains(finalURL.Host, s.cfg.SignInHost) {
		return true
	}
	return strings.Contains(body, signInMarker)
}

// Login prompts for credentials, signs in at the identity provider and completes the
// SAML hand-off to the catalog. The identity provider page is loaded while the user types.
func (s *Session) Login(ctx context.Context) (string, error) {
	var creds Credentials

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Debug("Retrieving identity provider cookies", zap.String("url", s.cfg.LoginURL))
		if _, _, err := s.fetch(gctx, s.cfg.LoginURL); err != nil {
			return fmt.Errorf("load login page: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		c, err := s.prompter.Credentials(gctx)
		if err != nil {
			return fmt.Errorf("read credentials: %w", err)
		}
		creds = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	if err := s.submitCredentials(ctx, creds); err != nil {
		return "", err
	}
	if err := s.completeSAML(ctx); err != nil {
		return "", err
	}
	return creds.Username, nil
}

func (s *Session) submitCredentials(ctx context.Context, creds Credentials) error {
	s.logger.Info("Logging into identity provider")
	form := url.Values{"login": {creds.Username}, "password": {creds.Password}}
	_, body, err := s.post(ctx, s.cfg.LoginPostURL, form)
	if err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}
	if !strings.Contains(body, loggedInMarker) {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Session) completeSAML(ctx context.Context) error {
	_, body, err := s.fetch(ctx, s.cfg.HomeURL)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	samlResponse := samlResponseRe.FindStringSubmatch(body)
	if samlResponse == nil {
		return errors.New("could not find SAMLResponse input field")
	}
	relayState := relayStateRe.FindStringSubmatch(body)
	if relayState == nil {
		return errors.New("could not find RelayState input field")
	}

	s.logger.Debug("Sending SAMLResponse to catalog")
	form := url.Values{
		"SAMLResponse": {samlResponse[1]},
		"RelayState":   {html.UnescapeString(relayState[1])},
	}
	finalURL, _, err := s.post(ctx, s.cfg.SAMLPostURL, form)
	if err != nil {
		return fmt.Errorf("post SAMLResponse: %w", err)
	}
	if !sameURL(finalURL.String(), s.cfg.HomeURL) {
		return fmt.Errorf("could not log into catalog: ended on %s", finalURL)
	}
	return nil
}

func sameURL(a, b string) bool {
	return strings.TrimRight(a, "/") == strings.TrimRight(b, "/")
}

func (s *Session) fetch(ctx context.Context, target string) (*url.URL, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	return s.do(req)
}

func (s *Session) post(ctx context.Context, target string, form url.Values) (*url.URL, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *Session) do(req *http.Request) (*url.URL, string, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, "", err
	}
	return resp.Request.URL, string(body), nil
}
