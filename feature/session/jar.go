package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"sync"
)

type storedCookie struct {
	URL   string `json:"url"`
	Name  string `json:"name"`
	Value string `json:"value"`
}

type cookieFile struct {
	Cookies []storedCookie `json:"cookies"`
}

// Jar is a cookie jar that remembers which sites set cookies so it can persist them.
type Jar struct {
	*cookiejar.Jar

	mu    sync.Mutex
	sites map[string]*url.URL
}

// NewJar creates an empty jar.
func NewJar() (*Jar, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Jar{Jar: inner, sites: make(map[string]*url.URL)}, nil
}

// SetCookies records the site and stores the cookies.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.track(u)
	j.Jar.SetCookies(u, cookies)
}

// Track makes the jar persist cookies for u even if none were set during this run.
func (j *Jar) Track(rawURL string) {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		j.track(u)
	}
}

func (j *Jar) track(u *url.URL) {
	site := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
	j.mu.Lock()
	j.sites[site.String()] = site
	j.mu.Unlock()
}

// Load restores cookies saved by Save. A missing file is not an error.
func (j *Jar) Load(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var file cookieFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse cookie file %s: %w", path, err)
	}

	for _, c := range file.Cookies {
		u, err := url.Parse(c.URL)
		if err != nil {
			continue
		}
		j.SetCookies(u, []*http.Cookie{{Name: c.Name, Value: c.Value, Path: "/"}})
	}
	return len(file.Cookies), nil
}

// Save writes the cookies of every tracked site to path.
func (j *Jar) Save(path string) error {
	j.mu.Lock()
	sites := make([]*url.URL, 0, len(j.sites))
	for _, u := range j.sites {
		sites = append(sites, u)
	}
	j.mu.Unlock()

	var file cookieFile
	for _, u := range sites {
		for _, c := range j.Jar.Cookies(u) {
			file.Cookies = append(file.Cookies, storedCookie{URL: u.String(), Name: c.Name, Value: c.Value})
		}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
