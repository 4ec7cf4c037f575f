package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

var ErrCookiesExpired = errors.New("saved session cookies have expired")

// Cookie is the on-disk shape of a browser cookie.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

type cookieFile struct {
	SavedAt time.Time `json:"saved_at"`
	Cookies []Cookie  `json:"cookies"`
}

// SaveCookies writes the session cookies with a saved_at stamp.
func SaveCookies(path string, cookies []playwright.Cookie, now time.Time) error {
	file := cookieFile{SavedAt: now.UTC(), Cookies: make([]Cookie, 0, len(cookies))}
	for _, c := range cookies {
		file.Cookies = append(file.Cookies, FromPlaywright(c))
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadCookies reads a cookie file written by SaveCookies, or a bare JSON array
// exported from a browser extension. Stamped files older than maxAge return
// ErrCookiesExpired.
func LoadCookies(path string, maxAge time.Duration, now time.Time) ([]playwright.OptionalCookie, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file cookieFile
	if err := json.Unmarshal(data, &file); err != nil {
		var bare []Cookie
		if err2 := json.Unmarshal(data, &bare); err2 != nil {
			return nil, fmt.Errorf("parse cookie file %s: %w", path, err)
		}
		file.Cookies = bare
	}

	if !file.SavedAt.IsZero() && maxAge > 0 && now.Sub(file.SavedAt) > maxAge {
		return nil, ErrCookiesExpired
	}

	out := make([]playwright.OptionalCookie, 0, len(file.Cookies))
	for _, c := range file.Cookies {
		if c.Expires > 0 && float64(now.Unix()) > c.Expires {
			continue
		}
		out = append(out, c.ToPlaywright())
	}
	return out, nil
}

func FromPlaywright(c playwright.Cookie) Cookie {
	out := Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.Expires,
		HTTPOnly: c.HttpOnly,
		Secure:   c.Secure,
	}
	if c.SameSite != nil {
		out.SameSite = string(*c.SameSite)
	}
	return out
}

func (c Cookie) ToPlaywright() playwright.OptionalCookie {
	pwCookie := playwright.OptionalCookie{
		Name:   c.Name,
		Value:  c.Value,
		Domain: playwright.String(c.Domain),
		Path:   playwright.String(c.Path),
	}
	if pwCookie.Path == nil || *pwCookie.Path == "" {
		pwCookie.Path = playwright.String("/")
	}
	if c.Expires > 0 {
		pwCookie.Expires = playwright.Float(c.Expires)
	}
	if c.HTTPOnly {
		pwCookie.HttpOnly = playwright.Bool(true)
	}
	if c.Secure {
		pwCookie.Secure = playwright.Bool(true)
	}

	switch c.SameSite {
	case "Lax":
		pwCookie.SameSite = playwright.SameSiteAttributeLax
	case "Strict":
		pwCookie.SameSite = playwright.SameSiteAttributeStrict
	case "None":
		pwCookie.SameSite = playwright.SameSiteAttributeNone
	}
	return pwCookie
}

// ToOptional converts cookies read from a live context back into the form
// AddCookies accepts.
func ToOptional(cookies []playwright.Cookie) []playwright.OptionalCookie {
	out := make([]playwright.OptionalCookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, FromPlaywright(c).ToPlaywright())
	}
	return out
}
