package browser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session", "cookies.json")
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	cookies := []playwright.Cookie{
		{Name: "sid", Value: "abc", Domain: ".cv-library.co.uk", Path: "/", Expires: -1, HttpOnly: true, Secure: true, SameSite: playwright.SameSiteAttributeLax},
		{Name: "old", Value: "x", Domain: ".cv-library.co.uk", Path: "/", Expires: float64(now.Add(-time.Hour).Unix())},
	}
	require.NoError(t, SaveCookies(path, cookies, now))

	loaded, err := LoadCookies(path, time.Hour, now.Add(30*time.Minute))
	require.NoError(t, err)
	require.Len(t, loaded, 1, "cookies past their own expiry are dropped")

	c := loaded[0]
	assert.Equal(t, "sid", c.Name)
	assert.Equal(t, ".cv-library.co.uk", *c.Domain)
	assert.Nil(t, c.Expires, "session cookies carry no expiry")
	require.NotNil(t, c.HttpOnly)
	assert.True(t, *c.HttpOnly)
	assert.Equal(t, playwright.SameSiteAttributeLax, c.SameSite)
}

func TestLoadCookies_Expired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	now := time.Now()
	require.NoError(t, SaveCookies(path, []playwright.Cookie{{Name: "sid", Value: "1", Domain: "example.com"}}, now))

	_, err := LoadCookies(path, time.Hour, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrCookiesExpired)
}

func TestLoadCookies_BareArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	body := `[{"name":"sid","value":"abc","domain":"www.cv-library.co.uk","path":"","sameSite":"Strict"}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	loaded, err := LoadCookies(path, time.Minute, time.Now())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "/", *loaded[0].Path)
	assert.Equal(t, playwright.SameSiteAttributeStrict, loaded[0].SameSite)
}

func TestLoadCookies_Missing(t *testing.T) {
	_, err := LoadCookies(filepath.Join(t.TempDir(), "none.json"), time.Hour, time.Now())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
