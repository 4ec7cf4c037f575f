package config

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the scraper's secrets in the OS keychain.
const KeyringService = "cvlibrary-scraper"

var ErrMissingCredentials = errors.New("portal credentials not found (set CV_LIBRARY_USERNAME and CV_LIBRARY_PASSWORD, or store the password in the keychain)")

type Credentials struct {
	Username string
	Password string
}

// Credentials resolves the login pair. The keychain entry for the username wins
// over CV_LIBRARY_PASSWORD.
func (c *Config) Credentials() (Credentials, error) {
	username := strings.TrimSpace(c.Username)
	if username == "" {
		return Credentials{}, ErrMissingCredentials
	}

	if pw, err := keyring.Get(KeyringService, username); err == nil && strings.TrimSpace(pw) != "" {
		return Credentials{Username: username, Password: pw}, nil
	}

	if c.Password == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return Credentials{Username: username, Password: c.Password}, nil
}

func SetPassword(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, username, password)
}

func DeletePassword(username string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, username)
}
