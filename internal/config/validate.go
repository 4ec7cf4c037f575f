package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err folds the validation errors into one error, or nil.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(v.Errors, "; "))
}

var knownIndexDrivers = map[string]bool{"sqlite": true, "postgres": true, "none": true}

// Validate checks the config. Credentials are only required when the caller is
// about to log in; the keychain may still supply the password later.
func (c *Config) Validate(requireCredentials bool) Validation {
	var res Validation

	if requireCredentials && strings.TrimSpace(c.Username) == "" {
		res.addErr("CV_LIBRARY_USERNAME is required")
	}
	if requireCredentials && c.Password == "" {
		res.addWarn("CV_LIBRARY_PASSWORD is empty; the password must be stored in the keychain")
	}

	rl := c.RateLimit
	if rl.DelayMinSeconds < 0 || rl.DelayMaxSeconds < 0 {
		res.addErr("rate_limit delays must not be negative")
	} else if rl.DelayMinSeconds > rl.DelayMaxSeconds {
		res.addErr("rate_limit.delay_min_seconds (%.1f) is greater than delay_max_seconds (%.1f)", rl.DelayMinSeconds, rl.DelayMaxSeconds)
	} else if rl.DelayMaxSeconds < 1 {
		res.addWarn("rate_limit delays are very low (max %.1fs) and may trigger the portal's rate limiting", rl.DelayMaxSeconds)
	}
	if rl.RequestsPerMinute <= 0 {
		res.addErr("rate_limit.requests_per_minute must be > 0")
	} else if rl.RequestsPerMinute > 30 {
		res.addWarn("rate_limit.requests_per_minute is high (%d)", rl.RequestsPerMinute)
	}

	if c.Download.MaxPerSession <= 0 {
		res.addErr("download.max_per_session must be > 0")
	}
	if strings.TrimSpace(c.Download.Path) == "" {
		res.addErr("download.path is required")
	}

	if c.Browser.TimeoutSeconds <= 0 {
		res.addErr("browser.timeout_seconds must be > 0")
	}
	if c.Browser.Retries < 1 {
		res.addWarn("browser.retries is %d; browser calls will not be retried", c.Browser.Retries)
	}

	if c.Session.Save && strings.TrimSpace(c.Session.Path) == "" {
		res.addErr("session.path is required when session.save=true")
	}
	if c.Session.MaxRunSeconds < 0 {
		res.addErr("session.max_run_seconds must not be negative")
	}

	driver := strings.ToLower(c.Index.Driver)
	if !knownIndexDrivers[driver] {
		res.addErr("unknown index.driver %q (want sqlite, postgres or none)", c.Index.Driver)
	} else if driver != "none" && strings.TrimSpace(c.Index.DSN) == "" {
		res.addErr("index.dsn is required for driver %s", driver)
	}

	if (c.Telegram.Token == "") != (c.Telegram.ChatID == 0) {
		res.addWarn("telegram needs both token and chat_id; notifications disabled")
	}

	if c.MemoryLimitMB > 0 && c.MemoryLimitMB < 256 {
		res.addWarn("memory_limit_mb is very low (%d); pages will be recycled often", c.MemoryLimitMB)
	}

	return res
}
