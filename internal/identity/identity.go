package identity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"trackbot/internal/config"
	"trackbot/internal/services"
)

// Identity is the material attached to one outbound index request.
type Identity struct {
	CookiesFile string
	UserAgent   string
}

// Anonymous reports whether no cookies are attached.
func (i Identity) Anonymous() bool {
	return strings.TrimSpace(i.CookiesFile) == ""
}

// CommandArgs renders the identity as yt-dlp flags.
func (i Identity) CommandArgs() []string {
	var args []string
	if cookies := strings.TrimSpace(i.CookiesFile); cookies != "" {
		args = append(args, "--cookies", cookies)
	}
	if ua := strings.TrimSpace(i.UserAgent); ua != "" {
		args = append(args, "--user-agent", ua)
	}
	return args
}

// Provider resolves the identity for a request.
type Provider interface {
	Current(ctx context.Context) (Identity, error)
}

// Static always returns the same identity.
type Static Identity

// Current implements Provider.
func (s Static) Current(context.Context) (Identity, error) {
	return Identity(s), nil
}

// FileProvider attaches a cookie file when it exists. When required is set,
// a missing file yields ErrCredentialsMissing instead of falling back to an
// anonymous identity.
type FileProvider struct {
	cookiesFile string
	userAgent   string
	required    bool
}

// NewFileProvider builds a provider from the identity config section.
func NewFileProvider(cfg config.Identity) *FileProvider {
	return &FileProvider{
		cookiesFile: strings.TrimSpace(cfg.CookiesFile),
		userAgent:   strings.TrimSpace(cfg.UserAgent),
		required:    cfg.RequireCookies,
	}
}

// Current implements Provider.
func (p *FileProvider) Current(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	id := Identity{UserAgent: p.userAgent}
	if p.cookiesFile == "" {
		if p.required {
			return Identity{}, services.Wrap(services.ErrCredentialsMissing, "identity", "load cookies", "require_cookies is set but identity.cookies_file is empty", nil)
		}
		return id, nil
	}
	info, err := os.Stat(p.cookiesFile)
	switch {
	case err == nil && info.Mode().IsRegular():
		id.CookiesFile = p.cookiesFile
		return id, nil
	case err == nil:
		err = fmt.Errorf("%s is not a regular file", p.cookiesFile)
	case errors.Is(err, os.ErrNotExist):
		err = fmt.Errorf("cookie file %s not found", p.cookiesFile)
	}
	if p.required {
		return Identity{}, services.Wrap(services.ErrCredentialsMissing, "identity", "load cookies", "cookie file unavailable", err)
	}
	return id, nil
}

var expiryMarkers = []string{
	"sign in to confirm",
	"cookies are no longer valid",
	"login required",
	"use --cookies",
	"confirm you're not a bot",
}

// LooksExpired reports whether a source diagnostic suggests the request was
// refused for lack of valid credentials.
func LooksExpired(diagnostic string) bool {
	lower := strings.ToLower(diagnostic)
	for _, marker := range expiryMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ErrRejected marks a source refusal that asks for (fresh) credentials.
var ErrRejected = errors.New("source requested sign-in")
