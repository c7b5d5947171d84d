package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/bluelinky/bluelink-command/internal/env"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

var (
	sessionKeyEncodedRe = regexp.MustCompile(`connector_session_key%3D([0-9a-fA-F-]{36})`)
	sessionKeyPlainRe   = regexp.MustCompile(`connector_session_key=([0-9a-fA-F-]{36})`)
	tripleCodeRe        = regexp.MustCompile(`code=([0-9a-fA-F-]{36}\.[0-9a-fA-F-]{36}\.[0-9a-fA-F-]{36})`)
	anyCodeRe           = regexp.MustCompile(`code=([^&]+)`)
)

// BrandStrategy drives the brand identity provider's interactive signin flow: follow the
// authorize redirect chain to pick up a connector session key, post the credential form to the
// signin endpoint, and read the authorization code off the 302 Location.
type BrandStrategy struct {
	Env      env.CCSP
	Language string
	// Client's transport is reused for both redirect-following and redirect-suppressed calls.
	Client *http.Client
}

func (s *BrandStrategy) Name() string { return "BrandStrategy" }

func (s *BrandStrategy) Login(ctx context.Context, username, password string) (*Result, error) {
	client := s.client()
	jar, err := initSession(ctx, client, s.Env)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "BrandStrategy.login")
	}

	authURL := fmt.Sprintf(
		"https://%s/auth/api/v2/user/oauth2/authorize?response_type=code&client_id=%s&redirect_uri=%s&lang=%s&state=ccsp",
		s.Env.AuthHost, s.Env.ClientID, s.Env.Endpoints.RedirectURI, s.language())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	// The session key appears on one of the redirect hops, usually the last. Record the chain
	// while following it.
	chain := []string{authURL}
	follow := *client
	follow.CheckRedirect = func(hop *http.Request, via []*http.Request) error {
		chain = append(chain, hop.URL.String())
		return nil
	}
	resp, err := follow.Do(req)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "BrandStrategy.login")
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.Request != nil && resp.Request.URL != nil {
		chain = append(chain, resp.Request.URL.String())
	}

	var sessionKey string
	for i := len(chain) - 1; i >= 0 && sessionKey == ""; i-- {
		sessionKey = matchFirst(chain[i], sessionKeyEncodedRe, sessionKeyPlainRe)
	}
	if sessionKey == "" {
		return nil, bluelink.WrapCommand(
			fmt.Errorf("could not extract connector_session_key from %s", chain[len(chain)-1]),
			"BrandStrategy.login")
	}

	form := url.Values{
		"client_id":             {s.Env.ClientID},
		"encryptedPassword":     {"false"},
		"orgHmgSid":             {""},
		"password":              {password},
		"redirect_uri":          {s.Env.Endpoints.RedirectURI},
		"state":                 {"ccsp"},
		"username":              {username},
		"remember_me":           {"false"},
		"connector_session_key": {sessionKey},
		"_csrf":                 {""},
	}

	signinURL := fmt.Sprintf("https://%s/auth/account/signin", s.Env.AuthHost)
	signinReq, err := http.NewRequestWithContext(ctx, http.MethodPost, signinURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	signinReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	signinReq.Header.Set("Origin", "https://"+s.Env.AuthHost)
	signinReq.Header.Set("User-Agent", userAgent)

	// The code rides on the 302 itself, so redirects must not be followed here.
	noRedirect := *client
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	signinResp, err := noRedirect.Do(signinReq)
	if err != nil {
		return nil, bluelink.WrapCommand(err, "BrandStrategy.login")
	}
	body, _ := io.ReadAll(signinResp.Body)
	signinResp.Body.Close()

	if signinResp.StatusCode != http.StatusFound {
		return nil, bluelink.WrapCommand(
			fmt.Errorf("signin failed with status %d: %s", signinResp.StatusCode, string(body)),
			"BrandStrategy.login")
	}
	location := signinResp.Header.Get("Location")
	if location == "" {
		return nil, bluelink.WrapCommand(
			fmt.Errorf("no redirect location after signin"), "BrandStrategy.login")
	}

	code := matchFirst(location, tripleCodeRe, anyCodeRe)
	if code == "" {
		return nil, bluelink.WrapCommand(
			fmt.Errorf("could not extract authorization code from redirect %s", location),
			"BrandStrategy.login")
	}
	return &Result{Code: code, Cookies: jar}, nil
}

func (s *BrandStrategy) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{}
}

func (s *BrandStrategy) language() string {
	if s.Language == "" {
		return "en"
	}
	return s.Language
}

func matchFirst(input string, patterns ...*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(input); m != nil {
			return m[1]
		}
	}
	return ""
}
