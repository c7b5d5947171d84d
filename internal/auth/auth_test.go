package auth

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluelinky/bluelink-command/internal/env"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

func TestBrandStrategyLogin(t *testing.T) {
	e := env.EuropeFor(bluelink.BrandHyundai)
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", e.Endpoints.Session,
		httpmock.NewStringResponder(200, "ok"))

	// The authorize endpoint redirects to a signin URL carrying an encoded
	// connector_session_key.
	httpmock.RegisterResponder("GET",
		`=~^https://idpconnect-eu\.hyundai\.com/auth/api/v2/user/oauth2/authorize`,
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(302, "")
			resp.Header.Set("Location",
				"https://idpconnect-eu.hyundai.com/auth/account/signinpage?next=%2Fsignin%3Fconnector_session_key%3Daaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
			return resp, nil
		})
	httpmock.RegisterResponder("GET",
		`=~^https://idpconnect-eu\.hyundai\.com/auth/account/signinpage`,
		httpmock.NewStringResponder(200, "signin page"))

	code := "11111111-2222-3333-4444-555555555555" +
		".66666666-7777-8888-9999-aaaaaaaaaaaa" +
		".bbbbbbbb-cccc-dddd-eeee-ffffffffffff"
	httpmock.RegisterResponder("POST", "https://idpconnect-eu.hyundai.com/auth/account/signin",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseForm())
			assert.Equal(t, "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", req.PostForm.Get("connector_session_key"))
			assert.Equal(t, "user@example.com", req.PostForm.Get("username"))
			resp := httpmock.NewStringResponse(302, "")
			resp.Header.Set("Location", e.Endpoints.RedirectURI+"?code="+code)
			return resp, nil
		})

	s := &BrandStrategy{Env: e, Client: client}
	result, err := s.Login(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, code, result.Code)
	assert.NotNil(t, result.Cookies)
}

func TestBrandStrategySigninFailure(t *testing.T) {
	e := env.EuropeFor(bluelink.BrandKia)
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", e.Endpoints.Session, httpmock.NewStringResponder(200, "ok"))
	httpmock.RegisterResponder("GET",
		`=~^https://idpconnect-eu\.kia\.com/auth/api/v2/user/oauth2/authorize`,
		func(req *http.Request) (*http.Response, error) {
			resp := httpmock.NewStringResponse(302, "")
			resp.Header.Set("Location",
				"https://idpconnect-eu.kia.com/auth/account/signinpage?connector_session_key=aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")
			return resp, nil
		})
	httpmock.RegisterResponder("GET",
		`=~^https://idpconnect-eu\.kia\.com/auth/account/signinpage`,
		httpmock.NewStringResponder(200, ""))
	httpmock.RegisterResponder("POST", "https://idpconnect-eu.kia.com/auth/account/signin",
		httpmock.NewStringResponder(401, `{"error":"bad credentials"}`))

	s := &BrandStrategy{Env: e, Client: client}
	_, err := s.Login(context.Background(), "user@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "@BrandStrategy.login")
	assert.Contains(t, err.Error(), "401")
}

func TestLegacyStrategyLogin(t *testing.T) {
	e := env.EuropeFor(bluelink.BrandHyundai)
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", e.Endpoints.Session, httpmock.NewStringResponder(200, "ok"))
	httpmock.RegisterResponder("POST", e.Endpoints.Login,
		httpmock.NewStringResponder(200, `{"redirectUrl":"`+e.Endpoints.RedirectURI+`?code=legacy-code-123"}`))

	s := &LegacyStrategy{Env: e, Client: client}
	result, err := s.Login(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "legacy-code-123", result.Code)
}

func TestLegacyStrategyNeedsMigration(t *testing.T) {
	e := env.EuropeFor(bluelink.BrandHyundai)
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", e.Endpoints.Session, httpmock.NewStringResponder(200, "ok"))
	httpmock.RegisterResponder("POST", e.Endpoints.Login,
		httpmock.NewStringResponder(200, `{"errId":"0121"}`))

	s := &LegacyStrategy{Env: e, Client: client}
	_, err := s.Login(context.Background(), "user@example.com", "hunter2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration")
}

func TestAustraliaStrategyLogin(t *testing.T) {
	e := env.AustraliaFor(bluelink.BrandHyundai)
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", e.Endpoints.Session, httpmock.NewStringResponder(200, "ok"))
	httpmock.RegisterResponder("POST", e.Endpoints.Login,
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "text/plain", req.Header.Get("Content-Type"))
			return httpmock.NewStringResponse(200,
				`{"redirectUrl":"`+e.Endpoints.RedirectURI+`?code=au-code-456"}`), nil
		})

	s := &AustraliaStrategy{Env: e, Client: client}
	result, err := s.Login(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "au-code-456", result.Code)
}
