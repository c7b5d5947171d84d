package ccapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

func newTestService(client *http.Client) *Service {
	return &Service{
		BaseURL:       "https://gw.example.com:8080",
		AppID:         "app-id",
		Client:        client,
		Authorization: func() string { return "Bearer token" },
		DeviceID:      func() string { return "device-1" },
		Stamp:         func() (string, error) { return "stamp-value", nil },
	}
}

func TestServiceInjectsHeaders(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://gw.example.com:8080/api/v1/spa/vehicles",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer token", req.Header.Get("Authorization"))
			assert.Equal(t, "device-1", req.Header.Get("ccsp-device-id"))
			assert.Equal(t, "app-id", req.Header.Get("ccsp-application-id"))
			assert.Equal(t, "stamp-value", req.Header.Get("Stamp"))
			return httpmock.NewStringResponse(200, `{"retCode":"S","resMsg":{"vehicles":[]}}`), nil
		})

	resp, err := newTestService(client).Get(context.Background(), "/api/v1/spa/vehicles")
	require.NoError(t, err)
	assert.Equal(t, "S", resp.RetCode)

	var msg struct {
		Vehicles []struct{} `json:"vehicles"`
	}
	require.NoError(t, resp.DecodeResMsg(&msg))
}

func TestServiceApplicationError(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("POST", "https://gw.example.com:8080/api/v1/user/pin",
		httpmock.NewStringResponder(200, `{"retCode":"F","resCode":"4004","resMsg":"bad pin"}`))

	_, err := newTestService(client).Post(context.Background(), "/api/v1/user/pin", map[string]string{"pin": "0000"})
	require.Error(t, err)
	var httpErr *bluelink.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Contains(t, httpErr.Status, "4004")
}

func TestServiceHTTPError(t *testing.T) {
	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://gw.example.com:8080/api/v1/spa/vehicles",
		httpmock.NewStringResponder(503, "gateway busy"))

	_, err := newTestService(client).Get(context.Background(), "/api/v1/spa/vehicles")
	require.Error(t, err)
	var httpErr *bluelink.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 503, httpErr.Code)
	assert.True(t, httpErr.Temporary())
}

func TestResponseUpdateRates(t *testing.T) {
	header := http.Header{}
	header.Set("X-RateLimit-Limit", "200")
	header.Set("X-RateLimit-Remaining", "199")
	header.Set("X-RateLimit-Reset", "1700000000")
	resp := &Response{Header: header}

	var state bluelink.RateState
	resp.UpdateRates(&state)
	assert.Equal(t, 200, state.Max)
	assert.Equal(t, 199, state.Current)
	assert.Equal(t, time.Unix(1700000000, 0), state.Reset)
	assert.False(t, state.UpdatedAt.IsZero())

	// Responses without rate headers leave the state untouched.
	before := state
	(&Response{Header: http.Header{}}).UpdateRates(&state)
	assert.Equal(t, before, state)
}
