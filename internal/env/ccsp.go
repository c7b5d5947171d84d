package env

import (
	"fmt"
	"net/url"

	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// CCSPEndpoints are the well-known paths of a CCSP deployment (EU/AU/CN).
type CCSPEndpoints struct {
	Session      string
	Login        string
	Language     string
	RedirectURI  string
	Token        string
	Integration  string
	SilentSignIn string
}

// CCSP describes one brand's CCSP API gateway deployment.
type CCSP struct {
	Brand       bluelink.Brand
	Region      bluelink.Region
	Host        string
	BaseURL     string
	ClientID    string
	AppID       string
	BasicToken  string
	GCMSenderID string
	Endpoints   CCSPEndpoints

	// AuthHost serves the brand's interactive signin flow (EU only).
	AuthHost string

	// ProviderDeviceID and PushRegID are fixed device identities (CN only).
	ProviderDeviceID string
	PushRegID        string
}

func ccspEndpoints(baseURL, clientID string) CCSPEndpoints {
	redirect := baseURL + "/api/v1/user/oauth2/redirect"
	return CCSPEndpoints{
		Session: fmt.Sprintf(
			"%s/api/v1/user/oauth2/authorize?response_type=code&state=test&client_id=%s&redirect_uri=%s",
			baseURL, clientID, redirect),
		Login:        baseURL + "/api/v1/user/signin",
		Language:     baseURL + "/api/v1/user/language",
		RedirectURI:  redirect,
		Token:        baseURL + "/api/v1/user/oauth2/token",
		Integration:  baseURL + "/api/v1/user/integrationinfo",
		SilentSignIn: baseURL + "/api/v1/user/silentsignin",
	}
}

// EuropeFor returns the EU environment for a brand.
func EuropeFor(brand bluelink.Brand) CCSP {
	if brand == bluelink.BrandKia {
		baseURL := "https://prd.eu-ccapi.kia.com:8080"
		clientID := "fdc85c00-0a2f-4c64-bcb4-2cfb1500730a"
		return CCSP{
			Brand:       bluelink.BrandKia,
			Region:      bluelink.RegionEU,
			Host:        "prd.eu-ccapi.kia.com:8080",
			BaseURL:     baseURL,
			ClientID:    clientID,
			AppID:       "a2b8469b-30a3-4361-8e13-6fceea8fbe74",
			BasicToken:  "Basic ZmRjODVjMDAtMGEyZi00YzY0LWJjYjQtMmNmYjE1MDA3MzBhOnNlY3JldA==",
			GCMSenderID: "345127537656",
			Endpoints:   ccspEndpoints(baseURL, clientID),
			AuthHost:    "idpconnect-eu.kia.com",
		}
	}
	baseURL := "https://prd.eu-ccapi.hyundai.com:8080"
	clientID := "6d477c38-3ca4-4cf3-9557-2a1929a94654"
	return CCSP{
		Brand:       bluelink.BrandHyundai,
		Region:      bluelink.RegionEU,
		Host:        "prd.eu-ccapi.hyundai.com:8080",
		BaseURL:     baseURL,
		ClientID:    clientID,
		AppID:       "1eba27d2-9a5b-4eba-8ec7-97eb6c62fb51",
		BasicToken:  "Basic NmQ0NzdjMzgtM2NhNC00Y2YzLTk1NTctMmExOTI5YTk0NjU0OktVeTQ5WHhQekxwTHVvSzB4aEJDNzdXNlZYaG10UVI5aVFobUlGampvWTRJcHhzVg==",
		GCMSenderID: "414998006775",
		Endpoints:   ccspEndpoints(baseURL, clientID),
		AuthHost:    "idpconnect-eu.hyundai.com",
	}
}

// AustraliaFor returns the AU environment for a brand. The AU gateway reuses the CCSP shape with
// its own session URL format.
func AustraliaFor(brand bluelink.Brand) CCSP {
	var e CCSP
	if brand == bluelink.BrandKia {
		baseURL := "https://au-apigw.ccs.kia.com.au:8082"
		clientID := "8acb778a-b918-4a8d-8624-73a0beb64289"
		e = CCSP{
			Brand:      bluelink.BrandKia,
			Region:     bluelink.RegionAU,
			Host:       "au-apigw.ccs.kia.com.au:8082",
			BaseURL:    baseURL,
			ClientID:   clientID,
			AppID:      "4ad4dcde-be23-48a8-bc1c-91b94f5c06f8",
			BasicToken: "Basic OGFjYjc3OGEtYjkxOC00YThkLTg2MjQtNzNhMGJlYjY0Mjg5OjdTY01NbTZmRVlYZGlFUEN4YVBhUW1nZVlkbFVyZndvaDRBZlhHT3pZSVMyQ3U5VA==",
			Endpoints:  ccspEndpoints(baseURL, clientID),
		}
	} else {
		baseURL := "https://au-apigw.ccs.hyundai.com.au:8080"
		clientID := "855c72df-dfd7-4230-ab03-67cbf902bb1c"
		e = CCSP{
			Brand:      bluelink.BrandHyundai,
			Region:     bluelink.RegionAU,
			Host:       "au-apigw.ccs.hyundai.com.au:8080",
			BaseURL:    baseURL,
			ClientID:   clientID,
			AppID:      "f9ccfdac-a48d-4c57-bd32-9116963c24ed",
			BasicToken: "Basic ODU1YzcyZGYtZGZkNy00MjMwLWFiMDMtNjdjYmY5MDJiYjFjOmU2ZmJ3SE0zMllOYmhRbDBwdmlhUHAzcmY0dDNTNms5MWVjZUEzTUpMZGJkVGhDTw==",
			Endpoints:  ccspEndpoints(baseURL, clientID),
		}
	}
	// AU publishes a slightly different authorize URL: escaped redirect, explicit language.
	e.Endpoints.Session = fmt.Sprintf(
		"%s/api/v1/user/oauth2/authorize?response_type=code&client_id=%s&redirect_uri=%s&lang=en",
		e.BaseURL, e.ClientID, url.QueryEscape(e.Endpoints.RedirectURI))
	return e
}

// ChinaFor returns the CN environment for a brand. The CN login flow itself is not implemented;
// the environment exists so configuration and diagnostics stay uniform across regions.
func ChinaFor(brand bluelink.Brand) CCSP {
	if brand == bluelink.BrandKia {
		baseURL := "https://prd.cn-ccapi.kia.com"
		clientID := "9d5df92a-06ae-435f-b459-8304f2efcc67"
		return CCSP{
			Brand:            bluelink.BrandKia,
			Region:           bluelink.RegionCN,
			Host:             "prd.cn-ccapi.kia.com",
			BaseURL:          baseURL,
			ClientID:         clientID,
			AppID:            "eea8762c-adfc-4ee4-8d7a-6e2452ddf342",
			BasicToken:       "Basic OWQ1ZGY5MmEtMDZhZS00MzVmLWI0NTktODMwNGYyZWZjYzY3OnRzWGRrVWcwOEF2MlpaelhPZ1d6Snl4VVQ2eWVTbk5OUWtYWFBSZEtXRUFOd2wxcA==",
			GCMSenderID:      "345127537656",
			Endpoints:        ccspEndpoints(baseURL, clientID),
			ProviderDeviceID: "32dedba78045415b92db816e805ed47b",
			PushRegID:        "ogc+GB5gom7zDEQjPhb3lP+bjjM=DG2rQ9Zuq0otwOU7n9y08LKjYpo=",
		}
	}
	baseURL := "https://prd.cn-ccapi.hyundai.com"
	clientID := "72b3d019-5bc7-443d-a437-08f307cf06e2"
	return CCSP{
		Brand:            bluelink.BrandHyundai,
		Region:           bluelink.RegionCN,
		Host:             "prd.cn-ccapi.hyundai.com",
		BaseURL:          baseURL,
		ClientID:         clientID,
		AppID:            "ed01581a-380f-48cd-83d4-ed1490c272d0",
		BasicToken:       "Basic NzJiM2QwMTktNWJjNy00NDNkLWE0MzctMDhmMzA3Y2YwNmUyOnNlY3JldA==",
		GCMSenderID:      "414998006775",
		Endpoints:        ccspEndpoints(baseURL, clientID),
		ProviderDeviceID: "59af09e554a9442ab8589c9500d04d2e",
		PushRegID:        "1",
	}
}
