package env

import "github.com/bluelinky/bluelink-command/pkg/bluelink"

// CanadaEndpoints are the tods/api paths of the Canadian deployment.
type CanadaEndpoints struct {
	Login        string
	Logout       string
	VehicleList  string
	VehicleInfo  string
	Status       string
	RemoteStatus string

	Lock            string
	Unlock          string
	Start           string
	Stop            string
	StartCharge     string
	StopCharge      string
	SetChargeTarget string
	Locate          string
	HornLight       string

	VerifyAccountToken string
	VerifyPin          string
	VerifyToken        string
}

// Canada describes one brand's Canadian deployment.
type Canada struct {
	Brand     bluelink.Brand
	Host      string
	BaseURL   string
	Origin    string
	Endpoints CanadaEndpoints
}

// CanadaFor returns the Canadian environment for a brand.
func CanadaFor(brand bluelink.Brand) Canada {
	host := "mybluelink.ca"
	if brand == bluelink.BrandKia {
		host = "kiaconnect.ca"
	}
	baseURL := "https://" + host
	return Canada{
		Brand:   brand,
		Host:    host,
		BaseURL: baseURL,
		Origin:  "SPA",
		Endpoints: CanadaEndpoints{
			Login:        baseURL + "/tods/api/lgn",
			Logout:       baseURL + "/tods/api/lgout",
			VehicleList:  baseURL + "/tods/api/vhcllst",
			VehicleInfo:  baseURL + "/tods/api/sltvhcl",
			Status:       baseURL + "/tods/api/lstvhclsts",
			RemoteStatus: baseURL + "/tods/api/rltmvhclsts",

			Lock:            baseURL + "/tods/api/drlck",
			Unlock:          baseURL + "/tods/api/drulck",
			Start:           baseURL + "/tods/api/evc/rfon",
			Stop:            baseURL + "/tods/api/evc/rfoff",
			StartCharge:     baseURL + "/tods/api/evc/rcstrt",
			StopCharge:      baseURL + "/tods/api/evc/rcstp",
			SetChargeTarget: baseURL + "/tods/api/evc/setsoc",
			Locate:          baseURL + "/tods/api/fndmcr",
			HornLight:       baseURL + "/tods/api/hornlight",

			VerifyAccountToken: baseURL + "/tods/api/vrfyacctkn",
			VerifyPin:          baseURL + "/tods/api/vrfypin",
			VerifyToken:        baseURL + "/tods/api/vrfytnc",
		},
	}
}
