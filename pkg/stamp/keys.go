package stamp

import (
	"encoding/base64"
	"fmt"

	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// Fixed XOR keys for local stamp generation, one per supported (region, brand) pair. Each key is
// exactly as long as the "appId:epochMillis" payload it is combined with.
var localKeys = map[bluelink.Region]map[bluelink.Brand]string{
	bluelink.RegionEU: {
		bluelink.BrandHyundai: "iwQMuePbdVGsWchzgkgiccAj8oOoMgbvQXzbCautR50ZqXrF8hIL/ajS4KY+E1cnZns=",
		bluelink.BrandKia:     "Xnhf4gdYZ+BIEkYA2KpVW8XRWWsAaVBIgeAqND1xXD/RPjs8VUPSPBDBYeGx21JOITA=",
	},
	bluelink.RegionAU: {
		bluelink.BrandHyundai: "B2kbZv+6aL2/NdzbuCXeyuqzbc5VLf/2m2dkcOjSTdWpkn+V2d7xyOI8JG1gd+7KYEw=",
		bluelink.BrandKia:     "73kADG5I/kh229L9H5duCkGD+OMyre5UG22BSUohbk07fjqbdDZ/GekSuIu5tk6d+Uc=",
	},
}

func localKey(region bluelink.Region, brand bluelink.Brand) ([]byte, error) {
	brands, ok := localKeys[region]
	if !ok {
		return nil, fmt.Errorf("local stamp generation is only supported in Europe and Australia, not %s", region)
	}
	encoded, ok := brands[brand]
	if !ok {
		return nil, fmt.Errorf("no local stamp key for brand %s in %s", brand, region)
	}
	return base64.StdEncoding.DecodeString(encoded)
}
