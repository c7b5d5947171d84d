package stamp

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

const testAppID = "1eba27d2-9a5b-4eba-8ec7-97eb6c62fb51"

func newDistantGenerator(t *testing.T, generated time.Time, stamps []string, frequency int64) (*Generator, *http.Client) {
	t.Helper()
	client := &http.Client{}
	g := New(Config{
		AppID:     testAppID,
		Brand:     bluelink.BrandHyundai,
		Region:    bluelink.RegionEU,
		Mode:      bluelink.StampModeDistant,
		StampHost: "https://stamps.example.com/",
		Client:    client,
	})
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	url := fmt.Sprintf("https://stamps.example.com/hyundai-%s.v2.json", testAppID)
	httpmock.RegisterResponder("GET", url, httpmock.NewJsonResponderOrPanic(200, Collection{
		Stamps:    stamps,
		Generated: generated.Format(time.RFC3339),
		Frequency: frequency,
	}))
	return g, client
}

func TestDistantStampPosition(t *testing.T) {
	generated := time.Now().Add(-time.Hour)
	stamps := make([]string, 100)
	for i := range stamps {
		stamps[i] = fmt.Sprintf("stamp-%03d", i)
	}
	g, _ := newDistantGenerator(t, generated, stamps, 1000)

	// 2.5s after generation: position floor(2500/1000) = 2.
	g.now = func() time.Time { return generated.Add(2500 * time.Millisecond) }
	s, err := g.Stamp()
	require.NoError(t, err)
	assert.Equal(t, "stamp-002", s)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())

	// Second call within the window reuses the cache.
	_, err = g.Stamp()
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestDistantStampEvictsAt90Percent(t *testing.T) {
	generated := time.Now()
	stamps := make([]string, 11) // last index 10, 90% at position 9
	for i := range stamps {
		stamps[i] = fmt.Sprintf("s%d", i)
	}
	g, _ := newDistantGenerator(t, generated, stamps, 1000)

	g.now = func() time.Time { return generated.Add(5 * time.Second) }
	_, err := g.Stamp()
	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "position 5 of 10 keeps the cache")

	g.now = func() time.Time { return generated.Add(9 * time.Second) }
	s, err := g.Stamp()
	require.NoError(t, err)
	assert.Equal(t, "s9", s, "the stale window still serves the current stamp")

	// The 90% call dropped the cache entry, so this one refetches.
	_, err = g.Stamp()
	require.NoError(t, err)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestDistantStampClampsToLastIndex(t *testing.T) {
	generated := time.Now().Add(-24 * time.Hour)
	g, _ := newDistantGenerator(t, generated, []string{"a", "b", "c"}, 1000)
	g.now = time.Now

	s, err := g.Stamp()
	require.NoError(t, err)
	assert.Equal(t, "c", s)
}

func TestDistantStampUnparseableGenerated(t *testing.T) {
	client := &http.Client{}
	g := New(Config{
		AppID:     testAppID,
		Brand:     bluelink.BrandHyundai,
		Region:    bluelink.RegionEU,
		Mode:      bluelink.StampModeDistant,
		StampHost: "https://stamps.example.com/",
		Client:    client,
	})
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)
	url := fmt.Sprintf("https://stamps.example.com/hyundai-%s.v2.json", testAppID)
	httpmock.RegisterResponder("GET", url, httpmock.NewJsonResponderOrPanic(200, Collection{
		Stamps:    []string{"x", "y"},
		Generated: "not-a-timestamp",
		Frequency: 1000,
	}))

	// Unparseable generation timestamp falls back to epoch 0: the position clamps to the last
	// stamp and the call still succeeds.
	s, err := g.Stamp()
	require.NoError(t, err)
	assert.Equal(t, "y", s)
}

func TestLocalStamp(t *testing.T) {
	g := New(Config{
		AppID:  "f9ccfdac-a48d-4c57-bd32-9116963c24ed",
		Brand:  bluelink.BrandHyundai,
		Region: bluelink.RegionAU,
		Mode:   bluelink.StampModeLocal,
	})
	at := time.UnixMilli(1700000000000)
	g.now = func() time.Time { return at }

	s, err := g.Stamp()
	require.NoError(t, err)

	// XORing the stamp with the key must recover appId:millis.
	key, err := localKey(bluelink.RegionAU, bluelink.BrandHyundai)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	plain, err := xorBytes(key, decoded)
	require.NoError(t, err)
	assert.Equal(t, "f9ccfdac-a48d-4c57-bd32-9116963c24ed:1700000000000", string(plain))
}

func TestLocalStampLengthMismatch(t *testing.T) {
	g := New(Config{
		AppID:  "short-app-id",
		Brand:  bluelink.BrandKia,
		Region: bluelink.RegionEU,
		Mode:   bluelink.StampModeLocal,
	})
	_, err := g.Stamp()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "differ in size")
}

func TestLocalStampUnsupportedRegion(t *testing.T) {
	g := New(Config{
		AppID:  testAppID,
		Brand:  bluelink.BrandHyundai,
		Region: bluelink.RegionUS,
		Mode:   bluelink.StampModeLocal,
	})
	_, err := g.Stamp()
	assert.Error(t, err)
}
