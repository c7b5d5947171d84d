// Package stamp produces the rotating request signatures required by the CCSP deployments.
//
// Two modes exist. Distant mode consumes a published table of precomputed stamps, indexed by the
// time elapsed since the table was generated. Local mode derives a stamp on the fly by XORing a
// fixed per-brand key with the current timestamp, requiring no network access.
package stamp

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/bluelinky/bluelink-command/internal/log"
	"github.com/bluelinky/bluelink-command/pkg/bluelink"
)

// DefaultStampHost publishes the rotating stamp tables consumed in distant mode.
const DefaultStampHost = "https://raw.githubusercontent.com/neoPix/bluelinky-stamps/master/"

// Collection is one published window of stamps. Frequency is the rotation interval in
// milliseconds per entry.
type Collection struct {
	Stamps    []string `json:"stamps"`
	Generated string   `json:"generated"`
	Frequency int64    `json:"frequency"`
}

// Config selects the stamp source for one (region, brand, app id) tuple.
type Config struct {
	AppID  string
	Brand  bluelink.Brand
	Region bluelink.Region
	Mode   bluelink.StampMode

	// StampHost overrides DefaultStampHost in distant mode.
	StampHost string
	// StampsFile overrides the fetch entirely; file:// URLs are read from disk.
	StampsFile string

	// Client is the HTTP client used for distant fetches. Defaults to http.DefaultClient.
	Client *http.Client
}

// Generator produces stamps for one configuration. Collections are cached per brand-appID key and
// evicted once 90% of the window has been consumed so the next call refetches.
type Generator struct {
	cfg   Config
	cache *gocache.Cache
	now   func() time.Time
}

// New builds a Generator. The cache TTL is generous; the 90% eviction rule is the operative
// invalidation mechanism.
func New(cfg Config) *Generator {
	if cfg.StampHost == "" {
		cfg.StampHost = DefaultStampHost
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &Generator{
		cfg:   cfg,
		cache: gocache.New(24*time.Hour, time.Hour),
		now:   time.Now,
	}
}

// Stamp returns a signature valid for the current rotation window.
func (g *Generator) Stamp() (string, error) {
	if g.cfg.Mode == bluelink.StampModeLocal {
		return g.localStamp()
	}
	return g.distantStamp()
}

func (g *Generator) cacheKey() string {
	return fmt.Sprintf("%s-%s", g.cfg.Brand, g.cfg.AppID)
}

func (g *Generator) distantStamp() (string, error) {
	key := g.cacheKey()
	var collection *Collection
	if cached, ok := g.cache.Get(key); ok {
		collection = cached.(*Collection)
	} else {
		fetched, err := g.fetchCollection()
		if err != nil {
			return "", err
		}
		g.cache.SetDefault(key, fetched)
		collection = fetched
	}

	if len(collection.Stamps) == 0 || collection.Frequency <= 0 {
		g.cache.Delete(key)
		return "", fmt.Errorf("stamp collection %s is empty", key)
	}

	elapsed := g.now().UnixMilli() - parseGenerated(collection.Generated)
	position := int(elapsed / collection.Frequency)
	last := len(collection.Stamps) - 1
	if last > 0 && float64(position)/float64(last) >= 0.9 {
		// Window nearly consumed; drop the entry so the next call refetches.
		g.cache.Delete(key)
	}
	if position > last {
		position = last
	}
	if position < 0 {
		position = 0
	}
	return collection.Stamps[position], nil
}

// parseGenerated converts the collection timestamp to epoch milliseconds. An unparseable value is
// treated as epoch 0 so the collection goes stale immediately instead of failing the call.
func parseGenerated(generated string) int64 {
	ts, err := time.Parse(time.RFC3339, generated)
	if err != nil {
		log.Warning("stamp: unparseable generation timestamp %q, forcing refresh", generated)
		return 0
	}
	return ts.UnixMilli()
}

func (g *Generator) fetchCollection() (*Collection, error) {
	source := g.cfg.StampsFile
	if source == "" {
		source = fmt.Sprintf("%s%s-%s.v2.json", g.cfg.StampHost, g.cfg.Brand, g.cfg.AppID)
	}

	var body []byte
	if strings.HasPrefix(source, "file://") {
		data, err := os.ReadFile(strings.TrimPrefix(source, "file://"))
		if err != nil {
			return nil, fmt.Errorf("reading stamps file: %w", err)
		}
		body = data
	} else {
		resp, err := g.cfg.Client.Get(source)
		if err != nil {
			return nil, fmt.Errorf("fetching stamps from %s: %w", source, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetching stamps from %s: %s", source, resp.Status)
		}
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("fetching stamps from %s: %w", source, err)
		}
	}

	var collection Collection
	if err := json.Unmarshal(body, &collection); err != nil {
		return nil, fmt.Errorf("decoding stamps from %s: %w", source, err)
	}
	return &collection, nil
}

func (g *Generator) localStamp() (string, error) {
	key, err := localKey(g.cfg.Region, g.cfg.Brand)
	if err != nil {
		return "", err
	}
	raw := []byte(fmt.Sprintf("%s:%d", g.cfg.AppID, g.now().UnixMilli()))
	xored, err := xorBytes(key, raw)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(xored), nil
}

// xorBytes requires equal lengths: a mismatch means the key table and app id are out of sync,
// which is a data-corruption signal rather than a retry condition.
func xorBytes(a, b []byte) ([]byte, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("xor operands differ in size, %d vs %d", len(a), len(b))
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out, nil
}
