package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/taxi-dispatch/internal/models"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim performs place lookups against an OpenStreetMap Nominatim server.
type Nominatim struct {
	Endpoint  string
	Suffix    string // appended to every query, e.g. ", Bangalore"
	UserAgent string
	Client    *http.Client
}

func NewNominatim(endpoint, suffix string, timeout time.Duration) *Nominatim {
	if endpoint == "" {
		endpoint = DefaultNominatimURL
	}
	return &Nominatim{
		Endpoint:  strings.TrimRight(endpoint, "/"),
		Suffix:    suffix,
		UserAgent: "TaxiDispatch/1.0",
		Client:    &http.Client{Timeout: timeout},
	}
}

// Lookup queries /search?q=<place><suffix>&format=json&limit=1 and returns the first hit.
func (n *Nominatim) Lookup(ctx context.Context, place string) (c models.Coord, err error) {
	defer func() { record("nominatim", err) }()

	q := url.Values{}
	q.Set("q", place+n.Suffix)
	q.Set("format", "json")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.Endpoint+"/search?"+q.Encode(), nil)
	if err != nil {
		return models.Coord{}, err
	}
	req.Header.Set("User-Agent", n.UserAgent)

	resp, err := n.Client.Do(req)
	if err != nil {
		return models.Coord{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.Coord{}, fmt.Errorf("nominatim returned %d", resp.StatusCode)
	}

	var out []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Coord{}, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(out) == 0 {
		return models.Coord{}, ErrNotFound
	}
	lat, err1 := strconv.ParseFloat(out[0].Lat, 64)
	lng, err2 := strconv.ParseFloat(out[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return models.Coord{}, fmt.Errorf("nominatim returned bad coordinates %q,%q", out[0].Lat, out[0].Lon)
	}
	return models.Coord{Lat: lat, Lng: lng}, nil
}
