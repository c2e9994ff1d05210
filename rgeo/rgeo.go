// Package rgeo labels trip endpoints with human readable place names
// using offline reverse geocoding datasets.
package rgeo

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	srgeo "github.com/sams96/rgeo"
)

// Placer names the place at a coordinate. An empty label means unknown.
type Placer interface {
	Place(lat, lon float64) string
}

// Loader is a Placer that needs preparing before its first lookup.
type Loader interface {
	Load() error
}

// datasets are the datasets that the reverse geocoder will use.
var datasets = []func() []byte{
	srgeo.Cities10,
	srgeo.Countries10,
	srgeo.Provinces10,
}

// Geocoder is a Placer backed by an in-process rgeo index.
// The datasets take a while to load, so the index is built on first use.
type Geocoder struct {
	once   sync.Once
	r      *srgeo.Rgeo
	err    error
	logger *slog.Logger
}

func NewGeocoder() *Geocoder {
	return &Geocoder{logger: slog.With("d", "rgeo")}
}

// Load builds the index, if not already built.
func (g *Geocoder) Load() error {
	g.once.Do(func() {
		g.logger.Info("Loading reverse geocoding datasets")
		g.r, g.err = srgeo.New(datasets...)
		if g.err != nil {
			g.err = fmt.Errorf("rgeo: %w", g.err)
			g.logger.Error("Failed to load reverse geocoding datasets", "error", g.err)
		}
	})
	return g.err
}

func (g *Geocoder) Location(lat, lon float64) (srgeo.Location, error) {
	if err := g.Load(); err != nil {
		return srgeo.Location{}, err
	}
	return g.r.ReverseGeocode(orb.Point{lon, lat})
}

// Place returns eg. "Oakland, United States of America", or "" when the point
// is in no known country (international waters) or the index failed to load.
func (g *Geocoder) Place(lat, lon float64) string {
	loc, err := g.Location(lat, lon)
	if err != nil {
		return ""
	}
	return Label(loc)
}

// Label joins the most specific known locality with the country.
func Label(loc srgeo.Location) string {
	local := loc.City
	if local == "" {
		local = loc.Province
	}
	country := loc.CountryLong
	if country == "" {
		country = loc.Country
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{local, country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
