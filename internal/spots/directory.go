// Package spots resolves surf spot IDs to names and coordinates.
package spots

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/surfreport/hub/internal/huberrors"
	"github.com/surfreport/hub/internal/models"
)

// Directory is a fixed in-process spot directory.
type Directory struct {
	spots map[string]models.Spot
}

// Builtin is the directory used when SPOTS is not configured.
var Builtin = []models.Spot{
	{ID: "mar-del-plata", Name: "Mar del Plata", Point: models.Point{Latitude: -38.0055, Longitude: -57.5426}},
	{ID: "biarritz", Name: "Biarritz - Grande Plage", Point: models.Point{Latitude: 43.4832, Longitude: -1.5586}},
	{ID: "ericeira", Name: "Ericeira - Ribeira d'Ilhas", Point: models.Point{Latitude: 38.9876, Longitude: -9.4201}},
	{ID: "hossegor", Name: "Hossegor - La Graviere", Point: models.Point{Latitude: 43.6717, Longitude: -1.4440}},
	{ID: "puerto-escondido", Name: "Puerto Escondido - Zicatela", Point: models.Point{Latitude: 15.8523, Longitude: -97.0629}},
	{ID: "uluwatu", Name: "Uluwatu", Point: models.Point{Latitude: -8.8150, Longitude: 115.0880}},
}

// NewDirectory builds a directory from spots. Duplicate IDs and out-of-range coordinates are errors.
func NewDirectory(spots []models.Spot) (*Directory, error) {
	d := &Directory{spots: make(map[string]models.Spot, len(spots))}

	for _, s := range spots {
		if s.ID == "" {
			return nil, huberrors.NewValidationError("spot.id", "spot id is required")
		}

		if _, dup := d.spots[s.ID]; dup {
			return nil, huberrors.NewValidationError("spot.id", "duplicate spot id "+s.ID)
		}

		if s.Point.Latitude < -90 || s.Point.Latitude > 90 || s.Point.Longitude < -180 || s.Point.Longitude > 180 {
			return nil, huberrors.NewValidationError("spot.point", "coordinates out of range for "+s.ID)
		}

		if s.Name == "" {
			s.Name = s.ID
		}

		d.spots[s.ID] = s
	}

	return d, nil
}

// Parse reads "id|name|lat|lon;id|name|lat|lon". An empty string yields the built-in directory.
func Parse(s string) (*Directory, error) {
	if strings.TrimSpace(s) == "" {
		return NewDirectory(Builtin)
	}

	var out []models.Spot

	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		fields := strings.Split(entry, "|")
		if len(fields) != 4 {
			return nil, fmt.Errorf("spot entry %q: want id|name|lat|lon", entry)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("spot entry %q: latitude: %w", entry, err)
		}

		lon, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("spot entry %q: longitude: %w", entry, err)
		}

		out = append(out, models.Spot{
			ID:    strings.TrimSpace(fields[0]),
			Name:  strings.TrimSpace(fields[1]),
			Point: models.Point{Latitude: lat, Longitude: lon},
		})
	}

	return NewDirectory(out)
}

// Resolve returns the spot with id or a NotFoundError.
func (d *Directory) Resolve(_ context.Context, id string) (models.Spot, error) {
	s, ok := d.spots[id]
	if !ok {
		return models.Spot{}, huberrors.NewNotFoundError("spot", "spot "+id+" not found")
	}

	return s, nil
}

// List returns every spot ordered by ID.
func (d *Directory) List() []models.Spot {
	out := make([]models.Spot, 0, len(d.spots))
	for _, s := range d.spots {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}
