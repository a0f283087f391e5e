package config

import (
	"encoding/json"
	"fmt"
	"os"

	"geopickup/internal/models"

	"github.com/go-playground/validator/v10"
)

// DefaultSchools is the built-in catalogue used when SCHOOLS_FILE is unset.
var DefaultSchools = []models.School{
	{
		ID:      "school-1",
		Name:    "Mashburn Elementary",
		Address: "3777 Samples Rd, Cumming, GA 30041",
		Geofence: models.Geofence{
			Latitude:  34.168494,
			Longitude: -84.106414,
			Radius:    200,
		},
		PickupTimes: []models.PickupWindow{
			{Start: "14:30", End: "15:30", Label: "Regular Pickup"},
			{Start: "12:00", End: "12:30", Label: "Early Dismissal"},
		},
	},
}

// SchoolCatalog is the read-only school configuration shared by the token
// engine, the ledger notifications and the geofence monitor.
type SchoolCatalog struct {
	schools []models.School
	byID    map[string]models.School
}

func NewSchoolCatalog(schools []models.School) *SchoolCatalog {
	c := &SchoolCatalog{
		schools: append([]models.School(nil), schools...),
		byID:    make(map[string]models.School, len(schools)),
	}
	for _, s := range c.schools {
		c.byID[s.ID] = s
	}
	return c
}

// LoadSchools reads the catalogue from path, or returns the defaults when path is empty.
func LoadSchools(path string) (*SchoolCatalog, error) {
	if path == "" {
		return NewSchoolCatalog(DefaultSchools), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schools file: %w", err)
	}
	var schools []models.School
	if err := json.Unmarshal(raw, &schools); err != nil {
		return nil, fmt.Errorf("parse schools file: %w", err)
	}
	validate := validator.New()
	for i := range schools {
		if err := validate.Struct(schools[i]); err != nil {
			return nil, fmt.Errorf("school %d: %w", i, err)
		}
	}
	return NewSchoolCatalog(schools), nil
}

func (c *SchoolCatalog) All() []models.School {
	return append([]models.School(nil), c.schools...)
}

func (c *SchoolCatalog) Get(id string) (models.School, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Name returns the school's display name, or the id when unknown.
func (c *SchoolCatalog) Name(id string) string {
	if s, ok := c.byID[id]; ok {
		return s.Name
	}
	return id
}
