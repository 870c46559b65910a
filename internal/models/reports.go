package models

import (
	"time"

	"github.com/google/uuid"
)

// Spot is a named surf location.
type Spot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Point Point  `json:"point"`
}

// Preferences carries optional user preferences passed to the text generator.
type Preferences struct {
	SkillLevel     string   `json:"skill_level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	BoardType      string   `json:"board_type,omitempty" validate:"omitempty,max=64"`
	PreferredWind  []string `json:"preferred_wind,omitempty" validate:"omitempty,dive,oneof=N NE E SE S SW W NW"`
	MinWaveHeight  *float64 `json:"min_wave_height,omitempty" validate:"omitempty,gte=0,lte=20"`
	MaxWaveHeight  *float64 `json:"max_wave_height,omitempty" validate:"omitempty,gte=0,lte=20"`
	BestConditions string   `json:"best_conditions,omitempty" validate:"omitempty,max=500,no_null_bytes"`
	BadConditions  string   `json:"bad_conditions,omitempty" validate:"omitempty,max=500,no_null_bytes"`
}

// Report is a generated surf forecast report.
type Report struct {
	ID                   uuid.UUID      `json:"id"`
	SpotID               string         `json:"spot_id"`
	SpotName             string         `json:"spot_name"`
	Point                Point          `json:"point"`
	HorizonDays          int            `json:"horizon_days"`
	RequestedHorizonDays int            `json:"requested_horizon_days"`
	Summary              WeatherSummary `json:"summary"`
	Text                 string         `json:"text"`
	Preferences          *Preferences   `json:"preferences,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

// CreateReportRequest is the input for generating a report.
type CreateReportRequest struct {
	SpotID      string       `json:"spot_id" validate:"required,min=1,max=255,spot_id"`
	Preferences *Preferences `json:"preferences,omitempty"`
	HorizonDays *int         `json:"horizon_days,omitempty" validate:"omitempty,min=1,max=16"`
}

// Feedback is a user rating of a report.
type Feedback struct {
	ID        uuid.UUID `json:"id"`
	ReportID  uuid.UUID `json:"report_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateFeedbackRequest is the input for rating a report.
type CreateFeedbackRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000,no_null_bytes"`
}

// FeedbackAggregate is the recomputed rating summary for one report.
type FeedbackAggregate struct {
	AverageRating float64 `json:"average_rating"`
	FeedbackCount int     `json:"feedback_count"`
}

// SimilarReports is the response of a find-similar query.
type SimilarReports struct {
	Target  *Report            `json:"target"`
	Similar []SimilarityResult `json:"similar"`
}

// SimilarReportsFilter holds query parameters for the find-similar endpoint.
type SimilarReportsFilter struct {
	Limit *int `form:"limit" validate:"omitempty,min=1,max=50"`
}
