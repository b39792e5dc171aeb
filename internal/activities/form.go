package activities

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/moodlog/moodlog/internal/shared"
)

// activityForm mirrors the create form. Latitude and Longitude keep the raw
// text for re-rendering; Lat and Lng hold the parsed values.
type activityForm struct {
	Title        string   `form:"title" validate:"required,max=200"`
	Description  string   `form:"description" validate:"max=5000"`
	IsPublic     bool     `form:"is_public"`
	Mood         string   `form:"mood" validate:"max=30"`
	Category     string   `form:"category" validate:"max=50"`
	LocationText string   `form:"location_text" validate:"max=200"`
	Latitude     string   `form:"-" validate:"-"`
	Longitude    string   `form:"-" validate:"-"`
	Lat          *float64 `form:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Lng          *float64 `form:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

func defaultActivityForm() activityForm {
	return activityForm{IsPublic: true}
}

// parseActivityForm reads the posted fields and returns them with any
// field-level errors. Empty coordinates are treated as absent.
func parseActivityForm(r *http.Request, v *validator.Validate) (activityForm, shared.FieldErrors) {
	form := activityForm{
		Title:        strings.TrimSpace(r.PostFormValue("title")),
		Description:  strings.TrimSpace(r.PostFormValue("description")),
		IsPublic:     checkboxValue(r.PostFormValue("is_public")),
		Mood:         strings.TrimSpace(r.PostFormValue("mood")),
		Category:     strings.TrimSpace(r.PostFormValue("category")),
		LocationText: strings.TrimSpace(r.PostFormValue("location_text")),
		Latitude:     strings.TrimSpace(r.PostFormValue("latitude")),
		Longitude:    strings.TrimSpace(r.PostFormValue("longitude")),
	}

	errs := shared.FieldErrors{}
	var ok bool
	if form.Lat, ok = parseCoordinate(form.Latitude); !ok {
		errs.Add("latitude", "Not a valid float value.")
	}
	if form.Lng, ok = parseCoordinate(form.Longitude); !ok {
		errs.Add("longitude", "Not a valid float value.")
	}
	for field, msg := range shared.ValidateForm(v, form) {
		errs.Add(field, msg)
	}
	if len(errs) == 0 {
		switch {
		case form.Lat != nil && form.Lng == nil:
			errs.Add("longitude", "Latitude and longitude must be provided together.")
		case form.Lat == nil && form.Lng != nil:
			errs.Add("latitude", "Latitude and longitude must be provided together.")
		}
	}
	return form, errs
}

func (f activityForm) toNewActivity() NewActivity {
	return NewActivity{
		Title:        f.Title,
		Description:  f.Description,
		IsPublic:     f.IsPublic,
		Mood:         f.Mood,
		Category:     f.Category,
		Latitude:     f.Lat,
		Longitude:    f.Lng,
		LocationText: f.LocationText,
	}
}

// parseCoordinate returns nil for empty input and false for text that is not
// a finite number.
func parseCoordinate(raw string) (*float64, bool) {
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}

func checkboxValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "0", "false", "off", "n", "no":
		return false
	default:
		return true
	}
}
