package api

import (
	"fmt"
	"time"

	"github.com/thermocloud/core/internal/thermo"
)

// apiBasePath prefixes every resource URL in serialized payloads.
const apiBasePath = "/api/v1"

// thermometerView is the serialized form of a thermometer. Resource
// references are rendered as URLs; owner is null until registration.
type thermometerView struct {
	URL              string        `json:"url"`
	Owner            *string       `json:"owner"`
	Temperatures     []readingView `json:"temperatures"`
	ThermID          string        `json:"therm_id"`
	DisplayName      string        `json:"display_name"`
	CreatedDate      time.Time     `json:"created_date"`
	Registered       bool          `json:"registered"`
	RegistrationDate *time.Time    `json:"registration_date"`
}

// readingView is the serialized form of a temperature reading. The
// thermometer field carries the parent's display name, not a reference,
// so reading payloads expose no ownership data.
type readingView struct {
	URL          string         `json:"url"`
	ID           int64          `json:"id"`
	Thermometer  string         `json:"thermometer"`
	DegreesC     thermo.Degrees `json:"degrees_c"`
	TimeRecorded time.Time      `json:"time_recorded"`
}

func thermometerURL(id string) string {
	return fmt.Sprintf("%s/thermometers/%s", apiBasePath, id)
}

func readingURL(id int64) string {
	return fmt.Sprintf("%s/temperature-readings/%d", apiBasePath, id)
}

func userURL(id string) string {
	return fmt.Sprintf("%s/users/%s", apiBasePath, id)
}

func newThermometerView(t *thermo.Thermometer) thermometerView {
	view := thermometerView{
		URL:              thermometerURL(t.ID),
		Temperatures:     make([]readingView, 0, len(t.Readings)),
		ThermID:          t.ID,
		DisplayName:      t.DisplayName,
		CreatedDate:      t.CreatedAt,
		Registered:       t.Registered,
		RegistrationDate: t.RegisteredAt,
	}
	if t.OwnerID != nil {
		owner := userURL(*t.OwnerID)
		view.Owner = &owner
	}
	for i := range t.Readings {
		view.Temperatures = append(view.Temperatures, newReadingView(&t.Readings[i]))
	}
	return view
}

func newReadingView(r *thermo.TemperatureReading) readingView {
	return readingView{
		URL:          readingURL(r.ID),
		ID:           r.ID,
		Thermometer:  r.ThermometerName,
		DegreesC:     r.DegreesCelsius,
		TimeRecorded: r.RecordedAt,
	}
}

func newThermometerViews(ts []thermo.Thermometer) []thermometerView {
	views := make([]thermometerView, 0, len(ts))
	for i := range ts {
		views = append(views, newThermometerView(&ts[i]))
	}
	return views
}

func newReadingViews(rs []thermo.TemperatureReading) []readingView {
	views := make([]readingView, 0, len(rs))
	for i := range rs {
		views = append(views, newReadingView(&rs[i]))
	}
	return views
}
