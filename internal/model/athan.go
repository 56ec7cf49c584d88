package model

import (
	"fmt"
	"strings"
)

type PrayerKey string

const (
	Fajr    PrayerKey = "Fajr"
	Dhuhr   PrayerKey = "Dhuhr"
	Asr     PrayerKey = "Asr"
	Maghrib PrayerKey = "Maghrib"
	Isha    PrayerKey = "Isha"
)

// PrayerOrder is the order prayers occur in a day.
var PrayerOrder = []PrayerKey{Fajr, Dhuhr, Asr, Maghrib, Isha}

var prayerNames = map[PrayerKey]string{
	Fajr:    "Sabah",
	Dhuhr:   "Öğle",
	Asr:     "İkindi",
	Maghrib: "Akşam",
	Isha:    "Yatsı",
}

// DisplayName returns the Turkish vakit name shown on the panel.
func (k PrayerKey) DisplayName() string {
	if name, ok := prayerNames[k]; ok {
		return name
	}
	return string(k)
}

// PrayerTimeTable maps each prayer to its "HH:MM" start for the current day.
type PrayerTimeTable map[PrayerKey]string

// PrayerTimesResponse mirrors GET /api/prayer-times.
type PrayerTimesResponse struct {
	Times      map[string]string `json:"times"`
	IsTomorrow bool              `json:"is_tomorrow,omitempty"`
}

// Table keeps the five known prayers and normalises each value to "HH:MM".
// Entries such as "05:12 (+03)" are cut down to the clock part.
func (r PrayerTimesResponse) Table() (PrayerTimeTable, error) {
	table := make(PrayerTimeTable, len(PrayerOrder))
	for _, key := range PrayerOrder {
		raw, ok := r.Times[string(key)]
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		if len(raw) > 5 {
			raw = raw[:5]
		}
		if !IsClockTime(raw) {
			return nil, fmt.Errorf("prayer %s: invalid time %q", key, r.Times[string(key)])
		}
		table[key] = raw
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("prayer times response has no known prayers")
	}
	return table, nil
}

// Match returns the prayer whose start equals hhmm.
func (t PrayerTimeTable) Match(hhmm string) (PrayerKey, bool) {
	for _, key := range PrayerOrder {
		if t[key] == hhmm {
			return key, true
		}
	}
	return "", false
}

// Next returns the first prayer strictly after hhmm, wrapping to the
// earliest one of the day when every prayer has passed.
func (t PrayerTimeTable) Next(hhmm string) (PrayerKey, bool) {
	var first PrayerKey
	for _, key := range PrayerOrder {
		at, ok := t[key]
		if !ok {
			continue
		}
		if first == "" {
			first = key
		}
		if at > hhmm {
			return key, true
		}
	}
	return first, first != ""
}
