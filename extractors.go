package riverlevel

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Fallback sentinels for station metadata extraction. These are safe to use
// directly as metric label values; they identify a station whose metadata
// could not be fetched or parsed, as opposed to a measurement, where a
// fabricated value would be misleading.
const (
	// UnknownStation is the fallback station label.
	UnknownStation = "Unknown Station"

	// UnknownReference is the fallback for station IDs and grid references.
	UnknownReference = "UNKNOWN"
)

// FlexFloat is a float64 that tolerates the Environment Agency API's loose
// typing: reading values arrive sometimes as JSON numbers and sometimes as
// numeric strings ("1.23"). Any other shape (null, object, non-numeric
// string) unmarshals to an absent value rather than an error, so a single
// malformed field never fails the surrounding document decode.
type FlexFloat struct {
	value   float64
	present bool
}

// Float64 returns the numeric value and whether one was present.
func (f FlexFloat) Float64() (float64, bool) {
	return f.value, f.present
}

// UnmarshalJSON implements json.Unmarshaler. It never returns an error for
// unexpected value shapes; those simply leave the value absent.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.value, f.present = n, true
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			f.value, f.present = n, true
		}
		return nil
	}

	// null, object, array, bool: absent
	return nil
}

// MeasurementResponse is the decoded shape of a flood-monitoring measure
// document (river level or rainfall).
//
// Only the fields the exporter reads are modelled. Every level is optional;
// extraction falls back gracefully when any of them is missing.
type MeasurementResponse struct {
	Items *MeasurementItems `json:"items"`
}

// MeasurementItems holds the measure payload under the top-level "items" key.
type MeasurementItems struct {
	LatestReading *LatestReading `json:"latestReading"`
}

// LatestReading is the most recent sensor reading reported for a measure.
type LatestReading struct {
	Value    FlexFloat `json:"value"`
	DateTime string    `json:"dateTime"`
}

// StationResponse is the decoded shape of a flood-monitoring station
// document (metadata plus stage-scale thresholds).
type StationResponse struct {
	Items *StationItems `json:"items"`
}

// StationItems holds the station payload under the top-level "items" key.
type StationItems struct {
	Label            string      `json:"label"`
	StationReference string      `json:"stationReference"`
	GridReference    string      `json:"gridReference"`
	StageScale       *StageScale `json:"stageScale"`
}

// StageScale carries the station's level thresholds.
type StageScale struct {
	TypicalRangeHigh FlexFloat    `json:"typicalRangeHigh"`
	MaxOnRecord      *MaxOnRecord `json:"maxOnRecord"`
}

// MaxOnRecord is the highest level ever recorded at a station.
type MaxOnRecord struct {
	Value    FlexFloat `json:"value"`
	DateTime string    `json:"dateTime"`
}

// ParseMeasurement decodes a measure API response body.
//
// A decode error means the body was not the expected document shape at all
// (not JSON, or structurally incompatible); callers treat that the same as
// an absent document and fall back per field.
func ParseMeasurement(body []byte) (*MeasurementResponse, error) {
	var doc MeasurementResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ParseStation decodes a station API response body.
func ParseStation(body []byte) (*StationResponse, error) {
	var doc StationResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ExtractReading returns the latest reading value from a measurement
// document. The boolean is false when the document is absent, any
// intermediate key is missing, or the value is not numeric; callers must
// skip the metric update rather than publish a zero.
func ExtractReading(doc *MeasurementResponse) (float64, bool) {
	if doc == nil || doc.Items == nil || doc.Items.LatestReading == nil {
		return 0, false
	}
	return doc.Items.LatestReading.Value.Float64()
}

// ExtractTypicalHigh returns the station's typical-range-high threshold.
// The boolean is false when the value is absent; callers skip the update.
func ExtractTypicalHigh(doc *StationResponse) (float64, bool) {
	if doc == nil || doc.Items == nil || doc.Items.StageScale == nil {
		return 0, false
	}
	return doc.Items.StageScale.TypicalRangeHigh.Float64()
}

// ExtractRecordMax returns the station's highest level on record.
// The boolean is false when the value is absent; callers skip the update.
func ExtractRecordMax(doc *StationResponse) (float64, bool) {
	if doc == nil || doc.Items == nil || doc.Items.StageScale == nil ||
		doc.Items.StageScale.MaxOnRecord == nil {
		return 0, false
	}
	return doc.Items.StageScale.MaxOnRecord.Value.Float64()
}

// ExtractStationName returns the station's display label, or
// [UnknownStation] when the document or label is absent. The fallback is
// safe to use directly as a metric label value.
func ExtractStationName(doc *StationResponse) string {
	if doc == nil || doc.Items == nil || doc.Items.Label == "" {
		return UnknownStation
	}
	return doc.Items.Label
}

// ExtractStationID returns the station reference identifier, or
// [UnknownReference] when absent.
func ExtractStationID(doc *StationResponse) string {
	if doc == nil || doc.Items == nil || doc.Items.StationReference == "" {
		return UnknownReference
	}
	return doc.Items.StationReference
}

// ExtractGridReference returns the station's OS grid reference, or
// [UnknownReference] when absent.
func ExtractGridReference(doc *StationResponse) string {
	if doc == nil || doc.Items == nil || doc.Items.GridReference == "" {
		return UnknownReference
	}
	return doc.Items.GridReference
}

// NormalizeGridReference canonicalizes a grid reference for use as a metric
// label: uppercased, embedded spaces replaced with underscores.
func NormalizeGridReference(ref string) string {
	return strings.ToUpper(strings.ReplaceAll(ref, " ", "_"))
}
