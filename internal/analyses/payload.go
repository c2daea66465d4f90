package analyses

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// RawPayload is the response body of the recommendation service for one document.
// Optional fields stay nil when the service omits them.
type RawPayload struct {
	FileName             string           `json:"filename,omitempty"`
	Size                 *int64           `json:"size,omitempty"`
	Message              string           `json:"message,omitempty"`
	Status               string           `json:"status,omitempty"`
	Error                string           `json:"error,omitempty"`
	ExtractedCourses     []string         `json:"extracted_courses"`
	CourseCodes          []string         `json:"course_codes,omitempty"`
	CourseNumbers        []string         `json:"course_numbers,omitempty"`
	RawTextLength        *int             `json:"raw_text_length"`
	Recommendations      []Recommendation `json:"recommendations"`
	TotalCoursesFound    *int             `json:"total_courses_found"`
	TotalRecommendations *int             `json:"total_recommendations"`
}

// DecodePayload is the only place untyped service output is interpreted. It returns an
// error wrapping ErrMalformedPayload when the body is not the expected structure, and a
// *ServiceError when the service reported a failure inside a success response.
func DecodePayload(body []byte) (RawPayload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return RawPayload{}, fmt.Errorf("%w: expected a JSON object", ErrMalformedPayload)
	}

	var raw RawPayload
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return RawPayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if msg := strings.TrimSpace(raw.Error); msg != "" {
		return RawPayload{}, &ServiceError{Message: msg}
	}
	if err := validatePayload(raw); err != nil {
		return RawPayload{}, err
	}
	return raw, nil
}

func validatePayload(raw RawPayload) error {
	if err := nonNegative("raw_text_length", raw.RawTextLength); err != nil {
		return err
	}
	if err := nonNegative("total_courses_found", raw.TotalCoursesFound); err != nil {
		return err
	}
	if err := nonNegative("total_recommendations", raw.TotalRecommendations); err != nil {
		return err
	}
	for i, rec := range raw.Recommendations {
		if rec.Score < 0 || rec.Score > 1 {
			return fmt.Errorf("%w: recommendations[%d].score %v outside [0,1]", ErrMalformedPayload, i, rec.Score)
		}
		metrics := []struct {
			name  string
			value *float64
		}{
			{"liked_percentage", rec.CourseInfo.LikedPercentage},
			{"useful_percentage", rec.CourseInfo.UsefulPercentage},
			{"easy_percentage", rec.CourseInfo.EasyPercentage},
		}
		for _, m := range metrics {
			if m.value == nil {
				continue
			}
			if *m.value < 0 || *m.value > 100 {
				return fmt.Errorf("%w: recommendations[%d].course_info.%s %v outside [0,100]", ErrMalformedPayload, i, m.name, *m.value)
			}
		}
	}
	return nil
}

func nonNegative(field string, v *int) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("%w: %s is negative", ErrMalformedPayload, field)
	}
	return nil
}

// EncodeEnvelope serializes an envelope for storage.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// DecodeEnvelope restores an envelope written by EncodeEnvelope.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return env.normalize(), nil
}
