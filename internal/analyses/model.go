package analyses

// PageEstimateDivisor is the number of extracted characters counted as one transcript page.
const PageEstimateDivisor = 2000

// CourseInfo carries the catalog details attached to a recommended course.
type CourseInfo struct {
	CourseDescription string   `json:"course_description"`
	LikedPercentage   *float64 `json:"liked_percentage"`
	UsefulPercentage  *float64 `json:"useful_percentage"`
	EasyPercentage    *float64 `json:"easy_percentage"`
	URL               string   `json:"url"`
	Reviews           []string `json:"reviews"`
}

// Recommendation is one ranked course suggestion.
type Recommendation struct {
	CourseCode string     `json:"course_code"`
	Score      float64    `json:"score"`
	CourseInfo CourseInfo `json:"course_info"`
}

// Envelope is the normalized, client-owned view of one successful submission.
// Every field is always populated; lists are never nil.
type Envelope struct {
	FilesProcessed       int              `json:"filesProcessed"`
	TotalPages           int              `json:"totalPages"`
	ExtractedCourses     []string         `json:"extractedCourses"`
	Recommendations      []Recommendation `json:"recommendations"`
	TotalCoursesFound    int              `json:"totalCoursesFound"`
	TotalRecommendations int              `json:"totalRecommendations"`
}

// NewEnvelope derives an Envelope from a decoded payload. Absent lists become empty
// slices and absent counts become zero. One document is processed per submission.
func NewEnvelope(raw RawPayload) Envelope {
	env := Envelope{
		FilesProcessed:       1,
		TotalPages:           EstimatePages(derefInt(raw.RawTextLength)),
		ExtractedCourses:     []string{},
		Recommendations:      []Recommendation{},
		TotalCoursesFound:    derefInt(raw.TotalCoursesFound),
		TotalRecommendations: derefInt(raw.TotalRecommendations),
	}
	if raw.ExtractedCourses != nil {
		env.ExtractedCourses = append(env.ExtractedCourses, raw.ExtractedCourses...)
	}
	for _, rec := range raw.Recommendations {
		env.Recommendations = append(env.Recommendations, rec.clone())
	}
	return env
}

// EstimatePages approximates a page count from extracted text length; never below one.
func EstimatePages(length int) int {
	pages := length / PageEstimateDivisor
	if pages <= 0 {
		return 1
	}
	return pages
}

// Clone returns a deep copy so callers cannot mutate a shared envelope.
func (e Envelope) Clone() Envelope {
	out := e
	out.ExtractedCourses = append([]string{}, e.ExtractedCourses...)
	out.Recommendations = make([]Recommendation, 0, len(e.Recommendations))
	for _, rec := range e.Recommendations {
		out.Recommendations = append(out.Recommendations, rec.clone())
	}
	return out
}

// normalize fills nil lists left behind by decoding a stored envelope.
func (e Envelope) normalize() Envelope {
	if e.ExtractedCourses == nil {
		e.ExtractedCourses = []string{}
	}
	if e.Recommendations == nil {
		e.Recommendations = []Recommendation{}
	}
	return e
}

func (r Recommendation) clone() Recommendation {
	out := r
	out.CourseInfo.LikedPercentage = cloneFloat(r.CourseInfo.LikedPercentage)
	out.CourseInfo.UsefulPercentage = cloneFloat(r.CourseInfo.UsefulPercentage)
	out.CourseInfo.EasyPercentage = cloneFloat(r.CourseInfo.EasyPercentage)
	if r.CourseInfo.Reviews != nil {
		out.CourseInfo.Reviews = append([]string{}, r.CourseInfo.Reviews...)
	}
	return out
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
