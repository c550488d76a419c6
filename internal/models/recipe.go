package models

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Unit   string `json:"unit"`
	Note   string `json:"note,omitempty"`
}

// Step is one cooking step.
type Step struct {
	StepNumber  int     `json:"step_number"`
	Instruction string  `json:"instruction"`
	Timestamp   float64 `json:"timestamp"` // seconds into the video
	Duration    string  `json:"duration,omitempty"`
	Details     string  `json:"details,omitempty"`
	Tips        string  `json:"tips,omitempty"`
}

// Recipe is the structured output of recipe parsing.
// A degraded recipe (parse failure) carries Error and the raw transcript text.
type Recipe struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Servings    string       `json:"servings"`
	TotalTime   string       `json:"total_time"`
	Difficulty  string       `json:"difficulty"`
	Ingredients []Ingredient `json:"ingredients"`
	Steps       []Step       `json:"steps"`
	Tips        []string     `json:"tips"`
	RawText     string       `json:"raw_text,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// TotalSteps returns the number of steps.
func (r *Recipe) TotalSteps() int {
	if r == nil {
		return 0
	}
	return len(r.Steps)
}

// StepAt returns the 1-based step n, or false when out of range.
func (r *Recipe) StepAt(n int) (Step, bool) {
	if r == nil || n < 1 || n > len(r.Steps) {
		return Step{}, false
	}
	return r.Steps[n-1], true
}

// IsDegraded reports whether the recipe is a placeholder produced on parse failure.
func (r *Recipe) IsDegraded() bool {
	return r != nil && r.Error != ""
}

// Segment is a timestamped piece of transcript text.
type Segment struct {
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
	Text  string  `json:"text"`
}

// Transcript is the text extracted from a video, from subtitles or speech-to-text.
type Transcript struct {
	FullText string    `json:"full_text"`
	Segments []Segment `json:"segments"`
	Language string    `json:"language,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Source   string    `json:"source,omitempty"`
}

// VideoInfo describes a downloaded video and its on-disk artifacts.
type VideoInfo struct {
	VideoID   string  `json:"video_id"`
	Title     string  `json:"title"`
	Author    string  `json:"author,omitempty"`
	Duration  float64 `json:"duration"` // seconds
	URL       string  `json:"url"`
	VideoPath string  `json:"video_path"`
	AudioPath string  `json:"audio_path"`
}

// SubtitleInfo points at a subtitle file written to the job directory.
type SubtitleInfo struct {
	Path            string `json:"subtitle_path"`
	Language        string `json:"language"`
	IsAutoGenerated bool   `json:"is_auto_generated"`
}

// Timing records per-stage elapsed seconds.
type Timing struct {
	Download         float64 `json:"download"`
	Transcript       float64 `json:"transcript"`
	TranscriptSource string  `json:"transcript_source"`
	Parsing          float64 `json:"parsing"`
	Total            float64 `json:"total"`
}

// Result is attached to a Job on successful completion.
type Result struct {
	Recipe     *Recipe     `json:"recipe"`
	VideoInfo  *VideoInfo  `json:"video_info"`
	Transcript *Transcript `json:"transcript"`
	Timing     Timing      `json:"timing"`
}
