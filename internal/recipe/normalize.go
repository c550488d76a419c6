package recipe

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"recipeshorts/internal/models"
)

// Defaults applied to fields the model leaves out.
const (
	DefaultTitle      = "레시피"
	DefaultServings   = "1인분"
	DefaultDifficulty = "보통"
	FailedTitle       = "레시피 (파싱 실패)"
)

var fencedJSON = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// extractJSON strips a markdown code fence around the model output, if any.
func extractJSON(text string) string {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}

// decodeRecipe parses model output into a recipe, tolerating loosely typed fields.
func decodeRecipe(text string) (*models.Recipe, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return nil, &decodeError{err: err}
	}
	return normalize(raw), nil
}

// decodeError marks output that was not a JSON object. It is worth another attempt.
type decodeError struct{ err error }

func (e *decodeError) Error() string { return "invalid recipe JSON: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func normalize(raw map[string]any) *models.Recipe {
	r := &models.Recipe{
		Title:       stringOr(raw["title"], DefaultTitle),
		Description: stringOr(raw["description"], ""),
		Servings:    stringOr(raw["servings"], DefaultServings),
		TotalTime:   stringOr(raw["total_time"], ""),
		Difficulty:  stringOr(raw["difficulty"], DefaultDifficulty),
		Ingredients: []models.Ingredient{},
		Steps:       []models.Step{},
		Tips:        []string{},
	}

	for _, v := range asSlice(raw["ingredients"]) {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		ing := models.Ingredient{
			Name:   toString(m["name"]),
			Amount: toString(m["amount"]),
			Unit:   toString(m["unit"]),
			Note:   toString(m["note"]),
		}
		if ing.Name != "" {
			r.Ingredients = append(r.Ingredients, ing)
		}
	}

	for i, v := range asSlice(raw["steps"]) {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		n, ok := toInt(m["step_number"])
		if !ok {
			n = i + 1
		}
		r.Steps = append(r.Steps, models.Step{
			StepNumber:  n,
			Instruction: strings.ReplaceAll(toString(m["instruction"]), `\n`, "\n"),
			Timestamp:   math.Max(0, toFloat(m["timestamp"])),
			Duration:    toString(m["duration"]),
			Details:     toString(m["details"]),
			Tips:        toString(m["tips"]),
		})
	}

	for _, v := range asSlice(raw["tips"]) {
		if s := toString(v); s != "" {
			r.Tips = append(r.Tips, s)
		}
	}
	return r
}

// Placeholder builds the degraded recipe returned when parsing is impossible.
func Placeholder(title, description, rawText, errText string) *models.Recipe {
	if title == "" {
		title = DefaultTitle
	}
	return &models.Recipe{
		Title:       title,
		Description: description,
		Servings:    DefaultServings,
		Difficulty:  DefaultDifficulty,
		Ingredients: []models.Ingredient{},
		Steps:       []models.Step{},
		Tips:        []string{},
		RawText:     rawText,
		Error:       errText,
	}
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func stringOr(v any, def string) string {
	if v == nil {
		return def
	}
	return toString(v)
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x), "s")), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return 0
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}
