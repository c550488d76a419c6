package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"recipeshorts/internal/models"
)

// JobPage shows a job's progress, its failure, or the extracted recipe.
func JobPage(job models.Job) templ.Component {
	title := "레시피 추출 중"
	var body templ.Component
	switch {
	case job.Status == models.JobStatusCompleted && job.Result != nil && job.Result.Recipe != nil:
		title = job.Result.Recipe.Title
		body = recipeBody(job.Result)
	case job.Status == models.JobStatusFailed:
		title = "추출 실패"
		body = failedBody(job)
	default:
		body = progressBody(job)
	}
	return Layout(title, body)
}

func progressBody(job models.Job) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<meta http-equiv="refresh" content="3"><h1>레시피 추출 중</h1>`+
			`<p class="muted">%s</p><div class="progress"><div style="width:%d%%"></div></div><p>%d%%</p>`,
			templ.EscapeString(job.Message), job.Progress, job.Progress)
		return err
	})
}

func failedBody(job models.Job) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<h1>추출 실패</h1><p class="error">%s</p>`, templ.EscapeString(job.Message))
		return err
	})
}

func recipeBody(result *models.Result) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		r := result.Recipe
		var sb strings.Builder
		fmt.Fprintf(&sb, `<h1>%s</h1>`, templ.EscapeString(r.Title))
		if r.Description != "" {
			fmt.Fprintf(&sb, `<p>%s</p>`, templ.EscapeString(r.Description))
		}
		fmt.Fprintf(&sb, `<p class="muted">%s · %s · 난이도 %s</p>`,
			templ.EscapeString(r.Servings), templ.EscapeString(r.TotalTime), templ.EscapeString(r.Difficulty))
		if r.IsDegraded() {
			fmt.Fprintf(&sb, `<p class="error">%s</p>`, templ.EscapeString(r.Error))
		}

		if len(r.Ingredients) > 0 {
			sb.WriteString(`<h2>재료</h2><ul>`)
			for _, ing := range r.Ingredients {
				line := strings.TrimSpace(strings.Join([]string{ing.Name, ing.Amount + ing.Unit}, " "))
				if ing.Note != "" {
					line += " (" + ing.Note + ")"
				}
				fmt.Fprintf(&sb, `<li>%s</li>`, templ.EscapeString(line))
			}
			sb.WriteString(`</ul>`)
		}

		if len(r.Steps) > 0 {
			sb.WriteString(`<h2>조리 순서</h2><ol class="steps">`)
			for _, s := range r.Steps {
				fmt.Fprintf(&sb, `<li>%s<span class="ts">%s</span>`, templ.EscapeString(s.Instruction), timestamp(s.Timestamp))
				if s.Tips != "" {
					fmt.Fprintf(&sb, `<br><small>💡 %s</small>`, templ.EscapeString(s.Tips))
				}
				sb.WriteString(`</li>`)
			}
			sb.WriteString(`</ol>`)
		}

		if len(r.Tips) > 0 {
			sb.WriteString(`<h2>팁</h2><ul>`)
			for _, tip := range r.Tips {
				fmt.Fprintf(&sb, `<li>%s</li>`, templ.EscapeString(tip))
			}
			sb.WriteString(`</ul>`)
		}

		if v := result.VideoInfo; v != nil {
			fmt.Fprintf(&sb, `<p class="muted">출처: <a href="%s">%s</a></p>`,
				templ.EscapeString(string(templ.URL(v.URL))), templ.EscapeString(v.Title))
		}
		_, err := io.WriteString(w, sb.String())
		return err
	})
}

func timestamp(sec float64) string {
	total := int(sec)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
