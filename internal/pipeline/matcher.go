package pipeline

import (
	"strings"

	"github.com/hireops/hireops/internal/store"
)

// MatchJob picks the best open job for a classified application.
// Scoring: +10 per detected-role word (longer than two characters)
// found in the job title, +5 per job skill present in the role or
// resume text, +3 when the department appears there too. Ties and
// all-zero scores fall back to the first open job.
func MatchJob(jobs []*store.Job, detectedRole, resumeText string) *store.Job {
	var open []*store.Job
	for _, j := range jobs {
		if j.Status == store.JobStatusOpen {
			open = append(open, j)
		}
	}
	if len(open) == 0 {
		return nil
	}

	haystack := strings.ToLower(detectedRole + " " + resumeText)
	roleWords := strings.Fields(strings.ToLower(detectedRole))

	best := open[0]
	bestScore := 0
	for _, job := range open {
		score := 0
		title := strings.ToLower(job.Title)
		for _, w := range roleWords {
			if len(w) > 2 && strings.Contains(title, w) {
				score += 10
			}
		}
		for _, skill := range append(append([]string{}, job.MustHaveSkills...), job.NiceToHaveSkills...) {
			if skill != "" && strings.Contains(haystack, strings.ToLower(skill)) {
				score += 5
			}
		}
		if job.Department != "" && strings.Contains(haystack, strings.ToLower(job.Department)) {
			score += 3
		}
		if score > bestScore {
			best = job
			bestScore = score
		}
	}
	return best
}
