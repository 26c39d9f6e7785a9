package transform

import "github.com/gitbasheer/pgql-migrate/pkg/opcatalog"

// Confidence is a Transformation's numeric score and the category it
// falls into under a given set of thresholds.
type Confidence struct {
	Score    int
	Category string // "automatic" | "semi-automatic" | "manual"
}

// Score combines per-change weights, starting from 100 and flooring at
// 0: field-rename and argument-rename cost 5 points, path-rewrite costs
// 15, comment-out costs 30; a change touching a fragment-interpolation
// site costs an additional 10, and a change triggered by a vague rule
// costs an additional 20.
func Score(changes []opcatalog.Change, thresholds Thresholds) Confidence {
	score := 100
	for _, c := range changes {
		switch c.Kind {
		case opcatalog.ChangeFieldRename, opcatalog.ChangeArgumentRename:
			score -= 5
		case opcatalog.ChangePathRewrite:
			score -= 15
		case opcatalog.ChangeCommentOut:
			score -= 30
		}
		if c.TouchesInterpolation {
			score -= 10
		}
		if c.Vague {
			score -= 20
		}
	}

	if score < 0 {
		score = 0
	}

	category := "manual"
	switch {
	case score >= thresholds.Automatic:
		category = "automatic"
	case score >= thresholds.SemiAutomatic:
		category = "semi-automatic"
	}

	return Confidence{Score: score, Category: category}
}
