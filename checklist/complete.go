package checklist

import "github.com/rlombardo/audit-king/model"

// MissingRequired returns the labels of required rows left unanswered, in
// sequence order. The in_progress -> submitted transition is allowed only
// when this comes back empty.
func MissingRequired(items []model.AnswerItem) []string {
	var missing []string
	for _, item := range items {
		if item.Required && (item.ChoiceKey == nil || *item.ChoiceKey == "") {
			missing = append(missing, item.QuestionLabel)
		}
	}
	return missing
}
