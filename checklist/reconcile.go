package checklist

import "github.com/rlombardo/audit-king/model"

type answerKey struct {
	sectionID  string
	questionID string
}

// Reconcile produces exactly one answer row per question currently in def, in
// definition order. Prior answers are matched by (section id, question id);
// matched rows carry their value, notes, photos and provenance forward, while
// Required, QuestionLabel and QuestionType are always refreshed from the
// current question (capability flags can change between template edits).
// Questions with no prior answer get a blank row; prior rows whose question is
// gone are dropped. Reconciling an already-reconciled sequence against the
// same definition is the identity.
func Reconcile(def model.Definition, prior []model.AnswerItem) []model.AnswerItem {
	byKey := make(map[answerKey]model.AnswerItem, len(prior))
	for _, item := range prior {
		byKey[answerKey{item.SectionID, item.QuestionID}] = item
	}

	items := []model.AnswerItem{}
	for _, section := range def.Sections {
		for _, q := range section.Questions {
			item, ok := byKey[answerKey{section.ID, q.ID}]
			if !ok {
				item = model.AnswerItem{
					SectionID:  section.ID,
					QuestionID: q.ID,
					Photos:     []string{},
				}
			}
			item.QuestionLabel = q.Label
			item.QuestionType = q.Type
			item.Required = q.Required
			if item.Photos == nil {
				item.Photos = []string{}
			}
			items = append(items, item)
		}
	}
	return items
}
