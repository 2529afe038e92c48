// Package checklist implements the template definition model: normalization of
// untrusted persisted shapes, reconciliation of stored answers against a
// possibly-changed definition, and score derivation. All functions are pure
// and never touch the database.
package checklist

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/rlombardo/audit-king/model"
)

const (
	fallbackSectionTitle  = "Section"
	fallbackQuestionLabel = "Question"
)

// Normalize converts an arbitrary decoded JSON tree purporting to be a
// definition into a canonical model.Definition. It is total: malformed or
// partial input degrades to defaults, it never fails. Well-formed canonical
// input round-trips unchanged (no field loss, no reordering).
//
// Accepted looseness, accumulated from older persisted shapes:
//   - a section's question list made of plain label strings (no ids, no type):
//     each entry gets a fresh id and the yes/no default type
//   - alternate field names ("name" for section title, "text"/"question" for
//     a question label, snake_case capability flags)
//   - missing ids (fresh id), missing arrays (empty), unknown types (yes/no)
//   - option lists of plain strings (key doubles as label)
//
// Section ids are unique within the definition and question ids are unique
// across all sections: a colliding id from the input is replaced with a fresh
// one, so answer reconciliation always has an unambiguous key.
func Normalize(raw any) model.Definition {
	def := model.Definition{Sections: []model.Section{}}

	root, ok := raw.(map[string]any)
	if !ok {
		return def
	}

	seenSections := map[string]bool{}
	seenQuestions := map[string]bool{}
	for _, rs := range asSlice(root["sections"]) {
		def.Sections = append(def.Sections, normalizeSection(rs, seenSections, seenQuestions))
	}
	return def
}

// NormalizeJSON decodes raw JSON and normalizes it. Malformed JSON degrades
// to an empty definition.
func NormalizeJSON(data []byte) model.Definition {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return model.Definition{Sections: []model.Section{}}
	}
	return Normalize(raw)
}

func normalizeSection(raw any, seenSections, seenQuestions map[string]bool) model.Section {
	section := model.Section{Questions: []model.Question{}}

	rs, ok := raw.(map[string]any)
	if !ok {
		section.ID = claimID("", seenSections)
		section.Title = fallbackSectionTitle
		return section
	}

	section.ID = claimID(stringField(rs, "id"), seenSections)
	section.Title = stringField(rs, "title", "name")
	if section.Title == "" {
		section.Title = fallbackSectionTitle
	}
	section.HeaderImage = stringField(rs, "headerImage", "header_image", "logo")

	for _, rq := range asSlice(rs["questions"]) {
		section.Questions = append(section.Questions, normalizeQuestion(rq, seenQuestions))
	}
	return section
}

func normalizeQuestion(raw any, seen map[string]bool) model.Question {
	// Legacy shape: the question is a bare label string.
	if label, ok := raw.(string); ok {
		q := model.Question{
			ID:   claimID("", seen),
			Type: model.TypeYesNo,
		}
		q.Label = label
		if q.Label == "" {
			q.Label = fallbackQuestionLabel
		}
		return q
	}

	rq, ok := raw.(map[string]any)
	if !ok {
		return model.Question{
			ID:    claimID("", seen),
			Label: fallbackQuestionLabel,
			Type:  model.TypeYesNo,
		}
	}

	q := model.Question{}
	q.ID = claimID(stringField(rq, "id"), seen)
	q.Label = stringField(rq, "label", "text", "question")
	if q.Label == "" {
		q.Label = fallbackQuestionLabel
	}
	q.Type = normalizeType(stringField(rq, "type"))
	if q.Type == model.TypeSelect {
		q.Options = normalizeOptions(rq["options"])
	}
	q.AllowNotes = boolField(rq, "allowNotes", "allow_notes", "notes")
	q.AllowPhoto = boolField(rq, "allowPhoto", "allow_photo", "photo")
	q.Required = boolField(rq, "required", "mandatory")
	return q
}

func normalizeType(s string) model.QuestionType {
	switch model.QuestionType(s) {
	case model.TypeYesNo, model.TypeQuality, model.TypeSelect, model.TypeText:
		return model.QuestionType(s)
	}
	// Aliases seen in older template rows.
	switch s {
	case "yesno", "yes_no_na", "boolean":
		return model.TypeYesNo
	case "rating", "good_fair_poor":
		return model.TypeQuality
	case "choice", "dropdown", "single_select":
		return model.TypeSelect
	case "freetext", "textarea":
		return model.TypeText
	}
	return model.TypeYesNo
}

func normalizeOptions(raw any) []model.Option {
	opts := []model.Option{}
	for _, ro := range asSlice(raw) {
		switch o := ro.(type) {
		case string:
			if o != "" {
				opts = append(opts, model.Option{Key: o, Label: o})
			}
		case map[string]any:
			opt := model.Option{
				Key:   stringField(o, "key", "value", "id"),
				Label: stringField(o, "label", "text"),
			}
			if opt.Key == "" {
				opt.Key = opt.Label
			}
			if opt.Label == "" {
				opt.Label = opt.Key
			}
			if opt.Key != "" {
				opts = append(opts, opt)
			}
		}
	}
	return opts
}

// claimID registers id in seen, minting a fresh one when the input omitted
// it or another element already claimed it.
func claimID(id string, seen map[string]bool) string {
	if id == "" || seen[id] {
		id = uuid.NewString()
	}
	seen[id] = true
	return id
}

func asSlice(raw any) []any {
	s, _ := raw.([]any)
	return s
}

func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func boolField(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if b, ok := m[k].(bool); ok {
			return b
		}
	}
	return false
}
