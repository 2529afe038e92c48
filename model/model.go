package model

import "time"

type QuestionType string

const (
	// TypeYesNo is the yes/no/n-a checkpoint, the default question type.
	TypeYesNo QuestionType = "yes_no"
	// TypeQuality is the good/fair/poor rating.
	TypeQuality QuestionType = "quality"
	// TypeSelect is a single choice from a template-defined option list.
	TypeSelect QuestionType = "select"
	// TypeText is a free-text answer.
	TypeText QuestionType = "text"
)

// Choice keys for the fixed-variant question types.
const (
	ChoiceYes  = "yes"
	ChoiceNo   = "no"
	ChoiceNA   = "na"
	ChoiceGood = "good"
	ChoiceFair = "fair"
	ChoicePoor = "poor"
)

type Definition struct {
	Sections []Section `json:"sections"`
}

type Section struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	HeaderImage string     `json:"headerImage,omitempty"`
	Questions   []Question `json:"questions"`
}

type Question struct {
	ID         string       `json:"id"`
	Label      string       `json:"label"`
	Type       QuestionType `json:"type"`
	Options    []Option     `json:"options,omitempty"`
	AllowNotes bool         `json:"allowNotes"`
	AllowPhoto bool         `json:"allowPhoto"`
	Required   bool         `json:"required"`
}

type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type Template struct {
	ID          string     `json:"id,omitempty"`
	Version     int        `json:"version,omitempty"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Definition  Definition `json:"definition"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt,omitempty"`
}

const (
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
)

// AnswerItem is the per-question response record inside an inspection.
// The whole sequence is persisted wholesale on every save.
type AnswerItem struct {
	SectionID      string       `json:"sectionId"`
	QuestionID     string       `json:"questionId"`
	QuestionLabel  string       `json:"questionLabel"`
	QuestionType   QuestionType `json:"questionType"`
	ChoiceKey      *string      `json:"choiceKey"`
	ChoiceLabel    *string      `json:"choiceLabel"`
	Notes          string       `json:"notes,omitempty"`
	Photos         []string     `json:"photos"`
	Required       bool         `json:"required"`
	AnsweredByID   string       `json:"answeredByUserId,omitempty"`
	AnsweredByName string       `json:"answeredByName,omitempty"`
}

type Inspection struct {
	ID           string       `json:"id"`
	TemplateID   string       `json:"templateId"`
	TemplateName string       `json:"templateName"`
	SiteName     string       `json:"siteName"`
	Status       string       `json:"status"`
	Score        *int         `json:"score"`
	StartedAt    time.Time    `json:"startedAt"`
	SubmittedAt  *time.Time   `json:"submittedAt"`
	Items        []AnswerItem `json:"items"`
	OwnerID      string       `json:"ownerId,omitempty"`
	OwnerName    string       `json:"ownerName,omitempty"`
}
