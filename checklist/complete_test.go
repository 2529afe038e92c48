package checklist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rlombardo/audit-king/model"
)

func TestMissingRequired(t *testing.T) {
	yes := model.ChoiceYes
	empty := ""

	items := []model.AnswerItem{
		{QuestionLabel: "Answered", Required: true, ChoiceKey: &yes},
		{QuestionLabel: "Blank", Required: true},
		{QuestionLabel: "Empty text", Required: true, ChoiceKey: &empty},
		{QuestionLabel: "Optional blank", Required: false},
	}

	assert.Equal(t, []string{"Blank", "Empty text"}, MissingRequired(items))
	assert.Empty(t, MissingRequired(nil))
}
