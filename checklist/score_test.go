package checklist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlombardo/audit-king/model"
)

func answered(typ model.QuestionType, key string) model.AnswerItem {
	return model.AnswerItem{QuestionType: typ, ChoiceKey: &key}
}

func TestScoreYesNoWithNA(t *testing.T) {
	items := []model.AnswerItem{
		answered(model.TypeYesNo, model.ChoiceYes),
		answered(model.TypeYesNo, model.ChoiceNo),
		answered(model.TypeYesNo, model.ChoiceNA),
	}
	score := Score(items)
	require.NotNil(t, score)
	assert.Equal(t, 50, *score, "n/a row leaves the denominator")
}

func TestScoreQualityTiers(t *testing.T) {
	items := []model.AnswerItem{
		answered(model.TypeQuality, model.ChoiceGood),
		answered(model.TypeQuality, model.ChoiceFair),
		answered(model.TypeQuality, model.ChoicePoor),
	}
	score := Score(items)
	require.NotNil(t, score)
	assert.Equal(t, 50, *score)
}

func TestScoreUnansweredCountsAsZeroCredit(t *testing.T) {
	items := []model.AnswerItem{
		answered(model.TypeYesNo, model.ChoiceYes),
		{QuestionType: model.TypeYesNo}, // unanswered
	}
	score := Score(items)
	require.NotNil(t, score)
	assert.Equal(t, 50, *score)

	items = []model.AnswerItem{
		answered(model.TypeQuality, model.ChoiceGood),
		{QuestionType: model.TypeQuality}, // unanswered
	}
	score = Score(items)
	require.NotNil(t, score)
	assert.Equal(t, 50, *score)
}

func TestScoreNoScorableRows(t *testing.T) {
	v := "whatever"
	items := []model.AnswerItem{
		{QuestionType: model.TypeText, ChoiceKey: &v},
		{QuestionType: model.TypeSelect, ChoiceKey: &v},
	}
	assert.Nil(t, Score(items))
	assert.Nil(t, Score(nil))
}

func TestScoreAllNAReturnsNil(t *testing.T) {
	items := []model.AnswerItem{
		answered(model.TypeYesNo, model.ChoiceNA),
		answered(model.TypeYesNo, model.ChoiceNA),
	}
	assert.Nil(t, Score(items))
}

func TestScoreRounds(t *testing.T) {
	items := []model.AnswerItem{
		answered(model.TypeYesNo, model.ChoiceYes),
		answered(model.TypeYesNo, model.ChoiceYes),
		answered(model.TypeYesNo, model.ChoiceNo),
	}
	score := Score(items)
	require.NotNil(t, score)
	assert.Equal(t, 67, *score)
}

func TestScoreMixedTypes(t *testing.T) {
	v := "text answer"
	items := []model.AnswerItem{
		answered(model.TypeYesNo, model.ChoiceYes),    // 1/1
		answered(model.TypeQuality, model.ChoiceFair), // 1/2
		{QuestionType: model.TypeText, ChoiceKey: &v}, // excluded
		answered(model.TypeYesNo, model.ChoiceNA),     // excluded
	}
	score := Score(items)
	require.NotNil(t, score)
	assert.Equal(t, 67, *score) // round(100*2/3)
}
