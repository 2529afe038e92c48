package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlombardo/audit-king/model"
)

func stubComplete(t *testing.T, response string, err error) {
	t.Helper()
	orig := complete
	complete = func(ctx context.Context, c *Client, system, user string) (string, error) {
		return response, err
	}
	t.Cleanup(func() { complete = orig })
}

func TestExtractNormalizesModelOutput(t *testing.T) {
	stubComplete(t, "```json\n"+`{
		"name": "Fire Safety",
		"description": "Quarterly walk-through",
		"sections": [{
			"title": "Extinguishers",
			"questions": [
				{"label": "Pressure in green zone?", "type": "yes_no", "required": true},
				{"label": "Mount condition", "type": "quality", "allowPhoto": true},
				"Access path clear?"
			]
		}]
	}`+"\n```", nil)

	ex, err := (&Client{}).Extract(context.Background(), "some document text", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, "Fire Safety", ex.Name)
	assert.Equal(t, "Quarterly walk-through", ex.Description)
	require.Len(t, ex.Definition.Sections, 1)
	qs := ex.Definition.Sections[0].Questions
	require.Len(t, qs, 3)
	assert.Equal(t, model.TypeYesNo, qs[0].Type)
	assert.True(t, qs[0].Required)
	assert.Equal(t, model.TypeQuality, qs[1].Type)
	// legacy bare-string question from the model still gets an id and a type
	assert.NotEmpty(t, qs[2].ID)
	assert.Equal(t, model.TypeYesNo, qs[2].Type)
}

func TestExtractMalformedJSON(t *testing.T) {
	stubComplete(t, "Sure! Here is your template: sections are...", nil)

	_, err := (&Client{}).Extract(context.Background(), "text", 3, 5)
	assert.ErrorIs(t, err, ErrBadModelOutput)
}

func TestExtractUpstreamError(t *testing.T) {
	stubComplete(t, "", errors.New("rate limited"))

	_, err := (&Client{}).Extract(context.Background(), "text", 3, 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBadModelOutput)
}
