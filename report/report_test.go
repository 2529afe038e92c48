package report

import (
	"archive/zip"
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlombardo/audit-king/checklist"
	"github.com/rlombardo/audit-king/model"
)

func inspectionFixture(questions int) (model.Template, model.Inspection) {
	section := model.Section{ID: "s1", Title: "Walkthrough"}
	for i := 0; i < questions; i++ {
		section.Questions = append(section.Questions, model.Question{
			ID:    fmt.Sprintf("q%d", i),
			Label: fmt.Sprintf("Checkpoint %d: is the area maintained according to procedure?", i),
			Type:  model.TypeYesNo,
		})
	}
	tpl := model.Template{
		ID:         "tpl1",
		Name:       "Warehouse Audit",
		Definition: model.Definition{Sections: []model.Section{section}},
	}
	insp := model.Inspection{
		ID:           "abc123",
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		SiteName:     "Depot 7",
		Status:       model.StatusInProgress,
		StartedAt:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
		Items:        checklist.Reconcile(tpl.Definition, nil),
	}
	return tpl, insp
}

func TestRenderProducesPDF(t *testing.T) {
	tpl, insp := inspectionFixture(5)

	var buf bytes.Buffer
	err := Render(&buf, tpl, insp, Options{EmbedImages: true})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestRenderPaginatesLongInspections(t *testing.T) {
	tpl, insp := inspectionFixture(120)

	pdf := build(tpl, insp, Options{})
	require.False(t, pdf.Err())
	assert.Greater(t, pdf.PageCount(), 1, "120 questions cannot fit a single page")

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))

	// Question order must survive the page breaks.
	text := pdfContentText(t, buf.Bytes())
	last := -1
	for i := 0; i < 120; i++ {
		pos := strings.Index(text, fmt.Sprintf("Checkpoint %d:", i))
		require.GreaterOrEqual(t, pos, 0, "checkpoint %d missing from rendered output", i)
		assert.Greater(t, pos, last, "checkpoint %d rendered out of order", i)
		last = pos
	}
}

var reContentStream = regexp.MustCompile(`(?s)stream\r?\n(.*?)endstream`)

// pdfContentText inflates every content stream in the document and returns
// the concatenated drawing operations, in emission order.
func pdfContentText(t *testing.T, data []byte) string {
	t.Helper()

	var out strings.Builder
	for _, m := range reContentStream.FindAllSubmatch(data, -1) {
		zr, err := zlib.NewReader(bytes.NewReader(m[1]))
		if err != nil {
			continue // not a flate stream (e.g. font data)
		}
		inflated, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			continue
		}
		out.Write(inflated)
	}
	require.NotEmpty(t, out.String())
	return out.String()
}

func TestRenderBulkZipsOnePDFPerInspection(t *testing.T) {
	tpl, insp := inspectionFixture(3)
	other := insp
	other.ID = "def456"

	var buf bytes.Buffer
	err := RenderBulk(&buf, []Export{
		{Template: tpl, Inspection: insp},
		{Template: tpl, Inspection: other},
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "warehouse-audit-abc123.pdf", zr.File[0].Name)
	assert.Equal(t, "warehouse-audit-def456.pdf", zr.File[1].Name)
}

func TestFilename(t *testing.T) {
	insp := model.Inspection{ID: "42", TemplateName: "Fire & Safety -- Q1!"}
	assert.Equal(t, "fire-safety-q1-42.pdf", Filename(insp))

	assert.Equal(t, "inspection-42.pdf", Filename(model.Inspection{ID: "42"}))
}

func TestDisplayAnswer(t *testing.T) {
	key, label := "yes", "Yes"
	free := "pump pressure at 4.2 bar"

	assert.Equal(t, "Yes", displayAnswer(model.AnswerItem{
		QuestionType: model.TypeYesNo, ChoiceKey: &key, ChoiceLabel: &label,
	}))
	assert.Equal(t, "yes", displayAnswer(model.AnswerItem{
		QuestionType: model.TypeYesNo, ChoiceKey: &key,
	}))
	assert.Equal(t, free, displayAnswer(model.AnswerItem{
		QuestionType: model.TypeText, ChoiceKey: &free,
	}))
	assert.Equal(t, "Not answered", displayAnswer(model.AnswerItem{
		QuestionType: model.TypeQuality,
	}))
}

func TestWrapText(t *testing.T) {
	lines := wrapText("alpha beta gamma delta", 11)
	assert.Equal(t, []string{"alpha beta", "gamma delta"}, lines)

	lines = wrapText("supercalifragilistic", 7)
	assert.Equal(t, []string{"superca", "lifragi", "listic"}, lines)

	assert.Equal(t, []string{""}, wrapText("   ", 10))
}

func TestWrapTextSplitsOnRuneBoundaries(t *testing.T) {
	lines := wrapText("Überhitzungsschutzschalter", 10)
	assert.Equal(t, []string{"Überhitzun", "gsschutzsc", "halter"}, lines)
	for _, line := range lines {
		assert.True(t, utf8.ValidString(line))
	}

	// width counts runes, not bytes, when filling a line with short words
	lines = wrapText("éé éé éé", 5)
	assert.Equal(t, []string{"éé éé", "éé"}, lines)
}
