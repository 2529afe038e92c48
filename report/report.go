// Package report serializes an inspection against its template into a
// paginated PDF. The single-inspection path embeds header and answer photos;
// the bulk path only reports photo counts and bundles one PDF per inspection
// into a zip archive.
package report

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/rlombardo/audit-king/model"
)

const (
	pageMargin   = 15.0
	pageBottom   = 282.0 // A4 height minus bottom margin, mm
	lineHeight   = 5.5
	imageWidth   = 60.0
	charsPerLine = 95
)

type Options struct {
	// EmbedImages switches on raster embedding of section header images and
	// answer photos. Off in the bulk export path.
	EmbedImages bool
}

type Export struct {
	Template   model.Template
	Inspection model.Inspection
}

// Render writes the PDF for one inspection to w.
func Render(w io.Writer, tpl model.Template, insp model.Inspection, opts Options) error {
	return build(tpl, insp, opts).Output(w)
}

// RenderBulk writes a zip archive with one PDF per export to w. Photos are
// not embedded in this path.
func RenderBulk(w io.Writer, exports []Export) error {
	zw := zip.NewWriter(w)
	for _, ex := range exports {
		entry, err := zw.Create(Filename(ex.Inspection))
		if err != nil {
			return err
		}
		err = Render(entry, ex.Template, ex.Inspection, Options{EmbedImages: false})
		if err != nil {
			return err
		}
	}
	return zw.Close()
}

var reSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Filename derives the deterministic download name from the inspection's
// template name and id.
func Filename(insp model.Inspection) string {
	slug := strings.ToLower(insp.TemplateName)
	slug = strings.Trim(reSlug.ReplaceAllString(slug, "-"), "-")
	if slug == "" {
		slug = "inspection"
	}
	return fmt.Sprintf("%s-%s.pdf", slug, insp.ID)
}

// writer tracks the running vertical cursor over the page and breaks to a
// fresh page whenever the next block would not fit.
type writer struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
	y   float64
}

func build(tpl model.Template, insp model.Inspection, opts Options) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pw := &writer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), y: pageMargin}

	pw.heading(insp.TemplateName, 16)
	pw.line(fmt.Sprintf("Site: %s", insp.SiteName), "")
	pw.line(fmt.Sprintf("Started: %s", insp.StartedAt.Format("2006-01-02 15:04")), "")
	if insp.SubmittedAt != nil {
		pw.line(fmt.Sprintf("Submitted: %s", insp.SubmittedAt.Format("2006-01-02 15:04")), "")
	}
	if insp.Score != nil {
		pw.line(fmt.Sprintf("Score: %d%%", *insp.Score), "B")
	}
	if insp.OwnerName != "" {
		pw.line(fmt.Sprintf("Inspector: %s", insp.OwnerName), "")
	}
	pw.gap()

	byKey := map[string]model.AnswerItem{}
	for _, item := range insp.Items {
		byKey[item.SectionID+"\x00"+item.QuestionID] = item
	}

	for _, section := range tpl.Definition.Sections {
		if opts.EmbedImages && section.HeaderImage != "" {
			pw.image(section.HeaderImage)
		}
		pw.heading(section.Title, 13)

		for _, q := range section.Questions {
			item, ok := byKey[section.ID+"\x00"+q.ID]
			if !ok {
				item = model.AnswerItem{
					QuestionLabel: q.Label,
					QuestionType:  q.Type,
				}
			}
			pw.line(item.QuestionLabel, "B")
			pw.line("Answer: "+displayAnswer(item), "")
			if item.Notes != "" {
				pw.line("Notes: "+item.Notes, "")
			}
			if len(item.Photos) > 0 {
				if opts.EmbedImages {
					for _, photo := range item.Photos {
						pw.image(photo)
					}
				} else {
					pw.line(fmt.Sprintf("Photos attached: %d", len(item.Photos)), "I")
				}
			}
			if item.AnsweredByName != "" {
				pw.line("Answered by: "+item.AnsweredByName, "I")
			}
			pw.gap()
		}
	}
	return pdf
}

// displayAnswer resolves the printable answer: free text prints the typed
// value verbatim, choice types prefer the display label over the raw key.
func displayAnswer(item model.AnswerItem) string {
	if item.QuestionType == model.TypeText {
		if item.ChoiceKey != nil && *item.ChoiceKey != "" {
			return *item.ChoiceKey
		}
		return "Not answered"
	}
	if item.ChoiceLabel != nil && *item.ChoiceLabel != "" {
		return *item.ChoiceLabel
	}
	if item.ChoiceKey != nil && *item.ChoiceKey != "" {
		return *item.ChoiceKey
	}
	return "Not answered"
}

func (pw *writer) breakIfNeeded(height float64) {
	if pw.y+height > pageBottom {
		pw.pdf.AddPage()
		pw.y = pageMargin
	}
}

func (pw *writer) heading(text string, size float64) {
	pw.pdf.SetFont("Helvetica", "B", size)
	for _, line := range wrapText(text, charsPerLine) {
		pw.breakIfNeeded(lineHeight + 2)
		pw.pdf.Text(pageMargin, pw.y+lineHeight, pw.tr(line))
		pw.y += lineHeight + 2
	}
}

func (pw *writer) line(text, style string) {
	pw.pdf.SetFont("Helvetica", style, 10)
	for _, line := range wrapText(text, charsPerLine) {
		pw.breakIfNeeded(lineHeight)
		pw.pdf.Text(pageMargin, pw.y+lineHeight, pw.tr(line))
		pw.y += lineHeight
	}
}

func (pw *writer) gap() {
	pw.y += lineHeight / 2
}

// image embeds a base64 data-URL raster image at the cursor, scaled to a
// fixed width. Undecodable images are skipped; a report with a broken photo
// is better than no report.
func (pw *writer) image(dataURL string) {
	data, kind, ok := decodeDataURL(dataURL)
	if !ok {
		return
	}

	name := fmt.Sprintf("img%d", pw.pdf.PageNo()*10000+int(pw.y*10))
	imgOpts := gofpdf.ImageOptions{ImageType: kind, ReadDpi: true}
	info := pw.pdf.RegisterImageOptionsReader(name, imgOpts, bytes.NewReader(data))
	if info == nil || pw.pdf.Err() {
		pw.pdf.ClearError()
		return
	}

	height := imageWidth * info.Height() / info.Width()
	pw.breakIfNeeded(height + 2)
	pw.pdf.ImageOptions(name, pageMargin, pw.y, imageWidth, height, false, imgOpts, 0, "")
	pw.y += height + 2
}

var reDataURL = regexp.MustCompile(`^data:image/(png|jpe?g);base64,`)

func decodeDataURL(s string) (data []byte, kind string, ok bool) {
	m := reDataURL.FindStringSubmatch(s)
	if m == nil {
		return nil, "", false
	}
	data, err := base64.StdEncoding.DecodeString(s[len(m[0]):])
	if err != nil {
		return nil, "", false
	}
	kind = strings.ToUpper(m[1])
	if kind == "JPEG" || kind == "JPG" {
		kind = "JPG"
	}
	return data, kind, true
}

// wrapText breaks text into lines of at most width characters, splitting on
// spaces where possible. Width counts runes, so oversized words are never
// force-split in the middle of a multibyte character.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}

	lines := []string{}
	current, currentLen := "", 0
	for _, word := range words {
		runes := []rune(word)
		for len(runes) > width {
			if current != "" {
				lines = append(lines, current)
				current, currentLen = "", 0
			}
			lines = append(lines, string(runes[:width]))
			runes = runes[width:]
		}
		word = string(runes)
		switch {
		case current == "":
			current, currentLen = word, len(runes)
		case currentLen+1+len(runes) <= width:
			current += " " + word
			currentLen += 1 + len(runes)
		default:
			lines = append(lines, current)
			current, currentLen = word, len(runes)
		}
	}
	return append(lines, current)
}
