package pdf

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"go-cvlibrary-scraper/internal/models"

	"github.com/playwright-community/playwright-go"
)

//go:embed templates/candidate.html
var candidateTemplate string

// PageFunc opens a fresh page to render into. The generator closes it.
type PageFunc func() (playwright.Page, error)

// Generator turns saved candidate records into one-page PDF sheets.
type Generator struct {
	tmpl    *template.Template
	newPage PageFunc
}

func NewGenerator(newPage PageFunc) (*Generator, error) {
	funcMap := template.FuncMap{
		"join":    strings.Join,
		"deref":   derefOr("n/a"),
		"percent": func(f float64) float64 { return f * 100 },
	}
	tmpl, err := template.New("candidate").Funcs(funcMap).Parse(candidateTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &Generator{tmpl: tmpl, newPage: newPage}, nil
}

func derefOr(fallback string) func(*string) string {
	return func(s *string) string {
		if s == nil || strings.TrimSpace(*s) == "" {
			return fallback
		}
		return *s
	}
}

// HTML renders the candidate sheet without touching the browser.
func (g *Generator) HTML(rec *models.CandidateRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, rec); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// Generate renders rec and prints it to an A4 PDF.
func (g *Generator) Generate(rec *models.CandidateRecord) ([]byte, error) {
	html, err := g.HTML(rec)
	if err != nil {
		return nil, err
	}

	page, err := g.newPage()
	if err != nil {
		return nil, fmt.Errorf("could not create new page: %w", err)
	}
	defer page.Close()

	if err := page.SetContent(string(html), playwright.PageSetContentOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		return nil, fmt.Errorf("could not set page content: %w", err)
	}

	pdfBytes, err := page.PDF(playwright.PagePdfOptions{
		Format:          playwright.String("A4"),
		PrintBackground: playwright.Bool(true),
		Margin: &playwright.Margin{
			Top:    playwright.String("12mm"),
			Bottom: playwright.String("12mm"),
			Left:   playwright.String("0"),
			Right:  playwright.String("0"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not generate PDF: %w", err)
	}
	return pdfBytes, nil
}

// ExportFile reads a candidate JSON file and writes the PDF next to it with
// the same base name. It returns the PDF path.
func (g *Generator) ExportFile(jsonPath string) (string, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", err
	}
	var rec models.CandidateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return "", fmt.Errorf("parse %s: %w", jsonPath, err)
	}
	if rec.SearchResult.CVID == "" && rec.CandidateInfo.Name == "" {
		return "", fmt.Errorf("%s is not a candidate record", jsonPath)
	}

	pdfBytes, err := g.Generate(&rec)
	if err != nil {
		return "", err
	}
	out := strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath)) + ".pdf"
	return out, SaveToFile(pdfBytes, out)
}

// CandidateFiles lists the candidate_*.json files in dir.
func CandidateFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "candidate_*.json"))
}

func SaveToFile(pdfBytes []byte, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("could not create directory: %w", err)
	}

	return os.WriteFile(outputPath, pdfBytes, 0644)
}
