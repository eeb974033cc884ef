package printing

import (
	"context"

	"go.uber.org/zap"
)

// DocumentPrinter turns documents into PDF files
type DocumentPrinter struct {
	engine   *TemplateEngine
	renderer PDFRenderer
	paper    PaperSize
	logger   *zap.Logger
}

// NewDocumentPrinter creates a printer using renderer for the PDF step
func NewDocumentPrinter(renderer PDFRenderer, paper PaperSize, logger *zap.Logger) *DocumentPrinter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !paper.IsValid() {
		paper = PaperSizeA4
	}
	return &DocumentPrinter{
		engine:   NewTemplateEngine(),
		renderer: renderer,
		paper:    paper,
		logger:   logger,
	}
}

// HTML renders doc without converting it
func (p *DocumentPrinter) HTML(doc *Document) (string, error) {
	return p.engine.Render(doc)
}

// PDF renders doc to a PDF file
func (p *DocumentPrinter) PDF(ctx context.Context, doc *Document) ([]byte, error) {
	html, err := p.engine.Render(doc)
	if err != nil {
		return nil, err
	}
	f := NewFormatter(doc.Locale, doc.Currency)
	result, err := p.renderer.Render(ctx, &RenderRequest{
		HTML:      html,
		Title:     f.Label(doc.Title()) + " " + doc.Number,
		PaperSize: p.paper,
		Margins:   DefaultMargins(),
		FooterHTML: `<div style="font-size:8px;width:100%;text-align:center;color:#7b8794">` +
			f.Label("Page") + ` <span class="pageNumber"></span> ` + f.Label("of") + ` <span class="totalPages"></span></div>`,
	})
	if err != nil {
		return nil, err
	}
	p.logger.Info("Document printed",
		zap.String("kind", string(doc.Kind)),
		zap.String("number", doc.Number),
		zap.Int("pages", result.PageCount))
	return result.PDFData, nil
}

// Close releases the renderer
func (p *DocumentPrinter) Close() error {
	return p.renderer.Close()
}
