package chunker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Header/footer crop margins in points (1 pt = 1/72 inch).
const (
	cropTop    = 46.0
	cropBottom = 57.0
)

// pdfExtractor validates and pre-crops the PDF with pdfcpu, then sends
// it to an external converter service that returns markdown.
type pdfExtractor struct {
	converterURL string
	client       *http.Client
}

func newPDFExtractor(converterURL string) *pdfExtractor {
	return &pdfExtractor{
		converterURL: converterURL,
		client:       &http.Client{Timeout: 5 * time.Minute},
	}
}

type converterResponse struct {
	Document struct {
		MdContent string `json:"md_content"`
	} `json:"document"`
}

func (p *pdfExtractor) Extract(ctx context.Context, path string) (string, error) {
	pages, err := api.PageCountFile(path)
	if err != nil {
		return "", fmt.Errorf("invalid pdf: %w", err)
	}
	if pages == 0 {
		return "", fmt.Errorf("pdf has no pages")
	}

	cropped, err := cropHeaderFooter(path)
	if err != nil {
		// Cropping is best-effort; conversion still works on the raw file.
		cropped = path
	} else {
		defer os.Remove(cropped)
	}

	return p.convertToMarkdown(ctx, cropped)
}

// cropHeaderFooter writes a copy of the PDF with page headers and
// footers cropped away, so running titles do not pollute every chunk.
func cropHeaderFooter(path string) (string, error) {
	conf := api.LoadConfiguration()

	box, err := model.ParseBox(fmt.Sprintf("%.2f 0 %.2f 0", cropTop, cropBottom), pdftypes.POINTS)
	if err != nil {
		return "", fmt.Errorf("failed to parse crop box: %w", err)
	}

	out := filepath.Join(os.TempDir(), fmt.Sprintf("cropped_%d_%s", time.Now().UnixNano(), filepath.Base(path)))
	if err := api.CropFile(path, out, []string{"1-"}, box, conf); err != nil {
		return "", fmt.Errorf("failed to crop pdf: %w", err)
	}
	return out, nil
}

func (p *pdfExtractor) convertToMarkdown(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.converterURL, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("converter request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("converter error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var conv converterResponse
	if err := json.NewDecoder(resp.Body).Decode(&conv); err != nil {
		return "", fmt.Errorf("decode converter response: %w", err)
	}
	return conv.Document.MdContent, nil
}
