// Command ocrscan recognizes text on raster page images using the
// Tesseract-backed recognizer and prints plain text or a JSON report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"time"

	"github.com/wudi/ocrkit/engine/tesseract"
	"github.com/wudi/ocrkit/pipeline"
	"github.com/wudi/ocrkit/raster"
)

type options struct {
	paths     []string
	languages []string
	asJSON    bool
	timeout   time.Duration
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocrscan: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "ocrscan: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: go run ./cmd/ocrscan [flags] <image>...\n")
		flag.PrintDefaults()
	}
	langs := flag.String("lang", "eng", "Comma-separated Tesseract language packs")
	asJSON := flag.Bool("json", false, "Emit a JSON report instead of plain text")
	timeout := flag.Duration("timeout", 2*time.Minute, "Per-image recognition timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return options{}, fmt.Errorf("missing image path")
	}
	opts.paths = flag.Args()
	for _, l := range strings.Split(*langs, ",") {
		if l = strings.TrimSpace(l); l != "" {
			opts.languages = append(opts.languages, l)
		}
	}
	opts.asJSON = *asJSON
	opts.timeout = *timeout
	return opts, nil
}

type lineReport struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	X0         float64 `json:"x0"`
	Y0         float64 `json:"y0"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
}

type pageReport struct {
	Path       string       `json:"path"`
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	Lines      []lineReport `json:"lines"`
}

func run(opts options) error {
	rec := tesseract.New(tesseract.WithLanguages(opts.languages...))
	reports := make([]pageReport, 0, len(opts.paths))
	for _, path := range opts.paths {
		res, err := scanOne(rec, path, opts.timeout)
		if err != nil {
			return fmt.Errorf("scan %s: %w", path, err)
		}
		if !opts.asJSON {
			fmt.Println(res.Text)
			continue
		}
		report := pageReport{Path: path, Text: res.Text, Confidence: res.Confidence}
		for _, ln := range res.Lines {
			report.Lines = append(report.Lines, lineReport{
				Text:       ln.Text,
				Confidence: ln.Confidence,
				X0:         ln.BBox.X0,
				Y0:         ln.BBox.Y0,
				X1:         ln.BBox.X1,
				Y1:         ln.BBox.Y1,
			})
		}
		reports = append(reports, report)
	}
	if opts.asJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		fmt.Printf("%s\n", data)
	}
	return nil
}

func scanOne(rec pipeline.PageRecognizer, path string, timeout time.Duration) (*pipeline.PageResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return rec.RecognizePage(ctx, raster.FromImage(img))
}
