// Command docverify runs the verification pipeline from the command line:
// score and extract a single document, compare two documents, or process a
// directory as a batch. Results are printed as JSON on stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docverify/config"
	"docverify/imageio"
	"docverify/observability"
	"docverify/ocr"
	"docverify/ocr/tesseract"
	"docverify/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional YAML threshold overrides")
		timeout    = flag.Duration("ocr-timeout", 30*time.Second, "per-document OCR timeout")
		workers    = flag.Int("workers", 0, "batch worker count (0 = CPU count)")
		languages  = flag.String("languages", "eng", "comma-separated OCR language hints")
		quiet      = flag.Bool("quiet", false, "suppress progress logging")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: docverify [flags] <image>")
		fmt.Fprintln(os.Stderr, "       docverify [flags] compare <image-a> <image-b>")
		fmt.Fprintln(os.Stderr, "       docverify [flags] batch <dir>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log := observability.Logger(observability.NopLogger{})
	if !*quiet {
		var err error
		log, err = observability.NewZapLogger()
		if err != nil {
			fatal(err)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	p := pipeline.New(tesseract.New(), cfg,
		pipeline.WithLogger(log),
		pipeline.WithOCRTimeout(*timeout),
		pipeline.WithInputOptions(languageOptions(*languages)...))

	ctx := context.Background()
	switch flag.Arg(0) {
	case "compare":
		if flag.NArg() != 3 {
			flag.Usage()
			os.Exit(2)
		}
		runCompare(ctx, p, flag.Arg(1), flag.Arg(2))
	case "batch":
		if flag.NArg() != 2 {
			flag.Usage()
			os.Exit(2)
		}
		runBatch(ctx, p, log, flag.Arg(1), *workers)
	default:
		runSingle(ctx, p, flag.Arg(0))
	}
}

func runSingle(ctx context.Context, p *pipeline.Pipeline, path string) {
	doc, err := imageio.Open(path)
	if err != nil {
		fatal(err)
	}
	res, err := p.ProcessDocument(ctx, doc)
	if err != nil {
		fatal(err)
	}
	emit(res.Record())
}

func runCompare(ctx context.Context, p *pipeline.Pipeline, pathA, pathB string) {
	a, err := imageio.Open(pathA)
	if err != nil {
		fatal(err)
	}
	b, err := imageio.Open(pathB)
	if err != nil {
		fatal(err)
	}
	res, err := p.Compare(ctx, a, b)
	if err != nil {
		fatal(err)
	}
	emit(res.Record())
}

func runBatch(ctx context.Context, p *pipeline.Pipeline, log observability.Logger, dir string, workers int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		fatal(err)
	}
	var docs []*imageio.DocumentImage
	errs := map[string]string{}
	for _, e := range entries {
		if e.IsDir() || !imageio.SupportedExtension(e.Name()) {
			continue
		}
		doc, err := imageio.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			errs[e.Name()] = err.Error()
			continue
		}
		docs = append(docs, doc)
	}

	batchID := uuid.NewString()
	log.Info("batch started",
		observability.String("batch", batchID),
		observability.Int("documents", len(docs)))

	res, err := p.ProcessBatch(ctx, docs, workers)
	if err != nil {
		fatal(err)
	}

	out := struct {
		BatchID string                     `json:"batch_id"`
		Results map[string]json.RawMessage `json:"results"`
		Errors  map[string]string          `json:"errors,omitempty"`
	}{BatchID: batchID, Results: map[string]json.RawMessage{}, Errors: errs}
	for _, item := range res.Items {
		if item.Err != nil {
			out.Errors[item.ID] = item.Err.Error()
			continue
		}
		raw, err := json.Marshal(item.Result.Record())
		if err != nil {
			fatal(err)
		}
		out.Results[item.ID] = raw
	}
	emit(out)
}

func languageOptions(csv string) []ocr.InputOption {
	var langs []string
	for _, l := range strings.Split(csv, ",") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		return nil
	}
	return []ocr.InputOption{ocr.WithLanguages(langs...)}
}

func emit(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "docverify:", err)
	os.Exit(1)
}
