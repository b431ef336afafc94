// cmd/segment/main.go
//
// segment runs extraction, segmentation and keyword extraction on one PDF and
// prints the articles without storing anything. It is meant for tuning the
// layout thresholds against real pages.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/app"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/config"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/embedding"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/imaging"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/layout"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/models"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/pdfdoc"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/services"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/textutil"
	"github.com/Mohammedfaiz-27/newspaper-PDF/internal/utils"
)

type output struct {
	Pages           int                   `json:"pages"`
	Articles        []models.Article      `json:"articles"`
	KeywordsSummary []models.KeywordCount `json:"keywords_summary"`
}

func main() {
	in := flag.String("in", "", "PDF file to segment")
	asJSON := flag.Bool("json", false, "print JSON instead of text")
	cropDir := flag.String("crops", "", "write article crops as JPEG files into this directory")
	tuning := flag.String("config", "", "pipeline tuning YAML file")
	verbose := flag.Bool("v", false, "debug logging on stderr")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	level := utils.WARNING
	if *verbose {
		level = utils.DEBUG
	}
	logger := utils.NewLogger(os.Stderr, level)

	pipeline, err := config.LoadPipeline(*tuning)
	if err != nil {
		log.Fatal(err)
	}

	out, err := run(context.Background(), *in, pipeline, logger)
	if err != nil {
		log.Fatal(err)
	}

	if *cropDir != "" {
		if err := writeCrops(*cropDir, out.Articles); err != nil {
			log.Fatal(err)
		}
	}

	if *asJSON {
		for i := range out.Articles {
			out.Articles[i].CropImage = nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.Fatal(err)
		}
		return
	}
	printText(out)
}

func run(ctx context.Context, path string, p config.PipelineConfig, logger *utils.Logger) (*output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := pdfdoc.Open(data, pdfdoc.WithScale(p.Crop.Scale), pdfdoc.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}

	segmenter := app.Segmenter(p)
	cropper := imaging.NewCropper(p.Crop.Scale, p.Crop.MaxWidth, p.Crop.Quality)
	jobID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	seq := layout.NewSequence(jobID)

	var articles []models.Article
	for _, page := range pages {
		var drafts []layout.Draft
		for _, d := range segmenter.Segment(page) {
			if textutil.RuneLen(strings.TrimSpace(d.Content)) > segmenter.MinContentLength {
				drafts = append(drafts, d)
			}
		}
		var pageArticles []models.Article
		pageArticles, seq = seq.Assign(drafts)
		if raster, ok := doc.Raster(page.Number); ok {
			for i := range pageArticles {
				pageArticles[i].CropImage = cropper.Crop(raster, pageArticles[i].BBox)
			}
		}
		doc.Release(page.Number)
		articles = append(articles, pageArticles...)
	}

	engine := embedding.NewEngine(embedding.NewHashingProvider(), nil, logger)
	keywords := services.NewStatisticalKeywordExtractor(engine, logger)
	lists := make([][]string, len(articles))
	for i := range articles {
		kw, err := keywords.ExtractKeywords(ctx, articles[i].Content, p.Keywords.TopN)
		if err != nil {
			logger.Warn("keyword extraction failed", map[string]interface{}{"article_id": articles[i].ArticleID, "error": err.Error()})
			kw = nil
		}
		articles[i].Keywords = services.NormalizeKeywords(kw, p.Keywords.TopN)
		articles[i].Hashtags = services.GenerateHashtags(articles[i].Keywords, p.Keywords.HashtagCount)
		lists[i] = articles[i].Keywords
	}

	related := services.NewRelatednessService(engine, p.Related.Threshold, p.Related.TopN, p.Related.ContentChars)
	links, err := related.FindRelated(ctx, articles)
	if err != nil {
		return nil, err
	}
	for i := range articles {
		articles[i].RelatedArticles = links[articles[i].ArticleID]
	}

	return &output{
		Pages:           len(pages),
		Articles:        articles,
		KeywordsSummary: services.KeywordSummary(lists, p.Keywords.SummaryTopN),
	}, nil
}

func writeCrops(dir string, articles []models.Article) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, a := range articles {
		if len(a.CropImage) == 0 {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, a.ArticleID+".jpg"), a.CropImage, 0644); err != nil {
			return err
		}
	}
	return nil
}

func printText(out *output) {
	fmt.Printf("%d pages, %d articles\n\n", out.Pages, len(out.Articles))
	for _, a := range out.Articles {
		fmt.Printf("[%s] page %d  %s\n", a.ArticleID, a.Page, a.Title)
		fmt.Printf("  bbox     (%.0f, %.0f) - (%.0f, %.0f)\n", a.BBox.X0, a.BBox.Y0, a.BBox.X1, a.BBox.Y1)
		fmt.Printf("  content  %s\n", services.ExtractSnippet(a.Content, 160))
		fmt.Printf("  keywords %s\n", strings.Join(a.Keywords, ", "))
		fmt.Printf("  hashtags %s\n", strings.Join(a.Hashtags, " "))
		if len(a.RelatedArticles) > 0 {
			fmt.Printf("  related  %s\n", strings.Join(a.RelatedArticles, ", "))
		}
		fmt.Println()
	}
	if len(out.KeywordsSummary) > 0 {
		fmt.Println("top keywords:")
		for _, k := range out.KeywordsSummary {
			fmt.Printf("  %-30s %d\n", k.Keyword, k.Count)
		}
	}
}
