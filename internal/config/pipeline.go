// internal/config/pipeline.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// PipelineConfig holds the tuning knobs of the segmentation and relevance stages.
type PipelineConfig struct {
	Headline  HeadlineTuning  `yaml:"headline"`
	Segment   SegmentTuning   `yaml:"segment"`
	Crop      CropTuning      `yaml:"crop"`
	Related   RelatedTuning   `yaml:"related"`
	Search    SearchTuning    `yaml:"search"`
	Keywords  KeywordTuning   `yaml:"keywords"`
	Batch     BatchTuning     `yaml:"batch"`
	Embedding EmbeddingTuning `yaml:"embedding"`
}

type HeadlineTuning struct {
	StdDevFactor float64 `yaml:"stddev_factor"`
	MinLength    int     `yaml:"min_length"`
}

type SegmentTuning struct {
	MinContentLength int     `yaml:"min_content_length"`
	Padding          float64 `yaml:"padding"`
	MaxTitleLength   int     `yaml:"max_title_length"`
}

type CropTuning struct {
	Scale    float64 `yaml:"scale"`
	MaxWidth int     `yaml:"max_width"`
	Quality  int     `yaml:"quality"`
}

type RelatedTuning struct {
	Threshold    float64 `yaml:"threshold"`
	TopN         int     `yaml:"top_n"`
	ContentChars int     `yaml:"content_chars"`
}

type SearchTuning struct {
	MinScore      float64 `yaml:"min_score"`
	DefaultLimit  int     `yaml:"default_limit"`
	SnippetLength int     `yaml:"snippet_length"`
	ContentChars  int     `yaml:"content_chars"`
	CorpusLimit   int     `yaml:"corpus_limit"`
}

type KeywordTuning struct {
	TopN         int `yaml:"top_n"`
	HashtagCount int `yaml:"hashtag_count"`
	SummaryTopN  int `yaml:"summary_top_n"`
}

type BatchTuning struct {
	Size int `yaml:"size"`
}

type EmbeddingTuning struct {
	BatchSize int `yaml:"batch_size"`
	CacheTTL  int `yaml:"cache_ttl_seconds"`
}

// DefaultPipeline returns the values used when no tuning file is given.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		Headline: HeadlineTuning{StdDevFactor: 0.5, MinLength: 10},
		Segment:  SegmentTuning{MinContentLength: 50, Padding: 10, MaxTitleLength: 200},
		Crop:     CropTuning{Scale: 2.0, MaxWidth: 800, Quality: 60},
		Related:  RelatedTuning{Threshold: 0.3, TopN: 5, ContentChars: 500},
		Search: SearchTuning{
			MinScore:      0.1,
			DefaultLimit:  10,
			SnippetLength: 200,
			ContentChars:  500,
			CorpusLimit:   1000,
		},
		Keywords:  KeywordTuning{TopN: 10, HashtagCount: 5, SummaryTopN: 20},
		Batch:     BatchTuning{Size: 10},
		Embedding: EmbeddingTuning{BatchSize: 32, CacheTTL: 86400},
	}
}

// LoadPipeline reads a YAML tuning file. An empty path yields the defaults, and
// any field left at zero (or set negative) keeps its default.
func LoadPipeline(path string) (PipelineConfig, error) {
	defaults := DefaultPipeline()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("read pipeline config: %w", err)
	}

	var cfg PipelineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return defaults, fmt.Errorf("parse pipeline config: %w", err)
	}
	cfg.fillDefaults(defaults)
	return cfg, nil
}

func (c *PipelineConfig) fillDefaults(d PipelineConfig) {
	floatOr(&c.Headline.StdDevFactor, d.Headline.StdDevFactor)
	intOr(&c.Headline.MinLength, d.Headline.MinLength)

	intOr(&c.Segment.MinContentLength, d.Segment.MinContentLength)
	floatOr(&c.Segment.Padding, d.Segment.Padding)
	intOr(&c.Segment.MaxTitleLength, d.Segment.MaxTitleLength)

	floatOr(&c.Crop.Scale, d.Crop.Scale)
	intOr(&c.Crop.MaxWidth, d.Crop.MaxWidth)
	intOr(&c.Crop.Quality, d.Crop.Quality)
	if c.Crop.Quality > 100 {
		c.Crop.Quality = 100
	}

	floatOr(&c.Related.Threshold, d.Related.Threshold)
	intOr(&c.Related.TopN, d.Related.TopN)
	intOr(&c.Related.ContentChars, d.Related.ContentChars)

	floatOr(&c.Search.MinScore, d.Search.MinScore)
	intOr(&c.Search.DefaultLimit, d.Search.DefaultLimit)
	intOr(&c.Search.SnippetLength, d.Search.SnippetLength)
	intOr(&c.Search.ContentChars, d.Search.ContentChars)
	intOr(&c.Search.CorpusLimit, d.Search.CorpusLimit)

	intOr(&c.Keywords.TopN, d.Keywords.TopN)
	intOr(&c.Keywords.HashtagCount, d.Keywords.HashtagCount)
	intOr(&c.Keywords.SummaryTopN, d.Keywords.SummaryTopN)

	intOr(&c.Batch.Size, d.Batch.Size)

	intOr(&c.Embedding.BatchSize, d.Embedding.BatchSize)
	intOr(&c.Embedding.CacheTTL, d.Embedding.CacheTTL)
}

func floatOr(v *float64, def float64) {
	if *v <= 0 {
		*v = def
	}
}

func intOr(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}
