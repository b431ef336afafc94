// internal/models/article.go
package models

import "time"

// Article is one segmented region of a newspaper page together with its annotations.
type Article struct {
	ArticleID       string    `json:"article_id" bson:"article_id"`
	JobID           string    `json:"job_id" bson:"job_id"`
	Page            int       `json:"page" bson:"page"`
	Title           string    `json:"title" bson:"title"`
	Content         string    `json:"content" bson:"content"`
	Summary         string    `json:"summary,omitempty" bson:"summary,omitempty"`
	Keywords        []string  `json:"keywords" bson:"keywords"`
	Hashtags        []string  `json:"hashtags" bson:"hashtags"`
	CropImage       []byte    `json:"crop_image_base64,omitempty" bson:"crop_image,omitempty"` // JPEG, base64 in JSON
	RelatedArticles []string  `json:"related_articles" bson:"related_articles"`
	BBox            BBox      `json:"-" bson:"-"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}

// KeywordCount is one row of a job's keyword summary.
type KeywordCount struct {
	Keyword string `json:"keyword" bson:"keyword"`
	Count   int    `json:"count" bson:"count"`
}

// SearchResult is the public projection of a scored article.
type SearchResult struct {
	ArticleID      string   `json:"article_id"`
	Title          string   `json:"title"`
	Snippet        string   `json:"snippet"`
	Keywords       []string `json:"keywords"`
	CropImage      []byte   `json:"crop_image_base64,omitempty"`
	Page           int      `json:"page"`
	RelevanceScore float64  `json:"relevance_score"`
}
