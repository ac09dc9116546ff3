// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the records and configuration shared by the
// pdfextract stages: figure captions, OCR pages, page descriptions, and the
// per-stage configuration structs.
package types

// FigureCaption pairs an image extracted from a PDF page with the caption
// text found directly below it. Caption is never empty and ImagePath names a
// file that was written before the record was produced.
type FigureCaption struct {
	// Page is the 1-based page number the image was found on.
	Page int `json:"page" yaml:"page"`

	// ImagePath is the path of the written image file.
	ImagePath string `json:"image_path" yaml:"image_path"`

	// Caption is the joined caption text.
	Caption string `json:"caption" yaml:"caption"`
}

// PageDescription is a vision-model description of one rasterized page.
type PageDescription struct {
	Page        int    `json:"page" yaml:"page"`
	Image       string `json:"image" yaml:"image"`
	Description string `json:"description" yaml:"description"`
}

// OCRPage records the files written for one OCR'd page. ImagePath is empty
// when page images were not saved.
type OCRPage struct {
	Page      int    `json:"page" yaml:"page"`
	ImagePath string `json:"image_path,omitempty" yaml:"image_path,omitempty"`
	TextPath  string `json:"text_path" yaml:"text_path"`
}

// PageText holds the text layer of one page.
type PageText struct {
	Page int    `json:"page" yaml:"page"`
	Text string `json:"text" yaml:"text"`
}

// Status is the outcome of processing one document in a batch.
type Status string

const (
	StatusDone   Status = "done"
	StatusFailed Status = "failed"
)
