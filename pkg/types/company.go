// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Company is one counterparty folder directly under the processing root.
type Company struct {
	// Name is the folder name and the value written to the Company column.
	Name string `json:"name" yaml:"name"`

	// Path is the absolute or root-relative folder path.
	Path string `json:"path" yaml:"path"`
}

// DocumentStats counts extraction outcomes for a company's documents.
// Total always equals Successful + Failed.
type DocumentStats struct {
	Total      int `json:"total" yaml:"total"`
	Successful int `json:"successful" yaml:"successful"`
	Failed     int `json:"failed" yaml:"failed"`
}

// CompanyText is the combined, analysis-ready text of one contract package.
type CompanyText struct {
	CombinedText    string        `json:"combined_text" yaml:"combined_text"`
	Stats           DocumentStats `json:"document_stats" yaml:"document_stats"`
	FailedDocuments []string      `json:"failed_documents" yaml:"failed_documents"`

	// Fingerprint identifies the document set (paths, sizes, mod times).
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
}
