package models

import (
	"path/filepath"
	"strings"
)

type DocumentType string

const (
	DocumentPDF   DocumentType = "pdf"
	DocumentImage DocumentType = "image"
	DocumentSheet DocumentType = "sheet"
)

// DefaultFolders are created on first start.
var DefaultFolders = []string{"Licenses", "Contracts", "Receipts", "Identity", "Vehicle", "Property"}

// Document is a stored file record. Size is a human-readable label such as "2.4 MB".
type Document struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       DocumentType `json:"type"`
	Size       string       `json:"size"`
	Date       string       `json:"date"`
	ExpiryDate string       `json:"expiry_date,omitempty"`
	Folder     string       `json:"folder"`
}

type Folder struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DocumentTypeFromName guesses the document type from the file extension.
func DocumentTypeFromName(name string) DocumentType {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "jpg", "jpeg", "png", "gif", "webp", "heic", "bmp", "tif", "tiff":
		return DocumentImage
	case "xls", "xlsx", "csv", "ods", "numbers", "tsv":
		return DocumentSheet
	default:
		return DocumentPDF
	}
}
