package enums

import "fmt"

// CatalogUploadMode selects how an ingested sheet is applied to the catalog.
type CatalogUploadMode string

const (
	CatalogUploadUpsert  CatalogUploadMode = "upsert"
	CatalogUploadReplace CatalogUploadMode = "replace"
)

// ParseCatalogUploadMode defaults to upsert for empty input.
func ParseCatalogUploadMode(value string) (CatalogUploadMode, error) {
	switch CatalogUploadMode(value) {
	case "", CatalogUploadUpsert:
		return CatalogUploadUpsert, nil
	case CatalogUploadReplace:
		return CatalogUploadReplace, nil
	}
	return "", fmt.Errorf("invalid catalog upload mode %q", value)
}
