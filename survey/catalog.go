package survey

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/korjavin/sanbot/models"
)

// CatalogSize is the number of items in the SAN questionnaire. The category
// split in engine.go is defined over exactly this many items, so a catalog
// of any other size is rejected at load time.
const CatalogSize = 30

// LoadCatalog reads the question catalog from a JSON file. Items must be
// numbered 1..30 in presentation order.
func LoadCatalog(path string) ([]models.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var questions []models.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if len(questions) != CatalogSize {
		return nil, fmt.Errorf("catalog has %d questions, want %d", len(questions), CatalogSize)
	}
	for i, q := range questions {
		if q.Number != i+1 {
			return nil, fmt.Errorf("catalog item at position %d has number %d, want %d", i, q.Number, i+1)
		}
		if q.Positive == "" || q.Negative == "" {
			return nil, fmt.Errorf("catalog item %d has an empty pole label", q.Number)
		}
	}

	return questions, nil
}
