package ticket

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type importFile struct {
	Tickets []importTicket `yaml:"tickets"`
}

type importTicket struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Comments    []string `yaml:"comments"`
}

// Import reads a YAML ticket file and creates one open ticket per entry.
// Returns the created keys in file order.
func (s *Store) Import(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	var f importFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}

	var keys []string
	for i, t := range f.Tickets {
		if t.Title == "" {
			return keys, fmt.Errorf("ticket %d: missing title", i+1)
		}
		key, err := s.Add(ctx, t.Title, t.Description)
		if err != nil {
			return keys, err
		}
		for _, body := range t.Comments {
			if err := s.AddComment(ctx, key, "import", body); err != nil {
				return keys, err
			}
		}
		keys = append(keys, key)
	}
	return keys, nil
}
