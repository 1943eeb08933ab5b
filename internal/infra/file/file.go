// Package file reads authored content and session setups from YAML files.
package file

import (
	"fmt"
	"os"

	"gameshow-service/internal/app"
	"gameshow-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// ContentFile is the layout of a content file.
type ContentFile struct {
	Questions []domain.BaseQuestion `yaml:"questions"`
}

// ReadQuestions decodes the questions of a content file.
func ReadQuestions(path string) ([]domain.BaseQuestion, error) {
	var doc ContentFile
	if err := decode(path, &doc); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(doc.Questions))
	for i, q := range doc.Questions {
		if q.ID == "" {
			return nil, fmt.Errorf("%s: question %d has no id", path, i)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%s: duplicate question id %q", path, q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.Type == domain.TypeOddOneOut && (q.OddOneOut == nil || q.OddOneOut.OddIndex() < 0) {
			return nil, fmt.Errorf("%s: question %q needs exactly one odd item", path, q.ID)
		}
	}
	return doc.Questions, nil
}

// ReadSetup decodes a session setup file.
func ReadSetup(path string) (app.Setup, error) {
	var setup app.Setup
	if err := decode(path, &setup); err != nil {
		return app.Setup{}, err
	}
	return setup, nil
}

func decode(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
