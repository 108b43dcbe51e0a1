package service

import (
	"context"
	"fmt"

	"github.com/Strob0t/TestRelay/internal/domain/classify"
	"github.com/Strob0t/TestRelay/internal/domain/trigger"
	"github.com/Strob0t/TestRelay/internal/port/hosting"
)

// Classifier yields the change-category flags for a pull request.
type Classifier interface {
	ClassifyChangedFiles(ctx context.Context, pullNumber int) (trigger.ChangeCategoryMap, error)
}

// PathClassifier buckets a pull request's changed file paths into categories
// using configured prefix rules.
type PathClassifier struct {
	files hosting.ChangeLister
	rules classify.Rules
}

// NewPathClassifier creates a classifier over the given change lister.
func NewPathClassifier(files hosting.ChangeLister, rules classify.Rules) *PathClassifier {
	return &PathClassifier{files: files, rules: rules}
}

// ClassifyChangedFiles implements Classifier.
func (c *PathClassifier) ClassifyChangedFiles(ctx context.Context, pullNumber int) (trigger.ChangeCategoryMap, error) {
	paths, err := c.files.ListChangedFiles(ctx, pullNumber)
	if err != nil {
		return nil, fmt.Errorf("classify pull %d: %w", pullNumber, err)
	}
	return c.rules.Apply(paths), nil
}
