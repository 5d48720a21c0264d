package handlebars

import (
	"fmt"
)

// TemplateString is a template carried inline in configuration or prompt
// definitions, validated and rendered without managing an Engine.
type TemplateString string

func (t TemplateString) Validate() error {
	_, err := Parse(string(t))
	if err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	return nil
}

func (t TemplateString) Render(ctx any) (string, error) {
	return New().Render(string(t), ctx)
}
