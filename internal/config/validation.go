package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate runs struct tag validation followed by rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.Site.Image != "" {
		info, err := os.Stat(cfg.Site.Image)
		if err != nil {
			return fmt.Errorf("site.image: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("site.image: %s is a directory", cfg.Site.Image)
		}
	}

	exts := cfg.Site.ContentExtensions()
	if cfg.Site.SingleFile != "" && !exts.IsMarkdown(cfg.Site.SingleFile) {
		return fmt.Errorf("site.single_file: %s is not one of %s", cfg.Site.SingleFile, strings.Join(exts.Markdown, ", "))
	}

	for _, ext := range exts.Images {
		if slices.Contains(exts.Markdown, ext) {
			return fmt.Errorf("site.extensions: %s is listed as both image and markdown", ext)
		}
	}

	return nil
}

// formatValidationError reports the first failing field.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
