package siteconfig

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/louisbranch/folio/internal/services/site/platform/errors"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/theme.schema.json
var themeSchemaBytes []byte

const themeSchemaURL = "theme.schema.json"

var (
	themeSchema     *jsonschema.Schema
	themeSchemaOnce sync.Once
	themeSchemaErr  error
	issuePrinter    = message.NewPrinter(language.English)
)

// Theme is the site-wide branding document.
type Theme struct {
	SiteName      string `json:"siteName" yaml:"siteName"`
	Tagline       string `json:"tagline" yaml:"tagline"`
	PrimaryColor  string `json:"primaryColor" yaml:"primaryColor"`
	AccentColor   string `json:"accentColor" yaml:"accentColor"`
	LogoPath      string `json:"logoPath" yaml:"logoPath"`
	FooterText    string `json:"footerText" yaml:"footerText"`
	DefaultLocale string `json:"defaultLocale" yaml:"defaultLocale"`
}

// DefaultTheme is served until an admin saves a theme.
func DefaultTheme() Theme {
	return Theme{
		SiteName:     "Folio",
		PrimaryColor: "#1f4e79",
		AccentColor:  "#e07a1f",
	}
}

// normalize trims fields and fills blank colours from the defaults.
func (t Theme) normalize() Theme {
	def := DefaultTheme()
	t.SiteName = strings.TrimSpace(t.SiteName)
	t.Tagline = strings.TrimSpace(t.Tagline)
	t.PrimaryColor = strings.ToLower(strings.TrimSpace(t.PrimaryColor))
	t.AccentColor = strings.ToLower(strings.TrimSpace(t.AccentColor))
	t.LogoPath = strings.TrimSpace(t.LogoPath)
	t.FooterText = strings.TrimSpace(t.FooterText)
	t.DefaultLocale = strings.TrimSpace(t.DefaultLocale)
	if t.PrimaryColor == "" {
		t.PrimaryColor = def.PrimaryColor
	}
	if t.AccentColor == "" {
		t.AccentColor = def.AccentColor
	}
	return t
}

func compiledThemeSchema() (*jsonschema.Schema, error) {
	themeSchemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(themeSchemaBytes))
		if err != nil {
			themeSchemaErr = fmt.Errorf("unmarshal theme schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(themeSchemaURL, doc); err != nil {
			themeSchemaErr = fmt.Errorf("add theme schema: %w", err)
			return
		}
		themeSchema, themeSchemaErr = c.Compile(themeSchemaURL)
		if themeSchemaErr != nil {
			themeSchemaErr = fmt.Errorf("compile theme schema: %w", themeSchemaErr)
		}
	})
	return themeSchema, themeSchemaErr
}

// ValidateTheme checks t against the embedded theme schema. Issues are
// reported as "field: message" lines inside an invalid input error.
func ValidateTheme(t Theme) error {
	schema, err := compiledThemeSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal theme: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("prepare theme: %w", err)
	}
	err = schema.Validate(inst)
	if err == nil {
		if strings.Contains(t.LogoPath, "..") {
			return apperrors.EK(apperrors.KindInvalidInput, "error.siteconfig.invalid_theme", "logoPath: must not contain ..")
		}
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return fmt.Errorf("validate theme: %w", err)
	}
	issues := themeIssues(verr)
	return apperrors.Wrap(apperrors.KindInvalidInput, "error.siteconfig.invalid_theme", strings.Join(issues, "; "), err)
}

func themeIssues(verr *jsonschema.ValidationError) []string {
	seen := map[string]bool{}
	var walk func(*jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		if len(ve.Causes) > 0 {
			for _, cause := range ve.Causes {
				walk(cause)
			}
			return
		}
		field := strings.Join(ve.InstanceLocation, "/")
		if field == "" {
			field = "theme"
		}
		msg := ve.Error()
		if ve.ErrorKind != nil {
			msg = ve.ErrorKind.LocalizedString(issuePrinter)
		}
		seen[field+": "+msg] = true
	}
	walk(verr)
	out := make([]string, 0, len(seen))
	for issue := range seen {
		out = append(out, issue)
	}
	sort.Strings(out)
	return out
}
