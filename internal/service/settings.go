package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"

	"canteen/internal/models"
	"canteen/internal/store"
)

// GeneralPatch carries only the settings fields present in the request.
type GeneralPatch struct {
	ApplicationName *string  `json:"applicationName"`
	BrowserTabTitle *string  `json:"browserTabTitle"`
	LogoURL         *string  `json:"logoUrl"`
	FaviconURL      *string  `json:"faviconUrl"`
	FrontendURL     *string  `json:"frontendUrl"`
	DefaultCurrency *string  `json:"defaultCurrency"`
	Timezone        *string  `json:"timezone"`
	DateFormat      *string  `json:"dateFormat"`
	TaxRate         *float64 `json:"taxRate"`
	SessionTimeout  *int     `json:"sessionTimeout"`
	MaxOrderItems   *int     `json:"maxOrderItems"`
	OrderingEnabled *bool    `json:"orderingEnabled"`
}

// DecodeGeneralPatch rejects unknown keys so typos never reach the database.
func DecodeGeneralPatch(r io.Reader) (GeneralPatch, error) {
	var patch GeneralPatch
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		if strings.HasPrefix(err.Error(), "json: unknown field ") {
			field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
			be := badRequest(CodeInvalidSettings, "unknown setting %q", field)
			be.Details = map[string]any{"unknownField": field}
			return patch, be
		}
		if errors.Is(err, io.EOF) {
			return patch, badRequest(CodeInvalidSettings, "request body is required")
		}
		return patch, badRequest(CodeInvalidSettings, "invalid JSON payload: %v", err)
	}
	return patch, nil
}

func (p GeneralPatch) apply(s *models.GeneralSettings) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&s.ApplicationName, p.ApplicationName)
	setString(&s.BrowserTabTitle, p.BrowserTabTitle)
	setString(&s.LogoURL, p.LogoURL)
	setString(&s.FaviconURL, p.FaviconURL)
	setString(&s.FrontendURL, p.FrontendURL)
	setString(&s.DefaultCurrency, p.DefaultCurrency)
	setString(&s.Timezone, p.Timezone)
	setString(&s.DateFormat, p.DateFormat)
	if p.TaxRate != nil {
		s.TaxRate = *p.TaxRate
	}
	if p.SessionTimeout != nil {
		s.SessionTimeout = *p.SessionTimeout
	}
	if p.MaxOrderItems != nil {
		s.MaxOrderItems = *p.MaxOrderItems
	}
	if p.OrderingEnabled != nil {
		s.OrderingEnabled = *p.OrderingEnabled
	}
}

var settingsValidator = newSettingsValidator()

func newSettingsValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		if err != nil || u.Host == "" {
			return false
		}
		return u.Scheme == "http" || u.Scheme == "https"
	})
	return v
}

func validateSettings(s models.GeneralSettings) error {
	err := settingsValidator.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, describeSettingError(fe))
	}
	be := badRequest(CodeInvalidSettings, "invalid settings")
	be.Details = map[string]any{"details": details}
	return be
}

func describeSettingError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "httpurl":
		return fmt.Sprintf("%s must be an http or https URL", fe.Field())
	case "timezone":
		return fmt.Sprintf("%s is not a known timezone", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

type Settings struct {
	store store.SettingsStore
	now   func() time.Time
}

func NewSettings(s store.SettingsStore) *Settings {
	return &Settings{store: s, now: time.Now}
}

// General returns the stored settings, or the defaults before the first save.
func (s *Settings) General(ctx context.Context) (models.GeneralSettings, error) {
	stored, err := s.store.General(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return models.DefaultGeneralSettings(), nil
	}
	if err != nil {
		return stored, err
	}
	return withDefaults(stored), nil
}

// UpdateGeneral merges patch over the current settings and saves the result.
func (s *Settings) UpdateGeneral(ctx context.Context, patch GeneralPatch) (models.GeneralSettings, error) {
	current, err := s.General(ctx)
	if err != nil {
		return current, err
	}
	patch.apply(&current)
	if err := validateSettings(current); err != nil {
		return current, err
	}
	current.UpdatedAt = s.now()
	if err := s.store.SaveGeneral(ctx, current); err != nil {
		return current, err
	}
	return current, nil
}

// withDefaults fills fields a stored document left empty.
func withDefaults(s models.GeneralSettings) models.GeneralSettings {
	d := models.DefaultGeneralSettings()
	if s.ApplicationName == "" {
		s.ApplicationName = d.ApplicationName
	}
	if s.BrowserTabTitle == "" {
		s.BrowserTabTitle = d.BrowserTabTitle
	}
	if s.DefaultCurrency == "" {
		s.DefaultCurrency = d.DefaultCurrency
	}
	if s.Timezone == "" {
		s.Timezone = d.Timezone
	}
	if s.DateFormat == "" {
		s.DateFormat = d.DateFormat
	}
	if s.SessionTimeout == 0 {
		s.SessionTimeout = d.SessionTimeout
	}
	if s.MaxOrderItems == 0 {
		s.MaxOrderItems = d.MaxOrderItems
	}
	return s
}

// Location is the timezone business days are counted in. Lookup failures
// fall back to UTC.
func (s *Settings) Location(ctx context.Context) *time.Location {
	if s == nil {
		return time.UTC
	}
	cfg, err := s.General(ctx)
	if err != nil {
		return time.UTC
	}
	return settingsLocation(cfg)
}

// settingsLocation resolves the configured timezone, falling back to UTC.
func settingsLocation(s models.GeneralSettings) *time.Location {
	if loc, err := time.LoadLocation(s.Timezone); err == nil {
		return loc
	}
	return time.UTC
}
