package models

import "time"

const GeneralSettingsID = "general"

// GeneralSettings is the single application-wide settings document.
type GeneralSettings struct {
	ID              string    `bson:"_id" json:"-"`
	ApplicationName string    `bson:"applicationName" json:"applicationName" validate:"required,max=100"`
	BrowserTabTitle string    `bson:"browserTabTitle" json:"browserTabTitle"`
	LogoURL         string    `bson:"logoUrl" json:"logoUrl" validate:"omitempty,httpurl"`
	FaviconURL      string    `bson:"faviconUrl" json:"faviconUrl" validate:"omitempty,httpurl"`
	FrontendURL     string    `bson:"frontendUrl" json:"frontendUrl" validate:"omitempty,httpurl"`
	DefaultCurrency string    `bson:"defaultCurrency" json:"defaultCurrency" validate:"required,len=3"`
	Timezone        string    `bson:"timezone" json:"timezone" validate:"required,timezone"`
	DateFormat      string    `bson:"dateFormat" json:"dateFormat"`
	TaxRate         float64   `bson:"taxRate" json:"taxRate" validate:"gte=0,lte=100"`
	SessionTimeout  int       `bson:"sessionTimeout" json:"sessionTimeout" validate:"gte=5,lte=1440"`
	MaxOrderItems   int       `bson:"maxOrderItems" json:"maxOrderItems" validate:"gte=1,lte=200"`
	OrderingEnabled bool      `bson:"orderingEnabled" json:"orderingEnabled"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DefaultGeneralSettings is served until an administrator saves settings.
func DefaultGeneralSettings() GeneralSettings {
	return GeneralSettings{
		ID:              GeneralSettingsID,
		ApplicationName: "Theater Canteen",
		BrowserTabTitle: "Theater Canteen",
		DefaultCurrency: "INR",
		Timezone:        "Asia/Kolkata",
		DateFormat:      "DD/MM/YYYY",
		TaxRate:         18,
		SessionTimeout:  60,
		MaxOrderItems:   50,
		OrderingEnabled: true,
	}
}
