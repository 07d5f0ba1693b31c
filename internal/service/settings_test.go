package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen/internal/store/memory"
)

func TestDecodeGeneralPatch(t *testing.T) {
	patch, err := DecodeGeneralPatch(strings.NewReader(`{"applicationName":"Grand Cinema","taxRate":12}`))
	require.NoError(t, err)
	require.NotNil(t, patch.ApplicationName)
	assert.Equal(t, "Grand Cinema", *patch.ApplicationName)
	assert.Equal(t, 12.0, *patch.TaxRate)
	assert.Nil(t, patch.Timezone)

	_, err = DecodeGeneralPatch(strings.NewReader(`{"applicationNmae":"typo"}`))
	be, ok := AsBusiness(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidSettings, be.Code)
	assert.Equal(t, "applicationNmae", be.Details["unknownField"])

	_, err = DecodeGeneralPatch(strings.NewReader(``))
	requireBusiness(t, err, CodeInvalidSettings, http.StatusBadRequest)
}

func TestSettingsDefaultsUntilSaved(t *testing.T) {
	settings := NewSettings(memory.NewStore().Settings)
	got, err := settings.General(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "INR", got.DefaultCurrency)
	assert.True(t, got.OrderingEnabled)
}

func TestUpdateGeneralValidates(t *testing.T) {
	settings := NewSettings(memory.NewStore().Settings)
	ctx := context.Background()
	str := func(s string) *string { return &s }

	saved, err := settings.UpdateGeneral(ctx, GeneralPatch{
		ApplicationName: str("  Grand Cinema "),
		FrontendURL:     str("https://menu.example.com"),
		Timezone:        str("Europe/Istanbul"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Grand Cinema", saved.ApplicationName)
	assert.False(t, saved.UpdatedAt.IsZero())

	reloaded, err := settings.General(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://menu.example.com", reloaded.FrontendURL)
	assert.Equal(t, "Europe/Istanbul", reloaded.Timezone)
	assert.WithinDuration(t, saved.UpdatedAt, reloaded.UpdatedAt, time.Second)

	badTax := 150.0
	_, err = settings.UpdateGeneral(ctx, GeneralPatch{TaxRate: &badTax, LogoURL: str("ftp://logo")})
	be, ok := AsBusiness(err)
	require.True(t, ok)
	assert.Equal(t, CodeInvalidSettings, be.Code)
	details, _ := be.Details["details"].([]string)
	assert.Len(t, details, 2)

	_, err = settings.UpdateGeneral(ctx, GeneralPatch{Timezone: str("Mars/Olympus")})
	requireBusiness(t, err, CodeInvalidSettings, http.StatusBadRequest)

	after, err := settings.General(ctx)
	require.NoError(t, err)
	assert.Equal(t, 18.0, after.TaxRate)
}
