package common

import (
	"strings"

	"github.com/AI-Template-SDK/senso-geo/internal/models"
)

var countryCodes = map[string]string{
	"US":             "US",
	"USA":            "US",
	"UNITED STATES":  "US",
	"CA":             "CA",
	"CANADA":         "CA",
	"GB":             "GB",
	"UK":             "GB",
	"UNITED KINGDOM": "GB",
	"AU":             "AU",
	"DE":             "DE",
	"FR":             "FR",
	"FRANCE":         "FR",
	"BE":             "BE",
	"CH":             "CH",
	"IT":             "IT",
	"ES":             "ES",
	"NL":             "NL",
	"JP":             "JP",
	"KR":             "KR",
	"IN":             "IN",
	"BR":             "BR",
	"MX":             "MX",
}

// MapLocationToCountry maps a location to the two-letter country code used
// by BrightData and Google's gl parameter. Unknown countries fall back to US.
func MapLocationToCountry(location *models.Location) string {
	if location == nil {
		return "US"
	}
	if country, ok := countryCodes[strings.ToUpper(strings.TrimSpace(location.Country))]; ok {
		return country
	}
	return "US"
}

// MapLocationToLanguage picks the interface language for localized search.
// Quebec is French even though Canada defaults to English.
func MapLocationToLanguage(location *models.Location) string {
	switch MapLocationToCountry(location) {
	case "FR", "BE":
		return "fr"
	case "DE":
		return "de"
	case "ES", "MX":
		return "es"
	case "IT":
		return "it"
	case "CA":
		if location.Region != nil {
			region := strings.ToLower(strings.TrimSpace(*location.Region))
			if region == "qc" || region == "quebec" || region == "québec" {
				return "fr"
			}
		}
	}
	return "en"
}
