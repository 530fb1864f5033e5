package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lang/*.yaml
var bundledLocales embed.FS

const defaultLocale = "en_US"

type Locale struct {
	translations map[string]string
	locale       string
}

var globalLocale *Locale

// InitLocale initializes the global locale system
func InitLocale() error {
	locale := DetectSystemLocale()

	l, err := LoadLocale(locale)
	if err != nil && locale != defaultLocale {
		l, err = LoadLocale(defaultLocale)
	}
	if err != nil {
		return fmt.Errorf("failed to load fallback locale %s: %w", defaultLocale, err)
	}

	globalLocale = l
	return nil
}

// DetectSystemLocale reads LANG, LC_ALL and LC_MESSAGES in that order and
// strips the encoding ("ru_RU.UTF-8" becomes "ru_RU").
func DetectSystemLocale() string {
	for _, key := range []string{"LANG", "LC_ALL", "LC_MESSAGES"} {
		value := os.Getenv(key)
		if value == "" {
			continue
		}
		if name := strings.Split(value, ".")[0]; name != "" && name != "C" && name != "POSIX" {
			return name
		}
	}
	return defaultLocale
}

// LoadLocale prefers lang/<locale>.yaml next to the executable so users can
// add translations, then the copy compiled into the binary.
func LoadLocale(locale string) (*Locale, error) {
	data, err := readLocaleFile(locale)
	if err != nil {
		return nil, err
	}
	return parseLocale(locale, data)
}

func readLocaleFile(locale string) ([]byte, error) {
	if exePath, err := os.Executable(); err == nil {
		localeFile := filepath.Join(filepath.Dir(exePath), "lang", locale+".yaml")
		if data, err := os.ReadFile(localeFile); err == nil {
			return data, nil
		}
	}

	data, err := bundledLocales.ReadFile("lang/" + locale + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no translations for locale %s: %w", locale, err)
	}
	return data, nil
}

func parseLocale(locale string, data []byte) (*Locale, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse locale %s: %w", locale, err)
	}

	return &Locale{
		translations: translations,
		locale:       locale,
	}, nil
}

// T translates a key, formatting params into the translation.
// Unknown keys come back unchanged.
func T(key string, params ...interface{}) string {
	if globalLocale == nil {
		return key
	}

	translation, ok := globalLocale.translations[key]
	if !ok {
		return key
	}

	if len(params) > 0 {
		return fmt.Sprintf(translation, params...)
	}
	return translation
}

// GetLocale returns the current locale code (e.g., "en_US", "ru_RU")
func GetLocale() string {
	if globalLocale == nil {
		return defaultLocale
	}
	return globalLocale.locale
}
