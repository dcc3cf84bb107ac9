package i18n

import (
	"embed"
	"strings"
	"sync"

	gi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

const DefaultLanguage = "ru"

var (
	mu        sync.RWMutex
	localizer *gi18n.Localizer
)

func newBundle() (*gi18n.Bundle, error) {
	bundle := gi18n.NewBundle(language.Russian)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if _, err = bundle.LoadMessageFileFS(localeFS, "locales/"+entry.Name()); err != nil {
			return nil, err
		}
	}
	return bundle, nil
}

// Init builds a localizer for lang (falling back to Russian) and makes it
// the package default used by T.
func Init(lang string) (*gi18n.Localizer, error) {
	bundle, err := newBundle()
	if err != nil {
		return nil, err
	}
	lang = strings.TrimSpace(lang)
	if lang == "" {
		lang = DefaultLanguage
	}
	loc := gi18n.NewLocalizer(bundle, lang, DefaultLanguage)
	mu.Lock()
	localizer = loc
	mu.Unlock()
	return loc, nil
}

func current() *gi18n.Localizer {
	mu.RLock()
	loc := localizer
	mu.RUnlock()
	if loc == nil {
		loc, _ = Init(DefaultLanguage)
	}
	return loc
}

// T returns the translation of messageID, or messageID itself when missing.
func T(messageID string) string {
	return TData(messageID, nil)
}

func TData(messageID string, data map[string]any) string {
	loc := current()
	if loc == nil {
		return messageID
	}
	msg, err := loc.Localize(&gi18n.LocalizeConfig{MessageID: messageID, TemplateData: data})
	if err != nil || msg == "" {
		return messageID
	}
	return msg
}
