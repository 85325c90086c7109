// Package i18n renders user-facing bot text from embedded message catalogs.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// Message keys shared by modules and the kernel.
const (
	KeyTrackerReport        = "tracker.report"
	KeyTrackerNotRegistered = "tracker.not_registered"
	KeyTrackerUsageHeader   = "tracker.usage_header"
	KeyTrackerParamWins     = "tracker.param_victories"
	KeyTrackerParamLosses   = "tracker.param_defeats"
	KeyHelpHeader           = "help.header"
	KeyHelpNone             = "help.none"
	KeyPingReply            = "ping.reply"
	KeyCommandFailed        = "command.failed"
)

// DefaultLocale is used when no locale is configured and as the fallback
// for keys missing from another locale.
const DefaultLocale = "en"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

type localeFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds every loaded locale in one private x/text catalog.
type Bundle struct {
	builder   *catalog.Builder
	locales   map[string]map[string]string
	supported []language.Tag
	matcher   language.Matcher
	fallback  language.Tag
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedLocales)
}

// LoadFromFS loads every locales/*.yaml file in catalogFS.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale catalogs found")
	}
	sort.Strings(paths)

	fallback := language.Make(DefaultLocale)
	bundle := &Bundle{
		builder:  catalog.NewBuilder(catalog.Fallback(fallback)),
		locales:  make(map[string]map[string]string),
		fallback: fallback,
	}
	for _, path := range paths {
		data, err := fs.ReadFile(catalogFS, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file localeFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		if err := bundle.add(path, file); err != nil {
			return nil, err
		}
	}
	if _, ok := bundle.locales[DefaultLocale]; !ok {
		return nil, fmt.Errorf("default locale %s is not defined in catalogs", DefaultLocale)
	}

	bundle.supported = append(bundle.supported, fallback)
	for _, locale := range bundle.Locales() {
		if locale != DefaultLocale {
			bundle.supported = append(bundle.supported, language.Make(locale))
		}
	}
	bundle.matcher = language.NewMatcher(bundle.supported)

	return bundle, nil
}

func (b *Bundle) add(path string, file localeFile) error {
	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", path)
	}
	if _, exists := b.locales[locale]; exists {
		return fmt.Errorf("catalog %s: locale %q already defined", path, locale)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: parse locale %q: %w", path, locale, err)
	}

	messages := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", path)
		}
		if err := b.builder.SetString(tag, key, value); err != nil {
			return fmt.Errorf("catalog %s: set %q: %w", path, key, err)
		}
		messages[key] = value
	}
	b.locales[locale] = messages

	return nil
}

// Locales returns the loaded locale identifiers, sorted.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)

	return out
}

// Localizer returns a printer for the closest loaded match of locale.
// Keys missing from that locale fall back to DefaultLocale.
func (b *Bundle) Localizer(locale string) *Localizer {
	tag := b.fallback
	if locale = strings.TrimSpace(locale); locale != "" {
		if requested, err := language.Parse(locale); err == nil {
			_, index, confidence := b.matcher.Match(requested)
			if confidence != language.No {
				tag = b.supported[index]
			}
		}
	}

	return &Localizer{
		tag:      tag,
		printer:  message.NewPrinter(tag, message.Catalog(b.builder)),
		fallback: message.NewPrinter(b.fallback, message.Catalog(b.builder)),
		messages: b.locales[tag.String()],
	}
}

// Localizer renders messages for one locale.
type Localizer struct {
	tag      language.Tag
	printer  *message.Printer
	fallback *message.Printer
	messages map[string]string
}

// Locale returns the resolved locale tag.
func (l *Localizer) Locale() string {
	return l.tag.String()
}

// Text formats the message stored under key. Unknown keys render as the key.
func (l *Localizer) Text(key string, args ...any) string {
	if _, ok := l.messages[key]; !ok {
		return l.fallback.Sprintf(key, args...)
	}

	return l.printer.Sprintf(key, args...)
}

// Has reports whether key exists in the resolved locale itself.
func (l *Localizer) Has(key string) bool {
	_, ok := l.messages[key]
	return ok
}
