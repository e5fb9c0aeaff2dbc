package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"sheetmerge/internal/logging"
	"sheetmerge/internal/objectstore"
	"sheetmerge/internal/sheet"
)

// EnvPrefix prefixes environment overrides; "__" separates nesting levels,
// e.g. SHEETMERGE__STORE__KIND=file or SHEETMERGE__METRICS__BACKEND=datadog.
const EnvPrefix = "SHEETMERGE__"

// Settings configure a binary. Zero values are filled by applyDefaults.
type Settings struct {
	Store   objectstore.Config `koanf:"store"`
	Metrics Metrics            `koanf:"metrics"`
	Log     logging.Options    `koanf:"log"`
	Layouts Layouts            `koanf:"layouts"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	Backend        string        `koanf:"backend"` // none|datadog|pushgateway
	Job            string        `koanf:"job"`
	Tags           string        `koanf:"tags"` // comma-separated Datadog tags
	PushgatewayURL string        `koanf:"pushgateway_url"`
	FlushEvery     time.Duration `koanf:"flush_every"`
}

// Layouts override the sheet candidates tried for each input.
type Layouts struct {
	Pivot  []sheet.Layout `koanf:"pivot"`
	Report []sheet.Layout `koanf:"report"`
}

// LoadSettings merges an optional YAML file with SHEETMERGE__* environment
// variables (environment wins) and applies defaults. An empty path skips the file.
func LoadSettings(path string) (Settings, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Settings{}, fmt.Errorf("load settings %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return Settings{}, fmt.Errorf("load env settings: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	applyDefaults(&s)
	return s, nil
}

func applyDefaults(s *Settings) {
	if s.Store.Kind == "" {
		s.Store.Kind = "s3"
	}
	if s.Metrics.Backend == "" {
		s.Metrics.Backend = "none"
	}
	if s.Metrics.Job == "" {
		s.Metrics.Job = "sheetmerge"
	}
	if s.Metrics.FlushEvery == 0 {
		s.Metrics.FlushEvery = 60 * time.Second
	}
	if s.Log.Level == "" {
		s.Log.Level = "info"
	}
	if len(s.Layouts.Pivot) == 0 {
		s.Layouts.Pivot = sheet.DefaultPivotLayouts()
	}
	if len(s.Layouts.Report) == 0 {
		s.Layouts.Report = sheet.DefaultReportLayouts()
	}
}

// ValidateSettings checks backend names and per-backend requirements.
func ValidateSettings(s Settings) []Issue {
	var issues []Issue
	errf := func(path, format string, a ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, a...)})
	}

	switch s.Store.Kind {
	case "s3":
	case "file":
		if s.Store.Root == "" {
			errf("store.root", "is required for store.kind=file")
		}
	case "sqlite", "postgres", "mssql":
		if s.Store.DSN == "" {
			errf("store.dsn", "is required for store.kind=%s", s.Store.Kind)
		}
	default:
		errf("store.kind", "unknown kind %q (want s3|file|sqlite|postgres|mssql)", s.Store.Kind)
	}

	switch s.Metrics.Backend {
	case "none", "datadog":
	case "pushgateway":
		if s.Metrics.PushgatewayURL == "" {
			errf("metrics.pushgateway_url", "is required for metrics.backend=pushgateway")
		}
	default:
		errf("metrics.backend", "unknown backend %q (want none|datadog|pushgateway)", s.Metrics.Backend)
	}

	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errf("log.level", "%v", err)
	}

	checkLayouts := func(path string, ls []sheet.Layout) {
		for i, l := range ls {
			if strings.TrimSpace(l.Sheet) == "" {
				errf(fmt.Sprintf("%s[%d].sheet", path, i), "is required")
			}
			if l.HeaderRow < 0 {
				errf(fmt.Sprintf("%s[%d].header_row", path, i), "must be >= 0")
			}
		}
	}
	checkLayouts("layouts.pivot", s.Layouts.Pivot)
	checkLayouts("layouts.report", s.Layouts.Report)

	return issues
}
