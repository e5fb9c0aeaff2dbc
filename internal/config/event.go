// Package config holds the invocation contract (Event), the runtime Settings
// of the binaries, and their validation.
//
// Validation returns a list of Issues instead of failing on the first problem
// so the CLI can print everything wrong with an event or config at once.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Event is one merge request. The JSON names are the trigger payload contract.
type Event struct {
	InputBucket   string `json:"input_bucket" koanf:"input_bucket"`
	PivotKey      string `json:"pivot_file_key" koanf:"pivot_file_key"`
	ReportKey     string `json:"report_file_key" koanf:"report_file_key"`
	OutputBucket  string `json:"output_bucket" koanf:"output_bucket"`
	OutputFileKey string `json:"output_file_key" koanf:"output_file_key"`
}

// OutputKey rewrites a trailing ".xlsx" to ".csv"; other keys are unchanged.
// Only the extension is rewritten: "dir.xlsx/data.xlsx" becomes
// "dir.xlsx/data.csv", not "dir.csv/data.csv".
func OutputKey(key string) string {
	if strings.HasSuffix(key, ".xlsx") {
		return strings.TrimSuffix(key, ".xlsx") + ".csv"
	}
	return key
}

// DestinationKey is the object key the merged CSV is written to.
func (e Event) DestinationKey() string { return OutputKey(e.OutputFileKey) }

// Severity classifies an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Path names the offending field.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// ValidateEvent checks that every field is present.
//
// Warnings cover inputs that are legal but probably unintended.
func ValidateEvent(e Event) []Issue {
	var issues []Issue
	req := func(path, v string) {
		if strings.TrimSpace(v) == "" {
			issues = append(issues, Issue{SeverityError, path, "is required"})
		}
	}
	req("input_bucket", e.InputBucket)
	req("pivot_file_key", e.PivotKey)
	req("report_file_key", e.ReportKey)
	req("output_bucket", e.OutputBucket)
	req("output_file_key", e.OutputFileKey)

	if e.PivotKey != "" && e.PivotKey == e.ReportKey {
		issues = append(issues, Issue{SeverityWarning, "report_file_key", "same object as pivot_file_key"})
	}
	if e.OutputFileKey != "" && !strings.HasSuffix(e.DestinationKey(), ".csv") {
		issues = append(issues, Issue{SeverityWarning, "output_file_key", fmt.Sprintf("%q will be written as CSV without a .csv extension", e.DestinationKey())})
	}
	if e.OutputBucket != "" && e.OutputBucket == e.InputBucket &&
		(e.DestinationKey() == e.PivotKey || e.DestinationKey() == e.ReportKey) {
		issues = append(issues, Issue{SeverityWarning, "output_file_key", "would overwrite an input object"})
	}
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// IssuesError folds error-severity issues into one error, or nil if there are none.
func IssuesError(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, fmt.Errorf("%s %s", iss.Path, iss.Message))
		}
	}
	return errors.Join(errs...)
}

// LoadEvent reads an event from a JSON or YAML file.
func LoadEvent(path string) (Event, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Event{}, fmt.Errorf("load event %s: %w", path, err)
	}
	var e Event
	if err := k.Unmarshal("", &e); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", path, err)
	}
	return e, nil
}
