// Package scaffold bootstraps a new project directory from a fixed set of
// templates. Values from a key=value settings file are substituted into the
// templates by literal placeholder replacement.
package scaffold

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SummaryFileName is the report written at the end of a successful run.
const SummaryFileName = "SETUP_SUMMARY.txt"

// templateFile pairs an output path with its template content and the
// placeholders the template is required to contain.
type templateFile struct {
	// Name is the output path relative to the target directory.
	Name string

	// Content is the raw template text.
	Content string

	// Placeholders lists every token that must appear in Content at
	// least once. A declared placeholder that never occurs is an error,
	// since it means a configured value would silently go unused.
	Placeholders []string
}

// templateSet is the fixed set of files a scaffold run produces.
var templateSet = []templateFile{
	{
		Name:    "docker-compose.yml",
		Content: composeTemplate,
		Placeholders: []string{
			PlaceholderProjectName,
			PlaceholderAPIPort,
			PlaceholderDBName,
			PlaceholderDBUser,
			PlaceholderDBPassword,
			PlaceholderDataVolume,
		},
	},
	{
		Name:    ".env.example",
		Content: envSampleTemplate,
		Placeholders: []string{
			PlaceholderProjectName,
			PlaceholderAPIPort,
			PlaceholderDBName,
			PlaceholderDBUser,
			PlaceholderDBPassword,
		},
	},
	{
		Name:    "config.yaml",
		Content: configStubTemplate,
		Placeholders: []string{
			PlaceholderProjectName,
			PlaceholderAPIPort,
			PlaceholderDBName,
			PlaceholderDBUser,
			PlaceholderDBPassword,
		},
	},
	{
		Name:    "README.md",
		Content: readmeTemplate,
		Placeholders: []string{
			PlaceholderProjectName,
			PlaceholderAPIPort,
			PlaceholderDBName,
			PlaceholderDataVolume,
		},
	},
}

// Report describes what a scaffold run produced.
type Report struct {
	ProjectName string
	TargetDir   string
	Files       []string
	StartedAt   time.Time
	Duration    time.Duration
}

// Runner renders the template set into a target directory.
type Runner struct {
	logger *slog.Logger
}

// NewRunner creates a scaffold runner. A nil logger falls back to the
// default slog logger.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger.With(slog.String("component", "scaffold"))}
}

// Run loads settings from settingsPath, renders every template into
// targetDir, and writes a summary report. Existing files in targetDir are
// overwritten, so README.md regeneration is simply re-rendering its
// template with the current settings.
func (r *Runner) Run(settingsPath, targetDir string) (*Report, error) {
	started := time.Now()

	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}

	r.logger.Info("scaffolding project",
		slog.String("project_name", settings.ProjectName),
		slog.String("target_dir", targetDir))

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create target directory %s: %w", targetDir, err)
	}

	values := settings.replacements()
	report := &Report{
		ProjectName: settings.ProjectName,
		TargetDir:   targetDir,
		StartedAt:   started,
	}

	for _, tf := range templateSet {
		rendered, err := renderTemplate(tf, values)
		if err != nil {
			return nil, err
		}

		outPath := filepath.Join(targetDir, tf.Name)
		if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", outPath, err)
		}

		r.logger.Debug("wrote file", slog.String("file", tf.Name))
		report.Files = append(report.Files, tf.Name)
	}

	report.Duration = time.Since(started)

	summary := report.summary(settings)
	summaryPath := filepath.Join(targetDir, SummaryFileName)
	if err := os.WriteFile(summaryPath, []byte(summary), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write summary: %w", err)
	}
	report.Files = append(report.Files, SummaryFileName)

	r.logger.Info("scaffold complete",
		slog.Int("files", len(report.Files)),
		slog.Duration("duration", report.Duration))

	return report, nil
}

// RegenerateReadme re-renders only the README template, used after settings
// change without a full re-scaffold.
func (r *Runner) RegenerateReadme(settingsPath, targetDir string) error {
	settings, err := LoadSettings(settingsPath)
	if err != nil {
		return err
	}

	var readme *templateFile
	for i := range templateSet {
		if templateSet[i].Name == "README.md" {
			readme = &templateSet[i]
			break
		}
	}
	if readme == nil {
		return fmt.Errorf("template set has no README.md entry")
	}

	rendered, err := renderTemplate(*readme, settings.replacements())
	if err != nil {
		return err
	}

	outPath := filepath.Join(targetDir, readme.Name)
	if err := os.WriteFile(outPath, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	r.logger.Info("regenerated README", slog.String("file", outPath))
	return nil
}

// renderTemplate substitutes every declared placeholder into a template.
// Each declared placeholder must occur at least once; every occurrence is
// replaced.
func renderTemplate(tf templateFile, values map[string]string) (string, error) {
	rendered := tf.Content
	for _, placeholder := range tf.Placeholders {
		value, ok := values[placeholder]
		if !ok {
			return "", fmt.Errorf("%s: no value for placeholder %s", tf.Name, placeholder)
		}
		if !strings.Contains(rendered, placeholder) {
			return "", fmt.Errorf("%s: placeholder %s not found in template", tf.Name, placeholder)
		}
		rendered = strings.ReplaceAll(rendered, placeholder, value)
	}
	return rendered, nil
}

// summary formats the human-readable report file. The database password is
// masked.
func (rep *Report) summary(settings *Settings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project %s scaffolded at %s\n\n", rep.ProjectName, rep.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Target directory: %s\n", rep.TargetDir)
	fmt.Fprintf(&b, "API port:         %d\n", settings.APIPort)
	fmt.Fprintf(&b, "Database:         %s (user %s, password ****)\n", settings.DBName, settings.DBUser)
	fmt.Fprintf(&b, "Data volume:      %s\n\n", settings.DataVolume)

	files := append([]string(nil), rep.Files...)
	sort.Strings(files)
	b.WriteString("Files written:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	return b.String()
}
