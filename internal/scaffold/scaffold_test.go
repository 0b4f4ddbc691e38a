package scaffold

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeSettings writes a key=value settings file into a temp dir and
// returns its path.
func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validSettings = `PROJECT_NAME=trailmix
API_PORT=9090
DB_NAME=trailmix
DB_USER=app
DB_PASSWORD=supersecretpw
`

func TestLoadSettings(t *testing.T) {
	t.Run("valid file with all keys", func(t *testing.T) {
		settings, err := LoadSettings(writeSettings(t, validSettings))
		require.NoError(t, err)

		assert.Equal(t, "trailmix", settings.ProjectName)
		assert.Equal(t, 9090, settings.APIPort)
		assert.Equal(t, "trailmix", settings.DBName)
		assert.Equal(t, "app", settings.DBUser)
		assert.Equal(t, "supersecretpw", settings.DBPassword)
		assert.Equal(t, "trailmix_pgdata", settings.DataVolume, "data volume defaults to project name")
	})

	t.Run("api_port defaults to 8080", func(t *testing.T) {
		settings, err := LoadSettings(writeSettings(t, strings.Replace(validSettings, "API_PORT=9090\n", "", 1)))
		require.NoError(t, err)
		assert.Equal(t, 8080, settings.APIPort)
	})

	t.Run("explicit data volume wins over default", func(t *testing.T) {
		settings, err := LoadSettings(writeSettings(t, validSettings+"DATA_VOLUME=custom_volume\n"))
		require.NoError(t, err)
		assert.Equal(t, "custom_volume", settings.DataVolume)
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		_, err := LoadSettings(writeSettings(t, validSettings+"EXTRA_KEY=oops\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown settings key")
	})

	t.Run("missing required key is rejected", func(t *testing.T) {
		_, err := LoadSettings(writeSettings(t, strings.Replace(validSettings, "DB_PASSWORD=supersecretpw\n", "", 1)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid settings")
	})

	t.Run("short password is rejected", func(t *testing.T) {
		_, err := LoadSettings(writeSettings(t, strings.Replace(validSettings, "supersecretpw", "short", 1)))
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.env"))
		require.Error(t, err)
	})
}

func TestRunnerRun(t *testing.T) {
	t.Run("renders the full template set", func(t *testing.T) {
		target := t.TempDir()
		report, err := NewRunner(testLogger()).Run(writeSettings(t, validSettings), target)
		require.NoError(t, err)

		assert.Equal(t, "trailmix", report.ProjectName)
		assert.ElementsMatch(t, []string{
			"docker-compose.yml", ".env.example", "config.yaml", "README.md", SummaryFileName,
		}, report.Files)

		compose, err := os.ReadFile(filepath.Join(target, "docker-compose.yml"))
		require.NoError(t, err)
		assert.Contains(t, string(compose), "container_name: trailmix_api")
		assert.Contains(t, string(compose), `"9090:8080"`)
		assert.Contains(t, string(compose), "POSTGRES_PASSWORD: supersecretpw")
		assert.NotContains(t, string(compose), "__", "all placeholders substituted")

		readme, err := os.ReadFile(filepath.Join(target, "README.md"))
		require.NoError(t, err)
		assert.Contains(t, string(readme), "# trailmix")
		assert.Contains(t, string(readme), "trailmix_pgdata")
	})

	t.Run("summary masks the database password", func(t *testing.T) {
		target := t.TempDir()
		_, err := NewRunner(testLogger()).Run(writeSettings(t, validSettings), target)
		require.NoError(t, err)

		summary, err := os.ReadFile(filepath.Join(target, SummaryFileName))
		require.NoError(t, err)
		assert.Contains(t, string(summary), "password ****")
		assert.NotContains(t, string(summary), "supersecretpw")
		assert.Contains(t, string(summary), "docker-compose.yml")
	})

	t.Run("rerun overwrites existing files", func(t *testing.T) {
		target := t.TempDir()
		runner := NewRunner(testLogger())

		_, err := runner.Run(writeSettings(t, validSettings), target)
		require.NoError(t, err)

		_, err = runner.Run(writeSettings(t, strings.Replace(validSettings, "9090", "7070", 1)), target)
		require.NoError(t, err)

		compose, err := os.ReadFile(filepath.Join(target, "docker-compose.yml"))
		require.NoError(t, err)
		assert.Contains(t, string(compose), `"7070:8080"`)
		assert.NotContains(t, string(compose), "9090")
	})

	t.Run("invalid settings abort before any file is written", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out")
		_, err := NewRunner(testLogger()).Run(writeSettings(t, "PROJECT_NAME=x\n"), target)
		require.Error(t, err)
		assert.NoDirExists(t, target)
	})
}

func TestRegenerateReadme(t *testing.T) {
	target := t.TempDir()
	runner := NewRunner(testLogger())

	_, err := runner.Run(writeSettings(t, validSettings), target)
	require.NoError(t, err)

	composeBefore, err := os.ReadFile(filepath.Join(target, "docker-compose.yml"))
	require.NoError(t, err)

	err = runner.RegenerateReadme(writeSettings(t, strings.Replace(validSettings, "9090", "7070", 1)), target)
	require.NoError(t, err)

	readme, err := os.ReadFile(filepath.Join(target, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "7070")

	composeAfter, err := os.ReadFile(filepath.Join(target, "docker-compose.yml"))
	require.NoError(t, err)
	assert.Equal(t, composeBefore, composeAfter, "only the README is touched")
}

func TestRenderTemplate(t *testing.T) {
	values := map[string]string{PlaceholderProjectName: "demo"}

	t.Run("replaces every occurrence", func(t *testing.T) {
		out, err := renderTemplate(templateFile{
			Name:         "x.txt",
			Content:      "__PROJECT_NAME__ and again __PROJECT_NAME__",
			Placeholders: []string{PlaceholderProjectName},
		}, values)
		require.NoError(t, err)
		assert.Equal(t, "demo and again demo", out)
	})

	t.Run("declared placeholder absent from template is an error", func(t *testing.T) {
		_, err := renderTemplate(templateFile{
			Name:         "x.txt",
			Content:      "no tokens here",
			Placeholders: []string{PlaceholderProjectName},
		}, values)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found in template")
	})

	t.Run("placeholder without a value is an error", func(t *testing.T) {
		_, err := renderTemplate(templateFile{
			Name:         "x.txt",
			Content:      "__DB_NAME__",
			Placeholders: []string{PlaceholderDBName},
		}, values)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no value for placeholder")
	})
}
