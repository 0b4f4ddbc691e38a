package scaffold

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Settings holds the key/value configuration driving a scaffold run.
// Placeholder tokens in the template files are replaced with these values.
type Settings struct {
	// ProjectName names the generated project. It seeds container names,
	// the compose project, and the README title.
	ProjectName string `mapstructure:"project_name" validate:"required,hostname_rfc1123"`

	// APIPort is the host port the API is published on.
	APIPort int `mapstructure:"api_port" validate:"required,gt=0,lt=65536"`

	// Database credentials baked into the compose manifest and env sample.
	DBName     string `mapstructure:"db_name"     validate:"required"`
	DBUser     string `mapstructure:"db_user"     validate:"required"`
	DBPassword string `mapstructure:"db_password" validate:"required,min=8"`

	// DataVolume names the postgres data volume. Defaults to
	// "<project_name>_pgdata".
	DataVolume string `mapstructure:"data_volume"`
}

// settingsKeys is the full set of recognized configuration keys. Anything
// else in the settings file is rejected rather than silently ignored.
var settingsKeys = map[string]bool{
	"project_name": true,
	"api_port":     true,
	"db_name":      true,
	"db_user":      true,
	"db_password":  true,
	"data_volume":  true,
}

// LoadSettings reads scaffold settings from a key=value file, applies
// defaults, and validates required keys.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")

	v.SetDefault("api_port", 8080)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	for _, key := range v.AllKeys() {
		if !settingsKeys[strings.ToLower(key)] {
			return nil, fmt.Errorf("unknown settings key %q in %s", key, path)
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if settings.DataVolume == "" {
		settings.DataVolume = settings.ProjectName + "_pgdata"
	}

	if err := validator.New().Struct(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return &settings, nil
}

// replacements maps each placeholder token to its configured value.
func (s *Settings) replacements() map[string]string {
	return map[string]string{
		PlaceholderProjectName: s.ProjectName,
		PlaceholderAPIPort:     fmt.Sprintf("%d", s.APIPort),
		PlaceholderDBName:      s.DBName,
		PlaceholderDBUser:      s.DBUser,
		PlaceholderDBPassword:  s.DBPassword,
		PlaceholderDataVolume:  s.DataVolume,
	}
}
