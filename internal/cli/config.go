package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pantry/internal/paths"
	"github.com/mesh-intelligence/pantry/pkg/types"
)

const (
	envPrefix      = "PANTRY"
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyLogLevel     = "log_level"
	cfgKeyOutput       = "output"
	cfgKeyDynamoTable  = "dynamodb.table"
	cfgKeyDynamoRegion = "dynamodb.region"
	cfgKeyDynamoURL    = "dynamodb.endpoint"
	cfgKeyDynamoKeyID  = "dynamodb.access_key_id"
	cfgKeyDynamoSecret = "dynamodb.secret_access_key"

	defaultBackend  = types.BackendSQLite
	defaultLogLevel = "warn"
	defaultOutput   = outputTable
)

// envKeys are read from PANTRY_* variables. data_dir is absent on purpose:
// PANTRY_DATA_DIR ranks below the config file and is applied by paths.
var envKeys = []string{
	cfgKeyBackend,
	cfgKeyLogLevel,
	cfgKeyOutput,
	cfgKeyDynamoTable,
	cfgKeyDynamoRegion,
	cfgKeyDynamoURL,
	cfgKeyDynamoKeyID,
	cfgKeyDynamoSecret,
}

// fileConfig is the shape of config.yaml as written by init.
type fileConfig struct {
	Backend  string `yaml:"backend"`
	DataDir  string `yaml:"data_dir,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
	Output   string `yaml:"output,omitempty"`
}

// settings is the resolved configuration for one command run.
type settings struct {
	ConfigDir string
	Store     types.Config
	Output    string
	LogLevel  string
}

// loadSettings resolves configuration from flags, the environment, dotenv
// files and config.yaml.
func loadSettings(cmd *cobra.Command, opts *RootOptions) (*settings, error) {
	for _, f := range paths.DotenvFiles() {
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	configDir, err := paths.ResolveConfigDir(opts.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyOutput, defaultOutput)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	pf := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		cfgKeyBackend:  "backend",
		cfgKeyOutput:   "output",
		cfgKeyLogLevel: "log-level",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	dataDir, err := paths.ResolveDataDir(opts.DataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	s := &settings{
		ConfigDir: configDir,
		Output:    strings.ToLower(v.GetString(cfgKeyOutput)),
		LogLevel:  v.GetString(cfgKeyLogLevel),
		Store: types.Config{
			Backend: v.GetString(cfgKeyBackend),
			DataDir: dataDir,
			DynamoDB: types.DynamoDBConfig{
				Table:           v.GetString(cfgKeyDynamoTable),
				Region:          v.GetString(cfgKeyDynamoRegion),
				Endpoint:        v.GetString(cfgKeyDynamoURL),
				AccessKeyID:     v.GetString(cfgKeyDynamoKeyID),
				SecretAccessKey: v.GetString(cfgKeyDynamoSecret),
			},
		},
	}
	if !validOutput(s.Output) {
		return nil, userError(fmt.Sprintf("invalid output %q: must be one of %s", s.Output, strings.Join(outputFormats, ", ")), nil)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml in configDir from s. An existing
// file is left untouched. Reports whether a file was written.
func writeConfigIfMissing(configDir string, s *settings) (bool, error) {
	path := paths.ConfigFile(configDir)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}

	fc := fileConfig{Backend: s.Store.Backend, LogLevel: s.LogLevel, Output: s.Output}
	if s.Store.Backend == types.BackendSQLite {
		fc.DataDir = s.Store.DataDir
	}
	data, err := yaml.Marshal(&fc)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := "# pantry configuration\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
