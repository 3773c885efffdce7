package types

import "errors"

// Config holds backend selection and parameters for opening a RecordStore.
type Config struct {
	Backend  string         `json:"backend" yaml:"backend"`
	DataDir  string         `json:"data_dir" yaml:"data_dir"`
	DynamoDB DynamoDBConfig `json:"dynamodb" yaml:"dynamodb"`
}

// DynamoDBConfig configures the dynamodb backend. Empty credentials fall back
// to the default AWS credential chain; Endpoint targets a local emulator.
type DynamoDBConfig struct {
	Table           string `json:"table" yaml:"table"`
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

// Config validation errors.
var (
	ErrBackendEmpty     = errors.New("backend must not be empty")
	ErrBackendUnknown   = errors.New("unknown backend")
	ErrDataDirEmpty     = errors.New("data directory must not be empty")
	ErrDynamoTableEmpty = errors.New("dynamodb table must not be empty")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendMemory:   true,
	BackendDynamoDB: true,
}

// Validate checks that the Config is well-formed for its backend.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.Backend {
	case BackendSQLite:
		if c.DataDir == "" {
			return ErrDataDirEmpty
		}
	case BackendDynamoDB:
		if c.DynamoDB.Table == "" {
			return ErrDynamoTableEmpty
		}
	}
	return nil
}
