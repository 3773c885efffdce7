package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: BackendSQLite, DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite without DataDir is rejected",
			config:  Config{Backend: BackendSQLite},
			wantErr: ErrDataDirEmpty,
		},
		{
			name:    "memory needs nothing else",
			config:  Config{Backend: BackendMemory},
			wantErr: nil,
		},
		{
			name:    "dynamodb without table is rejected",
			config:  Config{Backend: BackendDynamoDB, DynamoDB: DynamoDBConfig{Region: "eu-west-1"}},
			wantErr: ErrDynamoTableEmpty,
		},
		{
			name:    "valid dynamodb config",
			config:  Config{Backend: BackendDynamoDB, DynamoDB: DynamoDBConfig{Table: "products"}},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
