package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnect(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "unknown driver",
			cfg:     Config{Driver: "oracle", ConnectionString: "oracle://hr"},
			wantErr: `failed to open oracle database: sql: unknown driver "oracle"`,
		},
		{
			name: "unreachable mysql",
			cfg: Config{
				Driver:             "mysql",
				ConnectionString:   "user:password@tcp(127.0.0.1:1)/workforce?timeout=200ms",
				MaxOpenConnections: 2,
				MaxIdleConnections: 1,
				ConnMaxLifetime:    time.Minute,
			},
			wantErr: "failed to ping mysql database",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := Connect(tt.cfg)

			assert.Nil(t, db)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
