package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LEDGER_DRIVER", "")
	t.Setenv("HOMEROOM_HOUSES", "")
	t.Setenv("SCHOOL_TIMEZONE", "UTC")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "9", cfg.Competition.EntryGrade)
	assert.Equal(t, DefaultHomeroomHouses(), cfg.Competition.HomeroomHouses)
	assert.True(t, cfg.Redis.Disabled)
	assert.Equal(t, 2*time.Minute, cfg.Redis.RolloverLockTTL)
	assert.Equal(t, time.UTC, cfg.App.Location)
}

func TestFromEnv_PostgresInferredFromURL(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/hp")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
}

func TestFromEnv_PostgresWithoutURL(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestFromEnv_UnknownDriver(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "mysql")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LEDGER_DRIVER")
}

func TestFromEnv_ProductionNeedsRedis(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("LEDGER_DRIVER", "sqlite")
	t.Setenv("REDIS_DISABLED", "true")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Redis must be enabled")
}

func TestFromEnv_BadTimezone(t *testing.T) {
	t.Setenv("SCHOOL_TIMEZONE", "Mars/Olympus")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestParseHomeroomHouses(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "two entries with spaces",
			raw:  " 201 = Athena , 202=Apollo",
			want: map[string]string{"201": "Athena", "202": "Apollo"},
		},
		{name: "missing separator", raw: "201Athena", wantErr: true},
		{name: "empty house", raw: "201=", wantErr: true},
		{name: "duplicate code", raw: "201=Athena,201=Apollo", wantErr: true},
		{name: "only commas", raw: ",,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHomeroomHouses(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
