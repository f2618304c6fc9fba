package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapcheck/pkg/source"
)

func TestBuildPostgresDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   source.Config
		expected string
	}{
		{
			name: "basic connection",
			config: source.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: source.Config{
				Host:     "prod.example.com",
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name:     "defaults",
			config:   source.Config{Database: "mydb"},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildPostgresDSN(tt.config))
		})
	}
}

func TestConnConfig(t *testing.T) {
	cc, err := connConfig(source.Config{
		DSN:    "postgres://analyst@db.example.com:5433/analytics?sslmode=disable",
		Params: map[string]any{"search_path": "staging"},
	})
	require.NoError(t, err)
	assert.Equal(t, "db.example.com", cc.Host)
	assert.Equal(t, uint16(5433), cc.Port)
	assert.Equal(t, "analytics", cc.Database)
	assert.Equal(t, "staging", cc.RuntimeParams["search_path"])
	assert.Equal(t, "leapcheck", cc.RuntimeParams["application_name"])

	_, err = connConfig(source.Config{DSN: "postgres://%zz"})
	assert.Error(t, err)
}

func TestSource_Registry(t *testing.T) {
	factory, ok := source.Get("postgres")
	require.True(t, ok)
	_, isPG := factory(nil).(*Source)
	assert.True(t, isPG)
	assert.NoError(t, New(nil).Close())
}
