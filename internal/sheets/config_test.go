package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-labels-must-flow/internal/common"
)

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		wantErr error
		config  Config
	}{
		{
			name:   "service account",
			config: Config{SpreadsheetID: "sheet", ServiceAccountPath: "/path/to/key.json"},
		},
		{
			name:   "oauth with refresh token",
			config: Config{SpreadsheetID: "sheet", ClientID: "id", ClientSecret: "secret", RefreshToken: "token"},
		},
		{
			name:   "oauth with token file",
			config: Config{SpreadsheetID: "sheet", ClientID: "id", ClientSecret: "secret", TokenFile: "/tmp/token.json"},
		},
		{
			name:    "missing spreadsheet",
			config:  Config{ServiceAccountPath: "/path/to/key.json"},
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "partial oauth credentials",
			config:  Config{SpreadsheetID: "sheet", ClientID: "id", RefreshToken: "token"},
			wantErr: common.ErrMissingConfig,
		},
		{
			name: "both methods",
			config: Config{SpreadsheetID: "sheet", ServiceAccountPath: "/key.json",
				ClientID: "id", ClientSecret: "secret", RefreshToken: "token"},
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "from-env")
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "/env/key.json")

	c := Config{SpreadsheetID: "from-config"}
	c.LoadFromEnv()

	assert.Equal(t, "from-config", c.SpreadsheetID)
	assert.Equal(t, "/env/key.json", c.ServiceAccountPath)
}
