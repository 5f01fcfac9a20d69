package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SECRET", "legacy-secret")
	t.Setenv("STORAGE_PROVIDER", "")
	t.Setenv("FRONTEND_BASE_URL", "https://example.com/")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "legacy-secret", cfg.TokenSecret)
	assert.Equal(t, StorageProviderDrive, cfg.StorageProvider)
	assert.Equal(t, "https://example.com", cfg.FrontendBaseURL)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadSize)
}

func TestLoad_PrefersJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "primary")
	t.Setenv("SECRET", "legacy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.TokenSecret)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"port":     {"PORT", "99999"},
		"provider": {"STORAGE_PROVIDER", "ftp"},
		"upload":   {"MAX_UPLOAD_SIZE_MB", "-1"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Nil(t, splitList(""))
}
