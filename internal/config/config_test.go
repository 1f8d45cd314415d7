package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ilyakaznacheev/cleanenv"
	apperrors "github.com/maian3333/ridehub-ms-booking/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `env: "test"
http_server:
  address: ":9090"
database:
  PG_USER: "booking"
  PG_PASSWORD: "secret"
  PG_DBNAME: "ridehub"
sepay:
  SEPAY_MERCHANT_ID: "SEPAY_TEST"
  SEPAY_SECRET_KEY: "sepay-secret"
vnpay:
  VNPAY_TMN_CODE: "VNPTEST"
  VNPAY_HASH_SECRET: "vnpay-secret"
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestReadConfig(t *testing.T) {
	t.Run("Success: Loads Config With Defaults", func(t *testing.T) {
		// Arrange
		path := writeConfigFile(t, testConfigYAML)

		// Act
		var cfg Config
		err := cleanenv.ReadConfig(path, &cfg)

		// Assert
		require.NoError(t, err)
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "test", cfg.Env)
		assert.Equal(t, ":9090", cfg.Addr)
		assert.Equal(t, "5432", cfg.Database.Port)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "https://pay-sandbox.sepay.vn/v1/checkout/init", cfg.SePay.InitURL)
		assert.Equal(t, "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html", cfg.VNPay.PayURL)
		assert.Equal(t, 3, cfg.SePay.MaxRetries)
		assert.Equal(t, 3, cfg.VNPay.MaxRetries)
	})

	t.Run("Success: Environment Overrides File", func(t *testing.T) {
		// Arrange
		path := writeConfigFile(t, testConfigYAML)
		t.Setenv("VNPAY_TMN_CODE", "VNPOVERRIDE")

		// Act
		var cfg Config
		err := cleanenv.ReadConfig(path, &cfg)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "VNPOVERRIDE", cfg.VNPay.TmnCode)
	})

	t.Run("Failure: Missing Required Database Fields", func(t *testing.T) {
		// Arrange
		path := writeConfigFile(t, "env: \"test\"\n")

		// Act
		var cfg Config
		err := cleanenv.ReadConfig(path, &cfg)

		// Assert
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	validConfig := func() *Config {
		cfg := &Config{}
		cfg.SePay.MerchantID = "SEPAY_TEST"
		cfg.SePay.SecretKey = "sepay-secret"
		cfg.VNPay.TmnCode = "VNPTEST"
		cfg.VNPay.HashSecret = "vnpay-secret"

		return cfg
	}

	testCases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{
			name:   "Missing SePay Merchant ID",
			mutate: func(cfg *Config) { cfg.SePay.MerchantID = "" },
		},
		{
			name:   "Missing SePay Secret Key",
			mutate: func(cfg *Config) { cfg.SePay.SecretKey = "" },
		},
		{
			name:   "Missing VNPay Tmn Code",
			mutate: func(cfg *Config) { cfg.VNPay.TmnCode = "" },
		},
		{
			name:   "Missing VNPay Hash Secret",
			mutate: func(cfg *Config) { cfg.VNPay.HashSecret = "" },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			cfg := validConfig()
			tc.mutate(cfg)

			// Act
			err := cfg.Validate()

			// Assert
			require.Error(t, err)
			appErr, ok := apperrors.IsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrCodeConfiguration, appErr.Code)
		})
	}

	t.Run("Success: Complete Gateway Credentials", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})
}
