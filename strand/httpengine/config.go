package httpengine

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/strand-db/strand-client-go/strand"
)

// Config carries the client settings read from the environment.
type Config struct {
	Endpoint string        `mapstructure:"endpoint"`
	Secret   string        `mapstructure:"secret"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from a .env file and from environment
// variables carrying the given prefix. For prefix "STRAND_" the recognized
// variables are STRAND_ENDPOINT, STRAND_SECRET and STRAND_TIMEOUT (a Go
// duration string such as "5s"). The .env file is optional; environment
// variables win over it.
func LoadConfig(prefix string) (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	if readErr := v.ReadInConfig(); readErr != nil {
		// The .env file is optional; only real read failures matter.
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) && !os.IsNotExist(readErr) {
			return Config{}, fmt.Errorf("reading .env file: %w", readErr)
		}
	}

	prefixUpper := strings.ToUpper(prefix)
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		key, value := pair[0], pair[1]

		if !strings.HasPrefix(key, prefixUpper) {
			continue
		}

		// STRAND_ENDPOINT -> endpoint
		propKey := strings.TrimPrefix(key, prefixUpper)
		propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
		propKey = strings.TrimPrefix(propKey, ".")

		v.Set(propKey, value)
	}

	var cfg Config
	if unmarshalErr := v.Unmarshal(&cfg); unmarshalErr != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	if cfg.Timeout < 0 {
		return Config{}, strand.ErrInvalidHTTPTimeout
	}

	return cfg, nil
}
