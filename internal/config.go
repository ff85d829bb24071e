package internal

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

// Config holds everything the client needs from the environment.
type Config struct {
	PlatformURL         string        `env:"PLATFORM_URL,required=true" validate:"required,url"`
	PlatformAnonKey     string        `env:"PLATFORM_ANON_KEY,required=true" validate:"required"`
	PlatformAccessToken string        `env:"PLATFORM_ACCESS_TOKEN,required=true" validate:"required"`
	LogLevel            string        `env:"LOG_LEVEL,required=true"`
	BufferSize          int           `env:"BUFFER_SIZE,default=256"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=5s"`
	PruneInterval       time.Duration `env:"PRUNE_INTERVAL,default=1h"`
	BadgerFilepath      string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath       string        `env:"BLUGE_FILEPATH,required=true"`
	MutedWords          string        `env:"MUTED_WORDS"`
	MaskCharacter       string        `env:"MASK_CHARACTER,default=*"`
	GroupGap            time.Duration `env:"GROUP_GAP,default=5m"`
}

// Load reads and validates the configuration from the environment.
func Load() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validate.Struct(config); err != nil {
		return Config{}, fmt.Errorf("config validation: %w", err)
	}
	return config, nil
}

// MutedWordList splits the comma-separated muted words, dropping blanks.
func (c Config) MutedWordList() []string {
	return lo.FilterMap(strings.Split(c.MutedWords, ","), func(w string, _ int) (string, bool) {
		trimmed := strings.TrimSpace(w)
		return trimmed, trimmed != ""
	})
}

// MaskRune returns the single mask character.
func (c Config) MaskRune() (rune, error) {
	r := []rune(c.MaskCharacter)
	if len(r) != 1 {
		return 0, fmt.Errorf("MASK_CHARACTER must be a single character, got %q", c.MaskCharacter)
	}
	return r[0], nil
}
