package internal

import (
	"fmt"
	"time"
)

type Config struct {
	BufferSize        int           `env:"BUFFER_SIZE,required=true"`
	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,required=true"`
	TypingTimeout     time.Duration `env:"TYPING_TIMEOUT,required=true"`
	MetricInterval    time.Duration `env:"METRIC_INTERVAL,required=true"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	AuthTokenSecret   string        `env:"AUTH_TOKEN_SECRET,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath     string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	Host              string        `env:"HOST,required=true"`
	Port              int           `env:"PORT,required=true"`
	CharReplacement   string        `env:"CHARACTER_REPLACEMENT,required=true"`
	CensoredWords     string        `env:"CENSORED_WORDS"`
	SeedDemoData      bool          `env:"SEED_DEMO_DATA"`
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
