package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// ErrConfiguration wraps every loading and validation failure.
var ErrConfiguration = errors.New("configuration error")

// Load builds the configuration from, in increasing precedence:
//  1. built-in defaults
//  2. the YAML file at path (optional; "" means ./config.yaml)
//  3. BOT_* environment variables, e.g. BOT_TELEGRAM_TOKEN or
//     BOT_TELEGRAM_ADMIN_IDS=1,2
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := readConfig(v, path); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}
	cfg.Telegram.AdminIDs = lo.Uniq(cfg.Telegram.AdminIDs)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return cfg, nil
}

// Validate checks the struct tags of the whole configuration.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
				return fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag())
			})
			return fmt.Errorf("invalid fields: %s", strings.Join(fields, ", "))
		}
		return err
	}
	return nil
}

func readConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// setDefaults registers a default for every key so that AutomaticEnv can
// override keys that never appear in the YAML file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.json", DefaultLogJSON)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_ids", []int64{})
	v.SetDefault("telegram.drop_pending_updates", DefaultDropPendingUpdates)
	v.SetDefault("telegram.rate_per_second", DefaultRatePerSecond)

	v.SetDefault("database.path", "")

	v.SetDefault("broadcast.progress_every", DefaultProgressEvery)
	v.SetDefault("broadcast.page_size", DefaultPageSize)

	for key, d := range defaultTimeouts {
		v.SetDefault(key, d)
	}

	v.SetDefault("messages.start", DefaultMessages.Start)
	v.SetDefault("messages.accepted", DefaultMessages.Accepted)
	v.SetDefault("messages.stats", DefaultMessages.Stats)
	v.SetDefault("messages.no_recipients", DefaultMessages.NoRecipients)
	v.SetDefault("messages.no_payload", DefaultMessages.NoPayload)
	v.SetDefault("messages.started", DefaultMessages.Started)
	v.SetDefault("messages.progress", DefaultMessages.Progress)
	v.SetDefault("messages.completed", DefaultMessages.Completed)
	v.SetDefault("messages.cancelled", DefaultMessages.Cancelled)
	v.SetDefault("messages.aborted", DefaultMessages.Aborted)
	v.SetDefault("messages.not_authorized", DefaultMessages.NotAuthorized)
	v.SetDefault("messages.nothing_to_cancel", DefaultMessages.NothingToCancel)
	v.SetDefault("messages.cancel_requested", DefaultMessages.CancelRequested)
	v.SetDefault("messages.already_running", DefaultMessages.AlreadyRunning)
	v.SetDefault("messages.unavailable", DefaultMessages.Unavailable)

	v.SetDefault("buttons", lo.Map(DefaultButtons, func(b ButtonConfig, _ int) map[string]any {
		return map[string]any{"text": b.Text, "url": b.URL}
	}))

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance": map[string]any{"enabled": true, "schedule": DefaultMaintenanceSchedule},
		"recipient_stats": map[string]any{"enabled": true, "schedule": DefaultStatsSchedule},
	})
}
