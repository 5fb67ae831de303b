package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Setting keys, shared by flags, config file and CADENCE_* environment variables.
const (
	KeyWindowSeconds   = "window_seconds"
	KeyCategorySegment = "category_key_segment_index"
	KeyDateSegment     = "date_key_segment_index"
	KeyLogLevel        = "log_level"
	KeyOutput          = "output"
	KeyChart           = "chart"
	KeyPort            = "port"
	KeyPattern         = "pattern"
	KeyStartOfDayHour  = "start_of_day_hour"
)

const (
	defaultWindow     = 1800
	defaultCategory   = 5
	defaultDate       = 4
	defaultStartOfDay = 17
	defaultPort       = "8080"
	defaultLogLevel   = "warn"
	defaultOutput     = "text"
)

// Config holds the settings of one cadence run.
type Config struct {
	Window          time.Duration
	CategorySegment int
	DateSegment     int
	LogLevel        string
	Output          string
	Chart           string
	Port            string
	Pattern         string
	StartOfDayHour  int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyWindowSeconds, defaultWindow)
	v.SetDefault(KeyCategorySegment, defaultCategory)
	v.SetDefault(KeyDateSegment, defaultDate)
	v.SetDefault(KeyLogLevel, defaultLogLevel)
	v.SetDefault(KeyOutput, defaultOutput)
	v.SetDefault(KeyPort, defaultPort)
	v.SetDefault(KeyStartOfDayHour, defaultStartOfDay)
}

// Load reads a Config from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		Window:          time.Duration(v.GetInt(KeyWindowSeconds)) * time.Second,
		CategorySegment: v.GetInt(KeyCategorySegment),
		DateSegment:     v.GetInt(KeyDateSegment),
		LogLevel:        v.GetString(KeyLogLevel),
		Output:          strings.ToLower(v.GetString(KeyOutput)),
		Chart:           v.GetString(KeyChart),
		Port:            v.GetString(KeyPort),
		Pattern:         v.GetString(KeyPattern),
		StartOfDayHour:  v.GetInt(KeyStartOfDayHour),
	}
	return c, c.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs error
	if c.Window <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be positive, got %s", KeyWindowSeconds, c.Window))
	}
	if c.CategorySegment < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative, got %d", KeyCategorySegment, c.CategorySegment))
	}
	if c.DateSegment < 0 {
		errs = multierr.Append(errs, fmt.Errorf("%s must not be negative, got %d", KeyDateSegment, c.DateSegment))
	}
	if c.Output != "text" && c.Output != "json" {
		errs = multierr.Append(errs, fmt.Errorf("%s must be text or json, got %q", KeyOutput, c.Output))
	}
	if c.StartOfDayHour < 0 || c.StartOfDayHour > 23 {
		errs = multierr.Append(errs, fmt.Errorf("%s must be within 0-23, got %d", KeyStartOfDayHour, c.StartOfDayHour))
	}
	return errs
}
