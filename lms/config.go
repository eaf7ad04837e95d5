package lms

import "time"

// Config holds the cache lifetimes of the read helpers
type Config struct {
	// CourseTTL default: 1h
	CourseTTL time.Duration `mapstructure:"course_ttl"`
	// UserCoursesTTL default: 30m
	UserCoursesTTL time.Duration `mapstructure:"user_courses_ttl"`
	// DashboardTTL default: 15m
	DashboardTTL time.Duration `mapstructure:"dashboard_ttl"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		CourseTTL:      time.Hour,
		UserCoursesTTL: 30 * time.Minute,
		DashboardTTL:   15 * time.Minute,
	}
}

// MergeDefaults fills zero fields with default values and returns c
func (c *Config) MergeDefaults() *Config {
	defaults := DefaultConfig()
	if c.CourseTTL == 0 {
		c.CourseTTL = defaults.CourseTTL
	}
	if c.UserCoursesTTL == 0 {
		c.UserCoursesTTL = defaults.UserCoursesTTL
	}
	if c.DashboardTTL == 0 {
		c.DashboardTTL = defaults.DashboardTTL
	}
	return c
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.CourseTTL < 0 || c.UserCoursesTTL < 0 || c.DashboardTTL < 0 {
		return ErrInvalidConfig("ttls must not be negative")
	}
	return nil
}
