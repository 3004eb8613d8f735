// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers   = []string{"sqlite", "postgres"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.rps", "host_rps")
	v.BindEnv("host.burst", "host_burst")

	v.BindEnv("jwt.secret", "jwt_secret")

	v.BindEnv("database.driver", "database_driver")
	v.BindEnv("database.dsn", "database_dsn")

	v.BindEnv("aws.access_key", "aws_access_key")
	v.BindEnv("aws.secret_access_key", "aws_secret_access_key")
	v.BindEnv("aws.region", "aws_region")
	v.BindEnv("aws.bucket", "aws_bucket")
	v.BindEnv("aws.max_concurrency", "aws_max_concurrency")

	v.BindEnv("cache.metadata_ttl", "cache_metadata_ttl")
	v.BindEnv("cache.response_ttl", "cache_response_ttl")
	v.BindEnv("cache.redis.enabled", "cache_redis_enabled")
	v.BindEnv("cache.redis.addr", "cache_redis_addr")

	v.BindEnv("listing.recency_window", "listing_recency_window")
	v.BindEnv("listing.default_per_page", "listing_default_per_page")
	v.BindEnv("listing.max_per_page", "listing_max_per_page")

	v.BindEnv("upload.max_size", "upload_max_size")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.rps", 25)
	v.SetDefault("host.burst", 50)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "database.db")

	v.SetDefault("aws.max_concurrency", 10)

	v.SetDefault("cache.metadata_ttl", "1h")
	v.SetDefault("cache.response_ttl", "5m")
	v.SetDefault("cache.redis.enabled", false)

	v.SetDefault("listing.recency_window", "5m")
	v.SetDefault("listing.default_per_page", 50)
	v.SetDefault("listing.max_per_page", 1000)

	v.SetDefault("upload.max_size", 50)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetInt("host.rps") <= 0 || v.GetInt("host.burst") <= 0 {
		return errors.New("host.rps and host.burst must be bigger than 0")
	}

	if !slices.Contains(validDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("database.dsn") == "" {
		return errors.New("database dsn can't be empty")
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if v.GetString("aws.access_key") == "" {
		return errors.New("aws access key can't be empty")
	}
	if v.GetString("aws.secret_access_key") == "" {
		return errors.New("aws secret access key can't be empty")
	}
	if v.GetString("aws.region") == "" {
		return errors.New("aws region can't be empty")
	}
	if v.GetString("aws.bucket") == "" {
		return errors.New("aws bucket can't be empty")
	}

	if v.GetInt("aws.max_concurrency") <= 0 {
		return errors.New("aws.max_concurrency must be bigger than 0")
	}

	if v.GetDuration("cache.metadata_ttl") <= 0 {
		return errors.New("cache.metadata_ttl must be a positive duration")
	}
	if v.GetDuration("cache.response_ttl") <= 0 {
		return errors.New("cache.response_ttl must be a positive duration")
	}

	if v.GetBool("cache.redis.enabled") && v.GetString("cache.redis.addr") == "" {
		return errors.New("cache.redis.addr is missing")
	}

	if v.GetDuration("listing.recency_window") <= 0 {
		return errors.New("listing.recency_window must be a positive duration")
	}

	if v.GetInt("listing.default_per_page") <= 0 {
		return errors.New("listing.default_per_page must be bigger than 0")
	}

	if v.GetInt("listing.max_per_page") < v.GetInt("listing.default_per_page") {
		return errors.New("listing.max_per_page can't be smaller than the default page size")
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}
