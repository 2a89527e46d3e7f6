package config

import (
	"os"
	"strconv"
)

var defaultValues = map[string]interface{}{
	"DBPROBE_CONFIG":       "./config.properties", // property file read at startup
	"DBPROBE_STATUS_ADDR":  "",                    // listen address for /health, /status, /metrics; empty disables
	"DBPROBE_IDENTITY":     "",                    // identity shown in the /health dump
	"DBPROBE_ROLLING_SIZE": 10,                    // samples in the rolling latency window
	"DBPROBE_DEBUG":        false,                 // enable debug logging
}

func StringValue(key string) string {
	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(string)).(string)
	}
	return ""
}

// IntValue gets an int value from the env or default
func IntValue(key string) int {

	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(int)).(int)
	}
	return 0
}

// BoolValue gets a bool value from the env or default
func BoolValue(key string) bool {

	if defaultValue, ok := defaultValues[key]; ok {
		return getEnvVar(key, defaultValue.(bool)).(bool)
	}
	return false
}

func getEnvVar(key string, fallback interface{}) interface{} {

	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	switch fallback.(type) {
	case string:
		return value
	case bool:
		valueAsBool, err := strconv.ParseBool(value)
		if err != nil {
			return fallback
		}
		return valueAsBool
	case int:
		valueAsInt, err := strconv.Atoi(value)
		if err != nil {
			return fallback
		}
		return valueAsInt
	}
	return fallback
}
