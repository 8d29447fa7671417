package main

import (
	"antplus-to-mqtt/application"

	"github.com/urfave/cli/v2"
)

var FlagLogLevel = &cli.StringFlag{
	Name:     "log-level",
	EnvVars:  []string{"LOG_LEVEL"},
	Value:    "info",
	Required: false,
}

var FlagLogWriter = &cli.StringFlag{
	Name:     "log-writer",
	Usage:    "one of: [console, json]",
	EnvVars:  []string{"LOG_WRITER"},
	Value:    "console",
	Required: false,
}

var FlagAntAddress = &cli.StringFlag{
	Name:     "ant-address",
	Usage:    "ant radio daemon, unix:///path or tcp://host:port",
	EnvVars:  []string{"ANT_ADDRESS"},
	Value:    "unix:///run/antd.sock",
	Required: false,
}

var FlagAntProfiles = &cli.StringFlag{
	Name:     "ant-profiles",
	Usage:    "comma separated subset of: [HR, CAD, SPD, SC, PWR, FE], empty for all",
	EnvVars:  []string{"ANT_PROFILES"},
	Required: false,
}

var FlagMQTTUrl = &cli.StringFlag{
	Name:     "mqtt-url",
	Usage:    "mqtt://broker:port",
	EnvVars:  []string{"MQTT_URL"},
	Value:    "mqtt://localhost:1883",
	Required: false,
}

var FlagMQTTClientID = &cli.StringFlag{
	Name:     "mqtt-client-id",
	Usage:    "generated when empty",
	EnvVars:  []string{"MQTT_CLIENT_ID"},
	Required: false,
}

var FlagMQTTUsername = &cli.StringFlag{
	Name:     "mqtt-username",
	EnvVars:  []string{"MQTT_USERNAME"},
	Required: false,
}

var FlagMQTTPassword = &cli.StringFlag{
	Name:     "mqtt-password",
	EnvVars:  []string{"MQTT_PASSWORD"},
	Required: false,
}

var FlagMQTTAuthFile = &cli.StringFlag{
	Name:     "mqtt-auth-file",
	Usage:    "json or yaml file with mqttUser and mqttPass",
	EnvVars:  []string{"MQTT_AUTH_FILE"},
	Required: false,
}

var FlagMQTTTopic = &cli.StringFlag{
	Name:     "mqtt-topic",
	EnvVars:  []string{"MQTT_TOPIC"},
	Value:    application.DefaultMQTTTopic,
	Required: false,
}

var FlagMQTTProtocolVersion = &cli.IntFlag{
	Name:     "mqtt-protocol-version",
	Usage:    "one of: [3, 5], message expiry needs 5",
	EnvVars:  []string{"MQTT_PROTOCOL_VERSION"},
	Value:    5,
	Required: false,
}

var FlagMQTTMessageExpiry = &cli.DurationFlag{
	Name:     "mqtt-message-expiry",
	EnvVars:  []string{"MQTT_MESSAGE_EXPIRY"},
	Value:    application.DefaultMessageExpiry,
	Required: false,
}

var FlagCacheTTL = &cli.DurationFlag{
	Name:     "cache-ttl",
	Usage:    "silence after which a topic is reset to zero",
	EnvVars:  []string{"CACHE_TTL"},
	Value:    application.DefaultExpiryTTL,
	Required: false,
}

var FlagRetryDelay = &cli.DurationFlag{
	Name:     "retry-delay",
	EnvVars:  []string{"RETRY_DELAY"},
	Value:    application.DefaultRetryDelay,
	Required: false,
}

var FlagRetryMaxAttempts = &cli.IntFlag{
	Name:     "retry-max-attempts",
	Usage:    "0 retries forever",
	EnvVars:  []string{"RETRY_MAX_ATTEMPTS"},
	Value:    0,
	Required: false,
}

var FlagRetryBackoff = &cli.StringFlag{
	Name:     "retry-backoff",
	Usage:    "one of: [constant, exponential]",
	EnvVars:  []string{"RETRY_BACKOFF"},
	Value:    "constant",
	Required: false,
}

var FlagMetricsAddr = &cli.StringFlag{
	Name:     "metrics-addr",
	Usage:    "host:port for /metrics, disabled when empty",
	EnvVars:  []string{"METRICS_ADDR"},
	Required: false,
}

var FlagReportInterval = &cli.DurationFlag{
	Name:     "report-interval",
	EnvVars:  []string{"REPORT_INTERVAL"},
	Value:    application.DefaultReportInterval,
	Required: false,
}

var FlagShutdownTimeout = &cli.DurationFlag{
	Name:     "shutdown-timeout",
	EnvVars:  []string{"SHUTDOWN_TIMEOUT"},
	Value:    application.DefaultShutdownTimeout,
	Required: false,
}
