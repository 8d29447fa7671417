package adapters

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MQTTAuth holds broker credentials. The file may be JSON or YAML.
type MQTTAuth struct {
	Username string `yaml:"mqttUser"`
	Password string `yaml:"mqttPass"`
}

func LoadMQTTAuth(path string) (MQTTAuth, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MQTTAuth{}, fmt.Errorf("read mqtt auth file: %w", err)
	}

	var auth MQTTAuth
	if err := yaml.Unmarshal(data, &auth); err != nil {
		return MQTTAuth{}, fmt.Errorf("parse mqtt auth file %s: %w", path, err)
	}
	return auth, nil
}
