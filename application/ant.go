package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type SensorProfile string

const (
	SensorProfileHeartRate        SensorProfile = "HR"
	SensorProfileCadence          SensorProfile = "CAD"
	SensorProfileSpeed            SensorProfile = "SPD"
	SensorProfileSpeedCadence     SensorProfile = "SC"
	SensorProfileBicyclePower     SensorProfile = "PWR"
	SensorProfileFitnessEquipment SensorProfile = "FE"
)

// AllSensorProfiles lists every profile the bridge attaches by default.
var AllSensorProfiles = []SensorProfile{
	SensorProfileHeartRate,
	SensorProfileCadence,
	SensorProfileSpeed,
	SensorProfileSpeedCadence,
	SensorProfileBicyclePower,
	SensorProfileFitnessEquipment,
}

// ParseSensorProfiles parses a comma separated profile list such as
// "HR,PWR". An empty list selects every profile.
func ParseSensorProfiles(s string) ([]SensorProfile, error) {
	if strings.TrimSpace(s) == "" {
		return AllSensorProfiles, nil
	}

	var profiles []SensorProfile
	seen := make(map[SensorProfile]bool)
	for _, part := range strings.Split(s, ",") {
		profile := SensorProfile(strings.ToUpper(strings.TrimSpace(part)))
		if profile == "" || seen[profile] {
			continue
		}
		if !IsSensorProfile(profile) {
			return nil, fmt.Errorf("unknown sensor profile: %s", part)
		}
		seen[profile] = true
		profiles = append(profiles, profile)
	}
	return profiles, nil
}

// IsSensorProfile reports whether profile is one the bridge knows.
func IsSensorProfile(profile SensorProfile) bool {
	for _, p := range AllSensorProfiles {
		if p == profile {
			return true
		}
	}
	return false
}

type SensorEventKind int

const (
	SensorEventData SensorEventKind = iota
	SensorEventDetected
)

func (k SensorEventKind) String() string {
	switch k {
	case SensorEventData:
		return "data"
	case SensorEventDetected:
		return "detected"
	}
	return "unknown"
}

// SensorEvent is delivered by an AntChannel. Events of one channel are
// delivered in the order the radio produced them; Payload is only set for
// data events.
type SensorEvent struct {
	Kind     SensorEventKind
	Profile  SensorProfile
	DeviceID int
	Payload  SensorPayload
}

// DeviceTopic builds the topic prefix shared by all fields of one device.
func DeviceTopic(mainTopic string, profile SensorProfile, deviceID int) string {
	return mainTopic + "/" + string(profile) + "/" + strconv.Itoa(deviceID)
}

type AntStick interface {
	// Open reports false without error when the stick is not available yet.
	Open(ctx context.Context) (bool, error)
	// Channel returns nil without error when no channel could be opened yet.
	Channel(ctx context.Context) (AntChannel, error)
	Close() error
}

type AntChannel interface {
	Attach(profile SensorProfile) error
	StartScanner(ctx context.Context) error
	// Events is closed when the channel shuts down.
	Events() <-chan SensorEvent
	Close() error
}
