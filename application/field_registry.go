package application

import "fmt"

// FieldManufacturerID is the payload key carrying the numeric ANT+
// manufacturer code. Its value is published as a display name.
const FieldManufacturerID = "ManId"

type FieldDescriptor struct {
	Key           string
	TopicSuffix   string
	CacheEligible bool
}

// FieldRegistry is ordered; publish order follows registry order.
type FieldRegistry []FieldDescriptor

func (r FieldRegistry) Lookup(key string) (FieldDescriptor, bool) {
	for _, fd := range r {
		if fd.Key == key {
			return fd, true
		}
	}
	return FieldDescriptor{}, false
}

func (r FieldRegistry) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for _, fd := range r {
		if fd.Key == "" || fd.TopicSuffix == "" {
			return fmt.Errorf("field descriptor with empty key or topic suffix: %+v", fd)
		}
		if _, ok := seen[fd.Key]; ok {
			return fmt.Errorf("duplicate field key: %s", fd.Key)
		}
		seen[fd.Key] = struct{}{}
	}
	return nil
}

// DefaultFieldRegistry covers the fields decoded for the HR, CAD, SPD, SC,
// PWR and FE profiles. Live measurements are cache eligible so they fall
// back to zero once a sensor goes quiet; identity and battery fields are not.
// A few suffixes are shared by keys of different profiles, such as heart rate
// from a strap and from fitness equipment. A profile reports only one key of
// each pair.
var DefaultFieldRegistry = FieldRegistry{
	// common pages
	{Key: FieldManufacturerID, TopicSuffix: "manufacturer"},
	{Key: "SerialNumber", TopicSuffix: "serialNumber"},
	{Key: "HwVersion", TopicSuffix: "hwVersion"},
	{Key: "SwVersion", TopicSuffix: "swVersion"},
	{Key: "ModelNum", TopicSuffix: "modelNumber"},
	{Key: "BatteryStatus", TopicSuffix: "batteryStatus"},
	{Key: "BatteryVoltage", TopicSuffix: "batteryVoltage"},
	{Key: "OperatingTime", TopicSuffix: "operatingTime"},

	// heart rate
	{Key: "ComputedHeartRate", TopicSuffix: "heartRate", CacheEligible: true},
	{Key: "BeatCount", TopicSuffix: "beatCount"},
	{Key: "RRInterval", TopicSuffix: "rrInterval", CacheEligible: true},

	// speed & cadence
	{Key: "CalculatedCadence", TopicSuffix: "cadence", CacheEligible: true},
	{Key: "CalculatedSpeed", TopicSuffix: "speed", CacheEligible: true},
	{Key: "CalculatedDistance", TopicSuffix: "distance"},
	{Key: "Motion", TopicSuffix: "motion", CacheEligible: true},

	// bicycle power
	{Key: "Power", TopicSuffix: "power", CacheEligible: true},
	{Key: "Cadence", TopicSuffix: "cadence", CacheEligible: true},
	{Key: "PedalPower", TopicSuffix: "pedalPower", CacheEligible: true},
	{Key: "RightPedal", TopicSuffix: "rightPedal", CacheEligible: true},
	{Key: "AccumulatedPower", TopicSuffix: "accumulatedPower"},
	{Key: "LeftTorqueEffectiveness", TopicSuffix: "leftTorqueEffectiveness", CacheEligible: true},
	{Key: "RightTorqueEffectiveness", TopicSuffix: "rightTorqueEffectiveness", CacheEligible: true},
	{Key: "LeftPedalSmoothness", TopicSuffix: "leftPedalSmoothness", CacheEligible: true},
	{Key: "RightPedalSmoothness", TopicSuffix: "rightPedalSmoothness", CacheEligible: true},

	// fitness equipment
	{Key: "EquipmentType", TopicSuffix: "equipmentType"},
	{Key: "State", TopicSuffix: "state"},
	{Key: "ElapsedTime", TopicSuffix: "elapsedTime"},
	{Key: "Distance", TopicSuffix: "distance"},
	{Key: "RealSpeed", TopicSuffix: "realSpeed", CacheEligible: true},
	{Key: "VirtualSpeed", TopicSuffix: "virtualSpeed", CacheEligible: true},
	{Key: "HeartRate", TopicSuffix: "heartRate", CacheEligible: true},
	{Key: "InstantaneousPower", TopicSuffix: "power", CacheEligible: true},
	{Key: "Incline", TopicSuffix: "incline"},
	{Key: "Resistance", TopicSuffix: "resistance"},
}
