package application

import (
	"fmt"
	"math"
	"strconv"
)

type ManufacturerTable map[int]string

// Resolve returns the display name for an ANT+ manufacturer code, or the
// code itself when it is not recognised.
func (t ManufacturerTable) Resolve(code any) string {
	id, ok := manufacturerCode(code)
	if ok {
		if name, found := t[id]; found {
			return name
		}
	}
	return FormatValue(code)
}

func manufacturerCode(code any) (int, bool) {
	switch v := code.(type) {
	case int:
		return v, true
	case int8:
		return int(v), true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case uint64:
		return int(v), true
	case float32:
		return manufacturerCode(float64(v))
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case string:
		id, err := strconv.Atoi(v)
		return id, err == nil
	case fmt.Stringer:
		return manufacturerCode(v.String())
	}
	return 0, false
}

// DefaultManufacturers follows the manufacturer list of the ANT+ / FIT
// device profile.
var DefaultManufacturers = ManufacturerTable{
	1:    "Garmin",
	2:    "Garmin FR405 ANTFS",
	3:    "Zephyr",
	4:    "Dayton",
	5:    "IDT",
	6:    "SRM",
	7:    "Quarq",
	8:    "iBike",
	9:    "Saris",
	10:   "Spark HK",
	11:   "Tanita",
	12:   "Echowell",
	13:   "Dynastream OEM",
	14:   "Nautilus",
	15:   "Dynastream",
	16:   "Timex",
	17:   "MetriGear",
	18:   "Xelic",
	19:   "Beurer",
	20:   "Cardiosport",
	21:   "A&D",
	22:   "HMM",
	23:   "Suunto",
	24:   "Thita Elektronik",
	25:   "GPulse",
	26:   "Clean Mobile",
	27:   "Pedal Brain",
	28:   "Peaksware",
	29:   "Saxonar",
	30:   "LeMond Fitness",
	31:   "Dexcom",
	32:   "Wahoo Fitness",
	33:   "Octane Fitness",
	34:   "Archinoetics",
	35:   "The Hurt Box",
	36:   "Citizen Systems",
	37:   "Magellan",
	38:   "Osynce",
	39:   "Holux",
	40:   "Concept2",
	41:   "Shimano",
	42:   "One Giant Leap",
	43:   "Ace Sensor",
	44:   "Brim Brothers",
	45:   "Xplova",
	46:   "Perception Digital",
	47:   "BF1 Systems",
	48:   "Pioneer",
	49:   "Spantec",
	50:   "Metalogics",
	51:   "4iiii",
	52:   "Seiko Epson",
	53:   "Seiko Epson OEM",
	54:   "iFor Powell",
	55:   "Maxwell Guider",
	56:   "Star Trac",
	57:   "Breakaway",
	58:   "Alatech Technology",
	59:   "Mio Technology Europe",
	60:   "Rotor",
	61:   "Geonaute",
	62:   "ID Bike",
	63:   "Specialized",
	64:   "WTEK",
	65:   "Physical Enterprises",
	66:   "North Pole Engineering",
	67:   "BKOOL",
	68:   "CatEye",
	69:   "Stages Cycling",
	70:   "Sigma Sport",
	71:   "TomTom",
	72:   "Peripedal",
	73:   "Wattbike",
	76:   "Moxy",
	77:   "Ciclosport",
	78:   "Powerbahn",
	79:   "Acorn Projects",
	80:   "LifeBEAM",
	81:   "Bontrager",
	82:   "Wellgo",
	83:   "Scosche",
	84:   "Magura",
	85:   "Woodway",
	86:   "Elite",
	87:   "Nielsen-Kellerman",
	88:   "DK City",
	89:   "Tacx",
	90:   "Direction Technology",
	91:   "Magtonic",
	92:   "1partCarbon",
	93:   "Inside Ride Technologies",
	94:   "Sound of Motion",
	95:   "Stryd",
	96:   "ICG",
	97:   "MiPulse",
	98:   "BSX Athletics",
	99:   "Look",
	100:  "Campagnolo",
	101:  "Body Bike Smart",
	102:  "Praxisworks",
	103:  "Limits Technology",
	104:  "TopAction Technology",
	105:  "Cosinuss",
	106:  "Fitcare",
	107:  "Magene",
	108:  "Giant",
	109:  "Tigrasport",
	110:  "Salutron",
	111:  "Technogym",
	112:  "Bryton Sensors",
	113:  "Latitude Limited",
	114:  "Soaring Technology",
	115:  "iGPSport",
	116:  "ThinkRider",
	117:  "Gopher Sport",
	118:  "WaterRower",
	119:  "Orangetheory",
	120:  "Inpeak",
	121:  "Kinetic",
	122:  "Johnson Health Tech",
	123:  "Polar",
	124:  "See.Sense",
	125:  "NCI Technology",
	126:  "IQsquare",
	127:  "LEOMO",
	128:  "iFit",
	129:  "COROS",
	130:  "Versa Design",
	131:  "Chileaf",
	132:  "Cycplus",
	133:  "Gravaa",
	134:  "Sigeyi",
	135:  "Coospo",
	136:  "Geoid",
	137:  "Bosch",
	138:  "Kyto",
	139:  "Kinetic Sports",
	140:  "Decathlon",
	141:  "TQ Systems",
	142:  "TAG Heuer",
	143:  "Keiser Fitness",
	144:  "Zwift",
	145:  "Porsche eBike Performance",
	255:  "Development",
	257:  "Health and Life",
	258:  "Lezyne",
	259:  "Scribe Labs",
	260:  "Zwift",
	261:  "Watteam",
	262:  "Recon",
	263:  "Favero Electronics",
	264:  "Dynovelo",
	265:  "Strava",
	266:  "Precor",
	267:  "Bryton",
	268:  "SRAM",
	269:  "Navman",
	270:  "COBI",
	271:  "Spivi",
	272:  "Mio Magellan",
	273:  "Evesports",
	274:  "Sensitivus Gauge",
	275:  "Podoon",
	276:  "Life Time Fitness",
	277:  "Falco eMotors",
	278:  "Minoura",
	279:  "Cycliq",
	280:  "Luxottica",
	281:  "TrainerRoad",
	282:  "The Sufferfest",
	283:  "Full Speed Ahead",
	284:  "Virtual Training",
	285:  "Feedback Sports",
	286:  "Omata",
	287:  "VDO",
	288:  "Magnetic Days",
	289:  "Hammerhead",
	290:  "Kinetic by Kurt",
	291:  "Shapelog",
	292:  "Dabuziduo",
	293:  "JetBlack",
	294:  "COROS",
	295:  "Virtugo",
	296:  "Velosense",
	297:  "Cycligent",
	298:  "Trailforks",
	299:  "Mahle ebikemotion",
	300:  "NURVV",
	301:  "Microprogram",
	302:  "Zone5Cloud",
	303:  "greenteg",
	304:  "Yamaha Motors",
	305:  "WHOOP",
	306:  "Gravaa",
	307:  "Onelap",
	308:  "Monark Exercise",
	309:  "FORM",
	310:  "Decathlon",
	311:  "Syncros",
	5759: "ActiGraph",
}
