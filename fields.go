package vedirect

import (
	"strconv"
	"strings"
)

// numericFields maps the integer TEXT fields of the VE.Direct protocol to
// the unit they are sent in. Fields without a unit map to "".
var numericFields = map[string]string{
	"V":        "mV",
	"V2":       "mV",
	"V3":       "mV",
	"VS":       "mV",
	"VM":       "mV",
	"DM":       "‰",
	"VPV":      "mV",
	"PPV":      "W",
	"I":        "mA",
	"I2":       "mA",
	"I3":       "mA",
	"IL":       "mA",
	"T":        "°C",
	"P":        "W",
	"CE":       "mAh",
	"SOC":      "‰",
	"TTG":      "min",
	"H1":       "mAh",
	"H2":       "mAh",
	"H3":       "mAh",
	"H4":       "",
	"H5":       "",
	"H6":       "mAh",
	"H7":       "mV",
	"H8":       "mV",
	"H9":       "s",
	"H10":      "",
	"H11":      "",
	"H12":      "",
	"H13":      "",
	"H14":      "",
	"H15":      "mV",
	"H16":      "mV",
	"H17":      "0.01kWh",
	"H18":      "0.01kWh",
	"H19":      "0.01kWh",
	"H20":      "0.01kWh",
	"H21":      "W",
	"H22":      "0.01kWh",
	"H23":      "W",
	"HSDS":     "",
	"CS":       "",
	"ERR":      "",
	"MPPT":     "",
	"AC_OUT_V": "0.01V",
	"AC_OUT_I": "0.1A",
	"AC_OUT_S": "VA",
}

// FieldUnit returns the unit a numeric field is transmitted in. ok is false
// for fields that are not numeric or not known.
func FieldUnit(name string) (unit string, ok bool) {
	unit, ok = numericFields[strings.ToUpper(name)]
	return unit, ok
}

// ParseNumeric converts the value of a known numeric field to whole units,
// e.g. ("V", "12800") gives (12.8, "V"). ok is false for unknown fields and
// values that are not integers.
func ParseNumeric(name, value string) (v float64, unit string, ok bool) {
	unit, ok = FieldUnit(name)
	if !ok {
		return 0, "", false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, "", false
	}
	v, unit = WholeUnits(n, unit)
	return v, unit, true
}

// WholeUnits scales a raw integer from its transmitted unit to the whole
// unit: mV to V, 0.01kWh to kWh, ‰ to %.
func WholeUnits(v int64, unit string) (float64, string) {
	switch {
	case unit == "":
		return float64(v), unit
	case unit == "‰":
		return float64(v) / 10, "%"
	case strings.HasPrefix(unit, "0.01"):
		return float64(v) / 100, unit[4:]
	case strings.HasPrefix(unit, "0.1"):
		return float64(v) / 10, unit[3:]
	case unit == "min":
		return float64(v), unit
	case unit[0] == 'm':
		return float64(v) / 1000, unit[1:]
	}
	return float64(v), unit
}
