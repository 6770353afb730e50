// Package units provides the SI and preferred display units of the traffic
// statistics and the fixed factors between them.
package units

// Unit labels
const (
	Seconds       = "s"
	Hours         = "h"
	Meters        = "m"
	Kilometers    = "km"
	MPS           = "m/s"
	KMPH          = "km/h"
	PerMeter      = "/m"
	PerKilometer  = "/km"
	PerSecond     = "/s"
	PerHour       = "/h"
	Dimensionless = "-"
)

// Factors that take an SI value to its preferred unit: preferred = si * factor.
const (
	SecondsToHours         = 1.0 / 3600.0
	MetersToKilometers     = 1.0 / 1000.0
	MPSToKMPH              = 3.6
	PerMeterToPerKilometer = 1000.0
	PerSecondToPerHour     = 3600.0
)

// Conversion is a fixed linear rescale from an SI unit to a preferred unit.
type Conversion struct {
	SI        string
	Preferred string
	Factor    float64
}

// Apply rescales an SI value.
func (c Conversion) Apply(si float64) float64 {
	return si * c.Factor
}

// Conversions used by the statistics.
var (
	Time     = Conversion{SI: Seconds, Preferred: Hours, Factor: SecondsToHours}
	Distance = Conversion{SI: Meters, Preferred: Kilometers, Factor: MetersToKilometers}
	Speed    = Conversion{SI: MPS, Preferred: KMPH, Factor: MPSToKMPH}
	Density  = Conversion{SI: PerMeter, Preferred: PerKilometer, Factor: PerMeterToPerKilometer}
	Flow     = Conversion{SI: PerSecond, Preferred: PerHour, Factor: PerSecondToPerHour}
	Count    = Conversion{SI: Dimensionless, Preferred: Dimensionless, Factor: 1}
)
