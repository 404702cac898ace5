// Package params defines the parameter bundle consumed by a simulation run.
//
// Conventions:
//   - Parameters are plain data with koanf tags so the config layer can decode them.
//   - Default() returns the reference parameterisation; Validate() reports the first
//     inconsistency as ErrInvalidParameters.
package params

import "math"

// Strategy names accepted by Parameters.
const (
	DistributionConstant    = "constant"
	DistributionExponential = "exponential"

	MoveWeighted = "weighted"
	MoveUniform  = "uniform"
	MoveTeleport = "teleport"

	AgingSwap      = "swap"
	AgingMortality = "mortality"
)

// DaysPerYear is the length of the simulated calendar year.
const DaysPerYear = 365

// EIPSigma is the log-normal SD of the extrinsic incubation period (Chan & Johansson 2012).
var EIPSigma = math.Pow(4.9, -0.5)

// MultiplierPeriod is one step of the seasonal mosquito capacity schedule.
type MultiplierPeriod struct {
	Days  int     `koanf:"days" yaml:"days"`
	Value float64 `koanf:"value" yaml:"value"`
}

// CatchupEvent vaccinates a fraction of everyone aged MinAge..MaxAge (inclusive) on Day.
type CatchupEvent struct {
	Day      int     `koanf:"day" yaml:"day"`
	MinAge   int     `koanf:"min_age" yaml:"min_age"`
	MaxAge   int     `koanf:"max_age" yaml:"max_age"`
	Coverage float64 `koanf:"coverage" yaml:"coverage"`
}

// VectorControlCampaign suppresses mosquitoes in a fraction of locations of one type.
type VectorControlCampaign struct {
	Day          int     `koanf:"day" yaml:"day"`
	Duration     int     `koanf:"duration" yaml:"duration"`
	Fraction     float64 `koanf:"fraction" yaml:"fraction"`
	LocationType string  `koanf:"location_type" yaml:"location_type"`
}

// Parameters is the full parameter bundle of one run.
type Parameters struct {
	// Run
	RunLength      int    `koanf:"run_length"`
	StartDayOfYear int    `koanf:"start_day_of_year"`
	RandomSeed     uint64 `koanf:"random_seed"`
	NumSerotypes   int    `koanf:"num_serotypes"`

	// Transmission
	BetaMP                     float64   `koanf:"beta_mp"`
	BetaPM                     float64   `koanf:"beta_pm"`
	BitingRate                 float64   `koanf:"biting_rate"`
	BitingPDF                  []float64 `koanf:"biting_pdf"`
	AsymptomaticInfectiousness float64   `koanf:"asymptomatic_infectiousness"`
	NoSecondaryTransmission    bool      `koanf:"no_secondary_transmission"`

	// Disease progression and immunity
	IncubationCDF         []float64 `koanf:"incubation_cdf"`
	InfectiousPeriod      int       `koanf:"infectious_period"`
	PrimaryPathogenicity  []float64 `koanf:"primary_pathogenicity"`
	SecondaryScaling      []float64 `koanf:"secondary_scaling"`
	SevereFraction        []float64 `koanf:"severe_fraction"`
	DaysImmune            int       `koanf:"days_immune"`
	CrossProtectionWaning bool      `koanf:"cross_protection_waning"`
	MaxInfectionParity    int       `koanf:"max_infection_parity"`

	// Mosquitoes
	ExpectedEIP             float64            `koanf:"expected_eip"`
	SimpleEIP               bool               `koanf:"simple_eip"`
	MosquitoLifespan        float64            `koanf:"mosquito_lifespan"`
	MosquitoDailySurvival   float64            `koanf:"mosquito_daily_survival"`
	DefaultMosquitoCapacity int                `koanf:"default_mosquito_capacity"`
	MosquitoDistribution    string             `koanf:"mosquito_distribution"`
	MosquitoMoveModel       string             `koanf:"mosquito_move_model"`
	MosquitoMove            float64            `koanf:"mosquito_move"`
	MosquitoTeleport        float64            `koanf:"mosquito_teleport"`
	MosquitoMultipliers     []MultiplierPeriod `koanf:"mosquito_multipliers"`
	MaxQueueHorizon         int                `koanf:"max_queue_horizon"`

	// Vaccine
	VaccineLeaky             bool      `koanf:"vaccine_leaky"`
	VESNaive                 []float64 `koanf:"ves_naive"`
	VESSeropositive          []float64 `koanf:"ves_seropositive"`
	VaccineDoses             int       `koanf:"vaccine_doses"`
	VaccineDoseInterval      int       `koanf:"vaccine_dose_interval"`
	VaccineBoosting          bool      `koanf:"vaccine_boosting"`
	VaccineBoostInterval     int       `koanf:"vaccine_boost_interval"`
	VaccineProtectionDays    int       `koanf:"vaccine_protection_days"`
	RetroactiveMatureVaccine bool      `koanf:"retroactive_mature_vaccine"`
	VaccineTargetAge         int       `koanf:"vaccine_target_age"`
	VaccineCoverage          float64   `koanf:"vaccine_coverage"`

	// Vector control
	VectorControlDuration int     `koanf:"vector_control_duration"`
	VectorControlEfficacy float64 `koanf:"vector_control_efficacy"`

	// Aging
	AgingModel      string    `koanf:"aging_model"`
	MaxAge          int       `koanf:"max_age"`
	AnnualMortality []float64 `koanf:"annual_mortality"`

	// External introductions
	DailyExposed            []float64 `koanf:"daily_exposed"`
	AnnualIntroductionsCoef float64   `koanf:"annual_introductions_coef"`
	AnnualIntroductions     []float64 `koanf:"annual_introductions"`
	ExpansionFactor         float64   `koanf:"expansion_factor"`
}

// Default returns the reference parameter set.
func Default() Parameters {
	return Parameters{
		RunLength:      DaysPerYear,
		StartDayOfYear: 0,
		RandomSeed:     5500,
		NumSerotypes:   4,

		BetaMP:                     0.25,
		BetaPM:                     0.1,
		BitingRate:                 1.0,
		BitingPDF:                  []float64{0.08, 0.76, 0.16},
		AsymptomaticInfectiousness: 1.0,

		IncubationCDF:        []float64{0, 0, 0, 0.03, 0.18, 0.46, 0.72, 0.87, 0.95, 0.98, 1.0},
		InfectiousPeriod:     5,
		PrimaryPathogenicity: []float64{1.0, 0.25, 1.0, 0.25},
		SecondaryScaling:     []float64{1.0, 1.0, 1.0, 1.0},
		SevereFraction:       []float64{0.0, 0.05, 0.01},
		DaysImmune:           365,
		MaxInfectionParity:   4,

		ExpectedEIP:             7.0,
		MosquitoLifespan:        12.0,
		MosquitoDailySurvival:   0.9,
		DefaultMosquitoCapacity: 70,
		MosquitoDistribution:    DistributionExponential,
		MosquitoMoveModel:       MoveWeighted,
		MosquitoMove:            0.5,
		MosquitoTeleport:        0.0,
		MosquitoMultipliers:     []MultiplierPeriod{{Days: DaysPerYear, Value: 1.0}},
		MaxQueueHorizon:         DaysPerYear,

		VaccineLeaky:         true,
		VESNaive:             []float64{0.35, 0.0, 0.35, 0.35},
		VESSeropositive:      []float64{0.7, 0.35, 0.7, 0.7},
		VaccineDoses:         1,
		VaccineDoseInterval:  182,
		VaccineBoostInterval: DaysPerYear,
		VaccineTargetAge:     -1,

		VectorControlDuration: 90,
		VectorControlEfficacy: 1.0,

		AgingModel: AgingSwap,
		MaxAge:     100,

		DailyExposed:            []float64{1.0, 1.0, 1.0, 1.0},
		AnnualIntroductionsCoef: 1.0,
		ExpansionFactor:         1.0,
	}
}

// EIPMu returns the log-normal location giving mean ExpectedEIP.
func (p *Parameters) EIPMu() float64 {
	return math.Log(p.ExpectedEIP) - EIPSigma*EIPSigma/2
}

// MultiplierForDay returns the seasonal capacity multiplier for a day of year.
func (p *Parameters) MultiplierForDay(dayOfYear int) float64 {
	if len(p.MosquitoMultipliers) == 0 {
		return 1.0
	}
	d := ((dayOfYear % DaysPerYear) + DaysPerYear) % DaysPerYear
	for _, period := range p.MosquitoMultipliers {
		if d < period.Days {
			return period.Value
		}
		d -= period.Days
	}
	return p.MosquitoMultipliers[len(p.MosquitoMultipliers)-1].Value
}

// DayOfYear maps a simulation day to a calendar day.
func (p *Parameters) DayOfYear(day int) int {
	return (p.StartDayOfYear + day) % DaysPerYear
}

// IntroductionScale returns the external introduction multiplier for the year
// containing simulation day.
func (p *Parameters) IntroductionScale(day int) float64 {
	scale := p.AnnualIntroductionsCoef
	year := (p.StartDayOfYear + day) / DaysPerYear
	if year < len(p.AnnualIntroductions) {
		scale *= p.AnnualIntroductions[year]
	}
	return scale
}

// Clone returns a deep copy so overrides never alias the defaults' slices.
func (p Parameters) Clone() Parameters {
	c := p
	c.BitingPDF = cloneFloats(p.BitingPDF)
	c.IncubationCDF = cloneFloats(p.IncubationCDF)
	c.PrimaryPathogenicity = cloneFloats(p.PrimaryPathogenicity)
	c.SecondaryScaling = cloneFloats(p.SecondaryScaling)
	c.SevereFraction = cloneFloats(p.SevereFraction)
	c.VESNaive = cloneFloats(p.VESNaive)
	c.VESSeropositive = cloneFloats(p.VESSeropositive)
	c.AnnualMortality = cloneFloats(p.AnnualMortality)
	c.DailyExposed = cloneFloats(p.DailyExposed)
	c.AnnualIntroductions = cloneFloats(p.AnnualIntroductions)
	if p.MosquitoMultipliers != nil {
		c.MosquitoMultipliers = append([]MultiplierPeriod(nil), p.MosquitoMultipliers...)
	}
	return c
}

func cloneFloats(in []float64) []float64 {
	if in == nil {
		return nil
	}
	return append([]float64(nil), in...)
}
