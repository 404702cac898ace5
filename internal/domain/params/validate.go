package params

import (
	"fmt"
	"math"
)

type table struct {
	name   string
	values []float64
}

// Validate reports the first inconsistency in the bundle. A non-nil error wraps
// ErrInvalidParameters and names the offending field.
func (p *Parameters) Validate() error {
	if p.RunLength <= 0 {
		return invalid("run_length", "must be positive, got %d", p.RunLength)
	}
	if p.StartDayOfYear < 0 || p.StartDayOfYear >= DaysPerYear {
		return invalid("start_day_of_year", "must be in [0, %d), got %d", DaysPerYear, p.StartDayOfYear)
	}
	if p.NumSerotypes <= 0 {
		return invalid("num_serotypes", "must be positive, got %d", p.NumSerotypes)
	}

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"beta_mp", p.BetaMP},
		{"beta_pm", p.BetaPM},
		{"mosquito_daily_survival", p.MosquitoDailySurvival},
		{"mosquito_move", p.MosquitoMove},
		{"mosquito_teleport", p.MosquitoTeleport},
		{"vaccine_coverage", p.VaccineCoverage},
		{"vector_control_efficacy", p.VectorControlEfficacy},
	} {
		if err := probability(f.name, f.v); err != nil {
			return err
		}
	}
	if p.BitingRate < 0 || math.IsNaN(p.BitingRate) {
		return invalid("biting_rate", "must be non-negative, got %v", p.BitingRate)
	}
	if p.AsymptomaticInfectiousness < 0 {
		return invalid("asymptomatic_infectiousness", "must be non-negative, got %v", p.AsymptomaticInfectiousness)
	}
	if len(p.BitingPDF) != 3 {
		return invalid("biting_pdf", "needs 3 entries (morning, day, evening), got %d", len(p.BitingPDF))
	}

	for _, t := range []table{
		{"primary_pathogenicity", p.PrimaryPathogenicity},
		{"secondary_scaling", p.SecondaryScaling},
		{"ves_naive", p.VESNaive},
		{"ves_seropositive", p.VESSeropositive},
		{"daily_exposed", p.DailyExposed},
	} {
		if len(t.values) != p.NumSerotypes {
			return invalid(t.name, "needs %d entries, got %d", p.NumSerotypes, len(t.values))
		}
	}
	for _, t := range []table{
		{"primary_pathogenicity", p.PrimaryPathogenicity},
		{"ves_naive", p.VESNaive},
		{"ves_seropositive", p.VESSeropositive},
		{"severe_fraction", p.SevereFraction},
	} {
		for _, v := range t.values {
			if err := probability(t.name, v); err != nil {
				return err
			}
		}
	}
	if len(p.SevereFraction) == 0 {
		return invalid("severe_fraction", "must not be empty")
	}

	if err := p.validateIncubation(); err != nil {
		return err
	}
	if p.InfectiousPeriod <= 0 {
		return invalid("infectious_period", "must be positive, got %d", p.InfectiousPeriod)
	}
	if p.DaysImmune < 0 {
		return invalid("days_immune", "must be non-negative, got %d", p.DaysImmune)
	}
	if p.MaxInfectionParity <= 0 || p.MaxInfectionParity > p.NumSerotypes {
		return invalid("max_infection_parity", "must be in [1, %d], got %d", p.NumSerotypes, p.MaxInfectionParity)
	}

	if p.ExpectedEIP <= 0 {
		return invalid("expected_eip", "must be positive, got %v", p.ExpectedEIP)
	}
	if p.MosquitoLifespan <= 0 {
		return invalid("mosquito_lifespan", "must be positive, got %v", p.MosquitoLifespan)
	}
	if p.DefaultMosquitoCapacity < 0 {
		return invalid("default_mosquito_capacity", "must be non-negative, got %d", p.DefaultMosquitoCapacity)
	}
	switch p.MosquitoDistribution {
	case DistributionConstant, DistributionExponential:
	default:
		return invalid("mosquito_distribution", "unknown strategy %q", p.MosquitoDistribution)
	}
	switch p.MosquitoMoveModel {
	case MoveWeighted, MoveUniform, MoveTeleport:
	default:
		return invalid("mosquito_move_model", "unknown strategy %q", p.MosquitoMoveModel)
	}
	if err := p.validateMultipliers(); err != nil {
		return err
	}
	if p.MaxQueueHorizon <= 0 {
		return invalid("max_queue_horizon", "must be positive, got %d", p.MaxQueueHorizon)
	}

	if p.VaccineDoses <= 0 {
		return invalid("vaccine_doses", "must be positive, got %d", p.VaccineDoses)
	}
	if p.VaccineDoses > 1 && p.VaccineDoseInterval <= 0 {
		return invalid("vaccine_dose_interval", "must be positive for multi-dose schedules, got %d", p.VaccineDoseInterval)
	}
	if p.VaccineBoosting && p.VaccineBoostInterval <= 0 {
		return invalid("vaccine_boost_interval", "must be positive when boosting, got %d", p.VaccineBoostInterval)
	}
	if p.VaccineProtectionDays < 0 {
		return invalid("vaccine_protection_days", "must be non-negative, got %d", p.VaccineProtectionDays)
	}
	if p.VectorControlDuration < 0 {
		return invalid("vector_control_duration", "must be non-negative, got %d", p.VectorControlDuration)
	}

	switch p.AgingModel {
	case AgingSwap:
	case AgingMortality:
		if len(p.AnnualMortality) == 0 {
			return invalid("annual_mortality", "required by the %q aging model", AgingMortality)
		}
		for _, v := range p.AnnualMortality {
			if err := probability("annual_mortality", v); err != nil {
				return err
			}
		}
	default:
		return invalid("aging_model", "unknown strategy %q", p.AgingModel)
	}
	if p.MaxAge <= 0 {
		return invalid("max_age", "must be positive, got %d", p.MaxAge)
	}
	if p.ExpansionFactor <= 0 {
		return invalid("expansion_factor", "must be positive, got %v", p.ExpansionFactor)
	}
	return nil
}

func (p *Parameters) validateIncubation() error {
	if len(p.IncubationCDF) == 0 {
		return invalid("incubation_cdf", "must not be empty")
	}
	prev := 0.0
	for i, v := range p.IncubationCDF {
		if v < prev || v > 1 {
			return invalid("incubation_cdf", "entry %d (%v) breaks monotonicity", i, v)
		}
		prev = v
	}
	if prev != 1 {
		return invalid("incubation_cdf", "must end at 1, got %v", prev)
	}
	return nil
}

func (p *Parameters) validateMultipliers() error {
	total := 0
	for i, period := range p.MosquitoMultipliers {
		if period.Days <= 0 {
			return invalid("mosquito_multipliers", "period %d has %d days", i, period.Days)
		}
		if period.Value < 0 {
			return invalid("mosquito_multipliers", "period %d has negative value %v", i, period.Value)
		}
		total += period.Days
	}
	if len(p.MosquitoMultipliers) > 0 && total != DaysPerYear {
		return invalid("mosquito_multipliers", "periods sum to %d days, want %d", total, DaysPerYear)
	}
	return nil
}

func probability(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return invalid(field, "must be a probability, got %v", v)
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidParameters, field, fmt.Sprintf(format, args...))
}
