package model

// MosquitoRecord describes one infected mosquito at snapshot time.
type MosquitoRecord struct {
	ID         int    `json:"id"`
	LocationID int    `json:"location_id"`
	State      string `json:"state"`
	Serotype   int    `json:"serotype"`
	InfectedBy int    `json:"infected_by"`
	DaysLeft   int    `json:"days_left"` // until infectious (exposed) or death (infectious)
	// InfectiousDays is how long an exposed mosquito will stay infectious.
	// Zero on an exposed record means the remaining life is drawn on restore.
	InfectiousDays int `json:"infectious_days,omitempty"`
}

// LocationState describes mosquito occupancy of one location.
type LocationState struct {
	ID            int     `json:"id"`
	Type          string  `json:"type"`
	BaseCapacity  int     `json:"base_capacity"`
	Target        int     `json:"target"`
	Susceptible   int     `json:"susceptible"`
	Infected      int     `json:"infected"`
	VectorControl bool    `json:"vector_control"`
	Multiplier    float64 `json:"multiplier"`
}

// ImmunityState describes the immune profile of one person.
type ImmunityState struct {
	ID         int   `json:"id"`
	Age        int   `json:"age"`
	Immune     []int `json:"immune"` // 1 when immune to the serotype
	Parity     int   `json:"parity"`
	Vaccinated bool  `json:"vaccinated"`
	Doses      int   `json:"doses"`
}

// DailySeries carries per-day, per-serotype case arrays of a finished run.
type DailySeries struct {
	NewlyInfected    [][]int `json:"newly_infected"`
	NewlySymptomatic [][]int `json:"newly_symptomatic"`
	SevereCases      [][]int `json:"severe_cases"`
	VaccinatedCases  [][]int `json:"vaccinated_cases"`
	Introductions    [][]int `json:"introductions"`
}
