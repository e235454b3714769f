package domain

import "time"

type GenerationReport struct {
	RunID             string  `json:"runID"`
	Generation        int     `json:"generation"`
	BestFitness       float64 `json:"bestFitness"`
	PopulationFitness float64 `json:"populationFitness"`
	MeanFitness       float64 `json:"meanFitness"`
	StdDevFitness     float64 `json:"stdDevFitness"`
}

type FinalReport struct {
	RunID             string        `json:"runID"`
	Generations       int           `json:"generations"`
	Solved            bool          `json:"solved"`
	BestFitness       float64       `json:"bestFitness"`
	PopulationFitness float64       `json:"populationFitness"`
	Clashes           int           `json:"clashes"`
	Classes           []Class       `json:"classes"`
	Elapsed           time.Duration `json:"elapsed"`
}
