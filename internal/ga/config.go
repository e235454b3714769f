package ga

import (
	"errors"
	"fmt"

	"github.com/ionutmarisca/School-Timetable-AI/internal/utils"
)

var ErrInvalidConfig = errors.New("遗传算法参数不合法")

// Config 遗传算法参数，构造后不可修改
type Config struct {
	PopulationSize int     `json:"populationSize" validate:"required,min=1"`
	MutationRate   float64 `json:"mutationRate" validate:"min=0,max=1"`
	CrossoverRate  float64 `json:"crossoverRate" validate:"min=0,max=1"`
	ElitismCount   int     `json:"elitismCount" validate:"min=0,ltefield=PopulationSize"`
	TournamentSize int     `json:"tournamentSize" validate:"required,min=1,ltefield=PopulationSize"`
}

func (cfg Config) Validate() error {
	validate, trans, err := utils.NewValidator()
	if err != nil {
		return err
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, utils.TranslateValidationError(err, trans))
	}

	return nil
}
