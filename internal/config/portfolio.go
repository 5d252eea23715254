package config

import (
	"fmt"
	"io"
	"os"

	portfolio "github.com/MitchK/PortfolioOptimizer"
	"gopkg.in/yaml.v2"
)

// PortfolioFile is the YAML description of a minimum-variance problem.
// Weights is optional and is used as the starting point or as the weights to
// evaluate.
type PortfolioFile struct {
	Assets  []string    `yaml:"assets,omitempty" validate:"omitempty,dive,required"`
	StdDevs []float64   `yaml:"stddevs" validate:"required,min=1,dive,gte=0"`
	Corr    [][]float64 `yaml:"corr" validate:"required,dive,required,dive,gte=-1,lte=1"`
	Weights []float64   `yaml:"weights,omitempty"`
}

func (p *PortfolioFile) Problem() portfolio.Problem {
	return portfolio.Problem{StdDevs: p.StdDevs, Corr: p.Corr}
}

// Validate checks field ranges and that the dimensions agree.
func (p *PortfolioFile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("portfolio validation failed: %v: %w", err, portfolio.ErrInvalidInput)
	}
	if err := p.Problem().Validate(); err != nil {
		return err
	}
	n := len(p.StdDevs)
	if len(p.Assets) != 0 && len(p.Assets) != n {
		return fmt.Errorf("%v asset names for %v assets: %w", len(p.Assets), n, portfolio.ErrInvalidInput)
	}
	if len(p.Weights) != 0 && len(p.Weights) != n {
		return fmt.Errorf("%v weights for %v assets: %w", len(p.Weights), n, portfolio.ErrInvalidInput)
	}
	return nil
}

// Name returns the name of asset i, or its index if the file names none.
func (p *PortfolioFile) Name(i int) string {
	if i < len(p.Assets) {
		return p.Assets[i]
	}
	return fmt.Sprintf("asset%v", i)
}

func ReadPortfolio(r io.Reader) (*PortfolioFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var p PortfolioFile
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse portfolio: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func LoadPortfolio(path string) (*PortfolioFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadPortfolio(f)
}

func WritePortfolio(w io.Writer, p *PortfolioFile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
