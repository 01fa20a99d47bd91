package cli

import (
	"github.com/aretw0/ratlab/internal/config"
	"github.com/aretw0/ratlab/pkg/ports"
	"github.com/aretw0/ratlab/pkg/registry"
)

// createEvaluatorFactory picks the evaluator for cfg.Engine and returns it
// together with the engine name recorded on new sessions.
func createEvaluatorFactory(cfg *config.Config) (ports.EvaluatorFactory, string, error) {
	factory, err := registry.Default().Build(cfg.Engine, engineSettings(cfg))
	if err != nil {
		return nil, "", err
	}
	return factory, cfg.Engine, nil
}

// engineSettings passes the options of the selected engine only.
func engineSettings(cfg *config.Config) map[string]any {
	switch cfg.Engine {
	case "js":
		return map[string]any{
			"timeout":          cfg.JS.Timeout,
			"max_output_chars": cfg.JS.MaxOutputChars,
		}
	}
	return nil
}
