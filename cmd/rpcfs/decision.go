package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/desertwitch/rpcfs"
	"github.com/desertwitch/rpcfs/internal/access"
	"github.com/desertwitch/rpcfs/internal/configuration"
	"github.com/desertwitch/rpcfs/internal/decision"
	"github.com/desertwitch/rpcfs/internal/prompt"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// buildDecision composes the configured policies into a single decision.
// All configured policies need to agree, the cheaper ones are asked first.
// Without any policy every request is allowed, which is logged loudly.
func buildDecision(cfg *configuration.Config, in io.Reader, out io.Writer, reg prometheus.Registerer, logger *slog.Logger) (rpcfs.Decision, error) {
	var decisions []access.Decision

	if cfg.PolicyFile != "" {
		rules, err := decision.LoadRules(cfg.PolicyFile)
		if err != nil {
			return nil, fmt.Errorf("(main) %w", err)
		}
		decisions = append(decisions, rules.Decide)
	}

	if cfg.PolicyURL != "" {
		remote := decision.NewRemote(cfg.PolicyURL, cfg.PolicyTimeout, cfg.PolicyRetries, logger)
		decisions = append(decisions, remote.Decide)
	}

	if cfg.Interactive {
		prompter := prompt.NewHandler(
			prompt.WithInput(in),
			prompt.WithOutput(out),
			prompt.WithLogger(logger),
		)
		decisions = append(decisions, prompter.Decide)
	}

	var d access.Decision
	if len(decisions) == 0 {
		logger.Warn("No access policy configured: allowing all requests within the root.")
		d = rpcfs.AllowAll
	} else {
		d = decision.All(decisions...)
	}

	if cfg.RateLimit > 0 {
		d = decision.Throttle(d, rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	}

	if reg != nil {
		d = decision.NewMetrics(reg).Wrap(d)
	}

	if cfg.Audit {
		d = decision.Audit(d, logger)
	}

	return d, nil
}
