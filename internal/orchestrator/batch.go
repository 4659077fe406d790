package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonesrussell/north-cloud/medgraph/internal/domain"
	"github.com/jonesrussell/north-cloud/medgraph/internal/logger"
)

// RunMany runs each distinct country once. With parallelism above one the
// countries run as independent pipelines; otherwise they run in order with
// the configured pause between them. Results keep the order of the
// de-duplicated input. The returned error is only the context's.
func (o *Orchestrator) RunMany(ctx context.Context, countries []string, opts RunOptions) ([]RunResult, error) {
	codes := uniqueCodes(countries)
	results := make([]RunResult, len(codes))

	if o.cfg.Parallelism <= 1 {
		for i, code := range codes {
			if i > 0 && o.cfg.CountryPause > 0 {
				if err := o.pause(ctx, o.cfg.CountryPause); err != nil {
					return results[:i], err
				}
			}
			results[i] = o.Run(ctx, code, opts)
		}
		return results, ctx.Err()
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.Parallelism)
	for i, code := range codes {
		i, code := i, code
		g.Go(func() error {
			results[i] = o.Run(ctx, code, opts)
			return nil
		})
	}
	_ = g.Wait()

	o.log.Info("Batch finished",
		logger.Int("countries", len(codes)),
		logger.Int("parallelism", o.cfg.Parallelism),
	)
	return results, ctx.Err()
}

func uniqueCodes(countries []string) []string {
	seen := make(map[string]bool, len(countries))
	out := make([]string, 0, len(countries))
	for _, c := range countries {
		code := domain.NormalizeCountryCode(c)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}
