package doctor

import (
	"context"
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/doeshing/promptkeep/internal/application/prompts"
	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/ports"
)

// CounterReader exposes the last issued id without allocating one.
type CounterReader interface {
	Peek() (int, error)
}

// Service runs store diagnostics. It never repairs anything.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Counter        CounterReader
	Records        ports.RecordStore
	Versions       ports.VersionStore
	Prompts        *prompts.Service
	Index          ports.VersionIndex
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := cfg.ValidateConsistency(); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("format %s, %d models", cfg.ConfigFormatVersion, len(cfg.Models))))
	}

	recs, err := s.Records.List(ctx, domain.ListOptions{SortBy: domain.SortByID})
	if err != nil {
		checks = append(checks, fail("Prompt records", err.Error()))
		return domain.HealthReport{Checks: checks}, nil
	}
	checks = append(checks, ok("Prompt records", fmt.Sprintf("%d readable", len(recs))))

	entities, err := s.Versions.Entities(ctx)
	if err != nil {
		checks = append(checks, fail("Version history", err.Error()))
	}

	checks = append(checks, s.counterCheck(recs, entities))
	checks = append(checks, s.historyCheck(ctx, recs))
	checks = append(checks, apiCheck(cfg.Models))

	if s.Index == nil {
		checks = append(checks, warn("Version index", "disabled"))
	} else if hits, err := s.Index.Search(ctx, "", 0); err != nil {
		checks = append(checks, warn("Version index", err.Error()))
	} else {
		checks = append(checks, ok("Version index", fmt.Sprintf("%d versions indexed", len(hits))))
	}

	return domain.HealthReport{Checks: checks}, nil
}

// counterCheck flags a counter behind an id already on disk; the next create would collide.
func (s *Service) counterCheck(recs []domain.PromptRecord, entities []int) domain.HealthCheck {
	last, err := s.Counter.Peek()
	if err != nil {
		return fail("ID counter", err.Error())
	}
	highest := 0
	for _, r := range recs {
		highest = max(highest, r.ID)
	}
	for _, id := range entities {
		highest = max(highest, id)
	}
	if highest > last {
		return fail("ID counter", fmt.Sprintf("last issued id %d is below stored id %d", last, highest))
	}
	return ok("ID counter", fmt.Sprintf("last issued id %d", last))
}

func (s *Service) historyCheck(ctx context.Context, recs []domain.PromptRecord) domain.HealthCheck {
	if s.Prompts == nil {
		return warn("Version history", "not checked")
	}
	gaps := 0
	for _, r := range recs {
		report, err := s.Prompts.History(ctx, r.ID)
		if err != nil {
			if errors.Is(err, domain.ErrCorruptState) {
				return fail("Version history", err.Error())
			}
			return warn("Version history", err.Error())
		}
		gaps += len(report.Warnings)
	}
	if gaps > 0 {
		return warn("Version history", fmt.Sprintf("%d prompts changed without a matching snapshot", gaps))
	}
	return ok("Version history", "every prompt matches its latest version")
}

func apiCheck(models []domain.ModelDefinition) domain.HealthCheck {
	for _, model := range models {
		if model.APIKeyEnv != "" && os.Getenv(model.APIKeyEnv) == "" {
			return warn("API keys", fmt.Sprintf("%s missing for model %s", model.APIKeyEnv, model.Name))
		}
	}
	return ok("API keys", "detected for configured models")
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
