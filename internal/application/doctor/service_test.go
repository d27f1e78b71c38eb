package doctor

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/promptkeep/internal/application/prompts"
	"github.com/doeshing/promptkeep/internal/domain"
	"github.com/doeshing/promptkeep/internal/infrastructure/history"
	"github.com/doeshing/promptkeep/internal/infrastructure/records"
)

type staticConfig struct{ cfg domain.Config }

func (s staticConfig) Load(context.Context) (domain.Config, error) { return s.cfg, nil }

type fixedCounter int

func (f fixedCounter) Peek() (int, error) { return int(f), nil }

func statusOf(report domain.HealthReport, name string) domain.HealthStatus {
	for _, c := range report.Checks {
		if c.Name == name {
			return c.Status
		}
	}
	return ""
}

func newService(t *testing.T) (*Service, *records.Counter) {
	t.Helper()
	root := t.TempDir()
	cfg := domain.Config{ConfigFormatVersion: "1"}
	counter := records.NewCounter(filepath.Join(root, "counter"))
	recs := records.NewFileStore(filepath.Join(root, "prompts"), counter)
	versions := history.NewFileStore(filepath.Join(root, "versions"), 3)
	return &Service{
		ConfigProvider: staticConfig{cfg: cfg},
		Counter:        counter,
		Records:        recs,
		Versions:       versions,
		Prompts:        &prompts.Service{ConfigProvider: staticConfig{cfg: cfg}, Records: recs, Versions: versions},
	}, counter
}

func TestDoctorHealthyStore(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Prompts.Create(ctx, domain.PromptDraft{Name: "p", Template: "x"}, "")
	require.NoError(t, err)

	report, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.True(t, report.Healthy())
	assert.Equal(t, domain.HealthOK, statusOf(report, "ID counter"))
	assert.Equal(t, domain.HealthOK, statusOf(report, "Version history"))
	assert.Equal(t, domain.HealthWarn, statusOf(report, "Version index"))
}

func TestDoctorFlagsCounterBehindStoredIDs(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Prompts.Create(ctx, domain.PromptDraft{Name: "p", Template: "x"}, "")
	require.NoError(t, err)
	_, err = svc.Prompts.Create(ctx, domain.PromptDraft{Name: "q", Template: "y"}, "")
	require.NoError(t, err)

	svc.Counter = fixedCounter(1)
	report, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.False(t, report.Healthy())
	assert.Equal(t, domain.HealthError, statusOf(report, "ID counter"))
}

func TestDoctorReportsHistoryGaps(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	res, err := svc.Prompts.Create(ctx, domain.PromptDraft{Name: "p", Template: "x"}, "")
	require.NoError(t, err)
	_, err = svc.Records.Update(ctx, res.Record.ID, func(rec *domain.PromptRecord) error {
		rec.Template = "changed"
		return nil
	})
	require.NoError(t, err)

	report, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.HealthWarn, statusOf(report, "Version history"))
	assert.True(t, report.Healthy())
}
