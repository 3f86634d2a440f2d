package tester

import (
	"context"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
	"github.com/neskk/PoGo-Proxies/internal/model"
)

// CountryLookup resolves a dotted-quad IPv4 address to a lowercase
// country name, or "n/a" when it cannot be resolved — the CountryLookup
// collaborator from spec.md §6.
type CountryLookup interface {
	CountryOf(ip string) string
}

// StartWorkers launches n worker goroutines that dequeue TestJobs from
// the manager's queue until it is closed, each holding its own transport
// session for the duration of one proxy test.
func (m *Manager) StartWorkers(ctx context.Context, n int, lookup CountryLookup) {
	for i := 0; i < n; i++ {
		go m.workerLoop(ctx, lookup)
	}
}

func (m *Manager) workerLoop(ctx context.Context, lookup CountryLookup) {
	for job := range m.queue {
		m.runOne(ctx, job, lookup)
	}
}

func (m *Manager) runOne(ctx context.Context, job model.TestJob, lookup CountryLookup) {
	sessCfg := m.cfg.RetryPolicy
	sessCfg.InsecureSkipVerify = true
	sessCfg.Proxy = proxySessionURL(job.Proxy)

	sess := fetcher.NewSession(sessCfg)
	defer sess.Close()

	RunPipeline(ctx, m.cfg, sess, &job)

	if job.AllOK() && m.countryIgnored(job.Proxy.IP, lookup) {
		job.PTCSignup = model.StageResult{Status: model.StatusError, Err: "country ignored"}
	}

	m.complete(job)
}

func (m *Manager) countryIgnored(ip string, lookup CountryLookup) bool {
	if lookup == nil || len(m.cfg.IgnoreCountries) == 0 {
		return false
	}
	country := lookup.CountryOf(ip)
	return m.cfg.IgnoreCountries[country]
}
