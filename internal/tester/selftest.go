package tester

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
)

// SelfTest runs stages 2-4 directly, with no proxy in front of the
// session, before the manager enqueues any job (the worker goroutines may
// already be started, waiting on the empty queue). If any stage fails
// its predicate the engine must refuse to start, since a broken target
// URL or an expired expected-body string would otherwise fail every
// proxy and look indistinguishable from a dead proxy pool.
func SelfTest(ctx context.Context, cfg Config) error {
	sess := fetcher.NewSession(cfg.RetryPolicy)
	defer sess.Close()

	stages := []struct {
		id        stage
		target    string
		host      string
		predicate func([]byte) bool
	}{
		{stageNiantic, cfg.NianticURL, sonoHost, nianticPredicate(cfg.PogoVersion)},
		{statePTCLogin, cfg.PTCLoginURL, sonoHost, ptcLoginPredicate},
		{stagePTCSignup, cfg.PTCSignupURL, "", ptcSignupPredicate(cfg.PTCSignupTitle)},
	}

	for _, s := range stages {
		result := runStageRaw(ctx, sess, s.target, s.host, cfg.UserAgent, s.id, cfg)
		if result.body != nil && cfg.Debug {
			if err := cacheResponse(cfg.DownloadPath, s.id, result.body); err != nil {
				return fmt.Errorf("tester: self-test: caching %s response: %w", s.id, err)
			}
		}
		if result.err != nil {
			return fmt.Errorf("tester: self-test failed on stage %s: %w", s.id, result.err)
		}
		if !s.predicate(result.body) {
			return fmt.Errorf("tester: self-test failed on stage %s: predicate rejected response", s.id)
		}
	}

	return nil
}

type rawResult struct {
	body []byte
	err  error
}

// runStageRaw issues the stage's request without the OK/ERROR/BANNED
// classification runStage applies, since self-test wants the raw body
// and error regardless of status so it can report precisely which
// stage and predicate failed.
func runStageRaw(ctx context.Context, sess *fetcher.Session, target, host, userAgent string, id stage, cfg Config) rawResult {
	headers := headersWithHost(fixedHeaders(userAgent), target, host)
	_, body, err := sess.Get(ctx, target, headers)
	return rawResult{body: body, err: err}
}

func cacheResponse(downloadPath string, id stage, body []byte) error {
	if downloadPath == "" {
		return nil
	}
	if err := os.MkdirAll(downloadPath, 0o755); err != nil {
		return err
	}
	path := filepath.Join(downloadPath, fmt.Sprintf("response_%s.txt", id))
	return os.WriteFile(path, body, 0o644)
}
