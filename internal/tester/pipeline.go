// Package tester implements the test engine (C5): the manager/worker pool
// that drives the four-stage HTTP pipeline against each candidate proxy
// and batches the results back to the store.
package tester

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neskk/PoGo-Proxies/internal/fetcher"
	"github.com/neskk/PoGo-Proxies/internal/model"
)

// Config tunes the pipeline's targets, headers and timing. It is the
// tester's slice of the ConfigLoader collaborator (spec.md §6).
type Config struct {
	JudgeURL       string
	LocalIP        string
	UserAgent      string
	PogoVersion    string
	NianticURL     string
	PTCLoginURL    string
	PTCSignupURL   string
	PTCSignupTitle string

	MaxConcurrency int
	ScanInterval   time.Duration
	NoticeInterval time.Duration
	RetryPolicy    fetcher.Config
	DownloadPath   string
	Debug          bool
	SkipAnonymity  bool

	IgnoreCountries map[string]bool
}

const (
	sonoHost = "sso.pokemon.com"
)

func fixedHeaders(userAgent string) map[string]string {
	return map[string]string{
		"Connection":      "close",
		"Accept":          "*/*",
		"User-Agent":      userAgent,
		"Accept-Language": "en-us",
		"Accept-Encoding": "br, gzip, deflate",
		"X-Unity-Version": "2017.1.2f1",
	}
}

// stage identifies one of the four pipeline steps, used for debug-mode
// response caching and self-test diagnostics.
type stage int

const (
	stageAnonymity stage = iota
	stageNiantic
	statePTCLogin // ptc_login, kept spelled as the canonical underscore form
	stagePTCSignup
)

func (s stage) String() string {
	switch s {
	case stageAnonymity:
		return "anonymous"
	case stageNiantic:
		return "niantic"
	case statePTCLogin:
		return "ptc_login"
	case stagePTCSignup:
		return "ptc_signup"
	default:
		return "unknown"
	}
}

// runStage issues one GET request for the named stage and derives its
// Status per the rules in spec.md §4.5: 403/409 -> BANNED, connect-timeout
// -> TIMEOUT, any other transport failure -> ERROR, empty body -> ERROR,
// otherwise the predicate decides OK/ERROR.
func runStage(ctx context.Context, sess *fetcher.Session, target, host, userAgent string, predicate func([]byte) bool) model.StageResult {
	headers := fixedHeaders(userAgent)

	start := time.Now()
	resp, body, err := sess.Get(ctx, target, headersWithHost(headers, target, host))
	elapsed := time.Since(start)

	if err != nil {
		return classifyErr(err)
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusConflict {
		return model.StageResult{Status: model.StatusBanned}
	}
	if len(body) == 0 {
		return model.StageResult{Status: model.StatusError, Err: "empty body"}
	}
	if !predicate(body) {
		return model.StageResult{Status: model.StatusError, Err: "predicate failed"}
	}
	return model.StageResult{Status: model.StatusOK, LatencyMs: int(elapsed.Milliseconds())}
}

// headersWithHost returns a copy of headers with Host overridden to host
// when non-empty, for stage 2/3's explicit Host header. Session applies a
// Host entry of the header map to Request.Host, which is the value the
// net/http client sends, so the header map stays the single source of
// truth for the fixed header set.
func headersWithHost(base map[string]string, target, host string) map[string]string {
	if host == "" {
		return base
	}
	out := make(map[string]string, len(base)+1)
	for k, v := range base {
		out[k] = v
	}
	out["Host"] = host
	return out
}

func classifyErr(err error) model.StageResult {
	var fe *fetcher.Error
	if errors.As(err, &fe) {
		switch fe.Kind {
		case fetcher.KindTimeout:
			return model.StageResult{Status: model.StatusTimeout, Err: fe.Error()}
		case fetcher.KindHTTPError:
			if fe.Status == http.StatusForbidden || fe.Status == http.StatusConflict {
				return model.StageResult{Status: model.StatusBanned}
			}
			return model.StageResult{Status: model.StatusError, Err: fe.Error()}
		default:
			return model.StageResult{Status: model.StatusError, Err: fe.Error()}
		}
	}
	return model.StageResult{Status: model.StatusError, Err: err.Error()}
}

// RunPipeline drives all four stages against job through sess, short
// circuiting on the first non-OK status. The anonymity stage is skipped
// entirely when cfg.SkipAnonymity is set.
func RunPipeline(ctx context.Context, cfg Config, sess *fetcher.Session, job *model.TestJob) {
	job.Anonymous = model.StageResult{Status: model.StatusUnknown}
	job.Niantic = model.StageResult{Status: model.StatusUnknown}
	job.PTCLogin = model.StageResult{Status: model.StatusUnknown}
	job.PTCSignup = model.StageResult{Status: model.StatusUnknown}

	if !cfg.SkipAnonymity {
		job.Anonymous = runStage(ctx, sess, cfg.JudgeURL, "", cfg.UserAgent, azenvPredicate(cfg.LocalIP, cfg.UserAgent))
		if job.Anonymous.Status != model.StatusOK {
			return
		}
	} else {
		job.Anonymous = model.StageResult{Status: model.StatusOK}
	}

	job.Niantic = runStage(ctx, sess, cfg.NianticURL, sonoHost, cfg.UserAgent, nianticPredicate(cfg.PogoVersion))
	if job.Niantic.Status != model.StatusOK {
		return
	}

	job.PTCLogin = runStage(ctx, sess, cfg.PTCLoginURL, sonoHost, cfg.UserAgent, ptcLoginPredicate)
	if job.PTCLogin.Status != model.StatusOK {
		return
	}

	job.PTCSignup = runStage(ctx, sess, cfg.PTCSignupURL, "", cfg.UserAgent, ptcSignupPredicate(cfg.PTCSignupTitle))
}

// azenvPredicate parses the AZenv judge's `VAR = value` output and checks
// that REMOTE_ADDR differs from the known local IP (meaning the request
// did go out through a proxy) and that the forwarded X_UNITY_VERSION /
// USER_AGENT headers survived unmodified.
func azenvPredicate(localIP, userAgent string) func([]byte) bool {
	return func(body []byte) bool {
		vars := parseAZenv(string(body))

		remote, ok := vars["REMOTE_ADDR"]
		if !ok || remote == localIP {
			return false
		}
		if uv, ok := vars["X_UNITY_VERSION"]; !ok || uv != "2017.1.2f1" {
			return false
		}
		if ua, ok := vars["HTTP_USER_AGENT"]; ok && userAgent != "" && ua != userAgent {
			return false
		}
		return true
	}
}

// parseAZenv parses AZenv's plaintext `NAME = value` lines into a map.
func parseAZenv(body string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(body, "\n") {
		i := strings.Index(line, "=")
		if i < 0 {
			continue
		}
		name := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		out[name] = value
	}
	return out
}

func nianticPredicate(version string) func([]byte) bool {
	return func(body []byte) bool {
		return strings.Contains(string(body), version)
	}
}

func ptcLoginPredicate(body []byte) bool {
	return strings.Contains(string(body), `"execution"`)
}

func ptcSignupPredicate(title string) func([]byte) bool {
	return func(body []byte) bool {
		return strings.Contains(string(body), title)
	}
}

// proxySessionURL builds the proxy URL a worker's session should route
// through for one ParsedProxy.
func proxySessionURL(p model.ParsedProxy) *url.URL {
	u := &url.URL{Scheme: p.Protocol.String(), Host: net.JoinHostPort(p.IP, p.Port)}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}
