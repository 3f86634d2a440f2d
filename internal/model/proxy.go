// Package model holds the persisted Proxy record and the transient types
// the scrapers and test engine pass between pipeline stages.
package model

import "time"

// Protocol identifies the wire protocol a proxy speaks.
type Protocol uint8

const (
	HTTP Protocol = iota
	SOCKS4
	SOCKS5
)

func (p Protocol) String() string {
	switch p {
	case HTTP:
		return "http"
	case SOCKS4:
		return "socks4"
	case SOCKS5:
		return "socks5"
	default:
		return "unknown"
	}
}

// ParseProtocol maps a URL scheme to a Protocol. ok is false for any scheme
// other than http/socks4/socks5.
func ParseProtocol(scheme string) (p Protocol, ok bool) {
	switch scheme {
	case "http":
		return HTTP, true
	case "socks4":
		return SOCKS4, true
	case "socks5":
		return SOCKS5, true
	default:
		return 0, false
	}
}

// Status is the outcome of the latest run of one pipeline stage.
type Status uint8

const (
	StatusOK Status = iota
	StatusUnknown
	StatusError
	StatusTimeout
	StatusBanned
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusUnknown:
		return "UNKNOWN"
	case StatusError:
		return "ERROR"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusBanned:
		return "BANNED"
	default:
		return "UNKNOWN"
	}
}

// FailThreshold is the fail_count at or above which a record is garbage
// and eligible for removal by clean_failed().
const FailThreshold = 5

// Proxy is the persisted record described in spec.md §3. IP is stored as a
// network-order 32-bit unsigned integer; Hash is the MD5-derived 32-bit
// join key computed over (ip, port, username, password).
type Proxy struct {
	Hash       uint32
	IP         uint32
	Port       uint16
	Protocol   Protocol
	Username   string
	Password   string
	InsertDate time.Time
	ScanDate   *time.Time
	Latency    *int
	FailCount  int
	Anonymous  Status
	Niantic    Status
	PTCLogin   Status
	PTCSignup  Status
}

// Valid reports whether every stage of the latest scan passed.
func (p *Proxy) Valid() bool {
	return p.Anonymous == StatusOK && p.Niantic == StatusOK &&
		p.PTCLogin == StatusOK && p.PTCSignup == StatusOK
}

// Garbage reports whether the record has failed enough consecutive scans
// to be purged by the orchestrator's failure sweeper.
func (p *Proxy) Garbage() bool {
	return p.FailCount >= FailThreshold
}

// ParsedProxy is the transient form produced by the canonical proxy-string
// parser: string ip/port, chosen protocol, optional credentials, and the
// precomputed hash.
type ParsedProxy struct {
	Hash     uint32
	IP       string
	Port     string
	Protocol Protocol
	Username string
	Password string
}

// StageResult is one pipeline stage's outcome for a single TestJob.
type StageResult struct {
	Status    Status
	LatencyMs int
	Err       string
}

// TestJob is a ParsedProxy plus the scratch fields the worker pipeline
// fills in as it runs stages 1..4. It is never shared across workers.
type TestJob struct {
	Proxy ParsedProxy

	Anonymous StageResult
	Niantic   StageResult
	PTCLogin  StageResult
	PTCSignup StageResult
}

// AllOK reports whether every stage the pipeline ran so far passed.
func (j *TestJob) AllOK() bool {
	return j.Anonymous.Status == StatusOK && j.Niantic.Status == StatusOK &&
		j.PTCLogin.Status == StatusOK && j.PTCSignup.Status == StatusOK
}

// MeanLatencyMs averages the latency of every stage that passed, rounding
// to the nearest millisecond. Returns 0 if no stage passed.
func (j *TestJob) MeanLatencyMs() int {
	sum, n := 0, 0
	for _, s := range []StageResult{j.Anonymous, j.Niantic, j.PTCLogin, j.PTCSignup} {
		if s.Status == StatusOK {
			sum += s.LatencyMs
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return (sum + n/2) / n
}
