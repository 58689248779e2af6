package sheets

import (
	"os"
	"strings"
	"time"

	"github.com/bresserlog/bresserlog/internal/log"
)

// TokenGate supplies the bearer token for spreadsheet uploads. How the
// token is obtained (OAuth flow, service account, metadata server) is
// outside this program; the gate only reports readiness and hands the
// token out. Acquire declares how long the token must remain valid so
// the provider can refresh one that would expire mid-sleep.
type TokenGate interface {
	Acquire(expirySeconds int)
	Ready() bool
	Token() string
}

// FileTokenGate reads the bearer token from a file maintained by an
// external refresher. The token is considered stale once the requested
// expiry window has elapsed since the last Acquire, forcing a re-read.
type FileTokenGate struct {
	path     string
	token    string
	deadline time.Time
}

// NewFileTokenGate creates a gate reading tokens from path.
func NewFileTokenGate(path string) *FileTokenGate {
	return &FileTokenGate{path: path}
}

// Acquire re-reads the token file and arms the expiry window.
func (g *FileTokenGate) Acquire(expirySeconds int) {
	data, err := os.ReadFile(g.path)
	if err != nil {
		log.Warnf("cannot read token file %s: %v", g.path, err)
		g.token = ""
		return
	}
	g.token = strings.TrimSpace(string(data))
	g.deadline = time.Now().Add(time.Duration(expirySeconds) * time.Second)
}

// Ready reports whether a non-empty, unexpired token is held.
func (g *FileTokenGate) Ready() bool {
	return g.token != "" && time.Now().Before(g.deadline)
}

// Token returns the held bearer token.
func (g *FileTokenGate) Token() string {
	return g.token
}
