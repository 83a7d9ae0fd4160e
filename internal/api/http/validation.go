package http

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/GriffinCanCode/AgentOS/harness/internal/harness"
)

// Request limits
const (
	DefaultMaxCodeBytes   = 1 << 20
	DefaultMaxSearchPaths = 256
	MaxRunIDLength        = 128
	MaxPathLength         = 4096
	bodyOverheadBytes     = 64 * 1024
)

// SafeIDPattern allows alphanumeric, hyphens, underscores
var SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var errEmptyBody = errors.New("request body is empty")

func errInvalidJSON(err error) error {
	return fmt.Errorf("invalid JSON: %w", err)
}

// Limits bounds what an execution request may carry
type Limits struct {
	MaxCodeBytes   int
	MaxSearchPaths int
}

// DefaultLimits returns the 1 MiB code limit
func DefaultLimits() Limits {
	return Limits{
		MaxCodeBytes:   DefaultMaxCodeBytes,
		MaxSearchPaths: DefaultMaxSearchPaths,
	}
}

// MaxBodyBytes is the largest body that can still hold a valid request.
// JSON escaping can double the code bytes.
func (l Limits) MaxBodyBytes() int {
	return 2*l.MaxCodeBytes + bodyOverheadBytes
}

// ValidateBody checks the raw body before parsing
func (l Limits) ValidateBody(body []byte) error {
	if len(body) == 0 {
		return errEmptyBody
	}
	if len(body) > l.MaxBodyBytes() {
		return fmt.Errorf("request body exceeds maximum %d bytes", l.MaxBodyBytes())
	}
	return nil
}

// ValidateRequest checks decoded fields
func (l Limits) ValidateRequest(req harness.Request) error {
	if len(req.Code) > l.MaxCodeBytes {
		return fmt.Errorf("code size %d bytes exceeds maximum %d bytes", len(req.Code), l.MaxCodeBytes)
	}
	if err := ValidateRunID(req.RunID); err != nil {
		return err
	}
	if l.MaxSearchPaths > 0 && len(req.SearchPaths) > l.MaxSearchPaths {
		return fmt.Errorf("too many search paths: %d (max %d)", len(req.SearchPaths), l.MaxSearchPaths)
	}
	for _, p := range req.SearchPaths {
		if len(p) > MaxPathLength {
			return fmt.Errorf("search path exceeds maximum length %d", MaxPathLength)
		}
	}
	if len(req.WorkingDirectory) > MaxPathLength {
		return fmt.Errorf("workingDirectory exceeds maximum length %d", MaxPathLength)
	}
	return nil
}

// ValidateRunID accepts an empty id (one is generated) or a safe identifier
func ValidateRunID(id string) error {
	if id == "" {
		return nil
	}
	if len(id) > MaxRunIDLength {
		return fmt.Errorf("runId exceeds maximum length %d", MaxRunIDLength)
	}
	if !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("runId contains invalid characters (allowed: a-z, A-Z, 0-9, _, -)")
	}
	return nil
}
