package audit

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/expenseflow/go-core/pkg/types"
)

// Logger records audit events. Logging is non-blocking; events are
// buffered and written by a background goroutine.
type Logger interface {
	// LogAccessDecision records the outcome of a resource access check
	LogAccessDecision(actor types.Principal, action, resource string, decision Decision, reason string)

	// LogApprovalDecision records a committed approval decision
	LogApprovalDecision(actor types.Principal, expenseID string, entry types.ApprovalEntry)

	// LogUserChange records user creation, updates and deactivation
	LogUserChange(actor types.Principal, operation, targetID string, data map[string]interface{})

	// LogLogin records authentication attempts. userID is empty for
	// unknown accounts.
	LogLogin(email, userID string, success bool)

	// Flush writes pending events
	Flush() error

	// Close flushes and stops the logger
	Close() error
}

// Config for the audit logger
type Config struct {
	Enabled bool
	Type    string // stdout or file

	FilePath       string
	FileMaxSize    int // MB
	FileMaxAge     int // days
	FileMaxBackups int

	BufferSize    int
	FlushInterval time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		Type:           "stdout",
		BufferSize:     1000,
		FlushInterval:  100 * time.Millisecond,
		FileMaxSize:    100,
		FileMaxAge:     30,
		FileMaxBackups: 10,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Type != "stdout" && c.Type != "file" {
		return fmt.Errorf("invalid audit type: %s (must be stdout or file)", c.Type)
	}
	if c.Type == "file" && c.FilePath == "" {
		return fmt.Errorf("file path is required for file output")
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 1000
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 100 * time.Millisecond
	}
	return nil
}

// NewLogger creates an audit logger
func NewLogger(cfg *Config) (Logger, error) {
	if cfg == nil {
		c := DefaultConfig()
		cfg = &c
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if !cfg.Enabled {
		return &noopLogger{}, nil
	}

	var writer Writer
	var err error
	switch cfg.Type {
	case "stdout":
		writer = NewStdoutWriter()
	case "file":
		writer, err = NewFileWriter(cfg.FilePath, cfg.FileMaxSize, cfg.FileMaxAge, cfg.FileMaxBackups)
		if err != nil {
			return nil, fmt.Errorf("create file writer: %w", err)
		}
	}

	return newAsyncLogger(writer, *cfg), nil
}

// NewWriterLogger creates an async logger over an explicit writer
func NewWriterLogger(writer Writer, cfg Config) Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 100 * time.Millisecond
	}
	return newAsyncLogger(writer, cfg)
}

// noopLogger is used when audit logging is disabled
type noopLogger struct{}

func (n *noopLogger) LogAccessDecision(types.Principal, string, string, Decision, string) {}
func (n *noopLogger) LogApprovalDecision(types.Principal, string, types.ApprovalEntry)    {}
func (n *noopLogger) LogUserChange(types.Principal, string, string, map[string]interface{}) {
}
func (n *noopLogger) LogLogin(string, string, bool) {}
func (n *noopLogger) Flush() error                  { return nil }
func (n *noopLogger) Close() error                  { return nil }

func generateEventID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return "evt-" + hex.EncodeToString(b)
}

func actorOf(p types.Principal) Actor {
	return Actor{ID: p.ID, Role: string(p.Role), CompanyID: p.CompanyID}
}
