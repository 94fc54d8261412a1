package policy

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/expenseflow/go-core/internal/store"
	"github.com/expenseflow/go-core/pkg/types"
)

// DefaultRule is one category rule from the defaults file
type DefaultRule struct {
	Category         string  `yaml:"category"`
	MaxAmount        float64 `yaml:"max_amount"`
	RequiresReceipt  bool    `yaml:"requires_receipt"`
	AutoApproveLimit float64 `yaml:"auto_approve_limit"`
}

// defaultsFile is the on-disk shape of the defaults document
type defaultsFile struct {
	Policies []DefaultRule `yaml:"policies"`
}

// builtinDefaults apply when no defaults file is configured
var builtinDefaults = []DefaultRule{
	{Category: "travel", MaxAmount: 2000, RequiresReceipt: true, AutoApproveLimit: 100},
	{Category: "meals", MaxAmount: 150, RequiresReceipt: true, AutoApproveLimit: 50},
	{Category: "office_supplies", MaxAmount: 500, RequiresReceipt: false, AutoApproveLimit: 100},
	{Category: "software", MaxAmount: 1000, RequiresReceipt: true, AutoApproveLimit: 0},
	{Category: "other", MaxAmount: 300, RequiresReceipt: true, AutoApproveLimit: 0},
}

// Defaults holds the current set of default rules. New companies get one
// policy row per rule at registration time. The set can be replaced at
// runtime by the file watcher.
type Defaults struct {
	mu     sync.RWMutex
	rules  []DefaultRule
	logger *zap.Logger
}

// NewDefaults returns the built-in default rules
func NewDefaults(logger *zap.Logger) *Defaults {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Defaults{rules: builtinDefaults, logger: logger}
}

// LoadFile replaces the rule set with the contents of a YAML file. The
// previous set stays in place when the file is unreadable or invalid.
func (d *Defaults) LoadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read defaults file: %w", err)
	}

	var doc defaultsFile
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("parse defaults file: %w", err)
	}
	if len(doc.Policies) == 0 {
		return fmt.Errorf("defaults file %s contains no policies", path)
	}
	for i, r := range doc.Policies {
		if r.Category == "" {
			return fmt.Errorf("defaults file %s: policy %d has no category", path, i)
		}
		if r.MaxAmount < 0 || r.AutoApproveLimit < 0 {
			return fmt.Errorf("defaults file %s: policy %s has negative limits", path, r.Category)
		}
	}

	d.mu.Lock()
	d.rules = doc.Policies
	d.mu.Unlock()

	d.logger.Info("policy defaults loaded",
		zap.String("path", path),
		zap.Int("count", len(doc.Policies)))
	return nil
}

// Rules returns a copy of the current rule set
func (d *Defaults) Rules() []DefaultRule {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]DefaultRule, len(d.rules))
	copy(out, d.rules)
	return out
}

// Seed creates one policy row per default rule for a new company
func (d *Defaults) Seed(ctx context.Context, policies store.PolicyStore, companyID string) error {
	for _, r := range d.Rules() {
		p := &types.ExpensePolicy{
			ID:               uuid.NewString(),
			CompanyID:        companyID,
			Category:         r.Category,
			MaxAmount:        r.MaxAmount,
			RequiresReceipt:  r.RequiresReceipt,
			AutoApproveLimit: r.AutoApproveLimit,
			CreatedAt:        time.Now().UTC(),
		}
		if err := policies.CreatePolicy(ctx, p); err != nil {
			return fmt.Errorf("seed policy for %s: %w", r.Category, err)
		}
	}
	return nil
}
