// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package authz

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Enforcer wraps the Casbin enforcer with a decision cache.
// The policy does not change after construction, so decisions are cached
// for the life of the process.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer

	mu    sync.RWMutex
	cache map[string]bool
}

// NewEnforcer creates an enforcer with the embedded model. policyPath
// replaces the embedded policy when set.
func NewEnforcer(policyPath string) (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	policy := embeddedPolicy
	if policyPath != "" {
		data, err := os.ReadFile(policyPath)
		if err != nil {
			return nil, fmt.Errorf("read policy %s: %w", policyPath, err)
		}
		policy = string(data)
	}
	if err := loadPolicy(enforcer, policy); err != nil {
		return nil, err
	}

	return &Enforcer{enforcer: enforcer, cache: make(map[string]bool)}, nil
}

// loadPolicy parses policy CSV lines of the form "p, sub, obj, act" and
// "g, user, role".
func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch ptype, rule := parts[0], parts[1:]; ptype {
		case "p":
			if len(rule) != 3 {
				return fmt.Errorf("policy line %q: want p, sub, obj, act", line)
			}
			if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", rule, err)
			}
		case "g":
			if len(rule) != 2 {
				return fmt.Errorf("policy line %q: want g, user, role", line)
			}
			if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
			}
		default:
			return fmt.Errorf("policy line %q: unknown type %q", line, ptype)
		}
	}
	return nil
}

// Enforce checks if the subject can perform the action on the object.
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	key := subject + "\x00" + object + "\x00" + action

	e.mu.RLock()
	allowed, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		return allowed, nil
	}

	allowed, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}

	e.mu.Lock()
	e.cache[key] = allowed
	e.mu.Unlock()
	return allowed, nil
}

// RolesFor returns the roles role inherits, itself excluded.
func (e *Enforcer) RolesFor(role string) ([]string, error) {
	return e.enforcer.GetImplicitRolesForUser(role)
}
