package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"fleetgrid/warden/pkg/policy/ast"
)

// FileSource loads policies from YAML files on disk. The path can be a
// single file or a directory; for a directory, all .yaml and .yml files are
// loaded. A file holds either a single policy document or a list under a
// top-level "policies" key.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a file-based policy source.
func NewFileSource(path string) *FileSource {
	return &FileSource{
		path:   path,
		logger: slog.Default().With("component", "policy.source.file"),
	}
}

// LoadPolicies loads all policies from the configured path. Files that fail
// to parse are skipped with a warning; a policy authoring mistake in one
// file must not take down the rest of the set.
func (s *FileSource) LoadPolicies(ctx context.Context) ([]*ast.Policy, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", s.path, err)
	}

	var policies []*ast.Policy
	if info.IsDir() {
		policies, err = s.loadDirectory(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		policies, err = LoadFile(s.path)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("loaded policies from source",
		"path", s.path,
		"policy_count", len(policies),
	)
	return policies, nil
}

func (s *FileSource) loadDirectory(ctx context.Context) ([]*ast.Policy, error) {
	var policies []*ast.Policy

	err := filepath.Walk(s.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		loaded, err := LoadFile(path)
		if err != nil {
			s.logger.Warn("failed to load policy file, skipping",
				"path", path,
				"error", err,
			)
			return nil
		}
		policies = append(policies, loaded...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %q: %w", s.path, err)
	}
	return policies, nil
}

// policyFile is the on-disk document shape: one policy, or a list.
type policyFile struct {
	Policies []*ast.Policy `yaml:"policies"`
}

// LoadFile parses one policy file. Unlike a directory load, a parse error
// is returned rather than skipped; offline linting wants the failure.
func LoadFile(path string) ([]*ast.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %q: %w", path, err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err == nil && len(pf.Policies) > 0 {
		return pf.Policies, nil
	}

	var p ast.Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy file %q: %w", path, err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("policy file %q has no id", path)
	}
	return []*ast.Policy{&p}, nil
}
