package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/stepwise/pkg/domain"
)

// Store implements ports.StateStore using the local filesystem.
// It stores flows as JSON files in a configured directory.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".stepwise/flows".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".stepwise", "flows")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(flowID string) (string, error) {
	if flowID == "" {
		return "", fmt.Errorf("flowID cannot be empty")
	}
	if strings.ContainsAny(flowID, `/\`) || flowID == "." || flowID == ".." {
		return "", fmt.Errorf("invalid flowID %q", flowID)
	}
	return filepath.Join(s.BasePath, flowID+".json"), nil
}

// Save persists the flow state to a JSON file atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, flowID string, state *domain.FlowState) error {
	destPath, err := s.path(flowID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure flow directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+flowID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing flow file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to flow file: %w", err)
	}
	return nil
}

// Load retrieves the flow state from a JSON file.
func (s *Store) Load(ctx context.Context, flowID string) (*domain.FlowState, error) {
	filePath, err := s.path(flowID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}

	var state domain.FlowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow state: %w", err)
	}
	if state.Answers == nil {
		state.Answers = make(domain.AnswerStore)
	}
	return &state, nil
}

// Delete removes the flow file.
func (s *Store) Delete(ctx context.Context, flowID string) error {
	filePath, err := s.path(flowID)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete flow file: %w", err)
	}
	return nil
}

// List returns the IDs of all stored flows.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}

	var flows []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		flows = append(flows, strings.TrimSuffix(name, ".json"))
	}
	return flows, nil
}
