package workflow_test

import (
	"testing"

	"github.com/TimeCyber/DeepManus/workflow"
)

func TestDefaultConfig(t *testing.T) {
	cfg := workflow.DefaultConfig()

	if len(cfg.TeamMembers) != 4 {
		t.Errorf("TeamMembers = %v, want 4 members", cfg.TeamMembers)
	}
	if cfg.Planner != "planner" {
		t.Errorf("Planner = %q, want %q", cfg.Planner, "planner")
	}
	if cfg.Coordinator != "coordinator" {
		t.Errorf("Coordinator = %q, want %q", cfg.Coordinator, "coordinator")
	}
	if cfg.BufferSize != 16 {
		t.Errorf("BufferSize = %d, want 16", cfg.BufferSize)
	}
}

func TestConfig_Merge(t *testing.T) {
	tests := []struct {
		name   string
		source workflow.Config
		check  func(*testing.T, workflow.Config)
	}{
		{
			name:   "zero source keeps defaults",
			source: workflow.Config{},
			check: func(t *testing.T, c workflow.Config) {
				if c.BufferSize != 16 {
					t.Errorf("BufferSize = %d, want 16", c.BufferSize)
				}
			},
		},
		{
			name:   "team replaces defaults",
			source: workflow.Config{TeamMembers: []string{"analyst"}},
			check: func(t *testing.T, c workflow.Config) {
				if len(c.TeamMembers) != 1 || c.TeamMembers[0] != "analyst" {
					t.Errorf("TeamMembers = %v, want [analyst]", c.TeamMembers)
				}
			},
		},
		{
			name:   "buffer and names override",
			source: workflow.Config{BufferSize: 4, Planner: "lead", Coordinator: "front"},
			check: func(t *testing.T, c workflow.Config) {
				if c.BufferSize != 4 || c.Planner != "lead" || c.Coordinator != "front" {
					t.Errorf("Merge() = %+v", c)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := workflow.DefaultConfig()
			cfg.Merge(&tt.source)
			tt.check(t, cfg)
		})
	}
}
