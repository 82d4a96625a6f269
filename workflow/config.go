package workflow

import "github.com/TimeCyber/DeepManus/translate"

const defaultBufferSize = 16

// DefaultTeamMembers are the participants whose chain, model and tool
// events are forwarded to clients when a request names no team.
var DefaultTeamMembers = []string{"researcher", "coder", "browser", "reporter"}

// Config holds the participant names and stream sizing for a Runner.
type Config struct {
	TeamMembers []string `json:"team_members,omitempty" yaml:"team_members,omitempty"`
	Planner     string   `json:"planner,omitempty" yaml:"planner,omitempty"`
	Coordinator string   `json:"coordinator,omitempty" yaml:"coordinator,omitempty"`
	BufferSize  int      `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		TeamMembers: append([]string(nil), DefaultTeamMembers...),
		Planner:     translate.DefaultPlanner,
		Coordinator: translate.DefaultCoordinator,
		BufferSize:  defaultBufferSize,
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if len(source.TeamMembers) > 0 {
		c.TeamMembers = source.TeamMembers
	}
	if source.Planner != "" {
		c.Planner = source.Planner
	}
	if source.Coordinator != "" {
		c.Coordinator = source.Coordinator
	}
	if source.BufferSize > 0 {
		c.BufferSize = source.BufferSize
	}
}
