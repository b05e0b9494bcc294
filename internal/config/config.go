// Package config provides configuration loading and management for gantry.
package config

// Config is the root configuration.
type Config struct {
	Model     ModelConfig     `json:"model"               mapstructure:"model"`
	Git       GitConfig       `json:"git"                 mapstructure:"git"`
	Budgets   Budgets         `json:"budgets"             mapstructure:"budgets"`
	Preview   PreviewConfig   `json:"preview,omitempty"   mapstructure:"preview"`
	Retention RetentionPolicy `json:"retention,omitempty" mapstructure:"retention"`
}

// ModelConfig describes the generative model provider to use.
type ModelConfig struct {
	Provider  string `json:"provider"              mapstructure:"provider"`
	Name      string `json:"name,omitempty"        mapstructure:"name"`
	APIKey    string `json:"api_key,omitempty"     mapstructure:"api_key"`
	APIKeyEnv string `json:"api_key_env,omitempty" mapstructure:"api_key_env"`
	BaseURL   string `json:"base_url,omitempty"    mapstructure:"base_url"`
	Timeout   int    `json:"timeout,omitempty"     mapstructure:"timeout"`
}

// GitConfig describes the repository the workflow operates on.
type GitConfig struct {
	RepoURL      string `json:"repo_url"       mapstructure:"repo_url"`
	WorkspaceDir string `json:"workspace_dir"  mapstructure:"workspace_dir"`
	Push         *bool  `json:"push,omitempty" mapstructure:"push"`
}

// Budgets defines run limits.
type Budgets struct {
	MaxTurns int `json:"max_turns" mapstructure:"max_turns"`
}

// PreviewConfig controls the local preview server for finished runs.
type PreviewConfig struct {
	Enabled *bool `json:"enabled,omitempty" mapstructure:"enabled"`
	Port    int   `json:"port,omitempty"    mapstructure:"port"`
}

// RetentionPolicy defines how many old runs to keep.
type RetentionPolicy struct {
	KeepLast int `json:"keep_last,omitempty" mapstructure:"keep_last"`
	KeepDays int `json:"keep_days,omitempty" mapstructure:"keep_days"`
}

// PushEnabled reports whether the run should push the feature branch.
// Push defaults to on; it is only skipped when explicitly disabled.
func (g GitConfig) PushEnabled() bool {
	return g.Push == nil || *g.Push
}

// Active reports whether the preview server should be started after a run.
func (p PreviewConfig) Active() bool {
	return p.Enabled == nil || *p.Enabled
}
