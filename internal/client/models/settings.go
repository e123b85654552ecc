package models

import "fmt"

// Theme is the UI colour scheme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// DesignVersion selects the dashboard layout generation.
type DesignVersion string

const (
	DesignV1 DesignVersion = "v1"
	DesignV2 DesignVersion = "v2"
)

// AppSettings is the singleton record of user-chosen UI settings.
type AppSettings struct {
	Theme   Theme         `json:"theme" toml:"theme"`
	Version DesignVersion `json:"version" toml:"version"`
}

// DefaultSettings is what a fresh install (or a wiped cache) looks like.
func DefaultSettings() AppSettings {
	return AppSettings{Theme: ThemeLight, Version: DesignV1}
}

// IsDefault reports whether s equals DefaultSettings.
func (s AppSettings) IsDefault() bool {
	return s == DefaultSettings()
}

// Validate rejects values outside the known enums.
func (s AppSettings) Validate() error {
	if err := s.Theme.Validate(); err != nil {
		return err
	}
	return s.Version.Validate()
}

func (t Theme) Validate() error {
	switch t {
	case ThemeLight, ThemeDark:
		return nil
	}
	return fmt.Errorf("unknown theme %q", string(t))
}

func (v DesignVersion) Validate() error {
	switch v {
	case DesignV1, DesignV2:
		return nil
	}
	return fmt.Errorf("unknown design version %q", string(v))
}

// Normalize replaces unknown values with defaults so a corrupt record
// still yields a well-formed AppSettings.
func (s AppSettings) Normalize() AppSettings {
	d := DefaultSettings()
	if s.Theme.Validate() != nil {
		s.Theme = d.Theme
	}
	if s.Version.Validate() != nil {
		s.Version = d.Version
	}
	return s
}

// SettingsPatch is a partial update; nil fields are left alone.
type SettingsPatch struct {
	Theme   *Theme         `json:"theme,omitempty"`
	Version *DesignVersion `json:"version,omitempty"`
}

// Apply merges p into s, last write wins per key.
func (p SettingsPatch) Apply(s AppSettings) AppSettings {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.Version != nil {
		s.Version = *p.Version
	}
	return s
}

// Validate checks the fields that are set.
func (p SettingsPatch) Validate() error {
	if p.Theme != nil {
		if err := p.Theme.Validate(); err != nil {
			return err
		}
	}
	if p.Version != nil {
		if err := p.Version.Validate(); err != nil {
			return err
		}
	}
	return nil
}
