package config

import (
	"github.com/goccy/go-json"
	"github.com/quasilyte/gdata"
	"github.com/rotisserie/eris"
)

const settingsKey = "settings"

// SavedSettings is the part of the client config remembered between runs.
type SavedSettings struct {
	ServerURL        string `json:"serverUrl"`
	Room             string `json:"room"`
	UpdatesPerSecond int    `json:"updatesPerSecond,omitempty"`
}

// SettingsStore persists SavedSettings in the per-user data directory.
type SettingsStore struct {
	m *gdata.Manager
}

func OpenSettingsStore(appName string) (*SettingsStore, error) {
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open settings storage")
	}
	return &SettingsStore{m: m}, nil
}

// Load returns nil, nil when nothing has been saved yet.
func (s *SettingsStore) Load() (*SavedSettings, error) {
	data, err := s.m.LoadItem(settingsKey)
	if err != nil {
		return nil, eris.Wrap(err, "load settings")
	}
	if data == nil {
		return nil, nil
	}

	var settings SavedSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, eris.Wrap(err, "parse saved settings")
	}
	return &settings, nil
}

func (s *SettingsStore) Save(settings *SavedSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return eris.Wrap(err, "serialize settings")
	}
	if err := s.m.SaveItem(settingsKey, data); err != nil {
		return eris.Wrap(err, "save settings")
	}
	return nil
}
