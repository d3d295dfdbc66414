package words

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Settings are the game tunables persisted in settings.json. Durations are
// kept in the units the original files used: seconds for game/voting time,
// milliseconds for the timeouts.
type Settings struct {
	GameTime            int `json:"gameTime"`
	MinPlayers          int `json:"minPlayers"`
	MaxPlayers          int `json:"maxPlayers"`
	VotingTime          int `json:"votingTime"`
	ReconnectionTimeout int `json:"reconnectionTimeout"`
	RoomCleanupInterval int `json:"roomCleanupInterval"`
}

func defaultSettings() Settings {
	return Settings{
		GameTime:            120,
		MinPlayers:          3,
		MaxPlayers:          10,
		VotingTime:          60,
		ReconnectionTimeout: 30000,
		RoomCleanupInterval: 300000,
	}
}

func (s Settings) CleanupInterval() time.Duration {
	if s.RoomCleanupInterval <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.RoomCleanupInterval) * time.Millisecond
}

var defaultWords = []string{
	"ALMA", "KÖNYV", "SZÉK", "ASZTAL", "BICIKLI",
	"TELEFON", "SZÁMÍTÓGÉP", "AUTÓ", "HÁZ", "KERT",
}

type snapshot struct {
	words    []string
	settings Settings
}

// Provider serves the word pool and settings to every room. Reads hit an
// atomically swapped snapshot, so a reload never exposes a half-updated
// word list to a room that is starting a round.
type Provider struct {
	dir     string
	current atomic.Pointer[snapshot]

	// Serializes writers (reload, updates); readers never take it.
	mu sync.Mutex
}

func NewProvider(dir string) *Provider {
	p := &Provider{dir: dir}
	p.current.Store(&snapshot{words: defaultWords, settings: defaultSettings()})
	return p
}

func (p *Provider) wordsPath() string    { return filepath.Join(p.dir, "words.json") }
func (p *Provider) settingsPath() string { return filepath.Join(p.dir, "settings.json") }

// Words returns the current word pool. Callers must not mutate the slice.
func (p *Provider) Words() []string {
	return p.current.Load().words
}

func (p *Provider) Settings() Settings {
	return p.current.Load().settings
}

// Reload re-reads words.json and settings.json and swaps both in at once.
// Missing files fall back to the compiled-in defaults, matching the
// behaviour of the original server.
func (p *Provider) Reload() (int, Settings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := &snapshot{words: defaultWords, settings: defaultSettings()}

	if data, err := os.ReadFile(p.wordsPath()); err == nil {
		var loaded []string
		if err := json.Unmarshal(data, &loaded); err != nil {
			return 0, Settings{}, fmt.Errorf("parse %s: %w", p.wordsPath(), err)
		}
		if len(loaded) > 0 {
			next.words = loaded
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, Settings{}, err
	} else {
		log.Warn().Str("path", p.wordsPath()).Msg("words.json not found, using default words")
	}

	if data, err := os.ReadFile(p.settingsPath()); err == nil {
		loaded := defaultSettings()
		if err := json.Unmarshal(data, &loaded); err != nil {
			return 0, Settings{}, fmt.Errorf("parse %s: %w", p.settingsPath(), err)
		}
		next.settings = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		return 0, Settings{}, err
	} else {
		log.Warn().Str("path", p.settingsPath()).Msg("settings.json not found, using default settings")
	}

	p.current.Store(next)
	log.Info().Int("words", len(next.words)).Interface("settings", next.settings).Msg("data reloaded")
	return len(next.words), next.settings, nil
}

// SettingsPatch carries a partial settings update. Nil fields are left
// unchanged.
type SettingsPatch struct {
	GameTime            *int `json:"gameTime"`
	MinPlayers          *int `json:"minPlayers"`
	MaxPlayers          *int `json:"maxPlayers"`
	VotingTime          *int `json:"votingTime"`
	ReconnectionTimeout *int `json:"reconnectionTimeout"`
	RoomCleanupInterval *int `json:"roomCleanupInterval"`
}

// UpdateSettings validates and applies a patch, persisting the merged
// settings back to settings.json.
func (p *Provider) UpdateSettings(patch SettingsPatch) (Settings, error) {
	if patch.GameTime != nil && (*patch.GameTime < 30 || *patch.GameTime > 300) {
		return Settings{}, errors.New("Game time must be between 30 and 300 seconds")
	}
	if patch.MinPlayers != nil && (*patch.MinPlayers < 2 || *patch.MinPlayers > 10) {
		return Settings{}, errors.New("Minimum players must be between 2 and 10")
	}
	if patch.MaxPlayers != nil && (*patch.MaxPlayers < 3 || *patch.MaxPlayers > 15) {
		return Settings{}, errors.New("Maximum players must be between 3 and 15")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cur := p.current.Load()
	merged := cur.settings
	if patch.GameTime != nil {
		merged.GameTime = *patch.GameTime
	}
	if patch.MinPlayers != nil {
		merged.MinPlayers = *patch.MinPlayers
	}
	if patch.MaxPlayers != nil {
		merged.MaxPlayers = *patch.MaxPlayers
	}
	if patch.VotingTime != nil {
		merged.VotingTime = *patch.VotingTime
	}
	if patch.ReconnectionTimeout != nil {
		merged.ReconnectionTimeout = *patch.ReconnectionTimeout
	}
	if patch.RoomCleanupInterval != nil {
		merged.RoomCleanupInterval = *patch.RoomCleanupInterval
	}

	if err := writeJSON(p.settingsPath(), merged); err != nil {
		return Settings{}, err
	}

	p.current.Store(&snapshot{words: cur.words, settings: merged})
	log.Info().Interface("settings", merged).Msg("settings updated")
	return merged, nil
}

// UpdateWords replaces the whole word pool and persists it to words.json.
func (p *Provider) UpdateWords(list []string) (int, error) {
	if len(list) == 0 {
		return 0, errors.New("Words must be a non-empty array")
	}
	for _, w := range list {
		if w == "" {
			return 0, errors.New("All words must be non-empty strings")
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := writeJSON(p.wordsPath(), list); err != nil {
		return 0, err
	}

	cur := p.current.Load()
	next := make([]string, len(list))
	copy(next, list)
	p.current.Store(&snapshot{words: next, settings: cur.settings})
	log.Info().Int("count", len(next)).Msg("words updated")
	return len(next), nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
