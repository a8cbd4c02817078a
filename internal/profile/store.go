package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store persists the singleton profile document as a JSON file under the data
// directory. All operations hold the store mutex, so the load-modify-save
// sequences of direct edits and feedback learning serialize here instead of
// racing on the file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a Store writing to profile.json in dataDir.
func NewStore(dataDir string) *Store {
	return &Store{path: filepath.Join(dataDir, "profile.json")}
}

// Load returns the on-disk profile. A missing file is repaired by writing the
// built-in default to disk first, then returning it.
func (s *Store) Load() (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Save overwrites the profile document.
func (s *Store) Save(p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(p)
}

// Fields carries a partial profile update. Nil fields are left untouched;
// unrecognized request keys never reach this struct.
type Fields struct {
	StyleRules       *string   `json:"style_rules"`
	PreferredPhrases *[]string `json:"preferred_phrases"`
	BannedWords      *[]string `json:"banned_words"`
}

// SetFields merges the provided fields into the current profile and saves.
// Returns the merged profile.
func (s *Store) SetFields(f Fields) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return Profile{}, err
	}

	if f.StyleRules != nil {
		p.StyleRules = *f.StyleRules
	}
	if f.PreferredPhrases != nil {
		p.PreferredPhrases = *f.PreferredPhrases
	}
	if f.BannedWords != nil {
		p.BannedWords = *f.BannedWords
	}

	if err := s.save(p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Update applies fn to the current profile under the store lock and persists
// the result. Used by the feedback learner's merge step.
func (s *Store) Update(fn func(*Profile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.load()
	if err != nil {
		return err
	}
	fn(&p)
	return s.save(p)
}

func (s *Store) load() (Profile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		p := Default()
		if err := s.save(p); err != nil {
			return Profile{}, fmt.Errorf("materializing default profile: %w", err)
		}
		return p, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing profile: %w", err)
	}
	return p, nil
}

// save writes to a temp file in the profile's directory and renames it into
// place, so readers never observe a partially written document.
func (s *Store) save(p Profile) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling profile: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "profile-*.json")
	if err != nil {
		return fmt.Errorf("creating temp profile: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp profile: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing profile: %w", err)
	}
	return nil
}
