package thresholds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const profileFile = "thresholds.json"

// Patch value bounds: a threshold outside this range is a malformed request,
// not a plausible configuration.
const (
	patchMin = 0
	patchMax = 10000
)

// Store persists threshold profiles as JSON under a profile directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the location of the persisted profile file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, profileFile)
}

// Load returns the persisted profile merged with freshly detected defaults:
// any section or key introduced after the file was written is backfilled
// with its default value, while values already present are never touched.
// A missing file is not an error — detected defaults are persisted and
// returned. An unreadable, unparseable, or invariant-violating file is a
// storage error; callers recover by falling back to Detect (see Manager).
func (s *Store) Load(cpuName, gpuName string) (*Profile, error) {
	raw, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		p := Detect(cpuName, gpuName)
		if err := s.Save(p); err != nil {
			return nil, err
		}
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStorage, s.Path(), err)
	}

	merged, err := mergeWithDefaults(raw, Detect(cpuName, gpuName))
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return merged, nil
}

// Save validates and persists the profile atomically: write to a temp file
// in the same directory, then rename over the target. A crash mid-write can
// therefore never leave a truncated profile behind.
func (s *Store) Save(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrStorage, s.dir, err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding profile: %v", ErrStorage, err)
	}

	tmp, err := os.CreateTemp(s.dir, profileFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrStorage, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing temp file: %v", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing temp file: %v", ErrStorage, err)
	}
	if err := os.Rename(tmpName, s.Path()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replacing %s: %v", ErrStorage, s.Path(), err)
	}
	return nil
}

// Reset discards all user customization: recompute detected defaults,
// persist, return.
func (s *Store) Reset(cpuName, gpuName string) (*Profile, error) {
	p := Detect(cpuName, gpuName)
	if err := s.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// mergeWithDefaults union-merges the raw persisted JSON with the defaults
// profile by key presence. Sections/keys absent from the file get the
// default value (forward-compatible schema migration); present values win.
func mergeWithDefaults(raw []byte, defaults *Profile) (*Profile, error) {
	var saved map[string]json.RawMessage
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, fmt.Errorf("%w: parsing profile: %v", ErrStorage, err)
	}

	defRaw, err := json.Marshal(defaults)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding defaults: %v", ErrStorage, err)
	}
	var def map[string]json.RawMessage
	if err := json.Unmarshal(defRaw, &def); err != nil {
		return nil, fmt.Errorf("%w: decoding defaults: %v", ErrStorage, err)
	}

	for section, defVals := range def {
		savedVals, ok := saved[section]
		if !ok {
			saved[section] = defVals
			continue
		}
		var savedKeys, defKeys map[string]json.RawMessage
		if err := json.Unmarshal(savedVals, &savedKeys); err != nil {
			return nil, fmt.Errorf("%w: parsing section %q: %v", ErrStorage, section, err)
		}
		if err := json.Unmarshal(defVals, &defKeys); err != nil {
			return nil, fmt.Errorf("%w: decoding default section %q: %v", ErrStorage, section, err)
		}
		for k, v := range defKeys {
			if _, ok := savedKeys[k]; !ok {
				savedKeys[k] = v
			}
		}
		mergedSection, err := json.Marshal(savedKeys)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding section %q: %v", ErrStorage, section, err)
		}
		saved[section] = mergedSection
	}

	mergedRaw, err := json.Marshal(saved)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding merged profile: %v", ErrStorage, err)
	}
	var merged Profile
	if err := json.Unmarshal(mergedRaw, &merged); err != nil {
		return nil, fmt.Errorf("%w: decoding merged profile: %v", ErrStorage, err)
	}
	return &merged, nil
}

// ApplyPatch validates a partial update and returns a new profile with it
// applied. The input profile is never mutated: on any validation failure the
// caller's profile stays exactly as it was. Unknown sections or keys, values
// outside [0, 10000], and patches that would invert a warn/crit pair are all
// rejected.
func ApplyPatch(p *Profile, patch map[string]map[string]float64) (*Profile, error) {
	known := sectionKeys()

	for section, vals := range patch {
		keys, ok := known[section]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
		}
		for k, v := range vals {
			if _, ok := keys[k]; !ok {
				return nil, fmt.Errorf("%w: %s.%s", ErrUnknownKey, section, k)
			}
			if v < patchMin || v > patchMax {
				return nil, fmt.Errorf("%w: %s.%s = %g", ErrValueOutOfRange, section, k, v)
			}
		}
	}

	out := p.Clone()
	outRaw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}
	var m map[string]map[string]any
	if err := json.Unmarshal(outRaw, &m); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	for section, vals := range patch {
		for k, v := range vals {
			m[section][k] = v
		}
	}
	mergedRaw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding patched profile: %w", err)
	}
	var patched Profile
	if err := json.Unmarshal(mergedRaw, &patched); err != nil {
		return nil, fmt.Errorf("decoding patched profile: %w", err)
	}
	if err := patched.Validate(); err != nil {
		return nil, err
	}
	return &patched, nil
}

// sectionKeys derives the patchable section/key universe from the default
// profile, so the validation surface tracks the schema automatically.
func sectionKeys() map[string]map[string]struct{} {
	raw, _ := json.Marshal(Defaults())
	var m map[string]map[string]any
	_ = json.Unmarshal(raw, &m)

	out := make(map[string]map[string]struct{}, len(m))
	for section, vals := range m {
		if section == "_detected_from" {
			continue // provenance metadata is not user-patchable
		}
		keys := make(map[string]struct{}, len(vals))
		for k := range vals {
			keys[k] = struct{}{}
		}
		out[section] = keys
	}
	return out
}
