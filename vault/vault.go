package vault

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// open returns the stored vault and the session key. Caller holds s.mu.
func (s *Session) open() (*Vault, []byte, error) {
	if !s.hasKey() {
		return nil, nil, ErrLocked
	}
	v, err := s.load()
	if err != nil {
		return nil, nil, err
	}
	return v, s.key.Bytes(), nil
}

// List decrypts every entry. One unreadable entry fails the whole call.
func (s *Session) List() ([]DecryptedPasswordEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, key, err := s.open()
	if err != nil {
		return nil, err
	}
	return decryptAll(v.Entries, key)
}

// Add stores a new credential and returns its encrypted form.
func (s *Session) Add(rawURL, username, password string) (PasswordEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, key, err := s.open()
	if err != nil {
		return PasswordEntry{}, err
	}

	ct, nonce, err := Encrypt(password, key)
	if err != nil {
		return PasswordEntry{}, err
	}
	now := s.now().UnixMilli()
	e := PasswordEntry{
		ID:                uuid.NewString(),
		URL:               rawURL,
		Username:          username,
		EncryptedPassword: ct,
		Nonce:             nonce,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	v.Entries = append(v.Entries, e)
	if err := s.store.Save(v); err != nil {
		return PasswordEntry{}, err
	}

	s.log.WithFields(logrus.Fields{"event": "entry.added", "id": e.ID}).Info("entry added")
	return e, nil
}

func (s *Session) Update(id string, upd EntryUpdate) (PasswordEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, key, err := s.open()
	if err != nil {
		return PasswordEntry{}, err
	}

	i := indexOf(v.Entries, id)
	if i < 0 {
		return PasswordEntry{}, fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}
	e := &v.Entries[i]

	if upd.URL != nil {
		e.URL = *upd.URL
	}
	if upd.Username != nil {
		e.Username = *upd.Username
	}
	if upd.Password != nil {
		ct, nonce, err := Encrypt(*upd.Password, key)
		if err != nil {
			return PasswordEntry{}, err
		}
		e.EncryptedPassword, e.Nonce = ct, nonce
	}
	e.UpdatedAt = s.now().UnixMilli()

	if err := s.store.Save(v); err != nil {
		return PasswordEntry{}, err
	}

	s.log.WithFields(logrus.Fields{"event": "entry.updated", "id": id}).Info("entry updated")
	return *e, nil
}

func (s *Session) DeleteEntry(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, _, err := s.open()
	if err != nil {
		return false, err
	}

	i := indexOf(v.Entries, id)
	if i < 0 {
		return false, fmt.Errorf("%w: entry %s", ErrNotFound, id)
	}
	v.Entries = append(v.Entries[:i], v.Entries[i+1:]...)

	if err := s.store.Save(v); err != nil {
		return false, err
	}

	s.log.WithFields(logrus.Fields{"event": "entry.deleted", "id": id}).Info("entry deleted")
	return true, nil
}

// Search matches query case-insensitively against URL or username.
func (s *Session) Search(query string) ([]DecryptedPasswordEntry, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	out := []DecryptedPasswordEntry{}
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.URL), q) || strings.Contains(strings.ToLower(e.Username), q) {
			out = append(out, e)
		}
	}
	return out, nil
}

// FindForHost returns the entries whose stored URL has the same host as
// rawURL, ignoring a leading "www.".
func (s *Session) FindForHost(rawURL string) ([]DecryptedPasswordEntry, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	out := []DecryptedPasswordEntry{}
	host := HostOf(rawURL)
	if host == "" {
		return out, nil
	}
	for _, e := range all {
		if HostOf(e.URL) == host {
			out = append(out, e)
		}
	}
	return out, nil
}

// HostOf extracts the lowercase hostname of raw without a "www." prefix.
// A missing scheme is read as https. Returns "" when nothing parses.
func HostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !hasScheme(raw) {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// hasScheme reports whether raw starts with "scheme://". A "://" inside the
// path, query or fragment does not count.
func hasScheme(raw string) bool {
	i := strings.Index(raw, "://")
	return i > 0 && !strings.ContainsAny(raw[:i], "/?#")
}

func decryptAll(entries []PasswordEntry, key []byte) ([]DecryptedPasswordEntry, error) {
	out := make([]DecryptedPasswordEntry, 0, len(entries))
	for _, e := range entries {
		pw, err := Decrypt(e.EncryptedPassword, e.Nonce, key)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		out = append(out, DecryptedPasswordEntry{
			ID:        e.ID,
			URL:       e.URL,
			Username:  e.Username,
			Password:  pw,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		})
	}
	return out, nil
}

func indexOf(entries []PasswordEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
