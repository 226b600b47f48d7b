// Package vip stores the user's designated important contacts and domains
// in a single JSON file. The VIP monitor agent queries it on every run.
package vip

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Contact is one VIP email address.
type Contact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Domain is one VIP sender domain, e.g. "bigclient.com".
type Domain struct {
	Domain  string `json:"domain"`
	Company string `json:"company,omitempty"`
}

type fileFormat struct {
	Contacts []Contact `json:"contacts"`
	Domains  []Domain  `json:"domains"`
	Updated  string    `json:"updated"`
}

// Store is a file-backed VIP list. Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store backed by the given JSON file. The file is
// created on first write.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the current contacts and domains. A missing file means an
// empty list; a corrupt file is an error.
func (s *Store) Load() ([]Contact, []Domain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]Contact, []Domain, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read vip file: %w", err)
	}
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse vip file: %w", err)
	}
	return f.Contacts, f.Domains, nil
}

func (s *Store) save(contacts []Contact, domains []Domain) error {
	f := fileFormat{
		Contacts: contacts,
		Domains:  domains,
		Updated:  time.Now().UTC().Format(time.RFC3339),
	}
	if f.Contacts == nil {
		f.Contacts = []Contact{}
	}
	if f.Domains == nil {
		f.Domains = []Domain{}
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal vip file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write vip file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// AddContact adds an address, case-insensitively deduplicated.
func (s *Store) AddContact(email, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, domains, err := s.load()
	if err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("empty email")
	}
	for _, c := range contacts {
		if c.Email == email {
			return nil
		}
	}
	contacts = append(contacts, Contact{Email: email, Name: name})
	return s.save(contacts, domains)
}

// RemoveContact deletes an address if present.
func (s *Store) RemoveContact(email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, domains, err := s.load()
	if err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	kept := contacts[:0]
	for _, c := range contacts {
		if c.Email != email {
			kept = append(kept, c)
		}
	}
	return s.save(kept, domains)
}

// AddDomain adds a sender domain, case-insensitively deduplicated.
func (s *Store) AddDomain(domain, company string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, domains, err := s.load()
	if err != nil {
		return err
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return fmt.Errorf("empty domain")
	}
	for _, d := range domains {
		if d.Domain == domain {
			return nil
		}
	}
	domains = append(domains, Domain{Domain: domain, Company: company})
	return s.save(contacts, domains)
}

// RemoveDomain deletes a domain if present.
func (s *Store) RemoveDomain(domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, domains, err := s.load()
	if err != nil {
		return err
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	kept := domains[:0]
	for _, d := range domains {
		if d.Domain != domain {
			kept = append(kept, d)
		}
	}
	return s.save(contacts, kept)
}

// Addresses returns the bare email addresses.
func Addresses(contacts []Contact) []string {
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, c.Email)
	}
	return out
}

// DomainNames returns the bare domain strings.
func DomainNames(domains []Domain) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		out = append(out, d.Domain)
	}
	return out
}

// IsVIP reports whether an address matches a contact or domain.
func IsVIP(email string, contacts []Contact, domains []Domain) bool {
	email = strings.ToLower(email)
	for _, c := range contacts {
		if c.Email == email {
			return true
		}
	}
	for _, d := range domains {
		if strings.HasSuffix(email, "@"+d.Domain) {
			return true
		}
	}
	return false
}
