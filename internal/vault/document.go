package vault

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	pmerr "github.com/Hussein-Mazeh/passman/internal/errors"
)

// Document is the decrypted vault contents.
type Document struct {
	Metadata Metadata             `json:"metadata"`
	Accounts map[uuid.UUID]Record `json:"accounts"`
	Tags     []string             `json:"tags"`

	now func() time.Time
}

// New returns an empty document owned by owner.
func New(owner string) *Document {
	d := &Document{Accounts: make(map[uuid.UUID]Record)}
	now := d.clock()
	d.Metadata = Metadata{
		Version:      FormatVersion,
		Owner:        strings.TrimSpace(owner),
		CreatedAt:    now,
		LastModified: now,
		Settings:     DefaultSettings(),
	}
	return d
}

// SetClock overrides the time source used for record timestamps.
func (d *Document) SetClock(now func() time.Time) { d.now = now }

func (d *Document) clock() time.Time {
	if d.now != nil {
		return d.now().UTC()
	}
	return time.Now().UTC()
}

// Validate checks structural consistency after deserialization.
func (d *Document) Validate() error {
	if d.Metadata.Version == "" {
		return fmt.Errorf("missing format version: %w", pmerr.ErrMalformedDocument)
	}
	if d.Accounts == nil {
		d.Accounts = make(map[uuid.UUID]Record)
	}
	for id, r := range d.Accounts {
		if r.ID != id {
			return fmt.Errorf("record %s stored under key %s: %w", r.ID, id, pmerr.ErrMalformedDocument)
		}
	}
	return nil
}

// Len returns the number of records.
func (d *Document) Len() int { return len(d.Accounts) }

// Add creates a record from in and assigns it a new identifier.
func (d *Document) Add(in RecordInput) (Record, error) {
	if err := in.Validate(); err != nil {
		return Record{}, err
	}
	now := d.clock()
	r := Record{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	r.apply(in)
	if err := d.Insert(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Insert stores r as is. Identifiers are never reassigned, so a duplicate is rejected.
func (d *Document) Insert(r Record) error {
	if r.ID == uuid.Nil {
		return pmerr.Wrap(pmerr.KindInvalidInput, "insert record", fmt.Errorf("record id is required"))
	}
	if _, ok := d.Accounts[r.ID]; ok {
		return pmerr.Wrap(pmerr.KindInvalidInput, "insert record", fmt.Errorf("record %s already exists", r.ID))
	}
	if d.Accounts == nil {
		d.Accounts = make(map[uuid.UUID]Record)
	}
	d.Accounts[r.ID] = r
	d.Stamp(d.clock())
	return nil
}

// Get returns the record with the given id.
func (d *Document) Get(id uuid.UUID) (Record, error) {
	r, ok := d.Accounts[id]
	if !ok {
		return Record{}, fmt.Errorf("record %s: %w", id, pmerr.ErrAccountNotFound)
	}
	return r, nil
}

// Update replaces the editable fields of an existing record.
func (d *Document) Update(id uuid.UUID, in RecordInput) (Record, error) {
	r, err := d.Get(id)
	if err != nil {
		return Record{}, err
	}
	if err := in.Validate(); err != nil {
		return Record{}, err
	}
	r.apply(in)
	r.UpdatedAt = d.clock()
	d.Accounts[id] = r
	d.Stamp(r.UpdatedAt)
	return r, nil
}

// Remove deletes the record with the given id and returns it.
func (d *Document) Remove(id uuid.UUID) (Record, error) {
	r, err := d.Get(id)
	if err != nil {
		return Record{}, err
	}
	delete(d.Accounts, id)
	d.Stamp(d.clock())
	return r, nil
}

// MarkAccessed records that the secret of id was read.
func (d *Document) MarkAccessed(id uuid.UUID) (Record, error) {
	r, err := d.Get(id)
	if err != nil {
		return Record{}, err
	}
	now := d.clock()
	r.LastAccessed = &now
	d.Accounts[id] = r
	return r, nil
}

// Stamp refreshes the derived metadata: modification time, count and tag index.
func (d *Document) Stamp(now time.Time) {
	d.Metadata.LastModified = now.UTC()
	d.Metadata.AccountCount = len(d.Accounts)

	tags := make([]string, 0)
	for _, r := range d.Accounts {
		for _, t := range r.Tags {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	slices.Sort(tags)
	d.Tags = tags
}

// All returns every record ordered by name.
func (d *Document) All() []Record {
	return d.filter(func(Record) bool { return true })
}

// Search returns records whose name, URL, username or tags contain query, ignoring case.
func (d *Document) Search(query string) []Record {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return d.All()
	}
	return d.filter(func(r Record) bool {
		if strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.URL), q) ||
			strings.Contains(strings.ToLower(r.Username), q) {
			return true
		}
		for _, t := range r.Tags {
			if strings.Contains(strings.ToLower(t), q) {
				return true
			}
		}
		return false
	})
}

// ByCategory returns the records in category c.
func (d *Document) ByCategory(c Category) []Record {
	return d.filter(func(r Record) bool { return r.Category == c })
}

// ByTag returns the records carrying tag.
func (d *Document) ByTag(tag string) []Record {
	return d.filter(func(r Record) bool { return r.HasTag(tag) })
}

// FindByName returns records whose name equals name, ignoring case.
func (d *Document) FindByName(name string) []Record {
	return d.filter(func(r Record) bool { return strings.EqualFold(r.Name, strings.TrimSpace(name)) })
}

func (d *Document) filter(keep func(Record) bool) []Record {
	out := make([]Record, 0, len(d.Accounts))
	for _, r := range d.Accounts {
		if keep(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Record) int {
		if c := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out
}
