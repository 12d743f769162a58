// Package models defines the domain types for cbl.
package models

import "time"

// Project is a named collection of documentation objects.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Record is one immutable version of a named object. Section and Audience
// are nil when the record was added without them.
type Record struct {
	Seq       int64     `json:"seq"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Section   *string   `json:"section,omitempty"`
	Audience  *string   `json:"audience,omitempty"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"created_at"`
}

// SectionLabel returns the section or "" when absent.
func (r Record) SectionLabel() string {
	if r.Section == nil {
		return ""
	}
	return *r.Section
}

// AudienceLabel returns the audience or "" when absent.
func (r Record) AudienceLabel() string {
	if r.Audience == nil {
		return ""
	}
	return *r.Audience
}

// Optional returns nil for the empty string and a pointer to s otherwise.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
