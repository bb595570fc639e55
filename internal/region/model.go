// Package region persists NUTS region records and reads them back.
package region

import (
	"bytes"
	"time"
)

// Region is the persisted row for one NUTS administrative boundary unit.
type Region struct {
	NUTSID      string    `json:"nuts_id" yaml:"nuts_id"`
	LevelCode   int       `json:"levl_code" yaml:"levl_code"`
	CountryCode string    `json:"cntr_code" yaml:"cntr_code"`
	NameLatin   string    `json:"name_latn" yaml:"name_latn"`
	NUTSName    string    `json:"nuts_name" yaml:"nuts_name"`
	MountType   *int      `json:"mount_type" yaml:"mount_type"`
	UrbanType   *int      `json:"urbn_type" yaml:"urbn_type"`
	CoastType   *int      `json:"coast_type" yaml:"coast_type"`
	FID         string    `json:"fid" yaml:"fid"`
	Geometry    []byte    `json:"-" yaml:"-"`
	Version     int       `json:"version_number" yaml:"version_number"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// HasGeometry reports whether an EWKB boundary is attached.
func (r Region) HasGeometry() bool { return len(r.Geometry) > 0 }

// Filter narrows ListRegions. The zero value selects every region.
type Filter struct {
	CountryCode string
	Level       *int
}

// SaveResult summarizes one SaveRegions call.
type SaveResult struct {
	Inserted   int `json:"inserted"`
	Updated    int `json:"updated"`
	Unchanged  int `json:"unchanged"`
	Duplicates int `json:"duplicates"`
}

// Total is the number of distinct regions in the saved batch.
func (r SaveResult) Total() int { return r.Inserted + r.Updated + r.Unchanged }

// RunStatus is the lifecycle state of a load run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded execution of the load-and-save operation.
type Run struct {
	ID          string     `json:"id" yaml:"id"`
	Source      string     `json:"source" yaml:"source"`
	Status      RunStatus  `json:"status" yaml:"status"`
	Inserted    int        `json:"inserted" yaml:"inserted"`
	Updated     int        `json:"updated" yaml:"updated"`
	Unchanged   int        `json:"unchanged" yaml:"unchanged"`
	Duplicates  int        `json:"duplicates" yaml:"duplicates"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// sameAttributes compares the mapped fields of an incoming record against a
// stored one. A nil incoming geometry never counts as a change.
func sameAttributes(in, stored Region) bool {
	if in.LevelCode != stored.LevelCode ||
		in.CountryCode != stored.CountryCode ||
		in.NameLatin != stored.NameLatin ||
		in.NUTSName != stored.NUTSName ||
		in.FID != stored.FID ||
		!equalInt(in.MountType, stored.MountType) ||
		!equalInt(in.UrbanType, stored.UrbanType) ||
		!equalInt(in.CoastType, stored.CoastType) {
		return false
	}
	if in.HasGeometry() && !bytes.Equal(in.Geometry, stored.Geometry) {
		return false
	}
	return true
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
