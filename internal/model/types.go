// Package model holds the records exchanged with the statistics backend and
// persisted by the local cache.
package model

import "time"

// =============================================================================
// ENUMS
// =============================================================================

// RegistryStatus is the entity registry state of an entity.
type RegistryStatus string

const (
	RegistryEnabled       RegistryStatus = "Enabled"
	RegistryDisabled      RegistryStatus = "Disabled"
	RegistryNotInRegistry RegistryStatus = "Not in Registry"
)

// StateStatus is the state machine state of an entity.
type StateStatus string

const (
	StateAvailable   StateStatus = "Available"
	StateUnavailable StateStatus = "Unavailable"
	StateNotPresent  StateStatus = "Not Present"
)

// Origin names the tables a delete statement has to target.
type Origin string

const (
	OriginStates           Origin = "States"
	OriginLongTerm         Origin = "Long-term"
	OriginShortTerm        Origin = "Short-term"
	OriginBoth             Origin = "Both"
	OriginStatesStatistics Origin = "States+Statistics"
)

// Valid reports whether o is one of the origins the backend accepts.
func (o Origin) Valid() bool {
	switch o {
	case OriginStates, OriginLongTerm, OriginShortTerm, OriginBoth, OriginStatesStatistics:
		return true
	}
	return false
}

// =============================================================================
// RECORDS
// =============================================================================

// EntityRecord is one row of the storage overview. Records are immutable
// snapshots; a refresh replaces the whole slice.
type EntityRecord struct {
	EntityID       string         `json:"entity_id"`
	InRegistry     bool           `json:"in_entity_registry"`
	RegistryStatus RegistryStatus `json:"registry_status"`
	InStateMachine bool           `json:"in_state_machine"`
	StateStatus    StateStatus    `json:"state_status"`

	InStatesMeta          bool `json:"in_states_meta"`
	InStates              bool `json:"in_states"`
	InStatisticsMeta      bool `json:"in_statistics_meta"`
	InStatisticsShortTerm bool `json:"in_statistics_short_term"`
	InStatisticsLongTerm  bool `json:"in_statistics_long_term"`

	StatesCount     int64 `json:"states_count"`
	StatsShortCount int64 `json:"stats_short_count"`
	StatsLongCount  int64 `json:"stats_long_count"`

	LastStateUpdate *Timestamp `json:"last_state_update"`
	LastStatsUpdate *Timestamp `json:"last_stats_update"`

	Platform         string `json:"platform,omitempty"`
	DisabledBy       string `json:"disabled_by,omitempty"`
	DeviceName       string `json:"device_name,omitempty"`
	DeviceDisabled   bool   `json:"device_disabled,omitempty"`
	ConfigEntryState string `json:"config_entry_state,omitempty"`
	ConfigEntryTitle string `json:"config_entry_title,omitempty"`

	AvailabilityReason         string   `json:"availability_reason,omitempty"`
	UnavailableDurationSeconds *float64 `json:"unavailable_duration_seconds"`

	UpdateInterval              string   `json:"update_interval,omitempty"`
	UpdateIntervalSeconds       *float64 `json:"update_interval_seconds"`
	UpdateCount24h              *int64   `json:"update_count_24h"`
	StatisticsEligibilityReason string   `json:"statistics_eligibility_reason,omitempty"`

	MetadataID *int64 `json:"metadata_id"`
	Origin     Origin `json:"origin,omitempty"`
}

// HasData reports whether any metadata row references the entity.
func (e *EntityRecord) HasData() bool {
	return e.InStatesMeta || e.InStatisticsMeta
}

// IsDeleted reports whether the entity is gone from both the registry and the
// state machine.
func (e *EntityRecord) IsDeleted() bool {
	return !e.InRegistry && !e.InStateMachine
}

// IsDisabledWithData reports a registry-disabled entity that still has stored rows.
func (e *EntityRecord) IsDisabledWithData() bool {
	return e.RegistryStatus == RegistryDisabled && e.HasData()
}

// Eligible reports whether delete SQL may be generated for the entity.
func (e *EntityRecord) Eligible() bool {
	return e.HasData() && (e.IsDeleted() || e.IsDisabledWithData())
}

// SummaryCounters are the aggregate counts computed by the backend.
type SummaryCounters struct {
	TotalEntities          int   `json:"total_entities"`
	InEntityRegistry       int   `json:"in_entity_registry"`
	RegistryEnabled        int   `json:"registry_enabled"`
	RegistryDisabled       int   `json:"registry_disabled"`
	InStateMachine         int   `json:"in_state_machine"`
	StateAvailable         int   `json:"state_available"`
	StateUnavailable       int   `json:"state_unavailable"`
	InStatesMeta           int   `json:"in_states_meta"`
	InStates               int   `json:"in_states"`
	InStatisticsMeta       int   `json:"in_statistics_meta"`
	InStatisticsShortTerm  int   `json:"in_statistics_short_term"`
	InStatisticsLongTerm   int   `json:"in_statistics_long_term"`
	OnlyInStates           int   `json:"only_in_states"`
	OnlyInStatistics       int   `json:"only_in_statistics"`
	InBothStatesAndStats   int   `json:"in_both_states_and_stats"`
	OrphanedStatesMeta     int   `json:"orphaned_states_meta"`
	OrphanedStatisticsMeta int   `json:"orphaned_statistics_meta"`
	DeletedFromRegistry    int   `json:"deleted_from_registry"`
	DeletedStorageBytes    int64 `json:"deleted_storage_bytes,omitempty"`
	DisabledStorageBytes   int64 `json:"disabled_storage_bytes,omitempty"`
}

// DatabaseSize is the row and byte breakdown of the recorder database.
type DatabaseSize struct {
	States                  int64  `json:"states"`
	Statistics              int64  `json:"statistics"`
	StatisticsShortTerm     int64  `json:"statistics_short_term"`
	Other                   int64  `json:"other"`
	StatesSize              int64  `json:"states_size"`
	StatisticsSize          int64  `json:"statistics_size"`
	StatisticsShortTermSize int64  `json:"statistics_short_term_size"`
	OtherSize               int64  `json:"other_size"`
	Version                 string `json:"version,omitempty"`
}

// TotalBytes sums the per-table sizes.
func (d DatabaseSize) TotalBytes() int64 {
	return d.StatesSize + d.StatisticsSize + d.StatisticsShortTermSize + d.OtherSize
}

// MessageHistogram is the hourly message count of one entity.
type MessageHistogram struct {
	HourlyCounts  []int `json:"hourly_counts"`
	TotalMessages int   `json:"total_messages"`
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is one complete overview result. A *Snapshot is never mutated
// after construction; its pointer is its identity.
type Snapshot struct {
	Entities     []EntityRecord
	Summary      SummaryCounters
	DatabaseSize *DatabaseSize
	CapturedAt   time.Time
}

// NewSnapshot copies entities into a fresh snapshot.
func NewSnapshot(entities []EntityRecord, summary SummaryCounters, size *DatabaseSize, capturedAt time.Time) *Snapshot {
	cp := make([]EntityRecord, len(entities))
	copy(cp, entities)
	return &Snapshot{
		Entities:     cp,
		Summary:      summary,
		DatabaseSize: size,
		CapturedAt:   capturedAt,
	}
}

// WithDatabaseSize returns a new snapshot sharing entities but carrying size.
func (s *Snapshot) WithDatabaseSize(size *DatabaseSize) *Snapshot {
	out := *s
	out.DatabaseSize = size
	return &out
}

// Index maps entity ids to their position in Entities.
func (s *Snapshot) Index() map[string]int {
	idx := make(map[string]int, len(s.Entities))
	for i := range s.Entities {
		idx[s.Entities[i].EntityID] = i
	}
	return idx
}

// Find returns the record for id.
func (s *Snapshot) Find(id string) (*EntityRecord, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Entities {
		if s.Entities[i].EntityID == id {
			return &s.Entities[i], true
		}
	}
	return nil, false
}

// Len is safe on a nil snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entities)
}
