// Package output builds the view model shared by the terminal panel, the
// console report and the MCP tools. Nothing here prints.
package output

import (
	"time"

	"orphanfinder/internal/engine"
	"orphanfinder/internal/format"
	"orphanfinder/internal/model"
)

// Section constants to avoid hardcoded strings
const (
	SectionHealth   = "health"
	SectionRegistry = "registry"
	SectionStorage  = "storage"
	SectionDatabase = "database"
)

// UI/view-model types (no printing here)
type Item struct {
	Key     string
	Label   string
	Value   float64
	Display string
	Status  string
	Note    string
	Action  string
}

type Section struct {
	ID    string
	Title string
	Items []Item
}

// Meta describes where the displayed data came from.
type Meta struct {
	Source   string
	Age      time.Duration
	AgeKnown bool
}

type DashboardView struct {
	Sections      []Section
	TotalEntities int
	DatabaseBytes int64
	Source        string
	Age           string
	Status        string
}

func count(key, label string, n int) Item {
	return Item{Key: key, Label: label, Value: float64(n), Display: format.Number(int64(n))}
}

func size(key, label string, rows, bytes int64) Item {
	return Item{
		Key:     key,
		Label:   label,
		Value:   float64(bytes),
		Display: format.Bytes(bytes),
		Note:    format.Number(rows) + " rows",
	}
}

// BuildDashboard converts health results and a snapshot into UI-ready sections.
func BuildDashboard(results []engine.CheckResult, snap *model.Snapshot, meta Meta) DashboardView {
	sec := map[string]*Section{
		SectionHealth:   {ID: SectionHealth, Title: "Storage Health"},
		SectionRegistry: {ID: SectionRegistry, Title: "Entities"},
		SectionStorage:  {ID: SectionStorage, Title: "Recorder Tables"},
		SectionDatabase: {ID: SectionDatabase, Title: "Database Size"},
	}

	for _, r := range results {
		sec[SectionHealth].Items = append(sec[SectionHealth].Items, Item{
			Key:     r.Action,
			Label:   r.Name,
			Value:   r.Value,
			Display: r.Text,
			Status:  r.Status,
			Note:    r.Button,
			Action:  r.Action,
		})
	}

	view := DashboardView{
		Source: meta.Source,
		Age:    format.Age(meta.Age, meta.AgeKnown),
		Status: engine.Worst(results),
	}

	if snap != nil {
		s := snap.Summary
		view.TotalEntities = s.TotalEntities

		sec[SectionRegistry].Items = append(sec[SectionRegistry].Items,
			count("total_entities", "Total", s.TotalEntities),
			count("in_entity_registry", "In registry", s.InEntityRegistry),
			count("registry_enabled", "Enabled", s.RegistryEnabled),
			count("registry_disabled", "Disabled", s.RegistryDisabled),
			count("in_state_machine", "In state machine", s.InStateMachine),
			count("state_available", "Available", s.StateAvailable),
			count("state_unavailable", "Unavailable", s.StateUnavailable),
			count("deleted_from_registry", "Deleted", s.DeletedFromRegistry),
		)

		sec[SectionStorage].Items = append(sec[SectionStorage].Items,
			count("in_states_meta", "states_meta", s.InStatesMeta),
			count("in_states", "states", s.InStates),
			count("in_statistics_meta", "statistics_meta", s.InStatisticsMeta),
			count("in_statistics_short_term", "statistics_short_term", s.InStatisticsShortTerm),
			count("in_statistics_long_term", "statistics", s.InStatisticsLongTerm),
			count("only_in_states", "Only in states", s.OnlyInStates),
			count("only_in_statistics", "Only in statistics", s.OnlyInStatistics),
			count("in_both_states_and_stats", "In both", s.InBothStatesAndStats),
			count("orphaned_states_meta", "Orphaned states_meta", s.OrphanedStatesMeta),
			count("orphaned_statistics_meta", "Orphaned statistics_meta", s.OrphanedStatisticsMeta),
		)

		if d := snap.DatabaseSize; d != nil {
			view.DatabaseBytes = d.TotalBytes()
			sec[SectionDatabase].Items = append(sec[SectionDatabase].Items,
				size("states", "States", d.States, d.StatesSize),
				size("statistics", "Statistics long-term", d.Statistics, d.StatisticsSize),
				size("statistics_short_term", "Statistics short-term", d.StatisticsShortTerm, d.StatisticsShortTermSize),
				size("other", "Other", d.Other, d.OtherSize),
				Item{Key: "total", Label: "Total", Value: float64(view.DatabaseBytes), Display: format.Bytes(view.DatabaseBytes)},
			)
			if d.Version != "" {
				sec[SectionDatabase].Items = append(sec[SectionDatabase].Items,
					Item{Key: "version", Label: "Engine", Note: d.Version})
			}
		}
	}

	view.Sections = []Section{
		*sec[SectionHealth],
		*sec[SectionRegistry],
		*sec[SectionStorage],
		*sec[SectionDatabase],
	}
	return view
}

func (v DashboardView) SectionByID(id string) *Section {
	for i := range v.Sections {
		if v.Sections[i].ID == id {
			return &v.Sections[i]
		}
	}
	return nil
}

func (s Section) ItemByKey(key string) *Item {
	for i := range s.Items {
		if s.Items[i].Key == key {
			return &s.Items[i]
		}
	}
	return nil
}
