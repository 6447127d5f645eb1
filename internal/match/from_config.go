package match

import (
	"github.com/ashgrove-robotics/fieldpose/internal/config"
)

// EngineFromConfig builds an engine from the service configuration. Tables
// come from cfg's tables_path, or the embedded defaults when it is empty.
// The loaded tables are returned alongside the engine so callers can report
// the revision they are running.
func EngineFromConfig(cfg *config.Config) (*Engine, *config.Tables, error) {
	tables, err := config.LoadTables(cfg.GetTablesPath())
	if err != nil {
		return nil, nil, err
	}

	set := NewTableSet(
		NewTable(string(AllianceBlue), tables.Blue),
		NewTable(string(AllianceRed), tables.Red),
		ParseAlliance(cfg.GetFallbackAlliance()),
	)
	return NewEngine(set, cfg.GetOffsetMeters()), tables, nil
}
