package sqlstore

// migrations returns the schema migrations in apply order. Statements stick
// to the dialect intersection of PostgreSQL and SQLite: TEXT primary keys,
// TIMESTAMP columns written from Go, no server-side defaults.
func migrations() map[int]string {
	return map[int]string{
		1: `CREATE TABLE IF NOT EXISTS flows (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			status TEXT NOT NULL,
			trigger_event TEXT NOT NULL,
			definition_json TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (slug)
		)`,
		2: `CREATE TABLE IF NOT EXISTS flow_runs (
			id TEXT PRIMARY KEY,
			flow_id TEXT NOT NULL REFERENCES flows (id),
			status TEXT NOT NULL,
			input_json TEXT NOT NULL,
			output_json TEXT NOT NULL,
			error_text TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		3: `CREATE TABLE IF NOT EXISTS options (
			id TEXT PRIMARY KEY,
			opt_key TEXT NOT NULL,
			value_json TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (opt_key)
		)`,
		4: `CREATE TABLE IF NOT EXISTS content_types (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			UNIQUE (slug)
		);
		CREATE TABLE IF NOT EXISTS content_entries (
			id TEXT PRIMARY KEY,
			content_type_id TEXT NOT NULL REFERENCES content_types (id),
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			status TEXT NOT NULL,
			order_index INTEGER NOT NULL,
			data_json TEXT NOT NULL,
			published_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE (content_type_id, slug)
		)`,
		5: `CREATE INDEX IF NOT EXISTS idx_flows_status ON flows (status);
		CREATE INDEX IF NOT EXISTS idx_flows_updated_at ON flows (updated_at);
		CREATE INDEX IF NOT EXISTS idx_flow_runs_flow_id ON flow_runs (flow_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_content_entries_type ON content_entries (content_type_id)`,
	}
}
