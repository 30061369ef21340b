package postgres

// SQL queries for PostgreSQL metadata introspection.
const (
	queryPing = `SELECT 1`

	queryListTables = `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		  AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_schema, table_name`

	queryListColumns = `
		SELECT table_schema, table_name, column_name
		FROM information_schema.columns
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY table_schema, table_name, ordinal_position`

	queryTableRowCounts = `
		SELECT n.nspname, c.relname, GREATEST(COALESCE(c.reltuples, 0), 0)::bigint
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind = 'r'
		  AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')`
)
