package testutil

// LogisticsMigrations returns the logistics service schema, one statement
// per entry, mirroring migrations/001_initial_schema.sql. Constraint names
// are load-bearing: pkg/database maps them to validation errors.
func LogisticsMigrations() []string {
	return []string{
		// Stock locations
		`CREATE TABLE IF NOT EXISTS locations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			type VARCHAR(20) NOT NULL,
			address TEXT,
			linked_entity_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT location_type_valid CHECK (type IN ('company', 'patient', 'vehicle'))
		)`,

		// Catalog items
		`CREATE TABLE IF NOT EXISTS items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			category VARCHAR(20) NOT NULL,
			unit VARCHAR(50) NOT NULL,
			min_stock INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT item_category_valid CHECK (category IN ('medication', 'supply', 'equipment')),
			CONSTRAINT min_stock_non_negative CHECK (min_stock >= 0)
		)`,

		// Stock ledger: one row per (location, item) granule. The check
		// constraint is the last line of defense; the repository validates
		// post-images before writing.
		`CREATE TABLE IF NOT EXISTS stock_entries (
			location_id UUID NOT NULL REFERENCES locations(id),
			item_id UUID NOT NULL REFERENCES items(id),
			quantity INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (location_id, item_id),
			CONSTRAINT quantity_non_negative CHECK (quantity >= 0)
		)`,

		// Movements. from_location_id is NULL for supplier receipts.
		`CREATE TABLE IF NOT EXISTS movements (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			from_location_id UUID REFERENCES locations(id),
			to_location_id UUID NOT NULL REFERENCES locations(id),
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			requested_by UUID NOT NULL,
			observation TEXT,
			loss_observation TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			settled_at TIMESTAMPTZ,
			CONSTRAINT movement_status_valid CHECK (status IN ('pending', 'approved', 'rejected', 'lost', 'completed'))
		)`,

		// Movement lines. item_name is denormalized at creation time.
		`CREATE TABLE IF NOT EXISTS movement_items (
			movement_id UUID NOT NULL REFERENCES movements(id) ON DELETE CASCADE,
			item_id UUID NOT NULL REFERENCES items(id),
			item_name VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			quantity_lost INT NOT NULL DEFAULT 0,
			PRIMARY KEY (movement_id, item_id),
			CONSTRAINT line_quantity_positive CHECK (quantity > 0),
			CONSTRAINT quantity_lost_within_line CHECK (quantity_lost >= 0 AND quantity_lost <= quantity)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_movements_status ON movements(status)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_to_location ON movements(to_location_id)`,

		// Local cache of patient and company display data, maintained by
		// the registry event consumer
		`CREATE TABLE IF NOT EXISTS entity_cache (
			entity_id UUID PRIMARY KEY,
			kind VARCHAR(20) NOT NULL,
			name VARCHAR(255) NOT NULL,
			address TEXT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
}
