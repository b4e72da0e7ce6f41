package repository

import "database/sql"

// Catalog bundles property and unit lookups.
type Catalog struct {
	PropertyRepository
	UnitRepository
}

func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{
		PropertyRepository: NewPropertyRepository(db),
		UnitRepository:     NewUnitRepository(db),
	}
}
