package models

// All lists every persisted model in dependency order. The sqlite dev
// database is built from it with AutoMigrate.
func All() []any {
	return []any{
		&Customer{},
		&Order{},
		&OrderItem{},
		&PaymentAttempt{},
		&Invoice{},
		&OutboxRecord{},
		&OutboxDeadLetter{},
	}
}
