package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/frontdesk-api/internal/repository"
)

type appointmentRepository struct {
	BaseRepository
}

type billRepository struct {
	BaseRepository
}

type directoryRepository struct {
	BaseRepository
}

type settingsRepository struct {
	BaseRepository
}

type outboxRepository struct {
	BaseRepository
}

// NewTxManager returns the transaction runner shared by all repositories on db.
func NewTxManager(db *sqlx.DB) repository.TxManager {
	base := NewBaseRepository(db)
	return &base
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{NewBaseRepository(db)}
}

func NewBillRepository(db *sqlx.DB) repository.BillRepository {
	return &billRepository{NewBaseRepository(db)}
}

func NewDirectoryRepository(db *sqlx.DB) repository.DirectoryRepository {
	return &directoryRepository{NewBaseRepository(db)}
}

func NewSettingsRepository(db *sqlx.DB) repository.SettingsRepository {
	return &settingsRepository{NewBaseRepository(db)}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{NewBaseRepository(db)}
}
