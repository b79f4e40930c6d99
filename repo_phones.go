package users

import (
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NewPhonesRepository builds the repository backing a user's phone records.
func NewPhonesRepository(db *bun.DB) repository.Repository[*Phone] {
	handlers := repository.ModelHandlers[*Phone]{
		NewRecord: func() *Phone {
			return &Phone{}
		},
		GetID: func(record *Phone) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Phone, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "number"
		},
	}
	return repository.NewRepository(db, handlers)
}
