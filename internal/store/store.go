package store

import (
	"context"

	"github.com/realia-labs/realia/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	User() User
	Nonce() Nonce
	Session() Session
	Image() Image
	Record() Record
	Verification() Verification
	InitialMigration(ctx context.Context) error
	Close() error
}

type DataStore struct {
	db           *gorm.DB
	user         User
	nonce        Nonce
	session      Session
	image        Image
	record       Record
	verification Verification
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		user:         NewUserStore(db),
		nonce:        NewNonceStore(db),
		session:      NewCacheSessionStore(NewSessionStore(db), defaultSessionCacheSize),
		image:        NewImageStore(db),
		record:       NewRecordStore(db),
		verification: NewVerificationStore(db),
		db:           db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) User() User {
	return s.user
}

func (s *DataStore) Nonce() Nonce {
	return s.nonce
}

func (s *DataStore) Session() Session {
	return s.session
}

func (s *DataStore) Image() Image {
	return s.image
}

func (s *DataStore) Record() Record {
	return s.record
}

func (s *DataStore) Verification() Verification {
	return s.verification
}

// InitialMigration creates the schema from the gorm models. Deployed databases are
// migrated with goose (pkg/migrations); this path serves sqlite and tests.
func (s *DataStore) InitialMigration(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&model.User{},
		&model.Nonce{},
		&model.Session{},
		&model.Image{},
		&model.AuthenticityRecord{},
		&model.VerificationRecord{},
	)
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}
