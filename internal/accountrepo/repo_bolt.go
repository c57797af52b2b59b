package accountrepo

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/go-petr/ledger-core/internal/domain"
	"github.com/go-petr/ledger-core/pkg/boltpkg"
	"github.com/go-petr/ledger-core/pkg/errorspkg"
)

var accountsBucketName = []byte("accounts")

// RepoBolt is an embedded bbolt implementation of the account repository.
type RepoBolt struct {
	db *bolt.DB
}

// NewRepoBolt creates the accounts bucket if needed and returns the repo.
func NewRepoBolt(db *bolt.DB) (*RepoBolt, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(accountsBucketName)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &RepoBolt{db: db}, nil
}

// Create creates the account and then returns it.
func (r *RepoBolt) Create(ctx context.Context, holder, balance string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	var a domain.Account

	err := boltpkg.Update(ctx, r.db, func(tx *bolt.Tx) error {
		bucket := tx.Bucket(accountsBucketName)

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		a = domain.Account{
			ID:        int32(seq),
			Holder:    holder,
			Balance:   balance,
			CreatedAt: time.Now().UTC(),
		}

		raw, err := json.Marshal(a)
		if err != nil {
			return err
		}

		return bucket.Put(itob(uint64(a.ID)), raw)
	})

	if err != nil {
		l.Error().Err(err).Send()
		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

// Get returns the account with the given id.
func (r *RepoBolt) Get(ctx context.Context, id int32) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	var a domain.Account

	err := boltpkg.View(ctx, r.db, func(tx *bolt.Tx) error {
		raw := tx.Bucket(accountsBucketName).Get(itob(uint64(id)))
		if raw == nil {
			return domain.ErrAccountNotFound
		}

		return json.Unmarshal(raw, &a)
	})

	if err != nil {
		if err == domain.ErrAccountNotFound {
			return domain.Account{}, err
		}

		l.Error().Err(err).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

// List returns all accounts ordered by id.
func (r *RepoBolt) List(ctx context.Context) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	items := []domain.Account{}

	err := boltpkg.View(ctx, r.db, func(tx *bolt.Tx) error {
		return tx.Bucket(accountsBucketName).ForEach(func(k, v []byte) error {
			var a domain.Account
			if err := json.Unmarshal(v, &a); err != nil {
				return err
			}

			items = append(items, a)

			return nil
		})
	})

	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

// SetBalance overwrites the account's balance and returns the changed account.
func (r *RepoBolt) SetBalance(ctx context.Context, id int32, balance string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	var a domain.Account

	err := boltpkg.Update(ctx, r.db, func(tx *bolt.Tx) error {
		bucket := tx.Bucket(accountsBucketName)

		key := itob(uint64(id))

		raw := bucket.Get(key)
		if raw == nil {
			return domain.ErrAccountNotFound
		}

		if err := json.Unmarshal(raw, &a); err != nil {
			return err
		}

		a.Balance = balance

		raw, err := json.Marshal(a)
		if err != nil {
			return err
		}

		return bucket.Put(key, raw)
	})

	if err != nil {
		if err == domain.ErrAccountNotFound {
			return domain.Account{}, err
		}

		l.Error().Err(err).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

// Delete removes the account with the given id.
func (r *RepoBolt) Delete(ctx context.Context, id int32) error {
	l := zerolog.Ctx(ctx)

	err := boltpkg.Update(ctx, r.db, func(tx *bolt.Tx) error {
		bucket := tx.Bucket(accountsBucketName)

		key := itob(uint64(id))

		if bucket.Get(key) == nil {
			return domain.ErrAccountNotFound
		}

		return bucket.Delete(key)
	})

	if err != nil {
		if err == domain.ErrAccountNotFound {
			return err
		}

		l.Error().Err(err).Send()

		return errorspkg.ErrInternal
	}

	return nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)

	return b
}
