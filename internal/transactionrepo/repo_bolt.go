package transactionrepo

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

var (
	transactionsBucketName = []byte("transactions")
	byIDBucketName         = []byte("byID")
	byAccountBucketName    = []byte("byAccount")
)

// RepoBolt is an embedded bbolt implementation of the transaction repository.
//
// Entries live in two places: byID for the global sequence and a per-account
// sub-bucket for history lookups. Both are append-only.
type RepoBolt struct {
	db *bolt.DB
}

// NewRepoBolt creates the transaction buckets if needed and returns the repo.
func NewRepoBolt(db *bolt.DB) (*RepoBolt, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		tBucket, err := tx.CreateBucketIfNotExists(transactionsBucketName)
		if err != nil {
			return err
		}

		if _, err = tBucket.CreateBucketIfNotExists(byIDBucketName); err != nil {
			return err
		}

		_, err = tBucket.CreateBucketIfNotExists(byAccountBucketName)

		return err
	})
	if err != nil {
		return nil, err
	}

	return &RepoBolt{db: db}, nil
}

// Create appends a transaction to the log and returns it.
func (r *RepoBolt) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	var t domain.Transaction

	err := boltpkg.Update(ctx, r.db, func(tx *bolt.Tx) error {
		tBucket := tx.Bucket(transactionsBucketName)
		byIDBucket := tBucket.Bucket(byIDBucketName)

		seq, err := byIDBucket.NextSequence()
		if err != nil {
			return err
		}

		t = domain.Transaction{
			ID:        int64(seq),
			AccountID: arg.AccountID,
			Amount:    arg.Amount,
			Kind:      arg.Kind,
			CreatedAt: time.Now().UTC(),
		}

		raw, err := json.Marshal(t)
		if err != nil {
			return err
		}

		key := itob(seq)

		if err := byIDBucket.Put(key, raw); err != nil {
			return err
		}

		accountBucket, err := tBucket.Bucket(byAccountBucketName).
			CreateBucketIfNotExists(itob(uint64(arg.AccountID)))
		if err != nil {
			return err
		}

		return accountBucket.Put(key, raw)
	})

	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx context.Context, %+v)", arg)
		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return t, nil
}

// ListByAccount returns the account's transactions, most recent first.
// Keys are big-endian sequence numbers, so a reverse cursor walk yields
// descending id order, which matches descending timestamp order for an
// append-only log.
func (r *RepoBolt) ListByAccount(ctx context.Context, accountID int32) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	items := []domain.Transaction{}

	err := boltpkg.View(ctx, r.db, func(tx *bolt.Tx) error {
		bucket := tx.Bucket(transactionsBucketName).
			Bucket(byAccountBucketName).
			Bucket(itob(uint64(accountID)))
		if bucket == nil {
			return nil
		}

		c := bucket.Cursor()

		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var t domain.Transaction
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}

			items = append(items, t)
		}

		return nil
	})

	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)

	return b
}
