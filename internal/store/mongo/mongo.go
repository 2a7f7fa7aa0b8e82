// Package mongo is the Store backed by a MongoDB replica set. Every Store
// transaction is a driver session transaction at snapshot read concern.
//
// Lock* methods bump a counter on the document they read. Two transactions
// that lock the same document therefore write-conflict, and the driver aborts
// and retries the loser. Exclusive transactions rely on the same mechanism:
// account deletion locks the account that every related writer also locks.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/pointsops/internal/domain"
	"github.com/punchamoorthee/pointsops/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	driver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	colAccounts     = "accounts"
	colTransactions = "transactions"
	colPolls        = "polls"
	colRequests     = "admin_requests"
	colMessages     = "chat_messages"
	colAnalysis     = "analysis_history"

	onePendingIndex = "admin_requests_one_pending"
)

var errReadOnly = errors.New("write in read-only transaction")

type Store struct {
	client *driver.Client
	db     *driver.Database
}

// Open connects to uri, checks the server and ensures the indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := driver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("cannot ping mongodb: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	caseless := &options.Collation{Locale: "en", Strength: 2}
	indexes := map[string][]driver.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("accounts_username_key")},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("accounts_email_key").SetCollation(caseless)},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colPolls: {
			{Keys: bson.D{{Key: "creator_id", Value: 1}}},
		},
		colRequests: {
			{
				Keys: bson.D{{Key: "user_id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName(onePendingIndex).
					SetPartialFilterExpression(bson.M{"status": string(domain.StatusPending)}),
			},
		},
		colMessages: {
			{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		colAnalysis: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
	}
	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("cannot create %s indexes: %w", col, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) InTx(ctx context.Context, opts store.TxOptions, fn func(tx store.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return domain.Unavailable(fmt.Errorf("session start failed: %w", err))
	}
	defer sess.EndSession(ctx)

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(driver.SessionContext) (any, error) {
		return nil, fn(&tx{s: s, sess: sess, readOnly: opts.ReadOnly})
	}, txOpts)
	if err != nil {
		return domain.Unavailable(castErr(err))
	}
	return nil
}

type tx struct {
	s        *Store
	sess     driver.Session
	readOnly bool
}

// sc binds ctx to the transaction's session.
func (t *tx) sc(ctx context.Context) context.Context {
	return driver.NewSessionContext(ctx, t.sess)
}

func (t *tx) col(name string) *driver.Collection {
	return t.s.db.Collection(name)
}

func (t *tx) writable() error {
	if t.readOnly {
		return domain.Unavailable(errReadOnly)
	}
	return nil
}

// lockOne reads the document with _id and, in read-write transactions,
// marks it written so concurrent lockers conflict.
func (t *tx) lockOne(ctx context.Context, col, id string, out any) error {
	var res *driver.SingleResult
	if t.readOnly {
		res = t.col(col).FindOne(t.sc(ctx), bson.M{"_id": id})
	} else {
		res = t.col(col).FindOneAndUpdate(t.sc(ctx),
			bson.M{"_id": id},
			bson.M{"$inc": bson.M{"lock_seq": 1}},
			options.FindOneAndUpdate().SetReturnDocument(options.After))
	}
	return castErr(res.Decode(out))
}

func (t *tx) insert(ctx context.Context, col string, doc any) error {
	if err := t.writable(); err != nil {
		return err
	}
	_, err := t.col(col).InsertOne(t.sc(ctx), doc)
	return castErr(err)
}

func (t *tx) updateOne(ctx context.Context, col, id string, set bson.M) error {
	if err := t.writable(); err != nil {
		return err
	}
	res, err := t.col(col).UpdateOne(t.sc(ctx), bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return castErr(err)
	}
	if res.MatchedCount != 1 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) deleteOne(ctx context.Context, col, id string) error {
	n, err := t.deleteMany(ctx, col, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n != 1 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *tx) deleteMany(ctx context.Context, col string, filter bson.M) (int, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	res, err := t.col(col).DeleteMany(t.sc(ctx), filter)
	if err != nil {
		return 0, castErr(err)
	}
	return int(res.DeletedCount), nil
}

// find decodes every match of filter into out, sorted by created_at.
func (t *tx) find(ctx context.Context, col string, filter bson.M, newestFirst bool, out any) error {
	dir := 1
	if newestFirst {
		dir = -1
	}
	cur, err := t.col(col).Find(t.sc(ctx), filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: dir}}))
	if err != nil {
		return castErr(err)
	}
	return castErr(cur.All(t.sc(ctx), out))
}

// transientTxnLabel marks errors after which the whole transaction may be retried.
const transientTxnLabel = "TransientTransactionError"

// castErr replaces driver errors with their domain equivalent. Transient
// transaction errors are returned untouched so WithTransaction can retry.
func castErr(err error) error {
	if err == nil || domain.IsDomain(err) {
		return err
	}
	var labeled driver.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel(transientTxnLabel) {
		return err
	}
	if errors.Is(err, driver.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	if driver.IsDuplicateKeyError(err) {
		if strings.Contains(err.Error(), onePendingIndex) {
			return domain.ErrDuplicateRequest
		}
		return domain.ErrConflict
	}
	return domain.Unavailable(err)
}

func parseID(s string) (domain.ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return domain.ID{}, domain.Unavailable(fmt.Errorf("corrupt id %q: %w", s, err))
	}
	return id, nil
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)
