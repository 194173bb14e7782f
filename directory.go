package careauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const directoryTxRetries = 5

// userDirectory is the persisted collection of registered identities plus
// the single merged current-profile record. The whole identity list lives in
// one named value serialized as JSON, matching the append-only directory
// model: records are inserted, never mutated or deleted.
type userDirectory struct {
	redis      *redis.Client
	usersKey   string
	profileKey string
	log        *slog.Logger
}

func newUserDirectory(redisClient *redis.Client, cfg DirectoryConfig, log *slog.Logger) *userDirectory {
	return &userDirectory{
		redis:      redisClient,
		usersKey:   cfg.UsersKey,
		profileKey: cfg.ProfileKey,
		log:        log,
	}
}

func (d *userDirectory) all(ctx context.Context) ([]Identity, error) {
	data, err := d.redis.Get(ctx, d.usersKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var records []Identity
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: corrupt directory record: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}

// FindByEmailOrPhone returns the first record whose email or phone equals
// the identifier, case-sensitive exact match. The second return reports
// presence.
func (d *userDirectory) FindByEmailOrPhone(ctx context.Context, identifier string) (Identity, bool, error) {
	records, err := d.all(ctx)
	if err != nil {
		return Identity{}, false, err
	}
	for _, rec := range records {
		if rec.Email == identifier || rec.Phone == identifier {
			return rec, true, nil
		}
	}
	return Identity{}, false, nil
}

// Exists reports whether any record matches the identifier.
func (d *userDirectory) Exists(ctx context.Context, identifier string) (bool, error) {
	_, found, err := d.FindByEmailOrPhone(ctx, identifier)
	return found, err
}

// Insert appends an identity unless its email or phone is already present.
// A duplicate is non-fatal: callers are expected to have pre-checked with
// Exists, so the in-transaction check only guards the uniqueness invariant
// and logs a warning when it trips.
func (d *userDirectory) Insert(ctx context.Context, identity Identity) error {
	for attempt := 0; attempt < directoryTxRetries; attempt++ {
		err := d.redis.Watch(ctx, func(tx *redis.Tx) error {
			var records []Identity
			data, err := tx.Get(ctx, d.usersKey).Bytes()
			switch {
			case err == nil:
				if err := json.Unmarshal(data, &records); err != nil {
					return fmt.Errorf("corrupt directory record: %v", err)
				}
			case errors.Is(err, redis.Nil):
			default:
				return err
			}

			for _, rec := range records {
				if rec.Email == identity.Email || rec.Phone == identity.Phone {
					d.log.Warn("directory insert skipped: identity already registered",
						slog.String("phone", maskPhone(identity.Phone)))
					return nil
				}
			}

			records = append(records, identity)
			updated, err := json.Marshal(records)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, d.usersKey, updated, 0)
				return nil
			})
			return err
		}, d.usersKey)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return nil
	}

	return fmt.Errorf("%w: directory transaction contention", ErrStoreUnavailable)
}

// SaveProfile merges fields into the single current-profile record. Empty
// fields leave the stored value untouched.
func (d *userDirectory) SaveProfile(ctx context.Context, update Identity) error {
	current, _, err := d.Profile(ctx)
	if err != nil {
		return err
	}
	if update.FullName != "" {
		current.FullName = update.FullName
	}
	if update.Email != "" {
		current.Email = update.Email
	}
	if update.Phone != "" {
		current.Phone = update.Phone
	}
	if update.Location != "" {
		current.Location = update.Location
	}

	data, err := json.Marshal(current)
	if err != nil {
		return err
	}
	if err := d.redis.Set(ctx, d.profileKey, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Profile returns the current merged profile, if one is stored.
func (d *userDirectory) Profile(ctx context.Context) (Identity, bool, error) {
	data, err := d.redis.Get(ctx, d.profileKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Identity{}, false, nil
		}
		return Identity{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var profile Identity
	if err := json.Unmarshal(data, &profile); err != nil {
		return Identity{}, false, fmt.Errorf("%w: corrupt profile record: %v", ErrStoreUnavailable, err)
	}
	return profile, true, nil
}

// ClearProfile removes the current-profile record. Logout path.
func (d *userDirectory) ClearProfile(ctx context.Context) error {
	if err := d.redis.Del(ctx, d.profileKey).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
